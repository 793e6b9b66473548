//  Copyright (c) 2021 Cisco and/or its affiliates.
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at:
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.

package saimux

import (
	"context"
	"sync"
	"time"

	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/metrics"
	"go.ligato.io/orchagent/plugins/sai"
)

// tracedClient records stats of every device call.
type tracedClient struct {
	driver   sai.Client
	recorder *metrics.Recorder
	log      logging.Logger
	trace    bool
	onHealth func(error)

	mu      sync.Mutex
	failing bool
}

func newTracedClient(driver sai.Client, recorder *metrics.Recorder, log logging.Logger,
	trace bool, onHealth func(error)) *tracedClient {
	return &tracedClient{
		driver:   driver,
		recorder: recorder,
		log:      log,
		trace:    trace,
		onHealth: onHealth,
	}
}

func apiName(t sai.ObjectType, op string, bulk bool) string {
	name := op + "_" + t.String()
	if desc, err := sai.GetObjectType(t); err == nil {
		name = desc.APIName(op)
	}
	if bulk {
		return "bulk_" + name
	}
	return name
}

func (c *tracedClient) done(api string, items int, started time.Time, err error, statuses ...sai.Status) {
	took := time.Since(started)
	c.recorder.Record(api, items, took)
	reportCall(api, took, err, statuses)
	if c.trace {
		c.log.Debugf("%s: %d items took %v, statuses %v, err: %v", api, items, took, statuses, err)
	}

	c.mu.Lock()
	changed := c.failing != (err != nil)
	c.failing = err != nil
	c.mu.Unlock()
	if changed && c.onHealth != nil {
		if err != nil {
			c.log.Warnf("device call %s failed: %v", api, err)
		} else {
			c.log.Infof("device calls succeed again")
		}
		c.onHealth(err)
	}
}

func (c *tracedClient) CreateObject(ctx context.Context, t sai.ObjectType, attrs []sai.Attribute) (sai.Handle, sai.Status, error) {
	started := time.Now()
	h, st, err := c.driver.CreateObject(ctx, t, attrs)
	c.done(apiName(t, "create", false), 1, started, err, st)
	return h, st, err
}

func (c *tracedClient) RemoveObject(ctx context.Context, t sai.ObjectType, h sai.Handle) (sai.Status, error) {
	started := time.Now()
	st, err := c.driver.RemoveObject(ctx, t, h)
	c.done(apiName(t, "remove", false), 1, started, err, st)
	return st, err
}

func (c *tracedClient) SetObjectAttribute(ctx context.Context, t sai.ObjectType, h sai.Handle, attr sai.Attribute) (sai.Status, error) {
	started := time.Now()
	st, err := c.driver.SetObjectAttribute(ctx, t, h, attr)
	c.done(apiName(t, "set", false), 1, started, err, st)
	return st, err
}

func (c *tracedClient) BulkCreateObjects(ctx context.Context, t sai.ObjectType, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Handle, []sai.Status, error) {
	started := time.Now()
	hs, sts, err := c.driver.BulkCreateObjects(ctx, t, attrs, mode)
	c.done(apiName(t, "create", true), len(attrs), started, err, sts...)
	return hs, sts, err
}

func (c *tracedClient) BulkRemoveObjects(ctx context.Context, t sai.ObjectType, hs []sai.Handle, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	started := time.Now()
	sts, err := c.driver.BulkRemoveObjects(ctx, t, hs, mode)
	c.done(apiName(t, "remove", true), len(hs), started, err, sts...)
	return sts, err
}

func (c *tracedClient) BulkSetObjectAttribute(ctx context.Context, t sai.ObjectType, hs []sai.Handle, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	started := time.Now()
	sts, err := c.driver.BulkSetObjectAttribute(ctx, t, hs, attrs, mode)
	c.done(apiName(t, "set", true), len(hs), started, err, sts...)
	return sts, err
}

func (c *tracedClient) CreateEntry(ctx context.Context, t sai.ObjectType, key sai.EntityKey, attrs []sai.Attribute) (sai.Status, error) {
	started := time.Now()
	st, err := c.driver.CreateEntry(ctx, t, key, attrs)
	c.done(apiName(t, "create", false), 1, started, err, st)
	return st, err
}

func (c *tracedClient) RemoveEntry(ctx context.Context, t sai.ObjectType, key sai.EntityKey) (sai.Status, error) {
	started := time.Now()
	st, err := c.driver.RemoveEntry(ctx, t, key)
	c.done(apiName(t, "remove", false), 1, started, err, st)
	return st, err
}

func (c *tracedClient) SetEntryAttribute(ctx context.Context, t sai.ObjectType, key sai.EntityKey, attr sai.Attribute) (sai.Status, error) {
	started := time.Now()
	st, err := c.driver.SetEntryAttribute(ctx, t, key, attr)
	c.done(apiName(t, "set", false), 1, started, err, st)
	return st, err
}

func (c *tracedClient) BulkCreateEntries(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	started := time.Now()
	sts, err := c.driver.BulkCreateEntries(ctx, t, keys, attrs, mode)
	c.done(apiName(t, "create", true), len(keys), started, err, sts...)
	return sts, err
}

func (c *tracedClient) BulkRemoveEntries(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	started := time.Now()
	sts, err := c.driver.BulkRemoveEntries(ctx, t, keys, mode)
	c.done(apiName(t, "remove", true), len(keys), started, err, sts...)
	return sts, err
}

func (c *tracedClient) BulkSetEntryAttribute(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	started := time.Now()
	sts, err := c.driver.BulkSetEntryAttribute(ctx, t, keys, attrs, mode)
	c.done(apiName(t, "set", true), len(keys), started, err, sts...)
	return sts, err
}
