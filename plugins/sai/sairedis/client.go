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

// Package sairedis implements the device API on top of the ASIC
// database. Objects are kept in hashes named after their type and
// key, the way the sync daemon of the switch expects them.
package sairedis

import (
	"context"
	"strings"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/sai"
)

const (
	statePrefix   = "ASIC_STATE"
	typePrefix    = "SAI_OBJECT_TYPE_"
	refsPrefix    = "ASIC_REFS"
	vidCounterKey = "VIDCOUNTER"
	vidToKeyKey   = "VIDTOKEY"
	refCountKey   = "VIDREFCOUNT"
	// StateChannel receives one message per applied operation.
	StateChannel = "ASIC_STATE_CHANNEL"

	nullField = "NULL"
	keyRefs   = "__key"
)

// Client implements sai.Client in the ASIC database. Calls issued by
// one client are expected to be serialized by the caller.
type Client struct {
	db  *goredis.Client
	log logging.Logger
}

var _ sai.Client = (*Client)(nil)

// NewClient returns device client backed by the database.
func NewClient(db *goredis.Client, log logging.Logger) *Client {
	if log == nil {
		log = logging.DefaultLogger
	}
	return &Client{db: db, log: log}
}

// StateKey returns the database key of the object or entry.
func StateKey(t sai.ObjectType, id string) string {
	return statePrefix + ":" + typePrefix + t.String() + ":" + id
}

func refsKey(stateKey string) string {
	return refsPrefix + ":" + strings.TrimPrefix(stateKey, statePrefix+":")
}

func attrFields(t sai.ObjectType, attrs []sai.Attribute) (map[string]interface{}, map[string]interface{}, []sai.Handle, error) {
	desc, err := sai.GetObjectType(t)
	if err != nil {
		return nil, nil, nil, err
	}
	fields := make(map[string]interface{}, len(attrs))
	refs := make(map[string]interface{})
	var handles []sai.Handle
	for _, a := range attrs {
		name := desc.AttrName(a.ID)
		fields[name] = a.Value.String()
		if hs := a.Value.References(); len(hs) > 0 {
			refs[name] = joinHandles(hs)
			handles = append(handles, hs...)
		}
	}
	if len(fields) == 0 {
		fields[nullField] = nullField
	}
	return fields, refs, handles, nil
}

func joinHandles(hs []sai.Handle) string {
	oids := make([]string, len(hs))
	for i, h := range hs {
		oids[i] = h.String()
	}
	return strings.Join(oids, " ")
}

func splitHandles(s string) []string {
	return strings.Fields(s)
}

// exists returns true if all handles refer to created objects.
func (c *Client) exists(db *goredis.Client, hs []sai.Handle) (bool, error) {
	for _, h := range hs {
		ok, err := db.HExists(vidToKeyKey, h.String()).Result()
		if err != nil {
			return false, errors.Wrap(err, "checking reference failed")
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// create stores hash of a new object or entry together with its references.
func (c *Client) create(db *goredis.Client, op, key string, vid sai.Handle,
	fields, refs map[string]interface{}, handles []sai.Handle) error {
	pipe := db.TxPipeline()
	pipe.HMSet(key, fields)
	if len(refs) > 0 {
		pipe.HMSet(refsKey(key), refs)
	}
	for _, h := range handles {
		pipe.HIncrBy(refCountKey, h.String(), 1)
	}
	if vid != sai.NullHandle {
		pipe.HSet(vidToKeyKey, vid.String(), key)
	}
	pipe.Publish(StateChannel, op+" "+key)
	_, err := pipe.Exec()
	return errors.Wrapf(err, "writing %s failed", key)
}

// remove deletes hash of the object or entry and releases its references.
func (c *Client) remove(db *goredis.Client, op, key string, vid sai.Handle) error {
	refs, err := db.HGetAll(refsKey(key)).Result()
	if err != nil {
		return errors.Wrapf(err, "reading references of %s failed", key)
	}
	pipe := db.TxPipeline()
	pipe.Del(key, refsKey(key))
	for _, oids := range refs {
		for _, oid := range splitHandles(oids) {
			pipe.HIncrBy(refCountKey, oid, -1)
		}
	}
	if vid != sai.NullHandle {
		pipe.HDel(vidToKeyKey, vid.String())
		pipe.HDel(refCountKey, vid.String())
	}
	pipe.Publish(StateChannel, op+" "+key)
	_, err = pipe.Exec()
	return errors.Wrapf(err, "removing %s failed", key)
}

// set updates single attribute and moves its references.
func (c *Client) set(db *goredis.Client, op, key string, t sai.ObjectType, attr sai.Attribute) (sai.Status, error) {
	fields, refs, handles, err := attrFields(t, []sai.Attribute{attr})
	if err != nil {
		return sai.StatusInvalidParameter, nil
	}
	if ok, err := c.exists(db, handles); err != nil {
		return sai.StatusFailure, err
	} else if !ok {
		return sai.StatusInvalidParameter, nil
	}
	desc, _ := sai.GetObjectType(t)
	name := desc.AttrName(attr.ID)
	old, err := db.HGet(refsKey(key), name).Result()
	if err != nil && err != goredis.Nil {
		return sai.StatusFailure, errors.Wrapf(err, "reading references of %s failed", key)
	}

	pipe := db.TxPipeline()
	pipe.HMSet(key, fields)
	pipe.HDel(key, nullField)
	for _, oid := range splitHandles(old) {
		pipe.HIncrBy(refCountKey, oid, -1)
	}
	if len(refs) > 0 {
		pipe.HMSet(refsKey(key), refs)
	} else {
		pipe.HDel(refsKey(key), name)
	}
	for _, h := range handles {
		pipe.HIncrBy(refCountKey, h.String(), 1)
	}
	pipe.Publish(StateChannel, op+" "+key)
	if _, err := pipe.Exec(); err != nil {
		return sai.StatusFailure, errors.Wrapf(err, "writing %s failed", key)
	}
	return sai.StatusSuccess, nil
}

// bulk runs fn for every item, items after the first failure are
// not executed in stop-on-error mode.
func bulk(n int, mode sai.BulkOpErrorMode, fn func(i int) (sai.Status, error)) ([]sai.Status, error) {
	statuses := make([]sai.Status, n)
	failed := false
	for i := 0; i < n; i++ {
		if failed && mode == sai.BulkStopOnError {
			statuses[i] = sai.StatusNotExecuted
			continue
		}
		st, err := fn(i)
		if err != nil {
			return nil, err
		}
		statuses[i] = st
		failed = failed || st != sai.StatusSuccess
	}
	return statuses, nil
}

func (c *Client) withContext(ctx context.Context) *goredis.Client {
	if ctx == nil {
		return c.db
	}
	return c.db.WithContext(ctx)
}
