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

package sairedis

import (
	"context"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"

	"go.ligato.io/orchagent/plugins/sai"
)

// newHandle allocates handle with the object type in the upper bits.
func (c *Client) newHandle(db *goredis.Client, t sai.ObjectType) (sai.Handle, error) {
	n, err := db.Incr(vidCounterKey).Result()
	if err != nil {
		return sai.NullHandle, errors.Wrap(err, "allocating object id failed")
	}
	return sai.Handle(uint64(t)<<48 | uint64(n)), nil
}

func (c *Client) lookupObject(db *goredis.Client, t sai.ObjectType, h sai.Handle) (string, bool, error) {
	key, err := db.HGet(vidToKeyKey, h.String()).Result()
	if err == goredis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "looking up %v failed", h)
	}
	return key, key == StateKey(t, h.String()), nil
}

func (c *Client) createObject(db *goredis.Client, t sai.ObjectType, attrs []sai.Attribute) (sai.Handle, sai.Status, error) {
	fields, refs, handles, err := attrFields(t, attrs)
	if err != nil {
		return sai.NullHandle, sai.StatusInvalidParameter, nil
	}
	if ok, err := c.exists(db, handles); err != nil {
		return sai.NullHandle, sai.StatusFailure, err
	} else if !ok {
		return sai.NullHandle, sai.StatusInvalidParameter, nil
	}
	h, err := c.newHandle(db, t)
	if err != nil {
		return sai.NullHandle, sai.StatusFailure, err
	}
	if err := c.create(db, "create", StateKey(t, h.String()), h, fields, refs, handles); err != nil {
		return sai.NullHandle, sai.StatusFailure, err
	}
	c.log.Debugf("created %v %v", t, h)
	return h, sai.StatusSuccess, nil
}

func (c *Client) removeObject(db *goredis.Client, t sai.ObjectType, h sai.Handle) (sai.Status, error) {
	key, ok, err := c.lookupObject(db, t, h)
	if err != nil {
		return sai.StatusFailure, err
	}
	if !ok {
		return sai.StatusItemNotFound, nil
	}
	refs, err := db.HGet(refCountKey, h.String()).Int64()
	if err != nil && err != goredis.Nil {
		return sai.StatusFailure, errors.Wrapf(err, "reading reference count of %v failed", h)
	}
	if refs > 0 {
		return sai.StatusObjectInUse, nil
	}
	if err := c.remove(db, "remove", key, h); err != nil {
		return sai.StatusFailure, err
	}
	c.log.Debugf("removed %v %v", t, h)
	return sai.StatusSuccess, nil
}

func (c *Client) setObjectAttribute(db *goredis.Client, t sai.ObjectType, h sai.Handle, attr sai.Attribute) (sai.Status, error) {
	key, ok, err := c.lookupObject(db, t, h)
	if err != nil {
		return sai.StatusFailure, err
	}
	if !ok {
		return sai.StatusItemNotFound, nil
	}
	return c.set(db, "set", key, t, attr)
}

// CreateObject creates object with the attributes.
func (c *Client) CreateObject(ctx context.Context, t sai.ObjectType, attrs []sai.Attribute) (sai.Handle, sai.Status, error) {
	return c.createObject(c.withContext(ctx), t, attrs)
}

// RemoveObject removes object unless other objects refer to it.
func (c *Client) RemoveObject(ctx context.Context, t sai.ObjectType, h sai.Handle) (sai.Status, error) {
	return c.removeObject(c.withContext(ctx), t, h)
}

// SetObjectAttribute updates attribute of the object.
func (c *Client) SetObjectAttribute(ctx context.Context, t sai.ObjectType, h sai.Handle, attr sai.Attribute) (sai.Status, error) {
	return c.setObjectAttribute(c.withContext(ctx), t, h, attr)
}

func (c *Client) BulkCreateObjects(ctx context.Context, t sai.ObjectType, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Handle, []sai.Status, error) {
	db := c.withContext(ctx)
	handles := make([]sai.Handle, len(attrs))
	statuses, err := bulk(len(attrs), mode, func(i int) (st sai.Status, err error) {
		handles[i], st, err = c.createObject(db, t, attrs[i])
		return st, err
	})
	if err != nil {
		return nil, nil, err
	}
	return handles, statuses, nil
}

func (c *Client) BulkRemoveObjects(ctx context.Context, t sai.ObjectType, hs []sai.Handle, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	db := c.withContext(ctx)
	return bulk(len(hs), mode, func(i int) (sai.Status, error) {
		return c.removeObject(db, t, hs[i])
	})
}

func (c *Client) BulkSetObjectAttribute(ctx context.Context, t sai.ObjectType, hs []sai.Handle, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	if len(hs) != len(attrs) {
		return nil, errors.Errorf("got %d handles and %d attributes", len(hs), len(attrs))
	}
	db := c.withContext(ctx)
	return bulk(len(hs), mode, func(i int) (sai.Status, error) {
		return c.setObjectAttribute(db, t, hs[i], attrs[i])
	})
}
