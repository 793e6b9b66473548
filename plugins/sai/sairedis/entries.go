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

func keyHandles(key sai.EntityKey) []sai.Handle {
	if kr, ok := key.(sai.KeyReferences); ok {
		return kr.References()
	}
	return nil
}

func (c *Client) entryExists(db *goredis.Client, key string) (bool, error) {
	n, err := db.Exists(key).Result()
	if err != nil {
		return false, errors.Wrapf(err, "checking %s failed", key)
	}
	return n > 0, nil
}

func (c *Client) createEntry(db *goredis.Client, t sai.ObjectType, key sai.EntityKey, attrs []sai.Attribute) (sai.Status, error) {
	fields, refs, handles, err := attrFields(t, attrs)
	if err != nil {
		return sai.StatusInvalidParameter, nil
	}
	if kh := keyHandles(key); len(kh) > 0 {
		refs[keyRefs] = joinHandles(kh)
		handles = append(handles, kh...)
	}
	if ok, err := c.exists(db, handles); err != nil {
		return sai.StatusFailure, err
	} else if !ok {
		return sai.StatusInvalidParameter, nil
	}
	stateKey := StateKey(t, key.String())
	if ok, err := c.entryExists(db, stateKey); err != nil {
		return sai.StatusFailure, err
	} else if ok {
		return sai.StatusItemAlreadyExists, nil
	}
	if err := c.create(db, "create", stateKey, sai.NullHandle, fields, refs, handles); err != nil {
		return sai.StatusFailure, err
	}
	return sai.StatusSuccess, nil
}

func (c *Client) removeEntry(db *goredis.Client, t sai.ObjectType, key sai.EntityKey) (sai.Status, error) {
	stateKey := StateKey(t, key.String())
	if ok, err := c.entryExists(db, stateKey); err != nil {
		return sai.StatusFailure, err
	} else if !ok {
		return sai.StatusItemNotFound, nil
	}
	if err := c.remove(db, "remove", stateKey, sai.NullHandle); err != nil {
		return sai.StatusFailure, err
	}
	return sai.StatusSuccess, nil
}

func (c *Client) setEntryAttribute(db *goredis.Client, t sai.ObjectType, key sai.EntityKey, attr sai.Attribute) (sai.Status, error) {
	stateKey := StateKey(t, key.String())
	if ok, err := c.entryExists(db, stateKey); err != nil {
		return sai.StatusFailure, err
	} else if !ok {
		return sai.StatusItemNotFound, nil
	}
	return c.set(db, "set", stateKey, t, attr)
}

// CreateEntry creates entry with the key.
func (c *Client) CreateEntry(ctx context.Context, t sai.ObjectType, key sai.EntityKey, attrs []sai.Attribute) (sai.Status, error) {
	return c.createEntry(c.withContext(ctx), t, key, attrs)
}

// RemoveEntry removes entry with the key.
func (c *Client) RemoveEntry(ctx context.Context, t sai.ObjectType, key sai.EntityKey) (sai.Status, error) {
	return c.removeEntry(c.withContext(ctx), t, key)
}

// SetEntryAttribute updates attribute of the entry.
func (c *Client) SetEntryAttribute(ctx context.Context, t sai.ObjectType, key sai.EntityKey, attr sai.Attribute) (sai.Status, error) {
	return c.setEntryAttribute(c.withContext(ctx), t, key, attr)
}

func (c *Client) BulkCreateEntries(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs [][]sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	if len(keys) != len(attrs) {
		return nil, errors.Errorf("got %d keys and %d attribute lists", len(keys), len(attrs))
	}
	db := c.withContext(ctx)
	return bulk(len(keys), mode, func(i int) (sai.Status, error) {
		return c.createEntry(db, t, keys[i], attrs[i])
	})
}

func (c *Client) BulkRemoveEntries(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	db := c.withContext(ctx)
	return bulk(len(keys), mode, func(i int) (sai.Status, error) {
		return c.removeEntry(db, t, keys[i])
	})
}

func (c *Client) BulkSetEntryAttribute(ctx context.Context, t sai.ObjectType, keys []sai.EntityKey, attrs []sai.Attribute, mode sai.BulkOpErrorMode) ([]sai.Status, error) {
	if len(keys) != len(attrs) {
		return nil, errors.Errorf("got %d keys and %d attributes", len(keys), len(attrs))
	}
	db := c.withContext(ctx)
	return bulk(len(keys), mode, func(i int) (sai.Status, error) {
		return c.setEntryAttribute(db, t, keys[i], attrs[i])
	})
}
