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

package swsstable

import (
	"context"
	"fmt"
	"sort"
	"sync"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/pkg/swss"
)

// Layout of a state table in the database:
//
//	_<TABLE>:<key>        hash with fields written by the producer, not yet popped
//	<TABLE>_KEY_SET       set of keys changed since the last pop
//	<TABLE>_DEL_SET       set of keys deleted since the last pop
//	<TABLE>_CHANNEL@<db>  channel notified after each change
//	<TABLE>:<key>         hash with fields popped by the consumer
type tableKeys struct {
	name string
	db   int
}

func (k tableKeys) pending(key string) string { return "_" + k.name + swss.TableKeySeparator + key }
func (k tableKeys) applied(key string) string { return k.name + swss.TableKeySeparator + key }
func (k tableKeys) keySet() string            { return k.name + "_KEY_SET" }
func (k tableKeys) delSet() string            { return k.name + "_DEL_SET" }
func (k tableKeys) channel() string           { return fmt.Sprintf("%s_CHANNEL@%d", k.name, k.db) }

// ProducerStateTable writes changes of a table into Redis.
type ProducerStateTable struct {
	client *goredis.Client
	keys   tableKeys
}

// NewProducerStateTable returns producer of the table.
func NewProducerStateTable(client *goredis.Client, name string) *ProducerStateTable {
	return &ProducerStateTable{
		client: client,
		keys:   tableKeys{name: name, db: client.Options().DB},
	}
}

// Name returns the table name.
func (p *ProducerStateTable) Name() string {
	return p.keys.name
}

// Set writes fields of the key.
func (p *ProducerStateTable) Set(ctx context.Context, key string, fields swss.Fields) error {
	if len(fields) == 0 {
		return errors.Errorf("set of %s:%s without fields", p.keys.name, key)
	}
	values := make(map[string]interface{}, len(fields))
	for _, fv := range fields {
		values[fv.Field] = fv.Value
	}
	pipe := p.client.WithContext(ctx).TxPipeline()
	pipe.HMSet(p.keys.pending(key), values)
	pipe.SAdd(p.keys.keySet(), key)
	pipe.Publish(p.keys.channel(), "G")
	if _, err := pipe.Exec(); err != nil {
		return errors.Wrapf(err, "set of %s:%s failed", p.keys.name, key)
	}
	return nil
}

// Del writes deletion of the key.
func (p *ProducerStateTable) Del(ctx context.Context, key string) error {
	pipe := p.client.WithContext(ctx).TxPipeline()
	pipe.Del(p.keys.pending(key))
	pipe.SAdd(p.keys.keySet(), key)
	pipe.SAdd(p.keys.delSet(), key)
	pipe.Publish(p.keys.channel(), "G")
	if _, err := pipe.Exec(); err != nil {
		return errors.Wrapf(err, "del of %s:%s failed", p.keys.name, key)
	}
	return nil
}

// ConsumerStateTable pops changes of a table from Redis.
type ConsumerStateTable struct {
	client *goredis.Client
	keys   tableKeys
	log    logging.Logger
	ready  chan struct{}

	pubsub *goredis.PubSub
	wg     sync.WaitGroup
}

// NewConsumerStateTable subscribes to changes of the table. The table is
// signalled ready right away to pick up changes written before.
func NewConsumerStateTable(client *goredis.Client, name string, log logging.Logger) (*ConsumerStateTable, error) {
	if log == nil {
		log = logging.DefaultLogger
	}
	c := &ConsumerStateTable{
		client: client,
		keys:   tableKeys{name: name, db: client.Options().DB},
		log:    log,
		ready:  make(chan struct{}, 1),
	}
	c.pubsub = client.Subscribe(c.keys.channel())
	if _, err := c.pubsub.Receive(); err != nil {
		c.pubsub.Close()
		return nil, errors.Wrapf(err, "subscribing to %s failed", c.keys.channel())
	}
	c.notify()

	c.wg.Add(1)
	go c.watch(c.pubsub.Channel())
	return c, nil
}

func (c *ConsumerStateTable) watch(msgs <-chan *goredis.Message) {
	defer c.wg.Done()
	for range msgs {
		c.notify()
	}
}

func (c *ConsumerStateTable) notify() {
	select {
	case c.ready <- struct{}{}:
	default:
		// already signalled
	}
}

// Name returns the table name.
func (c *ConsumerStateTable) Name() string {
	return c.keys.name
}

// Ready returns channel signalled after the table was changed.
func (c *ConsumerStateTable) Ready() <-chan struct{} {
	return c.ready
}

// Pops returns changes written since the last call ordered by key. A key
// deleted and written again is returned as DEL followed by SET.
func (c *ConsumerStateTable) Pops(ctx context.Context) ([]swss.KeyOpFieldsValues, error) {
	client := c.client.WithContext(ctx)

	pipe := client.TxPipeline()
	keysCmd := pipe.SMembers(c.keys.keySet())
	delsCmd := pipe.SMembers(c.keys.delSet())
	pipe.Del(c.keys.keySet(), c.keys.delSet())
	if _, err := pipe.Exec(); err != nil {
		return nil, errors.Wrapf(err, "popping keys of %s failed", c.keys.name)
	}

	deleted := make(map[string]bool)
	for _, key := range delsCmd.Val() {
		deleted[key] = true
	}
	keys := keysCmd.Val()
	for key := range deleted {
		if !contains(keys, key) {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	pipe = client.TxPipeline()
	valueCmds := make([]*goredis.StringStringMapCmd, len(keys))
	for i, key := range keys {
		valueCmds[i] = pipe.HGetAll(c.keys.pending(key))
		pipe.Del(c.keys.pending(key))
	}
	if _, err := pipe.Exec(); err != nil {
		return nil, errors.Wrapf(err, "popping values of %s failed", c.keys.name)
	}

	var records []swss.KeyOpFieldsValues
	pipe = client.Pipeline()
	for i, key := range keys {
		if deleted[key] {
			records = append(records, swss.KeyOpFieldsValues{Key: key, Op: swss.Del})
			pipe.Del(c.keys.applied(key))
		}
		values := valueCmds[i].Val()
		if len(values) == 0 {
			continue
		}
		records = append(records, swss.KeyOpFieldsValues{
			Key:    key,
			Op:     swss.Set,
			Fields: swss.FieldsFromMap(values),
		})
		applied := make(map[string]interface{}, len(values))
		for f, v := range values {
			applied[f] = v
		}
		pipe.HMSet(c.keys.applied(key), applied)
	}
	if _, err := pipe.Exec(); err != nil {
		c.log.Warnf("storing popped entries of %s failed: %v", c.keys.name, err)
	}
	return records, nil
}

// Close unsubscribes from the table changes.
func (c *ConsumerStateTable) Close() error {
	err := c.pubsub.Close()
	c.wg.Wait()
	return err
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
