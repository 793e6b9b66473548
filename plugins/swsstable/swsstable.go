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

// Package swsstable provides the configuration tables the orchestrators
// consume change records from.
package swsstable

import (
	"sync"

	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/infra"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/pkg/redisdb"
	"go.ligato.io/orchagent/pkg/swss"
)

// API opens configuration tables.
type API interface {
	// ConsumerTable returns consumer of the table.
	ConsumerTable(name string) (swss.ConsumerTable, error)
	// ProducerTable returns producer of the table.
	ProducerTable(name string) (swss.ProducerTable, error)
}

// Plugin opens tables of the configured backend.
type Plugin struct {
	Deps

	config *Config
	client *goredis.Client

	mu        sync.Mutex
	local     map[string]*LocalTable
	consumers []swss.ConsumerTable
}

// Deps defines dependencies for the swsstable plugin.
type Deps struct {
	infra.PluginDeps
	HTTPHandlers rest.HTTPHandlers
}

// Init loads configuration and connects to the database.
func (p *Plugin) Init() (err error) {
	if p.config, err = p.loadConfig(); err != nil {
		return err
	}
	p.Log.Debugf("config: %+v", p.config)
	p.local = make(map[string]*LocalTable)

	switch p.config.Backend {
	case BackendLocal:
	case BackendRedis:
		if p.client, err = redisdb.NewClient(p.config.Redis); err != nil {
			return err
		}
		p.Log.Infof("connected to application database at %s", p.config.Redis.Endpoint)
	default:
		return errors.Errorf("unknown table backend %q", p.config.Backend)
	}

	p.registerHandlers(p.HTTPHandlers)
	return nil
}

// Close closes the tables and the database connection.
func (p *Plugin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.consumers {
		if err := c.Close(); err != nil {
			p.Log.Warnf("closing table %s failed: %v", c.Name(), err)
		}
	}
	p.consumers = nil
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// ConsumerTable returns consumer of the table.
func (p *Plugin) ConsumerTable(name string) (swss.ConsumerTable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var table swss.ConsumerTable
	if p.client != nil {
		c, err := NewConsumerStateTable(p.client, name, p.Log)
		if err != nil {
			return nil, err
		}
		table = c
	} else {
		table = p.localTable(name)
	}
	p.consumers = append(p.consumers, table)
	return table, nil
}

// ProducerTable returns producer of the table.
func (p *Plugin) ProducerTable(name string) (swss.ProducerTable, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return NewProducerStateTable(p.client, name), nil
	}
	return p.localTable(name), nil
}

func (p *Plugin) localTable(name string) *LocalTable {
	t, ok := p.local[name]
	if !ok {
		t = NewLocalTable(name)
		p.local[name] = t
	}
	return t
}
