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
	"go.ligato.io/orchagent/pkg/redisdb"
)

// Table backends.
const (
	BackendLocal = "local"
	BackendRedis = "redis"
)

// Config groups the configurable parameters of the tables.
type Config struct {
	// Backend is either local (in-process tables) or redis.
	Backend string `json:"backend"`
	// Redis configures the application database when backend is redis.
	Redis redisdb.Config `json:"redis"`
}

func defaultConfig() *Config {
	return &Config{
		Backend: BackendLocal,
		Redis:   redisdb.DefaultConfig(redisdb.ApplDB),
	}
}

func (p *Plugin) loadConfig() (*Config, error) {
	cfg := defaultConfig()

	found, err := p.Cfg.LoadValue(cfg)
	if err != nil {
		return nil, err
	} else if found {
		p.Log.Debugf("config loaded from file %q", p.Cfg.GetConfigName())
	} else {
		p.Log.Debugf("config file %q not found, using default config", p.Cfg.GetConfigName())
	}

	return cfg, nil
}
