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
	"go.ligato.io/orchagent/pkg/redisdb"
)

// Device drivers.
const (
	DriverMock  = "mock"
	DriverRedis = "redis"
)

// Config groups the configurable parameters of the device connection.
type Config struct {
	// Driver is either mock (in-memory device) or redis (ASIC database).
	Driver string `json:"driver"`
	// Redis configures the ASIC database when driver is redis.
	Redis redisdb.Config `json:"redis"`
	// BulkErrorMode is either ignore-error or stop-on-error.
	BulkErrorMode string `json:"bulk-error-mode"`
	// TraceEnabled logs every device call.
	TraceEnabled bool `json:"trace-enabled"`
}

func defaultConfig() *Config {
	return &Config{
		Driver:        DriverMock,
		Redis:         redisdb.DefaultConfig(redisdb.AsicDB),
		BulkErrorMode: "ignore-error",
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
