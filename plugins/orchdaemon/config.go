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

package orchdaemon

import (
	"time"

	"go.ligato.io/orchagent/plugins/orch"
)

// Config groups the configurable parameters of the daemon.
type Config struct {
	// RetryInterval is the period of re-running records left in queues.
	RetryInterval time.Duration `json:"retry-interval"`
	// MaxRetryAttempts drops records after number of retries, zero retries forever.
	MaxRetryAttempts int `json:"max-retry-attempts"`
	// RetryWarnAttempts logs warning when record reaches number of retries.
	RetryWarnAttempts int `json:"retry-warn-attempts"`
	// AbortOnFailure terminates the agent after a fatal device error,
	// otherwise the agent reports degraded state and continues.
	AbortOnFailure bool `json:"abort-on-failure"`
	// FailureHistory is the number of failures kept for the REST API.
	FailureHistory int `json:"failure-history"`
}

func defaultConfig() *Config {
	return &Config{
		RetryInterval:     time.Second,
		RetryWarnAttempts: orch.DefaultRetryPolicy.WarnAttempts,
		FailureHistory:    100,
	}
}

func (c *Config) retryPolicy() orch.RetryPolicy {
	return orch.RetryPolicy{
		MaxAttempts:  c.MaxRetryAttempts,
		WarnAttempts: c.RetryWarnAttempts,
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
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = defaultConfig().RetryInterval
	}

	return cfg, nil
}
