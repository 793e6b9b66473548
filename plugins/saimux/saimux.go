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

// Package saimux provides the connection to the device shared by
// all orchestrators.
package saimux

import (
	goredis "github.com/go-redis/redis"
	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/health/statuscheck"
	"go.ligato.io/cn-infra/v2/infra"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/pkg/metrics"
	"go.ligato.io/orchagent/pkg/redisdb"
	"go.ligato.io/orchagent/plugins/sai"
	"go.ligato.io/orchagent/plugins/sai/saimock"
	"go.ligato.io/orchagent/plugins/sai/sairedis"
)

// API provides access to the device.
type API interface {
	// Client returns the device client.
	Client() sai.Client
	// BulkErrorMode returns the configured error mode of bulk calls.
	BulkErrorMode() sai.BulkOpErrorMode
}

// Plugin connects to the configured device driver.
type Plugin struct {
	Deps

	config   *Config
	mode     sai.BulkOpErrorMode
	db       *goredis.Client
	client   *tracedClient
	recorder *metrics.Recorder
}

// Deps defines dependencies for the saimux plugin.
type Deps struct {
	infra.PluginDeps
	HTTPHandlers rest.HTTPHandlers
	StatusCheck  statuscheck.PluginStatusWriter
}

// Init connects to the device.
func (p *Plugin) Init() (err error) {
	if p.config, err = p.loadConfig(); err != nil {
		return err
	}
	p.Log.Debugf("config: %+v", p.config)

	var ok bool
	if p.mode, ok = sai.ParseBulkOpErrorMode(p.config.BulkErrorMode); !ok {
		return errors.Errorf("unknown bulk error mode %q", p.config.BulkErrorMode)
	}

	var driver sai.Client
	switch p.config.Driver {
	case DriverMock:
		driver = saimock.NewDevice(p.Log)
	case DriverRedis:
		if p.db, err = redisdb.NewClient(p.config.Redis); err != nil {
			return err
		}
		driver = sairedis.NewClient(p.db, p.Log)
		p.Log.Infof("connected to ASIC database at %s", p.config.Redis.Endpoint)
	default:
		return errors.Errorf("unknown device driver %q", p.config.Driver)
	}

	if p.StatusCheck != nil {
		p.StatusCheck.Register(p.PluginName, nil)
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.OK, nil)
	}

	p.recorder = metrics.NewRecorder()
	p.client = newTracedClient(driver, p.recorder, p.Log, p.config.TraceEnabled, p.reportCallError)
	metrics.Register(p.PluginName, func() interface{} {
		return p.recorder.Snapshot()
	})
	p.registerHandlers(p.HTTPHandlers)

	p.Log.Infof("device driver %s ready (bulk error mode %v)", p.config.Driver, p.mode)
	return nil
}

// Close closes the database connection.
func (p *Plugin) Close() error {
	metrics.Unregister(p.PluginName)
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// Client returns the device client.
func (p *Plugin) Client() sai.Client {
	return p.client
}

// BulkErrorMode returns the configured error mode of bulk calls.
func (p *Plugin) BulkErrorMode() sai.BulkOpErrorMode {
	return p.mode
}

// reportCallError reports health of the device connection, err is nil
// after a successful call.
func (p *Plugin) reportCallError(err error) {
	if p.StatusCheck == nil {
		return
	}
	if err != nil {
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.Error, err)
	} else {
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.OK, nil)
	}
}
