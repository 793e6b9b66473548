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

// Package orchdaemon runs the event loop dispatching records of the
// configuration tables to the registered orchestrators.
package orchdaemon

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/health/statuscheck"
	"go.ligato.io/cn-infra/v2/infra"
	"go.ligato.io/cn-infra/v2/logging"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/pkg/metrics"
	"go.ligato.io/orchagent/plugins/orch"
	"go.ligato.io/orchagent/plugins/swsstable"
)

// API allows orchestrators to be registered with the daemon.
type API interface {
	// RegisterOrch adds orchestrator consuming its tables. It must be
	// called before the daemon starts, from Init of the calling plugin.
	RegisterOrch(o orch.Orch) error
}

// Plugin runs the event loop. All orchestrators, their bulkers and
// mirror tables are used only from the loop goroutine.
type Plugin struct {
	Deps

	config   *Config
	failures *orch.FailureLog
	recorder *metrics.Recorder

	mu      sync.Mutex
	orchs   []orch.Orch
	tables  []*table
	byName  map[string]*table
	started chan struct{}

	events   chan string
	requests chan func()
	degraded bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Deps defines dependencies for the orchdaemon plugin.
type Deps struct {
	infra.PluginDeps
	Tables       swsstable.API
	HTTPHandlers rest.HTTPHandlers
	StatusCheck  statuscheck.PluginStatusWriter
}

type table struct {
	name     string
	orch     orch.Orch
	consumer *orch.Consumer
}

// Init loads configuration.
func (p *Plugin) Init() (err error) {
	if p.config, err = p.loadConfig(); err != nil {
		return err
	}
	p.Log.Debugf("config: %+v", p.config)

	p.failures = orch.NewFailureLog(p.config.FailureHistory)
	p.recorder = metrics.NewRecorder()
	p.byName = make(map[string]*table)
	p.started = make(chan struct{})
	p.events = make(chan string, 16)
	p.requests = make(chan func())

	if p.StatusCheck != nil {
		p.StatusCheck.Register(p.PluginName, nil)
	}
	metrics.Register(p.PluginName, func() interface{} {
		return p.recorder.Snapshot()
	})
	p.registerHandlers(p.HTTPHandlers)
	return nil
}

// RegisterOrch adds orchestrator consuming its tables.
func (p *Plugin) RegisterOrch(o orch.Orch) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.started:
		return errors.Errorf("cannot register %s, daemon is already running", o.GetName())
	default:
	}
	for _, name := range o.Tables() {
		if t, ok := p.byName[name]; ok {
			return errors.Errorf("table %s of %s is already consumed by %s", name, o.GetName(), t.orch.GetName())
		}
	}
	o.Configure(p.config.retryPolicy(), p.onFailure)
	p.orchs = append(p.orchs, o)
	for _, name := range o.Tables() {
		t := &table{name: name, orch: o}
		p.tables = append(p.tables, t)
		p.byName[name] = t
	}
	p.Log.Debugf("registered orchestrator %s consuming %v", o.GetName(), o.Tables())
	return nil
}

// AfterInit opens the consumed tables and starts the event loop.
func (p *Plugin) AfterInit() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, t := range p.tables {
		source, err := p.Tables.ConsumerTable(t.name)
		if err != nil {
			return errors.WithMessagef(err, "opening table %s failed", t.name)
		}
		t.consumer = orch.NewConsumer(t.name, source)
	}

	var ctx context.Context
	ctx, p.cancel = context.WithCancel(context.Background())
	for _, t := range p.tables {
		p.wg.Add(1)
		go p.watch(ctx, t)
	}
	p.wg.Add(1)
	go p.run(ctx)
	close(p.started)

	if p.StatusCheck != nil {
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.OK, nil)
	}
	p.Log.Infof("event loop started with %d orchestrators consuming %d tables", len(p.orchs), len(p.tables))
	return nil
}

// Close stops the event loop.
func (p *Plugin) Close() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	metrics.Unregister(p.PluginName)
	return nil
}

// watch forwards readiness of the table to the loop.
func (p *Plugin) watch(ctx context.Context, t *table) {
	defer p.wg.Done()
	source := t.consumer.Source()
	if source == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-source.Ready():
			select {
			case p.events <- t.name:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Plugin) run(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Log.Debug("event loop stopped")
			return
		case name := <-p.events:
			p.drain(ctx, p.byName[name])
			p.doTasks(ctx)
		case <-ticker.C:
			p.doTasks(ctx)
		case req := <-p.requests:
			req()
		}
	}
}

func (p *Plugin) drain(ctx context.Context, t *table) {
	n, err := t.consumer.Drain(ctx)
	if err != nil {
		p.Log.Warnf("reading table %s failed: %v", t.name, err)
		return
	}
	if n > 0 {
		p.Log.Debugf("table %s: %d new records", t.name, n)
	}
}

// doTasks runs every orchestrator with pending records in the order
// of registration, records retried by an orchestrator can succeed in
// the same pass once an earlier table created their dependencies.
func (p *Plugin) doTasks(ctx context.Context) {
	for _, t := range p.tables {
		n := t.consumer.Len()
		if n == 0 {
			continue
		}
		started := time.Now()
		t.orch.DoTask(ctx, t.consumer)
		p.recorder.Record(t.orch.GetName()+"/"+t.name, n, time.Since(started))
	}
}

func (p *Plugin) onFailure(f *orch.Failure) {
	p.failures.Add(f)
	log := p.Log.WithFields(logging.Fields{
		"orch":  f.Orch,
		"table": f.Table,
		"key":   f.Key,
	})
	if p.config.AbortOnFailure {
		log.Fatalf("aborting on failed record: %s", f.Error)
		return
	}
	if !p.degraded && p.StatusCheck != nil {
		p.degraded = true
		p.StatusCheck.ReportStateChange(p.PluginName, statuscheck.Error,
			errors.Errorf("record %s of %s failed: %s", f.Key, f.Table, f.Error))
	}
}

// inLoop runs fn in the loop goroutine and waits for it to return.
// Before the loop starts fn is run by the caller.
func (p *Plugin) inLoop(ctx context.Context, fn func()) error {
	select {
	case <-p.started:
	default:
		fn()
		return nil
	}
	done := make(chan struct{})
	select {
	case p.requests <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// Tasks returns copies of records waiting in queues by table.
func (p *Plugin) Tasks(ctx context.Context) (map[string][]orch.Task, error) {
	tasks := make(map[string][]orch.Task)
	err := p.inLoop(ctx, func() {
		for _, t := range p.tables {
			if t.consumer == nil || t.consumer.Len() == 0 {
				continue
			}
			for _, task := range t.consumer.Tasks() {
				tasks[t.name] = append(tasks[t.name], *task)
			}
		}
	})
	return tasks, err
}

// Failures returns the most recent failures.
func (p *Plugin) Failures() []*orch.Failure {
	return p.failures.List()
}

// Mirror returns state of every orchestrator.
func (p *Plugin) Mirror(ctx context.Context) (map[string]interface{}, error) {
	dump := make(map[string]interface{})
	err := p.inLoop(ctx, func() {
		for _, o := range p.orchs {
			dump[o.GetName()] = o.Dump()
		}
	})
	return dump, err
}
