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

package orch

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.ligato.io/cn-infra/v2/logging"

	"go.ligato.io/orchagent/plugins/bulker"
)

// ErrRetryLimit is returned for records dropped after too many retries.
var ErrRetryLimit = errors.New("retry limit reached")

// Stage is one round of submitting intents and resolving their results.
// Records pass stages in order, a record leaves the batch when any stage
// classifies it as anything other than committed.
type Stage[C any] struct {
	Name string
	// Submit queues intent of the record to bulkers. It returns Queued
	// when the result must be resolved after flush, Committed when the
	// stage has nothing to do for the record.
	Submit func(c C) (Outcome, error)
	// Flushers are flushed once per stage after all records are submitted.
	Flushers []bulker.Flusher
	// Resolve reads results of the queued intent and updates the mirror.
	Resolve func(c C) (Outcome, error)
}

// Applier runs the two-phase apply loop over records of one table.
// C holds the parsed record with results of submitted intents.
type Applier[C any] struct {
	*Base
	Table string
	// Validate parses the record. Error drops the record as invalid.
	Validate func(task *Task) (C, error)
	Stages   []Stage[C]
}

// Report sums outcomes of one apply run.
type Report struct {
	Invalid   int `json:"invalid"`
	Committed int `json:"committed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

type item[C any] struct {
	task    *Task
	ctx     C
	outcome Outcome
	err     error
}

// Apply processes all queued records of the consumer. Committed, invalid
// and fatal records are erased from the consumer, the rest stays queued.
func (a *Applier[C]) Apply(ctx context.Context, consumer *Consumer) *Report {
	started := time.Now()
	report := &Report{}

	var active []*item[C]
	for _, task := range consumer.Tasks() {
		c, err := a.Validate(task)
		if err != nil {
			a.drop(consumer, &item[C]{task: task, outcome: Invalid, err: err}, report)
			continue
		}
		active = append(active, &item[C]{task: task, ctx: c, outcome: Pending})
	}

	for _, stage := range a.Stages {
		if len(active) == 0 {
			break
		}
		var queued, next []*item[C]
		for _, it := range active {
			outcome, err := stage.Submit(it.ctx)
			switch outcome {
			case Queued:
				queued = append(queued, it)
			case Committed:
				next = append(next, it)
			default:
				it.outcome, it.err = outcome, err
				a.settle(consumer, it, report)
			}
		}
		if len(queued) > 0 {
			for _, f := range stage.Flushers {
				if err := f.Flush(ctx); err != nil {
					a.Log.Warnf("%s: flush of stage %q failed: %v", a.Table, stage.Name, err)
				}
			}
		}
		for _, it := range queued {
			outcome, err := stage.Resolve(it.ctx)
			if outcome == Committed {
				next = append(next, it)
				continue
			}
			it.outcome, it.err = outcome, err
			a.settle(consumer, it, report)
		}
		active = next
	}

	for _, it := range active {
		it.outcome = Committed
		a.settle(consumer, it, report)
	}

	reportApply(a.Table, report, time.Since(started))
	if report.Failed > 0 || report.Invalid > 0 || report.Retried > 0 {
		a.Log.Debugf("%s: %d committed, %d retried, %d invalid, %d failed",
			a.Table, report.Committed, report.Retried, report.Invalid, report.Failed)
	}
	return report
}

func (a *Applier[C]) settle(consumer *Consumer, it *item[C], report *Report) {
	switch it.outcome {
	case Committed:
		consumer.Erase(it.task.Key)
		report.Committed++
	case Retry:
		it.task.Attempts++
		if it.err != nil {
			it.task.LastError = it.err.Error()
		}
		if a.Policy.MaxAttempts > 0 && it.task.Attempts >= a.Policy.MaxAttempts {
			it.outcome = Fatal
			it.err = errors.Wrapf(ErrRetryLimit, "after %d attempts: %s", it.task.Attempts, it.task.LastError)
			a.drop(consumer, it, report)
			return
		}
		if a.Policy.WarnAttempts > 0 && it.task.Attempts == a.Policy.WarnAttempts {
			a.Log.WithFields(logging.Fields{
				"table":    a.Table,
				"key":      it.task.Key,
				"attempts": it.task.Attempts,
			}).Warnf("record still pending: %s", it.task.LastError)
		}
		report.Retried++
	default:
		a.drop(consumer, it, report)
	}
}

func (a *Applier[C]) drop(consumer *Consumer, it *item[C], report *Report) {
	consumer.Erase(it.task.Key)
	fields := logging.Fields{
		"table": a.Table,
		"key":   it.task.Key,
		"op":    it.task.Op,
	}
	if it.outcome == Invalid {
		report.Invalid++
		fields["fields"] = it.task.Fields.Map()
		a.Log.WithFields(fields).Errorf("dropping invalid record: %v", it.err)
		return
	}
	report.Failed++
	if serr, ok := it.err.(*StatusError); ok {
		fields["api"] = serr.API
		fields["status"] = serr.Status.String()
	}
	a.Log.WithFields(fields).Errorf("dropping failed record: %v", it.err)
	a.fail(NewFailure(a.Name, a.Table, it.task, it.err))
}
