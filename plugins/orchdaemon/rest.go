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
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unrolled/render"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/pkg/metrics"
)

// REST API URLs.
const (
	TasksURL    = "/orchagent/tasks"
	FailuresURL = "/orchagent/failures"
	StatsURL    = "/orchagent/stats"
	MirrorURL   = "/orchagent/mirror"
	MetricsURL  = "/metrics"
)

// registerHandlers registers all supported REST APIs.
func (p *Plugin) registerHandlers(http rest.HTTPHandlers) {
	if http == nil {
		p.Log.Debug("No http handler provided, skipping registration of REST handlers")
		return
	}
	http.RegisterHTTPHandler(TasksURL, p.tasksHandler, "GET")
	http.RegisterHTTPHandler(FailuresURL, p.failuresHandler, "GET")
	http.RegisterHTTPHandler(StatsURL, p.statsHandler, "GET")
	http.RegisterHTTPHandler(MirrorURL, p.mirrorHandler, "GET")
	http.RegisterHTTPHandler(MetricsURL, metricsHandler, "GET")
}

func (p *Plugin) tasksHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		tasks, err := p.Tasks(req.Context())
		if err != nil {
			_ = formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = formatter.JSON(w, http.StatusOK, tasks)
	}
}

func (p *Plugin) failuresHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		_ = formatter.JSON(w, http.StatusOK, p.Failures())
	}
}

func (p *Plugin) statsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		_ = formatter.JSON(w, http.StatusOK, metrics.RetrieveAll())
	}
}

func (p *Plugin) mirrorHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		dump, err := p.Mirror(req.Context())
		if err != nil {
			_ = formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = formatter.JSON(w, http.StatusOK, dump)
	}
}

func metricsHandler(*render.Render) http.HandlerFunc {
	return promhttp.Handler().ServeHTTP
}
