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
	"net/http"

	"github.com/unrolled/render"
	"go.ligato.io/cn-infra/v2/rpc/rest"
)

const (
	// StatsURL is the URL of the device call stats.
	StatsURL = "/saimux/stats"
)

func (p *Plugin) registerHandlers(http rest.HTTPHandlers) {
	if http == nil {
		p.Log.Debug("No http handler provided, skipping registration of REST handlers")
		return
	}
	http.RegisterHTTPHandler(StatsURL, p.statsHandler, "GET")
}

func (p *Plugin) statsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		_ = formatter.JSON(w, http.StatusOK, p.recorder.Snapshot())
	}
}
