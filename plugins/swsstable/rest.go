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
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/unrolled/render"
	"go.ligato.io/cn-infra/v2/rpc/rest"

	"go.ligato.io/orchagent/pkg/swss"
)

const (
	// RecordsURL is the URL of the handler writing records to a table.
	RecordsURL = "/swss/records"
)

// RecordsRequest is the body of the records request.
type RecordsRequest struct {
	Table   string                   `json:"table"`
	Records []swss.KeyOpFieldsValues `json:"records"`
}

// registerHandlers registers all supported REST APIs.
func (p *Plugin) registerHandlers(http rest.HTTPHandlers) {
	if http == nil {
		p.Log.Debug("No http handler provided, skipping registration of REST handlers")
		return
	}
	http.RegisterHTTPHandler(RecordsURL, p.recordsHandler, "POST")
}

func (p *Plugin) recordsHandler(formatter *render.Render) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body RecordsRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			errMsg := fmt.Sprintf("400 Bad request: failed to decode request body: %v", err)
			_ = formatter.JSON(w, http.StatusBadRequest, errMsg)
			return
		}
		if body.Table == "" {
			_ = formatter.JSON(w, http.StatusBadRequest, "400 Bad request: table name missing")
			return
		}
		table, err := p.ProducerTable(body.Table)
		if err != nil {
			_ = formatter.JSON(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := WriteRecords(req.Context(), table, body.Records); err != nil {
			_ = formatter.JSON(w, http.StatusBadRequest, err.Error())
			return
		}
		p.Log.Debugf("written %d records to table %s", len(body.Records), body.Table)
		_ = formatter.JSON(w, http.StatusOK, len(body.Records))
	}
}
