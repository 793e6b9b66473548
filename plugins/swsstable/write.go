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
	"context"

	"github.com/pkg/errors"

	"go.ligato.io/orchagent/pkg/swss"
)

// WriteRecords writes records through the producer in order.
func WriteRecords(ctx context.Context, table swss.ProducerTable, records []swss.KeyOpFieldsValues) error {
	for _, r := range records {
		var err error
		switch r.Op {
		case swss.Set:
			err = table.Set(ctx, r.Key, r.Fields)
		case swss.Del:
			err = table.Del(ctx, r.Key)
		default:
			err = errors.Errorf("unknown operation %q", r.Op)
		}
		if err != nil {
			return errors.Wrapf(err, "writing %s to %s failed", r, table.Name())
		}
	}
	return nil
}
