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

package sai

import "context"

// Client is the vendor-neutral device API. Single-item calls return the
// item status, bulk calls return one status per item in submission order.
// A non-nil error means the call itself failed and no status is valid.
type Client interface {
	ObjectAPI
	EntryAPI
}

// ObjectAPI manages objects addressed by handles assigned at creation.
type ObjectAPI interface {
	CreateObject(ctx context.Context, t ObjectType, attrs []Attribute) (Handle, Status, error)
	RemoveObject(ctx context.Context, t ObjectType, h Handle) (Status, error)
	SetObjectAttribute(ctx context.Context, t ObjectType, h Handle, attr Attribute) (Status, error)

	BulkCreateObjects(ctx context.Context, t ObjectType, attrs [][]Attribute, mode BulkOpErrorMode) ([]Handle, []Status, error)
	BulkRemoveObjects(ctx context.Context, t ObjectType, hs []Handle, mode BulkOpErrorMode) ([]Status, error)
	BulkSetObjectAttribute(ctx context.Context, t ObjectType, hs []Handle, attrs []Attribute, mode BulkOpErrorMode) ([]Status, error)
}

// EntryAPI manages entries addressed by caller-supplied keys.
type EntryAPI interface {
	CreateEntry(ctx context.Context, t ObjectType, key EntityKey, attrs []Attribute) (Status, error)
	RemoveEntry(ctx context.Context, t ObjectType, key EntityKey) (Status, error)
	SetEntryAttribute(ctx context.Context, t ObjectType, key EntityKey, attr Attribute) (Status, error)

	BulkCreateEntries(ctx context.Context, t ObjectType, keys []EntityKey, attrs [][]Attribute, mode BulkOpErrorMode) ([]Status, error)
	BulkRemoveEntries(ctx context.Context, t ObjectType, keys []EntityKey, mode BulkOpErrorMode) ([]Status, error)
	BulkSetEntryAttribute(ctx context.Context, t ObjectType, keys []EntityKey, attrs []Attribute, mode BulkOpErrorMode) ([]Status, error)
}

// ApplyErrorMode fills statuses following the first failure with
// StatusNotExecuted when mode is BulkStopOnError. Drivers that execute
// items one by one use it to report bulk results.
func ApplyErrorMode(statuses []Status, mode BulkOpErrorMode) {
	if mode != BulkStopOnError {
		return
	}
	failed := false
	for i, s := range statuses {
		if failed {
			statuses[i] = StatusNotExecuted
		} else if s != StatusSuccess {
			failed = true
		}
	}
}
