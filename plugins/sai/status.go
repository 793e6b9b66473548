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

import "strconv"

// Status is a per-item result code returned by the device.
type Status int32

const (
	StatusSuccess               Status = 0
	StatusFailure               Status = -1
	StatusNotSupported          Status = -2
	StatusNoMemory              Status = -3
	StatusInsufficientResources Status = -4
	StatusInvalidParameter      Status = -5
	StatusItemAlreadyExists     Status = -6
	StatusItemNotFound          Status = -7
	StatusObjectInUse           Status = -17
	StatusNotImplemented        Status = -15
	StatusUninitialized         Status = -13
	StatusNotExecuted           Status = -23
)

var statusNames = map[Status]string{
	StatusSuccess:               "SAI_STATUS_SUCCESS",
	StatusFailure:               "SAI_STATUS_FAILURE",
	StatusNotSupported:          "SAI_STATUS_NOT_SUPPORTED",
	StatusNoMemory:              "SAI_STATUS_NO_MEMORY",
	StatusInsufficientResources: "SAI_STATUS_INSUFFICIENT_RESOURCES",
	StatusInvalidParameter:      "SAI_STATUS_INVALID_PARAMETER",
	StatusItemAlreadyExists:     "SAI_STATUS_ITEM_ALREADY_EXISTS",
	StatusItemNotFound:          "SAI_STATUS_ITEM_NOT_FOUND",
	StatusObjectInUse:           "SAI_STATUS_OBJECT_IN_USE",
	StatusNotImplemented:        "SAI_STATUS_NOT_IMPLEMENTED",
	StatusUninitialized:         "SAI_STATUS_UNINITIALIZED",
	StatusNotExecuted:           "SAI_STATUS_NOT_EXECUTED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "SAI_STATUS_" + strconv.Itoa(int(s))
}

// ParseStatus returns status with the given name.
func ParseStatus(name string) (Status, bool) {
	for s, n := range statusNames {
		if n == name {
			return s, true
		}
	}
	return StatusFailure, false
}

// Err returns status as error, nil for success.
func (s Status) Err() error {
	if s == StatusSuccess {
		return nil
	}
	return StatusError(s)
}

// StatusError is an error carrying a non-success status.
type StatusError Status

func (e StatusError) Error() string {
	return Status(e).String()
}

// BulkOpErrorMode controls how a bulk call proceeds after a failed item.
type BulkOpErrorMode int

const (
	// BulkStopOnError halts at the first failure, later items are not executed.
	BulkStopOnError BulkOpErrorMode = iota
	// BulkIgnoreError processes every item and reports its status.
	BulkIgnoreError
)

func (m BulkOpErrorMode) String() string {
	switch m {
	case BulkStopOnError:
		return "stop-on-error"
	case BulkIgnoreError:
		return "ignore-error"
	}
	return "mode-" + strconv.Itoa(int(m))
}

// ParseBulkOpErrorMode parses error mode from its config name.
func ParseBulkOpErrorMode(s string) (BulkOpErrorMode, bool) {
	switch s {
	case "stop-on-error":
		return BulkStopOnError, true
	case "ignore-error", "":
		return BulkIgnoreError, true
	}
	return BulkIgnoreError, false
}
