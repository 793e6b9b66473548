//  Copyright (c) 2019 Cisco and/or its affiliates.
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

package metrics

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

var (
	mu                sync.RWMutex
	registeredMetrics = make(map[string]Retriever)
)

// Retriever defines function that returns metrics data
type Retriever func() interface{}

// Register registers retriever of stats under the given name.
func Register(name string, retrieverFunc Retriever) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := registeredMetrics[name]; ok {
		panic(fmt.Sprintf("duplicate registration for metrics %s", name))
	}
	registeredMetrics[name] = retrieverFunc
}

// Unregister removes retriever registered under the name.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(registeredMetrics, name)
}

// Retrieve calls registered retriever for given metric.
func Retrieve(name string) (interface{}, error) {
	mu.RLock()
	retriever, ok := registeredMetrics[name]
	mu.RUnlock()
	if !ok {
		return nil, errors.Errorf("metric %v does not have registered retriever", name)
	}
	return retriever(), nil
}

// RetrieveAll calls all registered retrievers.
func RetrieveAll() map[string]interface{} {
	mu.RLock()
	retrievers := make(map[string]Retriever, len(registeredMetrics))
	for name, r := range registeredMetrics {
		retrievers[name] = r
	}
	mu.RUnlock()

	data := make(map[string]interface{}, len(retrievers))
	for name, r := range retrievers {
		data[name] = r()
	}
	return data
}
