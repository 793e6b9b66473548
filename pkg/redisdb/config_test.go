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

package redisdb

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/gomega"
)

func TestNewClient(t *testing.T) {
	RegisterTestingT(t)
	s, err := miniredis.Run()
	Expect(err).ToNot(HaveOccurred())
	defer s.Close()

	cfg := DefaultConfig(AsicDB)
	cfg.Endpoint = s.Addr()
	client, err := NewClient(cfg)
	Expect(err).ToNot(HaveOccurred())
	defer client.Close()

	Expect(client.Set("k", "v", 0).Err()).To(Succeed())
	Expect(s.DB(AsicDB).Get("k")).To(Equal("v"))
}

func TestNewClientUnreachable(t *testing.T) {
	RegisterTestingT(t)
	s, err := miniredis.Run()
	Expect(err).ToNot(HaveOccurred())
	addr := s.Addr()
	s.Close()

	_, err = NewClient(Config{Endpoint: addr})
	Expect(err).To(HaveOccurred())
}
