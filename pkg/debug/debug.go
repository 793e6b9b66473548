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

// Package debug runs the profiling and debug HTTP server of a binary
// when enabled through environment variables.
package debug

import (
	_ "expvar"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strings"

	"github.com/pkg/profile"
	"go.ligato.io/cn-infra/v2/logging"
)

// Environment variables controlling the debugging.
const (
	EnvEnabled     = "ORCHAGENT_DEBUG"
	EnvProfileMode = "ORCHAGENT_PROFILE_MODE"
	EnvProfilePath = "ORCHAGENT_PROFILE_PATH"
	EnvServerAddr  = "ORCHAGENT_DEBUG_ADDR"
)

const defaultServerAddr = "127.0.0.1:1234"

// Stopper stops profiling started by Start.
type Stopper interface {
	Stop()
}

type session struct {
	stop func()
}

func (s *session) Stop() {
	if s.stop != nil {
		s.stop()
	}
}

// IsEnabled returns true if debugging is enabled.
func IsEnabled() bool {
	return os.Getenv(EnvEnabled) != ""
}

// Start starts the debug server serving pprof and expvar, and the
// profiling selected by the profile mode.
func Start(log logging.Logger) Stopper {
	if log == nil {
		log = logging.DefaultLogger
	}
	s := &session{}
	if opt := profileMode(os.Getenv(EnvProfileMode)); opt != nil {
		s.stop = profile.Start(opt, profile.ProfilePath(os.Getenv(EnvProfilePath)), profile.NoShutdownHook).Stop
	}

	addr := os.Getenv(EnvServerAddr)
	if addr == "" {
		addr = defaultServerAddr
	}
	log.Infof("debug server listening on %s", addr)
	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			log.Warnf("debug server error: %v", err)
		}
	}()
	return s
}

func profileMode(mode string) func(*profile.Profile) {
	switch strings.ToLower(mode) {
	case "cpu":
		return profile.CPUProfile
	case "mem":
		return profile.MemProfile
	case "mutex":
		return profile.MutexProfile
	case "block":
		return profile.BlockProfile
	case "trace":
		return profile.TraceProfile
	}
	return nil
}
