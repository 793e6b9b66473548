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

// Package version provides build information of the binaries.
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

// Set at build time with -ldflags "-X go.ligato.io/orchagent/pkg/version.version=...".
var (
	version   = "v0.1.0-dev"
	gitCommit = "unknown"
	buildDate = ""
)

var buildTime time.Time

func init() {
	if buildDate != "" {
		stamp, _ := strconv.ParseInt(buildDate, 10, 64)
		buildTime = time.Unix(stamp, 0)
	}
}

// Version returns version string.
func Version() string {
	return version
}

// Revision returns short git commit the binary was built from.
func Revision() string {
	if len(gitCommit) > 7 {
		return gitCommit[:7]
	}
	return gitCommit
}

// Info returns version info of the app on a single line.
func Info(app string) string {
	built := "unknown date"
	if !buildTime.IsZero() {
		built = buildTime.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s %s (%s) built on %s with %s %s/%s",
		app, version, Revision(), built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
