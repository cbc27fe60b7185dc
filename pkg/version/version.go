// Copyright (c) 2018 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package version provides information about app version. The variables are
// set at build time with -ldflags "-X".
package version

import (
	"fmt"
	"runtime"
	"strconv"
	"time"
)

var (
	app       = "nt-agent"
	version   = "v0.1.0"
	gitCommit = "unknown"
	gitBranch = "HEAD"
	buildDate = ""
)

// Info describes the build of the running binary.
type Info struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version"`
}

var info Info

func init() {
	revision := gitCommit
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if gitBranch != "HEAD" {
		revision += fmt.Sprintf("@%s", gitBranch)
	}
	info = Info{
		App:       app,
		Version:   version,
		Revision:  revision,
		GoVersion: runtime.Version(),
	}
	if buildDate != "" {
		if stamp, err := strconv.ParseInt(buildDate, 10, 64); err == nil {
			info.BuildDate = time.Unix(stamp, 0).UTC().Format(time.RFC3339)
		}
	}
}

// Get returns version info of the running binary.
func Get() Info {
	return info
}

// Short returns app name with version.
func Short() string {
	return fmt.Sprintf("%s %s", info.App, info.Version)
}

// String returns complete version info on single line.
func (i Info) String() string {
	s := fmt.Sprintf("%s %s (%s", i.App, i.Version, i.Revision)
	if i.BuildDate != "" {
		s += ", built " + i.BuildDate
	}
	return s + ", " + i.GoVersion + ")"
}
