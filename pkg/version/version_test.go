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

package version

import (
	"runtime"
	"testing"

	. "github.com/onsi/gomega"
)

func TestInfo(t *testing.T) {
	RegisterTestingT(t)

	i := Get()
	Expect(i.App).To(Equal("nt-agent"))
	Expect(i.GoVersion).To(Equal(runtime.Version()))
	Expect(Short()).To(Equal("nt-agent " + i.Version))
	Expect(i.String()).To(HavePrefix(Short() + " (unknown, "))

	i.BuildDate = "2018-08-27T06:58:30Z"
	Expect(i.String()).To(ContainSubstring("built 2018-08-27T06:58:30Z"))
}
