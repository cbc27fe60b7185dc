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

package debug

import (
	"os"
	"testing"

	. "github.com/onsi/gomega"
)

func TestIsEnabledFor(t *testing.T) {
	RegisterTestingT(t)
	defer os.Unsetenv(EnvDebug)

	os.Unsetenv(EnvDebug)
	Expect(IsEnabled()).To(BeFalse())
	Expect(IsEnabledFor("ntcore")).To(BeFalse())

	os.Setenv(EnvDebug, "ntcore, nt-restapi")
	Expect(IsEnabled()).To(BeTrue())
	Expect(IsEnabledFor("ntcore")).To(BeTrue())
	Expect(IsEnabledFor("ntcore", "nt-restapi")).To(BeTrue())
	Expect(IsEnabledFor("nt")).To(BeFalse())

	os.Setenv(EnvDebug, "*")
	Expect(IsEnabledFor("anything")).To(BeTrue())
}

func TestStartWithoutEnv(t *testing.T) {
	RegisterTestingT(t)

	Expect(profileMode("CPU")).ToNot(BeNil())
	Expect(profileMode("none")).To(BeNil())

	d := Start()
	Expect(d.closer).To(BeNil())
	d.Stop()
}
