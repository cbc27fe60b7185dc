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

package persist_test

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ligato/cn-infra/logging/logrus"
	. "github.com/onsi/gomega"

	"github.com/ligato/nt-agent/plugins/ntable/api"
	"github.com/ligato/nt-agent/plugins/persist"
)

func samplePairs() []persist.Pair {
	return []persist.Pair{
		{Name: "/name", Value: api.StringValue("hello\tworld \"quoted\"")},
		{Name: "/foo", Value: api.DoubleValue(0.5)},
		{Name: "/on", Value: api.BooleanValue(true)},
		{Name: "/blob", Value: api.RawValue([]byte("hello"))},
		{Name: "/flags", Value: api.BooleanArrayValue([]bool{true, false})},
		{Name: "/gains", Value: api.DoubleArrayValue([]float64{0.5, 1.25})},
		{Name: "/names", Value: api.StringArrayValue([]string{"a", "b c", "d,e"})},
		{Name: "/empty", Value: api.StringArrayValue(nil)},
		{Name: "/with space", Value: api.StringValue("")},
	}
}

func TestSaveFormat(t *testing.T) {
	RegisterTestingT(t)

	var buf bytes.Buffer
	Expect(persist.Save(&buf, []persist.Pair{
		{Name: "/foo", Value: api.DoubleValue(0.5)},
		{Name: "/blob", Value: api.RawValue([]byte("hello"))},
		{Name: "/names", Value: api.StringArrayValue([]string{"a", "b c"})},
	})).To(Succeed())
	Expect(buf.String()).To(Equal(`[NetworkTables Storage 3.0]
"/blob" raw aGVsbG8=
"/foo" double 0.5
"/names" string[] "a","b c"
`))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	RegisterTestingT(t)

	var buf bytes.Buffer
	Expect(persist.Save(&buf, samplePairs())).To(Succeed())

	pairs, warnings, err := persist.Load(&buf)
	Expect(err).ToNot(HaveOccurred())
	Expect(warnings).To(BeEmpty())
	Expect(pairs).To(HaveLen(len(samplePairs())))

	loaded := make(map[string]*api.Value)
	for _, p := range pairs {
		loaded[p.Name] = p.Value
	}
	for _, p := range samplePairs() {
		Expect(loaded).To(HaveKey(p.Name))
		Expect(loaded[p.Name].Equal(p.Value)).To(BeTrue(), p.Name)
	}
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	RegisterTestingT(t)

	input := strings.Join([]string{
		"[NetworkTables Storage 3.0]",
		"; comment",
		"# another comment",
		"",
		`"/ok" double 1`,
		`/unquoted double 1`,
		`"/badtype" int 1`,
		`"/baddouble" double abc`,
		`"/unterminated double 1`,
		`"/missing" boolean`,
		`"/str" string "x" y`,
		`"/arr" string[] "a",`,
		`"/ok2" boolean false`,
	}, "\n")

	pairs, warnings, err := persist.Load(strings.NewReader(input))
	Expect(err).ToNot(HaveOccurred())
	Expect(pairs).To(HaveLen(2))
	Expect(pairs[0].Name).To(Equal("/ok"))
	Expect(pairs[1].Name).To(Equal("/ok2"))
	Expect(warnings).To(HaveLen(7))
	Expect(warnings[0]).To(HavePrefix("line 6:"))
}

func TestLoadWithoutHeader(t *testing.T) {
	RegisterTestingT(t)

	pairs, warnings, err := persist.Load(strings.NewReader(`"/x" string "y"`))
	Expect(err).ToNot(HaveOccurred())
	Expect(warnings).To(BeEmpty())
	Expect(pairs).To(HaveLen(1))
	Expect(pairs[0].Value.GetString()).To(Equal("y"))
}

func TestSaveFileKeepsBackup(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "persist-test")
	Expect(err).ToNot(HaveOccurred())
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "networktables.ini")

	Expect(persist.SaveFile(path, []persist.Pair{{Name: "/a", Value: api.DoubleValue(1)}})).To(Succeed())
	Expect(persist.SaveFile(path, []persist.Pair{{Name: "/a", Value: api.DoubleValue(2)}})).To(Succeed())

	pairs, _, err := persist.LoadFile(path)
	Expect(err).ToNot(HaveOccurred())
	Expect(pairs[0].Value.GetDouble()).To(Equal(2.0))

	backup, _, err := persist.LoadFile(path + ".bak")
	Expect(err).ToNot(HaveOccurred())
	Expect(backup[0].Value.GetDouble()).To(Equal(1.0))

	_, err = os.Stat(path + ".tmp")
	Expect(os.IsNotExist(err)).To(BeTrue())
}

func TestLoadFileFallsBackToBackup(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "persist-test")
	Expect(err).ToNot(HaveOccurred())
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "networktables.ini")

	Expect(persist.SaveFile(path, []persist.Pair{{Name: "/a", Value: api.DoubleValue(1)}})).To(Succeed())
	Expect(persist.SaveFile(path, []persist.Pair{{Name: "/a", Value: api.DoubleValue(2)}})).To(Succeed())
	Expect(os.Remove(path)).To(Succeed())

	pairs, warnings, err := persist.LoadFile(path)
	Expect(err).ToNot(HaveOccurred())
	Expect(warnings).To(HaveLen(1))
	Expect(warnings[0]).To(HavePrefix("restored from backup"))
	Expect(pairs[0].Value.GetDouble()).To(Equal(1.0))

	Expect(os.Remove(path + ".bak")).To(Succeed())
	_, _, err = persist.LoadFile(path)
	Expect(os.IsNotExist(err)).To(BeTrue())
}

func TestSaveFileError(t *testing.T) {
	RegisterTestingT(t)

	err := persist.SaveFile("/nonexistent-dir/sub/file.ini", nil)
	Expect(err).To(HaveOccurred())
	_, isWriteErr := err.(*persist.WriteError)
	Expect(isWriteErr).To(BeTrue())
}

func TestSaverDebounces(t *testing.T) {
	RegisterTestingT(t)

	dir, err := ioutil.TempDir("", "persist-test")
	Expect(err).ToNot(HaveOccurred())
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "networktables.ini")

	var snapshots int32
	saver := persist.NewSaver(logrus.NewLogger("saver-test"), path, 50*time.Millisecond, func() []persist.Pair {
		atomic.AddInt32(&snapshots, 1)
		return []persist.Pair{{Name: "/a", Value: api.BooleanValue(true)}}
	})
	for i := 0; i < 10; i++ {
		saver.Trigger()
	}
	Eventually(func() int32 { return atomic.LoadInt32(&snapshots) }).Should(Equal(int32(1)))
	Consistently(func() int32 { return atomic.LoadInt32(&snapshots) }, 150*time.Millisecond).Should(Equal(int32(1)))

	_, err = os.Stat(path)
	Expect(err).ToNot(HaveOccurred())

	saver.Trigger()
	Expect(saver.Close()).To(Succeed())
	Expect(atomic.LoadInt32(&snapshots)).To(Equal(int32(2)))
}
