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

package wire_test

import (
	"bytes"
	"io"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/pkg/errors"

	"github.com/ligato/nt-agent/plugins/netsync/wire"
	"github.com/ligato/nt-agent/plugins/ntable/api"
)

func TestMessagesRoundTrip(t *testing.T) {
	RegisterTestingT(t)

	msgs := []wire.Message{
		&wire.KeepAlive{},
		&wire.ClientHello{ProtoRev: wire.ProtocolRevision, Identity: "robot"},
		&wire.ProtoUnsupported{ProtoRev: wire.ProtocolRevision},
		&wire.ServerHelloDone{},
		&wire.ServerHello{Flags: wire.ClientPreviouslySeen, Identity: "server"},
		&wire.ClientHelloDone{},
		&wire.EntryAssign{Name: "/foo", ID: api.UnassignedID, Seq: 1, Flags: api.Persistent,
			Value: api.StringArrayValue([]string{"a", "b"})},
		&wire.EntryUpdate{ID: 3, Seq: 0xFFFFFFFF, Value: api.DoubleValue(-1.5)},
		&wire.FlagsUpdate{ID: 3, Flags: 0},
		&wire.EntryDelete{ID: 9},
		&wire.ClearEntries{Magic: wire.ClearAllMagic},
	}

	var stream bytes.Buffer
	for _, msg := range msgs {
		Expect(wire.WriteMessage(&stream, msg)).To(Succeed())
	}
	for _, expected := range msgs {
		msg, err := wire.ReadMessage(&stream)
		Expect(err).ToNot(HaveOccurred())
		Expect(msg.Type()).To(Equal(expected.Type()))
		switch m := msg.(type) {
		case *wire.EntryAssign:
			e := expected.(*wire.EntryAssign)
			Expect(m.Name).To(Equal(e.Name))
			Expect(m.ID).To(Equal(e.ID))
			Expect(m.Seq).To(Equal(e.Seq))
			Expect(m.Flags).To(Equal(e.Flags))
			Expect(m.Value.Equal(e.Value)).To(BeTrue())
		case *wire.EntryUpdate:
			e := expected.(*wire.EntryUpdate)
			Expect(m.ID).To(Equal(e.ID))
			Expect(m.Seq).To(Equal(e.Seq))
			Expect(m.Value.Equal(e.Value)).To(BeTrue())
		default:
			Expect(m).To(Equal(expected))
		}
	}
	_, err := wire.ReadMessage(&stream)
	Expect(err).To(Equal(io.EOF))
}

func TestFrameLayout(t *testing.T) {
	RegisterTestingT(t)

	frame, err := wire.Encode(&wire.EntryDelete{ID: 0x01020304})
	Expect(err).ToNot(HaveOccurred())
	Expect(frame).To(Equal([]byte{0, 0, 0, 5, 0x13, 1, 2, 3, 4}))

	frame, err = wire.Encode(&wire.KeepAlive{})
	Expect(err).ToNot(HaveOccurred())
	Expect(frame).To(Equal([]byte{0, 0, 0, 1, 0x00}))
}

func TestMalformedFrames(t *testing.T) {
	RegisterTestingT(t)

	// unknown message type
	_, err := wire.ReadMessage(bytes.NewReader([]byte{0, 0, 0, 1, 0x7f}))
	_, isDecodeErr := err.(*api.DecodeError)
	Expect(isDecodeErr).To(BeTrue())

	// truncated body
	_, err = wire.ReadMessage(bytes.NewReader([]byte{0, 0, 0, 5, 0x13, 1}))
	Expect(err).To(Equal(io.ErrUnexpectedEOF))

	// body too short for the message
	_, err = wire.ReadMessage(bytes.NewReader([]byte{0, 0, 0, 2, 0x13, 1}))
	_, isDecodeErr = err.(*api.DecodeError)
	Expect(isDecodeErr).To(BeTrue())

	// trailing data
	_, err = wire.ReadMessage(bytes.NewReader([]byte{0, 0, 0, 3, 0x00, 1, 2}))
	_, isDecodeErr = err.(*api.DecodeError)
	Expect(isDecodeErr).To(BeTrue())

	// invalid value tag in assignment
	body := api.AppendString(nil, "/x")
	body = append(body, 0x55, 0, 0, 0, 1, 0, 0, 0, 1, 0, 1)
	frame := append([]byte{0, 0, 0, byte(len(body) + 1), 0x10}, body...)
	_, err = wire.ReadMessage(bytes.NewReader(frame))
	_, isDecodeErr = err.(*api.DecodeError)
	Expect(isDecodeErr).To(BeTrue())

	// oversized frame
	_, err = wire.ReadMessage(bytes.NewReader([]byte{0x7f, 0, 0, 0, 0x10}))
	Expect(errors.Cause(err)).To(Equal(wire.ErrFrameTooLarge))

	// empty frame
	_, err = wire.ReadMessage(bytes.NewReader([]byte{0, 0, 0, 0, 0}))
	Expect(err).To(HaveOccurred())
}

func TestMsgTypeString(t *testing.T) {
	RegisterTestingT(t)

	Expect(wire.EntryAssignType.String()).To(Equal("EntryAssign"))
	Expect(wire.MsgType(0x99).String()).To(Equal("MsgType(0x99)"))
}
