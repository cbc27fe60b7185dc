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

package wire

import (
	"fmt"

	"github.com/ligato/nt-agent/plugins/ntable/api"
)

// ProtocolRevision is the only supported protocol revision.
const ProtocolRevision uint16 = 0x0300

// ClearAllMagic must be carried by ClearEntries messages.
const ClearAllMagic uint32 = 0xD06CB27A

// ServerHello flags.
const (
	// ClientPreviouslySeen is set when the server already knows the client identity.
	ClientPreviouslySeen uint8 = 0x01
)

// MsgType identifies message on the wire.
type MsgType uint8

// Message types.
const (
	KeepAliveType        MsgType = 0x00
	ClientHelloType      MsgType = 0x01
	ProtoUnsupportedType MsgType = 0x02
	ServerHelloDoneType  MsgType = 0x03
	ServerHelloType      MsgType = 0x04
	ClientHelloDoneType  MsgType = 0x05
	EntryAssignType      MsgType = 0x10
	EntryUpdateType      MsgType = 0x11
	FlagsUpdateType      MsgType = 0x12
	EntryDeleteType      MsgType = 0x13
	ClearEntriesType     MsgType = 0x14
)

var msgTypeNames = map[MsgType]string{
	KeepAliveType:        "KeepAlive",
	ClientHelloType:      "ClientHello",
	ProtoUnsupportedType: "ProtoUnsupported",
	ServerHelloDoneType:  "ServerHelloDone",
	ServerHelloType:      "ServerHello",
	ClientHelloDoneType:  "ClientHelloDone",
	EntryAssignType:      "EntryAssign",
	EntryUpdateType:      "EntryUpdate",
	FlagsUpdateType:      "FlagsUpdate",
	EntryDeleteType:      "EntryDelete",
	ClearEntriesType:     "ClearEntries",
}

func (t MsgType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MsgType(%#x)", uint8(t))
}

// Message is a single protocol message.
type Message interface {
	// Type returns the message type.
	Type() MsgType
	// AppendBody appends encoded message body (without frame header).
	AppendBody(b []byte) []byte
}

// KeepAlive is sent by an idle writer.
type KeepAlive struct{}

// ClientHello opens the handshake.
type ClientHello struct {
	ProtoRev uint16
	Identity string
}

// ProtoUnsupported rejects the client protocol revision.
type ProtoUnsupported struct {
	ProtoRev uint16
}

// ServerHelloDone terminates the server snapshot.
type ServerHelloDone struct{}

// ServerHello answers ClientHello.
type ServerHello struct {
	Flags    uint8
	Identity string
}

// ClientHelloDone terminates the client part of the handshake.
type ClientHelloDone struct{}

// EntryAssign carries full state of an entry. Clients send it with
// api.UnassignedID to request a new entry.
type EntryAssign struct {
	Name  string
	ID    uint32
	Seq   uint32
	Flags api.EntryFlags
	Value *api.Value
}

// EntryUpdate carries a new value of an existing entry.
type EntryUpdate struct {
	ID    uint32
	Seq   uint32
	Value *api.Value
}

// FlagsUpdate carries new flags of an existing entry.
type FlagsUpdate struct {
	ID    uint32
	Flags api.EntryFlags
}

// EntryDelete removes an entry.
type EntryDelete struct {
	ID uint32
}

// ClearEntries removes all non-persistent entries.
type ClearEntries struct {
	Magic uint32
}

// Type implements Message.
func (*KeepAlive) Type() MsgType { return KeepAliveType }

// Type implements Message.
func (*ClientHello) Type() MsgType { return ClientHelloType }

// Type implements Message.
func (*ProtoUnsupported) Type() MsgType { return ProtoUnsupportedType }

// Type implements Message.
func (*ServerHelloDone) Type() MsgType { return ServerHelloDoneType }

// Type implements Message.
func (*ServerHello) Type() MsgType { return ServerHelloType }

// Type implements Message.
func (*ClientHelloDone) Type() MsgType { return ClientHelloDoneType }

// Type implements Message.
func (*EntryAssign) Type() MsgType { return EntryAssignType }

// Type implements Message.
func (*EntryUpdate) Type() MsgType { return EntryUpdateType }

// Type implements Message.
func (*FlagsUpdate) Type() MsgType { return FlagsUpdateType }

// Type implements Message.
func (*EntryDelete) Type() MsgType { return EntryDeleteType }

// Type implements Message.
func (*ClearEntries) Type() MsgType { return ClearEntriesType }

// AppendBody implements Message.
func (*KeepAlive) AppendBody(b []byte) []byte { return b }

// AppendBody implements Message.
func (m *ClientHello) AppendBody(b []byte) []byte {
	b = api.AppendUint16(b, m.ProtoRev)
	return api.AppendString(b, m.Identity)
}

// AppendBody implements Message.
func (m *ProtoUnsupported) AppendBody(b []byte) []byte {
	return api.AppendUint16(b, m.ProtoRev)
}

// AppendBody implements Message.
func (*ServerHelloDone) AppendBody(b []byte) []byte { return b }

// AppendBody implements Message.
func (m *ServerHello) AppendBody(b []byte) []byte {
	b = append(b, m.Flags)
	return api.AppendString(b, m.Identity)
}

// AppendBody implements Message.
func (*ClientHelloDone) AppendBody(b []byte) []byte { return b }

// AppendBody implements Message.
func (m *EntryAssign) AppendBody(b []byte) []byte {
	b = api.AppendString(b, m.Name)
	b = append(b, m.Value.Type().WireTag())
	b = api.AppendUint32(b, m.ID)
	b = api.AppendUint32(b, m.Seq)
	b = append(b, byte(m.Flags))
	return api.AppendValuePayload(b, m.Value)
}

// AppendBody implements Message.
func (m *EntryUpdate) AppendBody(b []byte) []byte {
	b = api.AppendUint32(b, m.ID)
	b = api.AppendUint32(b, m.Seq)
	return api.AppendValue(b, m.Value)
}

// AppendBody implements Message.
func (m *FlagsUpdate) AppendBody(b []byte) []byte {
	b = api.AppendUint32(b, m.ID)
	return append(b, byte(m.Flags))
}

// AppendBody implements Message.
func (m *EntryDelete) AppendBody(b []byte) []byte {
	return api.AppendUint32(b, m.ID)
}

// AppendBody implements Message.
func (m *ClearEntries) AppendBody(b []byte) []byte {
	return api.AppendUint32(b, m.Magic)
}

// DecodeBody decodes message body of the given type. The whole body must
// be consumed.
func DecodeBody(t MsgType, body []byte) (Message, error) {
	d := api.NewDecoder(body)
	var msg Message
	switch t {
	case KeepAliveType:
		msg = &KeepAlive{}
	case ClientHelloType:
		msg = &ClientHello{ProtoRev: d.Uint16(), Identity: d.Str()}
	case ProtoUnsupportedType:
		msg = &ProtoUnsupported{ProtoRev: d.Uint16()}
	case ServerHelloDoneType:
		msg = &ServerHelloDone{}
	case ServerHelloType:
		msg = &ServerHello{Flags: d.Byte(), Identity: d.Str()}
	case ClientHelloDoneType:
		msg = &ClientHelloDone{}
	case EntryAssignType:
		m := &EntryAssign{Name: d.Str()}
		tagOffset := d.Offset()
		tag := d.Byte()
		m.ID = d.Uint32()
		m.Seq = d.Uint32()
		m.Flags = api.EntryFlags(d.Byte())
		if d.Err() == nil {
			typ, ok := api.TypeFromTag(tag)
			if !ok {
				return nil, &api.DecodeError{Offset: tagOffset, Reason: fmt.Sprintf("invalid type tag %#x", tag)}
			}
			m.Value = d.ValuePayload(typ)
		}
		msg = m
	case EntryUpdateType:
		msg = &EntryUpdate{ID: d.Uint32(), Seq: d.Uint32(), Value: d.Value()}
	case FlagsUpdateType:
		msg = &FlagsUpdate{ID: d.Uint32(), Flags: api.EntryFlags(d.Byte())}
	case EntryDeleteType:
		msg = &EntryDelete{ID: d.Uint32()}
	case ClearEntriesType:
		msg = &ClearEntries{Magic: d.Uint32()}
	default:
		return nil, &api.DecodeError{Offset: 0, Reason: fmt.Sprintf("unknown message type %v", t)}
	}
	if err := d.Err(); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, &api.DecodeError{Offset: d.Offset(), Reason: "trailing data in " + t.String()}
	}
	return msg, nil
}
