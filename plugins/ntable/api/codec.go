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

package api

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// Type tags used by the binary encoding.
const (
	TagBoolean      byte = 0x00
	TagDouble       byte = 0x01
	TagString       byte = 0x02
	TagRaw          byte = 0x03
	TagBooleanArray byte = 0x10
	TagDoubleArray  byte = 0x11
	TagStringArray  byte = 0x12
)

var typeToTag = map[Type]byte{
	Boolean:      TagBoolean,
	Double:       TagDouble,
	String:       TagString,
	Raw:          TagRaw,
	BooleanArray: TagBooleanArray,
	DoubleArray:  TagDoubleArray,
	StringArray:  TagStringArray,
}

// WireTag returns the binary type tag of the type.
func (t Type) WireTag() byte {
	return typeToTag[t]
}

// TypeFromTag converts binary type tag into Type.
func TypeFromTag(tag byte) (Type, bool) {
	for t, tg := range typeToTag {
		if tg == tag {
			return t, true
		}
	}
	return Unassigned, false
}

// DecodeError is returned for truncated or malformed binary input.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at offset %d: %s", e.Offset, e.Reason)
}

// AppendUint16 appends big-endian uint16.
func AppendUint16(b []byte, v uint16) []byte {
	return append(b, byte(v>>8), byte(v))
}

// AppendUint32 appends big-endian uint32.
func AppendUint32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// AppendUvarint appends unsigned LEB128 number.
func AppendUvarint(b []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(b, tmp[:n]...)
}

// AppendBytes appends length-prefixed byte slice.
func AppendBytes(b []byte, data []byte) []byte {
	b = AppendUvarint(b, uint64(len(data)))
	return append(b, data...)
}

// AppendString appends length-prefixed string.
func AppendString(b []byte, s string) []byte {
	b = AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendDouble(b []byte, d float64) []byte {
	bits := math.Float64bits(d)
	return append(b, byte(bits>>56), byte(bits>>48), byte(bits>>40), byte(bits>>32),
		byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits))
}

func appendBool(b []byte, v bool) []byte {
	if v {
		return append(b, 1)
	}
	return append(b, 0)
}

// AppendValue appends type tag followed by the value payload.
func AppendValue(b []byte, v *Value) []byte {
	b = append(b, v.typ.WireTag())
	return AppendValuePayload(b, v)
}

// AppendValuePayload appends the value payload without the type tag.
func AppendValuePayload(b []byte, v *Value) []byte {
	switch v.typ {
	case Boolean:
		b = appendBool(b, v.boolean)
	case Double:
		b = appendDouble(b, v.double)
	case String:
		b = AppendString(b, v.str)
	case Raw:
		b = AppendBytes(b, v.raw)
	case BooleanArray:
		b = AppendUvarint(b, uint64(len(v.booleans)))
		for _, e := range v.booleans {
			b = appendBool(b, e)
		}
	case DoubleArray:
		b = AppendUvarint(b, uint64(len(v.doubles)))
		for _, e := range v.doubles {
			b = appendDouble(b, e)
		}
	case StringArray:
		b = AppendUvarint(b, uint64(len(v.strs)))
		for _, e := range v.strs {
			b = AppendString(b, e)
		}
	}
	return b
}

// EncodeValue returns binary encoding of the value.
func EncodeValue(v *Value) []byte {
	return AppendValue(nil, v)
}

// DecodeValue decodes a value encoded by EncodeValue. The whole input must
// be consumed.
func DecodeValue(data []byte) (*Value, error) {
	d := NewDecoder(data)
	v := d.Value()
	if err := d.Err(); err != nil {
		return nil, err
	}
	if d.Remaining() != 0 {
		return nil, &DecodeError{Offset: d.Offset(), Reason: "trailing data"}
	}
	return v, nil
}

// Decoder reads primitives from a byte slice. The first failure is
// remembered and all subsequent reads return zero values.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder returns decoder reading from data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Err returns the first decode error.
func (d *Decoder) Err() error {
	return d.err
}

// Offset returns current read offset.
func (d *Decoder) Offset() int {
	return d.off
}

// Remaining returns number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.off
}

func (d *Decoder) fail(reason string) {
	if d.err == nil {
		d.err = &DecodeError{Offset: d.off, Reason: reason}
	}
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if n < 0 || d.Remaining() < n {
		d.fail(fmt.Sprintf("truncated input: need %d bytes, have %d", n, d.Remaining()))
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// Byte reads single byte.
func (d *Decoder) Byte() byte {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads single byte boolean.
func (d *Decoder) Bool() bool {
	return d.Byte() != 0
}

// Uint16 reads big-endian uint16.
func (d *Decoder) Uint16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Uint32 reads big-endian uint32.
func (d *Decoder) Uint32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

// Double reads 8-byte IEEE-754 double.
func (d *Decoder) Double() float64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// Uvarint reads unsigned LEB128 number.
func (d *Decoder) Uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf[d.off:])
	if n == 0 {
		d.fail("truncated varint")
		return 0
	}
	if n < 0 {
		d.fail("varint overflow")
		return 0
	}
	d.off += n
	return v
}

// count reads element count and verifies that at least minSize bytes per
// element are still available.
func (d *Decoder) count(minSize int) int {
	n := d.Uvarint()
	if d.err != nil {
		return 0
	}
	if n > uint64(d.Remaining()/minSize) {
		d.fail(fmt.Sprintf("element count %d exceeds input", n))
		return 0
	}
	return int(n)
}

// Bytes reads length-prefixed byte slice (copied).
func (d *Decoder) Bytes() []byte {
	n := d.count(1)
	b := d.take(n)
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}

// Str reads length-prefixed UTF-8 string.
func (d *Decoder) Str() string {
	n := d.count(1)
	b := d.take(n)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		d.off -= n
		d.fail("invalid UTF-8 string")
		return ""
	}
	return string(b)
}

// Value reads type tag followed by the value payload.
func (d *Decoder) Value() *Value {
	tag := d.Byte()
	if d.err != nil {
		return nil
	}
	t, ok := TypeFromTag(tag)
	if !ok {
		d.off--
		d.fail(fmt.Sprintf("invalid type tag %#x", tag))
		return nil
	}
	return d.ValuePayload(t)
}

// ValuePayload reads the payload of a value of the given type.
func (d *Decoder) ValuePayload(t Type) *Value {
	var v *Value
	switch t {
	case Boolean:
		v = BooleanValue(d.Bool())
	case Double:
		v = DoubleValue(d.Double())
	case String:
		v = StringValue(d.Str())
	case Raw:
		v = &Value{typ: Raw, raw: d.Bytes(), lastChange: now()}
	case BooleanArray:
		arr := make([]bool, d.count(1))
		for i := range arr {
			arr[i] = d.Bool()
		}
		v = &Value{typ: BooleanArray, booleans: arr, lastChange: now()}
	case DoubleArray:
		arr := make([]float64, d.count(8))
		for i := range arr {
			arr[i] = d.Double()
		}
		v = &Value{typ: DoubleArray, doubles: arr, lastChange: now()}
	case StringArray:
		arr := make([]string, d.count(1))
		for i := range arr {
			arr[i] = d.Str()
		}
		v = &Value{typ: StringArray, strs: arr, lastChange: now()}
	default:
		d.fail(fmt.Sprintf("unsupported value type %v", t))
	}
	if d.err != nil {
		return nil
	}
	return v
}
