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
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Type is a bit mask identifying the type of a value. Masks of several types
// can be OR-ed together to filter entry listings.
type Type uint8

const (
	// Unassigned is the type of an absent value.
	Unassigned Type = 0
	// Boolean is a single boolean.
	Boolean Type = 0x01
	// Double is a single IEEE-754 double.
	Double Type = 0x02
	// String is a single UTF-8 string.
	String Type = 0x04
	// Raw is an opaque byte array.
	Raw Type = 0x08
	// BooleanArray is an array of booleans.
	BooleanArray Type = 0x10
	// DoubleArray is an array of doubles.
	DoubleArray Type = 0x20
	// StringArray is an array of strings.
	StringArray Type = 0x40
)

var typeNames = map[Type]string{
	Unassigned:   "unassigned",
	Boolean:      "boolean",
	Double:       "double",
	String:       "string",
	Raw:          "raw",
	BooleanArray: "boolean[]",
	DoubleArray:  "double[]",
	StringArray:  "string[]",
}

// String returns the name used for the type in text formats.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%#x)", uint8(t))
}

// ParseType converts type name (as returned by String) back to Type.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if t != Unassigned && n == name {
			return t, nil
		}
	}
	return Unassigned, errors.Errorf("unknown value type %q", name)
}

// Matches returns true if the type is selected by the given type mask.
// Zero mask selects every type.
func (t Type) Matches(mask Type) bool {
	return mask == 0 || t&mask != 0
}

// Value is an immutable typed value stored in a table entry.
// Use one of the constructors to create it, the zero value is not valid.
type Value struct {
	typ        Type
	lastChange int64

	boolean  bool
	double   float64
	str      string
	raw      []byte
	booleans []bool
	doubles  []float64
	strs     []string
}

func now() int64 {
	return time.Now().UnixNano()
}

// BooleanValue creates a new boolean value.
func BooleanValue(v bool) *Value {
	return &Value{typ: Boolean, boolean: v, lastChange: now()}
}

// DoubleValue creates a new double value.
func DoubleValue(v float64) *Value {
	return &Value{typ: Double, double: v, lastChange: now()}
}

// StringValue creates a new string value.
func StringValue(v string) *Value {
	return &Value{typ: String, str: v, lastChange: now()}
}

// RawValue creates a new raw value. The slice is copied.
func RawValue(v []byte) *Value {
	return &Value{typ: Raw, raw: append([]byte{}, v...), lastChange: now()}
}

// BooleanArrayValue creates a new boolean array value. The slice is copied.
func BooleanArrayValue(v []bool) *Value {
	return &Value{typ: BooleanArray, booleans: append([]bool{}, v...), lastChange: now()}
}

// DoubleArrayValue creates a new double array value. The slice is copied.
func DoubleArrayValue(v []float64) *Value {
	return &Value{typ: DoubleArray, doubles: append([]float64{}, v...), lastChange: now()}
}

// StringArrayValue creates a new string array value. The slice is copied.
func StringArrayValue(v []string) *Value {
	return &Value{typ: StringArray, strs: append([]string{}, v...), lastChange: now()}
}

// Type returns type of the value.
func (v *Value) Type() Type {
	if v == nil {
		return Unassigned
	}
	return v.typ
}

// LastChange returns time of the local change that produced the value
// (unix nanoseconds).
func (v *Value) LastChange() int64 {
	return v.lastChange
}

// GetBoolean returns the boolean payload (false for other types).
func (v *Value) GetBoolean() bool {
	return v.boolean
}

// GetDouble returns the double payload (0 for other types).
func (v *Value) GetDouble() float64 {
	return v.double
}

// GetString returns the string payload ("" for other types).
func (v *Value) GetString() string {
	return v.str
}

// GetRaw returns copy of the raw payload.
func (v *Value) GetRaw() []byte {
	return append([]byte{}, v.raw...)
}

// GetBooleanArray returns copy of the boolean array payload.
func (v *Value) GetBooleanArray() []bool {
	return append([]bool{}, v.booleans...)
}

// GetDoubleArray returns copy of the double array payload.
func (v *Value) GetDoubleArray() []float64 {
	return append([]float64{}, v.doubles...)
}

// GetStringArray returns copy of the string array payload.
func (v *Value) GetStringArray() []string {
	return append([]string{}, v.strs...)
}

// Equal compares type and payload of two values. Time of the last change
// is not compared. Doubles are compared bitwise so that NaN equals NaN.
func (v *Value) Equal(o *Value) bool {
	if v == nil || o == nil {
		return v == o
	}
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case Boolean:
		return v.boolean == o.boolean
	case Double:
		return math.Float64bits(v.double) == math.Float64bits(o.double)
	case String:
		return v.str == o.str
	case Raw:
		return bytes.Equal(v.raw, o.raw)
	case BooleanArray:
		if len(v.booleans) != len(o.booleans) {
			return false
		}
		for i := range v.booleans {
			if v.booleans[i] != o.booleans[i] {
				return false
			}
		}
		return true
	case DoubleArray:
		if len(v.doubles) != len(o.doubles) {
			return false
		}
		for i := range v.doubles {
			if math.Float64bits(v.doubles[i]) != math.Float64bits(o.doubles[i]) {
				return false
			}
		}
		return true
	case StringArray:
		if len(v.strs) != len(o.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
		return true
	}
	return true
}

// String returns human-readable representation of the value.
func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.typ {
	case Boolean:
		return strconv.FormatBool(v.boolean)
	case Double:
		return strconv.FormatFloat(v.double, 'g', -1, 64)
	case String:
		return strconv.Quote(v.str)
	case Raw:
		return base64.StdEncoding.EncodeToString(v.raw)
	case BooleanArray:
		elems := make([]string, len(v.booleans))
		for i, b := range v.booleans {
			elems[i] = strconv.FormatBool(b)
		}
		return "[" + strings.Join(elems, ",") + "]"
	case DoubleArray:
		elems := make([]string, len(v.doubles))
		for i, d := range v.doubles {
			elems[i] = strconv.FormatFloat(d, 'g', -1, 64)
		}
		return "[" + strings.Join(elems, ",") + "]"
	case StringArray:
		elems := make([]string, len(v.strs))
		for i, s := range v.strs {
			elems[i] = strconv.Quote(s)
		}
		return "[" + strings.Join(elems, ",") + "]"
	}
	return v.typ.String()
}

// ParseValue converts command-line text into a value of the given type.
// Arrays are comma separated, raw values are base64 encoded.
func ParseValue(t Type, text string) (*Value, error) {
	var elems []string
	if t&(BooleanArray|DoubleArray|StringArray) != 0 && text != "" {
		elems = strings.Split(text, ",")
	}
	switch t {
	case Boolean:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, errors.Wrap(err, "invalid boolean")
		}
		return BooleanValue(b), nil
	case Double:
		d, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.Wrap(err, "invalid double")
		}
		return DoubleValue(d), nil
	case String:
		return StringValue(text), nil
	case Raw:
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, errors.Wrap(err, "invalid base64")
		}
		return RawValue(raw), nil
	case BooleanArray:
		arr := make([]bool, len(elems))
		for i, e := range elems {
			b, err := strconv.ParseBool(strings.TrimSpace(e))
			if err != nil {
				return nil, errors.Wrapf(err, "invalid boolean at index %d", i)
			}
			arr[i] = b
		}
		return BooleanArrayValue(arr), nil
	case DoubleArray:
		arr := make([]float64, len(elems))
		for i, e := range elems {
			d, err := strconv.ParseFloat(strings.TrimSpace(e), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid double at index %d", i)
			}
			arr[i] = d
		}
		return DoubleArrayValue(arr), nil
	case StringArray:
		return StringArrayValue(elems), nil
	}
	return nil, errors.Errorf("cannot parse value of type %v", t)
}

type jsonValue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes value as {"type": <name>, "value": <payload>}.
func (v *Value) MarshalJSON() ([]byte, error) {
	var payload interface{}
	switch v.typ {
	case Boolean:
		payload = v.boolean
	case Double:
		payload = v.double
	case String:
		payload = v.str
	case Raw:
		payload = v.raw
	case BooleanArray:
		payload = v.booleans
	case DoubleArray:
		payload = v.doubles
	case StringArray:
		payload = v.strs
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonValue{Type: v.typ.String(), Value: raw})
}

// UnmarshalJSON decodes value encoded by MarshalJSON.
func (v *Value) UnmarshalJSON(data []byte) error {
	var jv jsonValue
	if err := json.Unmarshal(data, &jv); err != nil {
		return err
	}
	t, err := ParseType(jv.Type)
	if err != nil {
		return err
	}
	var decoded *Value
	switch t {
	case Boolean:
		var b bool
		err = json.Unmarshal(jv.Value, &b)
		decoded = BooleanValue(b)
	case Double:
		var d float64
		err = json.Unmarshal(jv.Value, &d)
		decoded = DoubleValue(d)
	case String:
		var s string
		err = json.Unmarshal(jv.Value, &s)
		decoded = StringValue(s)
	case Raw:
		var raw []byte
		err = json.Unmarshal(jv.Value, &raw)
		decoded = RawValue(raw)
	case BooleanArray:
		var arr []bool
		err = json.Unmarshal(jv.Value, &arr)
		decoded = BooleanArrayValue(arr)
	case DoubleArray:
		var arr []float64
		err = json.Unmarshal(jv.Value, &arr)
		decoded = DoubleArrayValue(arr)
	case StringArray:
		var arr []string
		err = json.Unmarshal(jv.Value, &arr)
		decoded = StringArrayValue(arr)
	}
	if err != nil {
		return errors.Wrapf(err, "invalid %v payload", t)
	}
	*v = *decoded
	return nil
}
