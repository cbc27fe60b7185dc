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
	"bytes"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// MaxFrameSize is the upper limit of a single frame (type byte + body).
const MaxFrameSize = 16 << 20

// HeaderSize is the size of the encoded frame header.
const HeaderSize = 5

// ErrFrameTooLarge is returned for frames exceeding MaxFrameSize.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

// frameHeader precedes every message on the wire. Length covers the type
// byte and the body.
type frameHeader struct {
	Length uint32 `struc:"uint32,big"`
	Type   uint8  `struc:"uint8"`
}

// AppendFrame appends framed message to b.
func AppendFrame(b []byte, msg Message) ([]byte, error) {
	body := msg.AppendBody(nil)
	if len(body)+1 > MaxFrameSize {
		return b, errors.Wrapf(ErrFrameTooLarge, "%v with %d bytes", msg.Type(), len(body))
	}
	buf := bytes.NewBuffer(b)
	h := &frameHeader{Length: uint32(len(body) + 1), Type: uint8(msg.Type())}
	if err := struc.Pack(buf, h); err != nil {
		return b, errors.Wrap(err, "packing frame header failed")
	}
	buf.Write(body)
	return buf.Bytes(), nil
}

// Encode returns framed message.
func Encode(msg Message) ([]byte, error) {
	return AppendFrame(nil, msg)
}

// WriteMessage writes single framed message.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// ReadMessage reads single framed message. Malformed body is reported
// as *api.DecodeError, I/O failures are returned as they are.
func ReadMessage(r io.Reader) (Message, error) {
	var raw [HeaderSize]byte
	if _, err := io.ReadFull(r, raw[:]); err != nil {
		return nil, err
	}
	h := &frameHeader{}
	if err := struc.Unpack(bytes.NewReader(raw[:]), h); err != nil {
		return nil, errors.Wrap(err, "unpacking frame header failed")
	}
	if h.Length == 0 {
		return nil, errors.New("empty frame")
	}
	if h.Length > MaxFrameSize {
		return nil, errors.Wrapf(ErrFrameTooLarge, "announced %d bytes", h.Length)
	}
	body := make([]byte, h.Length-1)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return DecodeBody(MsgType(h.Type), body)
}
