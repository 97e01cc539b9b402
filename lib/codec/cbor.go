// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer and
// float encoding, no indefinite-length items. The same document always
// produces identical bytes, which keeps stream captures diffable.
var encMode cbor.EncMode

// decMode is the CBOR decoder used for every document stream. Unknown
// fields are ignored so producers can add document keys without
// breaking older viewers.
var decMode cbor.DecMode

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Event data, run-start hints and descriptor metadata are all
		// decoded into any-typed targets. Producers only ever use
		// string keys, and the structure registry walks these maps as
		// map[string]any.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
		// Event values decoded into any must be numerically usable
		// regardless of sign. Without this, non-negative integers
		// decode as uint64 and negative ones as int64.
		IntDec:          cbor.IntDecConvertSigned,
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Type alias so consumers import
// only lib/codec, not fxamacker/cbor directly.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value. Document envelopes carry
// their payload as a RawMessage so the kind can be inspected before
// the payload is decoded into its typed form.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder that writes to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder that reads from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for the
// entire contents of data. Used when logging undecodable documents.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
