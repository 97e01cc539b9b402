// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package document

import (
	"fmt"

	"github.com/bureau-foundation/liveplot/lib/codec"
)

// Envelope is the wire form of one document: its kind name and the
// CBOR-encoded payload. The payload stays raw until the kind is known.
type Envelope struct {
	Name string           `cbor:"name"`
	Doc  codec.RawMessage `cbor:"doc"`
}

// NewEnvelope encodes doc as the payload of an envelope named kind.
func NewEnvelope(kind Kind, doc any) (Envelope, error) {
	payload, err := codec.Marshal(doc)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s document: %w", kind, err)
	}
	return Envelope{Name: string(kind), Doc: payload}, nil
}

// Decode unmarshals a raw payload into the typed document for kind and
// returns a pointer to it (*RunStart, *Descriptor, *Event, *EventPage
// or *RunStop).
func Decode(kind Kind, raw []byte) (any, error) {
	var target any
	switch kind {
	case KindStart:
		target = new(RunStart)
	case KindDescriptor:
		target = new(Descriptor)
	case KindEvent:
		target = new(Event)
	case KindEventPage:
		target = new(EventPage)
	case KindStop:
		target = new(RunStop)
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	if err := codec.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("decoding %s document: %w", kind, err)
	}
	return target, nil
}
