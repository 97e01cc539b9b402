// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package docstream

import (
	"errors"
	"fmt"
)

// ProtocolVersion is the stream protocol spoken by this package.
const ProtocolVersion = 1

// hello is the first value a subscriber writes.
type hello struct {
	Version     int    `cbor:"version"`
	Compression string `cbor:"compression"`
}

// header is the publisher's reply and the first value of the stream.
// A non-empty Error refuses the subscription; the publisher closes the
// connection after writing it.
type header struct {
	Version     int    `cbor:"version"`
	Compression string `cbor:"compression"`
	Error       string `cbor:"error,omitempty"`
}

// frame carries one CBOR-encoded document envelope. CBOR items are
// self-delimiting, so each frame is complete on arrival and the
// stream needs no further framing.
type frame struct {
	Compression Compression `cbor:"c"`
	Size        int         `cbor:"n"`
	Data        []byte      `cbor:"d"`
}

// newFrame compresses an encoded envelope. Envelopes that do not
// shrink are sent uncompressed.
func newFrame(envelope []byte, c Compression) (frame, error) {
	data, err := compress(envelope, c)
	if errors.Is(err, errIncompressible) {
		return frame{Compression: CompressionNone, Size: len(envelope), Data: envelope}, nil
	}
	if err != nil {
		return frame{}, err
	}
	return frame{Compression: c, Size: len(envelope), Data: data}, nil
}

// envelope returns the encoded envelope carried by the frame.
func (f frame) envelope() ([]byte, error) {
	data, err := decompress(f.Data, f.Compression, f.Size)
	if err != nil {
		return nil, fmt.Errorf("frame: %w", err)
	}
	return data, nil
}
