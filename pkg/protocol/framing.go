// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"io"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// maxFrameBytes bounds a single envelope's wire size, guarding stream readers
// against a corrupt or malicious length prefix demanding an unbounded read.
const maxFrameBytes = 64 << 20

// WriteFramed writes a length-prefixed Envelope to w. Used by the TCP and
// TLS-stream transports, which share one socket across many requests and so
// need an explicit message boundary.
func WriteFramed(w io.Writer, e Envelope) error {
	buf, err := EncodeEnvelope(e)
	if err != nil {
		return err
	}
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(buf)))
	if _, err := w.Write(lenPrefix[:]); err != nil {
		return merrors.Wrap(merrors.KindAccessStream, "write frame length", err)
	}
	if _, err := w.Write(buf); err != nil {
		return merrors.Wrap(merrors.KindAccessStream, "write frame body", err)
	}
	return nil
}

// ReadFramed reads one length-prefixed Envelope from r, blocking until a full
// frame arrives or r reports an error/EOF.
func ReadFramed(r io.Reader) (Envelope, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Envelope{}, err // propagate io.EOF untouched for callers' loop control
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameBytes {
		return Envelope{}, merrors.New(merrors.KindDeserialization, "frame exceeds maximum size")
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, merrors.Wrap(merrors.KindAccessStream, "read frame body", err)
	}
	return DecodeEnvelope(body)
}

// EncodeDatagram serializes an Envelope for a single UDP packet: no length
// prefix, since UDP already preserves message boundaries.
func EncodeDatagram(e Envelope) ([]byte, error) {
	return EncodeEnvelope(e)
}

// DecodeDatagram parses a single UDP packet into an Envelope.
func DecodeDatagram(buf []byte) (Envelope, error) {
	return DecodeEnvelope(buf)
}
