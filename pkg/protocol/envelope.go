// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package protocol implements Meadow's wire format: a fixed-schema envelope
// (Envelope) carrying an arbitrary, schema-less payload (Msg[T]).
//
// The envelope is encoded with Avro, since its shape never varies; the
// payload is encoded with MessagePack, since T can be anything the embedder
// chooses. Splitting the two codecs this way avoids needing a schema for
// every payload type an application defines.
package protocol

import (
	"sync"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// Kind identifies the operation an Envelope carries.
type Kind string

const (
	KindSet           Kind = "Set"
	KindGet           Kind = "Get"
	KindGetNth        Kind = "GetNth"
	KindSubscribe     Kind = "Subscribe"
	KindTopics        Kind = "Topics"
	KindHostOperation Kind = "HostOperation"
)

const envelopeSchema = `
{
  "type": "record",
  "name": "Envelope",
  "namespace": "meadow",
  "fields": [
    {"name": "kind", "type": "string"},
    {"name": "n", "type": ["null", "long"], "default": null},
    {"name": "timestamp_micros", "type": "long"},
    {"name": "topic", "type": "string"},
    {"name": "data_type", "type": "string"},
    {"name": "data", "type": "bytes"}
  ]
}`

var (
	envelopeCodecOnce sync.Once
	envelopeCodec     *goavro.Codec
	envelopeCodecErr  error
)

func codec() (*goavro.Codec, error) {
	envelopeCodecOnce.Do(func() {
		envelopeCodec, envelopeCodecErr = goavro.NewCodec(envelopeSchema)
	})
	return envelopeCodec, envelopeCodecErr
}

// Envelope is the transport-level wrapper around every message Meadow sends,
// matching GenericMsg in the data model: a kind, an optional index (used only
// by GetNth), a timestamp, a topic, a type tag for the payload, and the
// payload's encoded bytes.
type Envelope struct {
	Kind     Kind
	N        *int64
	Time     time.Time
	Topic    string
	DataType string
	Data     []byte
}

// EncodeEnvelope serializes e to its Avro binary representation.
func EncodeEnvelope(e Envelope) ([]byte, error) {
	c, err := codec()
	if err != nil {
		return nil, merrors.Wrap(merrors.KindSerialization, "compile envelope codec", err)
	}

	native := map[string]interface{}{
		"kind":             string(e.Kind),
		"timestamp_micros": e.Time.UnixMicro(),
		"topic":            e.Topic,
		"data_type":        e.DataType,
		"data":             e.Data,
	}
	if e.N != nil {
		native["n"] = goavro.Union("long", *e.N)
	} else {
		native["n"] = nil
	}

	buf, err := c.BinaryFromNative(nil, native)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindSerialization, "encode envelope", err)
	}
	return buf, nil
}

// DecodeEnvelope parses an Avro-encoded envelope.
func DecodeEnvelope(buf []byte) (Envelope, error) {
	c, err := codec()
	if err != nil {
		return Envelope{}, merrors.Wrap(merrors.KindDeserialization, "compile envelope codec", err)
	}

	native, _, err := c.NativeFromBinary(buf)
	if err != nil {
		return Envelope{}, merrors.Wrap(merrors.KindDeserialization, "decode envelope", err)
	}
	rec, ok := native.(map[string]interface{})
	if !ok {
		return Envelope{}, merrors.New(merrors.KindDeserialization, "envelope is not a record")
	}

	e := Envelope{
		Kind:     Kind(rec["kind"].(string)),
		Time:     time.UnixMicro(rec["timestamp_micros"].(int64)),
		Topic:    rec["topic"].(string),
		DataType: rec["data_type"].(string),
		Data:     rec["data"].([]byte),
	}
	if u, ok := rec["n"].(map[string]interface{}); ok {
		if v, ok := u["long"].(int64); ok {
			e.N = &v
		}
	}
	return e, nil
}
