// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
)

// Msg is the typed counterpart of Envelope: Data is the decoded payload
// rather than opaque bytes.
type Msg[T any] struct {
	Kind     Kind
	N        *int64
	Time     time.Time
	Topic    string
	DataType string
	Data     T
}

// EncodePayload serializes v with MessagePack. Used for both request
// payloads and HostOperation results.
func EncodePayload(v interface{}) ([]byte, error) {
	buf, err := msgpack.Marshal(v)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindSerialization, "encode payload", err)
	}
	return buf, nil
}

// DecodePayload deserializes buf into v, which must be a pointer.
func DecodePayload(buf []byte, v interface{}) error {
	if err := msgpack.Unmarshal(buf, v); err != nil {
		return merrors.Wrap(merrors.KindDeserialization, "decode payload", err)
	}
	return nil
}

// ToGeneric converts a typed Msg into its wire Envelope, encoding Data with
// MessagePack and recording a type tag for diagnostic purposes.
func ToGeneric[T any](m Msg[T], typeName string) (Envelope, error) {
	data, err := EncodePayload(m.Data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:     m.Kind,
		N:        m.N,
		Time:     m.Time,
		Topic:    m.Topic,
		DataType: typeName,
		Data:     data,
	}, nil
}

// FromGeneric decodes an Envelope's payload into a typed Msg[T]. It does not
// compare DataType against T's name: an embedder that mixes types on one
// topic is responsible for sorting that out itself, matching the Non-goal
// that Meadow enforces no cross-language/cross-type wire compatibility.
func FromGeneric[T any](e Envelope) (Msg[T], error) {
	var data T
	if len(e.Data) > 0 {
		if err := DecodePayload(e.Data, &data); err != nil {
			return Msg[T]{}, err
		}
	}
	return Msg[T]{
		Kind:     e.Kind,
		N:        e.N,
		Time:     e.Time,
		Topic:    e.Topic,
		DataType: e.DataType,
		Data:     data,
	}, nil
}

// HostOperationResult is the payload carried by an Envelope of KindHostOperation:
// the outcome of a Set/Get/GetNth/Topics request.
type HostOperationResult struct {
	OK          bool
	ErrorKind   string
	ErrorDetail string
}

// EncodeHostOperation builds the Envelope a Host sends back in response to a
// request, wrapping either a successful payload or a structured error.
func EncodeHostOperation(topic string, dataType string, payload []byte, opErr error) (Envelope, error) {
	result := HostOperationResult{OK: opErr == nil}
	if opErr != nil {
		if me, ok := opErr.(*merrors.Error); ok {
			result.ErrorKind = string(me.Kind)
			result.ErrorDetail = me.Detail
		} else {
			result.ErrorKind = string(merrors.KindBadResponse)
			result.ErrorDetail = opErr.Error()
		}
	}

	wrapped := struct {
		HostOperationResult
		Payload []byte
	}{HostOperationResult: result, Payload: payload}

	data, err := EncodePayload(wrapped)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Kind:     KindHostOperation,
		Time:     time.Now(),
		Topic:    topic,
		DataType: dataType,
		Data:     data,
	}, nil
}

// DecodeHostOperation extracts the result and, if OK, the raw payload bytes
// from a HostOperation envelope.
func DecodeHostOperation(e Envelope) (HostOperationResult, []byte, error) {
	var wrapped struct {
		HostOperationResult
		Payload []byte
	}
	if err := DecodePayload(e.Data, &wrapped); err != nil {
		return HostOperationResult{}, nil, err
	}
	if !wrapped.OK {
		return wrapped.HostOperationResult, nil, merrors.New(merrors.Kind(wrapped.ErrorKind), wrapped.ErrorDetail)
	}
	return wrapped.HostOperationResult, wrapped.Payload, nil
}
