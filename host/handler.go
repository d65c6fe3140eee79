// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"time"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
	"github.com/quietlychris/meadow-sub000/pkg/store"
)

// dispatch handles every request/response envelope kind except Subscribe,
// which has its own lifecycle (see subscription.go) since it outlives a
// single request/response round trip. It is shared, unchanged, by the TCP,
// UDP, and TLS-stream handlers.
func dispatch(st store.Store, env protocol.Envelope) protocol.Envelope {
	switch env.Kind {
	case protocol.KindSet:
		err := st.Insert(env.Topic, env.Time, env.DataType, env.Data)
		if err != nil {
			err = merrors.Wrap(merrors.KindSetFailure, env.Topic, err)
		}
		resp, encErr := protocol.EncodeHostOperation(env.Topic, env.DataType, nil, err)
		if encErr != nil {
			return errorEnvelope(env.Topic, encErr)
		}
		return resp

	case protocol.KindGet:
		return respondWithRecord(st, env.Topic, 0, merrors.KindGetFailure)

	case protocol.KindGetNth:
		var n int64
		if env.N != nil {
			n = *env.N
		}
		return respondWithRecord(st, env.Topic, n, merrors.KindGetFailure)

	case protocol.KindTopics:
		topics, err := st.Topics()
		if err != nil {
			resp, _ := protocol.EncodeHostOperation(env.Topic, env.DataType, nil, err)
			return resp
		}
		data, err := protocol.EncodePayload(topics)
		if err != nil {
			return errorEnvelope(env.Topic, err)
		}
		return protocol.Envelope{
			Kind:     protocol.KindTopics,
			Time:     time.Now(),
			Topic:    env.Topic,
			DataType: "[]string",
			Data:     data,
		}

	case protocol.KindHostOperation:
		resp, _ := protocol.EncodeHostOperation(env.Topic, env.DataType, nil,
			merrors.New(merrors.KindConnectionError, "host does not accept HostOperation requests"))
		return resp

	default:
		resp, _ := protocol.EncodeHostOperation(env.Topic, env.DataType, nil,
			merrors.New(merrors.KindBadResponse, "unknown envelope kind"))
		return resp
	}
}

func respondWithRecord(st store.Store, topic string, n int64, failureKind merrors.Kind) protocol.Envelope {
	var (
		rec store.Record
		err error
	)
	if n == 0 {
		rec, err = st.Last(topic)
	} else {
		rec, err = st.NthBack(topic, n)
	}
	if err != nil {
		resp, _ := protocol.EncodeHostOperation(topic, "", nil, wrapStoreError(err, topic, failureKind))
		return resp
	}
	return protocol.Envelope{
		Kind:     protocol.KindGet,
		Time:     rec.Time,
		Topic:    topic,
		DataType: rec.DataType,
		Data:     rec.Data,
	}
}

// wrapStoreError preserves a non-existent-topic/no-nth-value distinction
// that the store already raises, and otherwise falls back to failureKind.
func wrapStoreError(err error, topic string, failureKind merrors.Kind) error {
	if me, ok := err.(*merrors.Error); ok {
		switch me.Kind {
		case merrors.KindNonExistentTopic, merrors.KindNoNthValue:
			return me
		}
	}
	return merrors.Wrap(failureKind, topic, err)
}

func errorEnvelope(topic string, err error) protocol.Envelope {
	return protocol.Envelope{
		Kind:     protocol.KindHostOperation,
		Time:     time.Now(),
		Topic:    topic,
		DataType: "",
		Data:     []byte(err.Error()),
	}
}
