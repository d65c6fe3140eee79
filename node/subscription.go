// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"sync"
	"time"

	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// SubscriptionNode is a connected Node that has asked the Host to tick
// updates for one topic; GetSubscribedData is its only legal operation.
type SubscriptionNode[T any] struct {
	tr    transport
	topic string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan error

	mu     sync.Mutex
	latest *protocol.Msg[T]
}

func newSubscriptionNode[T any](tr transport, topic string, interval time.Duration) (*SubscriptionNode[T], error) {
	micros := interval.Microseconds()
	payload, err := protocol.EncodePayload(micros)
	if err != nil {
		tr.Close()
		return nil, err
	}

	sn := &SubscriptionNode[T]{tr: tr, topic: topic}
	sn.ctx, sn.cancel = context.WithCancel(context.Background())
	sn.done = make(chan error, 1)

	req := protocol.Envelope{
		Kind:     protocol.KindSubscribe,
		Time:     time.Now(),
		Topic:    topic,
		DataType: typeTag[T](),
		Data:     payload,
	}

	go func() {
		sn.done <- tr.Stream(sn.ctx, req, sn.onRecv)
	}()

	return sn, nil
}

// onRecv applies the monotonicity filter: a tick whose timestamp is not
// strictly newer than the cached one is a duplicate or out-of-order
// delivery and is dropped rather than overwriting the slot.
func (sn *SubscriptionNode[T]) onRecv(env protocol.Envelope) {
	msg, err := protocol.FromGeneric[T](env)
	if err != nil {
		return
	}

	sn.mu.Lock()
	defer sn.mu.Unlock()
	if sn.latest != nil && !msg.Time.After(sn.latest.Time) {
		return
	}
	sn.latest = &msg
}

// GetSubscribedData returns the most recent value received since
// subscribing, if any has arrived yet.
func (sn *SubscriptionNode[T]) GetSubscribedData() (protocol.Msg[T], bool) {
	sn.mu.Lock()
	defer sn.mu.Unlock()
	if sn.latest == nil {
		return protocol.Msg[T]{}, false
	}
	return *sn.latest, true
}

// Close stops the poller and releases the underlying transport.
func (sn *SubscriptionNode[T]) Close() error {
	sn.cancel()
	err := sn.tr.Close()
	<-sn.done
	return err
}
