// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"time"

	"github.com/quietlychris/meadow-sub000/pkg/merrors"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// Publish stores data under topic on the Host.
func (n *ActiveNode[T]) Publish(ctx context.Context, topic string, data T) error {
	env, err := protocol.ToGeneric(protocol.Msg[T]{
		Kind:  protocol.KindSet,
		Time:  time.Now(),
		Topic: topic,
		Data:  data,
	}, typeTag[T]())
	if err != nil {
		return err
	}

	resp, err := n.tr.RoundTrip(ctx, env)
	if err != nil {
		return err
	}
	return checkHostOperation(resp)
}

// Request returns the most recently published value on topic.
func (n *ActiveNode[T]) Request(ctx context.Context, topic string) (protocol.Msg[T], error) {
	env := protocol.Envelope{Kind: protocol.KindGet, Time: time.Now(), Topic: topic, DataType: typeTag[T]()}
	resp, err := n.tr.RoundTrip(ctx, env)
	if err != nil {
		return protocol.Msg[T]{}, err
	}
	if err := checkHostOperation(resp); err != nil {
		return protocol.Msg[T]{}, err
	}
	return protocol.FromGeneric[T](resp)
}

// RequestNthBack returns the value n positions back from the most recent
// (0 is equivalent to Request).
func (n *ActiveNode[T]) RequestNthBack(ctx context.Context, topic string, nth int64) (protocol.Msg[T], error) {
	env := protocol.Envelope{Kind: protocol.KindGetNth, N: &nth, Time: time.Now(), Topic: topic, DataType: typeTag[T]()}
	resp, err := n.tr.RoundTrip(ctx, env)
	if err != nil {
		return protocol.Msg[T]{}, err
	}
	if err := checkHostOperation(resp); err != nil {
		return protocol.Msg[T]{}, err
	}
	return protocol.FromGeneric[T](resp)
}

// Topics lists every topic currently known to the Host.
func (n *ActiveNode[T]) Topics(ctx context.Context) ([]string, error) {
	env := protocol.Envelope{Kind: protocol.KindTopics, Time: time.Now()}
	resp, err := n.tr.RoundTrip(ctx, env)
	if err != nil {
		return nil, err
	}
	if err := checkHostOperation(resp); err != nil {
		return nil, err
	}
	var topics []string
	if err := protocol.DecodePayload(resp.Data, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// checkHostOperation surfaces a HostOperation-kind failure response as a Go
// error; any other response kind is treated as success.
func checkHostOperation(resp protocol.Envelope) error {
	if resp.Kind != protocol.KindHostOperation {
		return nil
	}
	_, _, err := protocol.DecodeHostOperation(resp)
	if err == nil {
		return nil
	}
	if _, ok := err.(*merrors.Error); ok {
		return err
	}
	return merrors.Wrap(merrors.KindBadResponse, "host operation", err)
}
