// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package node implements the Node side of Meadow: a typed client that
// publishes, requests, lists topics, or subscribes against a Host.
//
// Node state is encoded as distinct Go types rather than a single generic
// type parameterized by a marker — Go does not allow a method to be defined
// only for one instantiation of a generic type's type parameter, so
// IdleNode[T], ActiveNode[T], and SubscriptionNode[T] are separate types
// instead. The effect is the same compile-time guarantee: Activate/Subscribe
// exist only on IdleNode, Publish/Request/RequestNthBack/Topics only on
// ActiveNode, and GetSubscribedData only on SubscriptionNode.
package node

import (
	"context"
	"reflect"
	"time"

	"github.com/quietlychris/meadow-sub000/config"
)

// typeTag names T on the wire for diagnostic purposes. A T with a
// TypeName() string method supplies its own tag; any other named type
// (a named struct, int, float64, ...) is tagged with its Go type name for
// free; unnamed types (pointers, slices, anonymous structs) fall back to a
// placeholder.
func typeTag[T any]() string {
	var zero T
	if named, ok := any(zero).(interface{ TypeName() string }); ok {
		return named.TypeName()
	}
	if name := reflect.TypeOf((*T)(nil)).Elem().Name(); name != "" {
		return name
	}
	return "T"
}

// IdleNode is a freshly built, unconnected Node. Its only legal operations
// are Activate (request/response) and Subscribe (periodic updates).
type IdleNode[T any] struct {
	cfg config.NodeConfig
}

// New builds an IdleNode from cfg. No network I/O happens until Activate or
// Subscribe is called.
func New[T any](cfg config.NodeConfig) *IdleNode[T] {
	return &IdleNode[T]{cfg: cfg}
}

// Config returns the configuration this Node was built from.
func (n *IdleNode[T]) Config() config.NodeConfig {
	return n.cfg
}

// Activate performs the transport handshake and returns a Node capable of
// Publish/Request/RequestNthBack/Topics.
func (n *IdleNode[T]) Activate(ctx context.Context) (*ActiveNode[T], error) {
	tr, err := dial(ctx, n.cfg)
	if err != nil {
		return nil, err
	}
	return &ActiveNode[T]{cfg: n.cfg, tr: tr}, nil
}

// Subscribe performs the handshake, asks the Host to begin ticking topic at
// the given interval, and returns a Node whose only operation is reading
// the continuously refreshed latest value.
func (n *IdleNode[T]) Subscribe(ctx context.Context, topic string, interval time.Duration) (*SubscriptionNode[T], error) {
	tr, err := dial(ctx, n.cfg)
	if err != nil {
		return nil, err
	}
	return newSubscriptionNode[T](tr, topic, interval)
}

// ActiveNode is a connected Node: Publish, Request, RequestNthBack, and
// Topics are the only legal operations.
type ActiveNode[T any] struct {
	cfg config.NodeConfig
	tr  transport
}

// Close releases the underlying transport.
func (n *ActiveNode[T]) Close() error {
	return n.tr.Close()
}
