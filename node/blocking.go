// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package node

import (
	"context"

	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// Blocking wraps an ActiveNode so its methods don't need a context argument
// at every call site, the Go analog of the original design's block_on
// facade. Internally it just supplies a background context (or one given at
// construction) to the non-blocking methods underneath.
type Blocking[T any] struct {
	ctx  context.Context
	node *ActiveNode[T]
}

// NewBlocking wraps node, using ctx for every call. Pass context.Background()
// for an unbounded blocking client.
func NewBlocking[T any](ctx context.Context, n *ActiveNode[T]) *Blocking[T] {
	return &Blocking[T]{ctx: ctx, node: n}
}

func (b *Blocking[T]) Publish(topic string, data T) error {
	return b.node.Publish(b.ctx, topic, data)
}

func (b *Blocking[T]) Request(topic string) (protocol.Msg[T], error) {
	return b.node.Request(b.ctx, topic)
}

func (b *Blocking[T]) RequestNthBack(topic string, n int64) (protocol.Msg[T], error) {
	return b.node.RequestNthBack(b.ctx, topic, n)
}

func (b *Blocking[T]) Topics() ([]string, error) {
	return b.node.Topics(b.ctx)
}

func (b *Blocking[T]) Close() error {
	return b.node.Close()
}
