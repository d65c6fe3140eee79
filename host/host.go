// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package host implements the Host side of Meadow: a process that accepts
// Node connections over TCP, UDP, and TLS-stream, dispatches their requests
// against a persistent topic store, and serves periodic Subscribe updates.
package host

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quietlychris/meadow-sub000/config"
	"github.com/quietlychris/meadow-sub000/internal/mlog"
	"github.com/quietlychris/meadow-sub000/internal/netutil"
	"github.com/quietlychris/meadow-sub000/pkg/merrors"
	"github.com/quietlychris/meadow-sub000/pkg/store"
)

// connection records one accepted peer, named by the name it sent in the
// handshake, so it can be listed or individually torn down.
type connection struct {
	addr   net.Addr
	name   string
	cancel context.CancelFunc
}

// Host is the central coordination process: it owns a persistent store and
// one acceptor per configured transport.
type Host struct {
	cfg   config.HostConfig
	store store.Store

	mu      sync.Mutex
	conns   []*connection
	sub     *subscriptionEngine
	tlsCert string
	tlsKey  string

	cancel context.CancelFunc
	group  *errgroup.Group
	once   sync.Once
}

// New builds a Host from cfg and opens its store, but does not yet accept
// connections; call Start for that. If cfg.Temporary is set, the store at
// cfg.StorePath is removed when the Host is later Stopped, rather than
// persisting across restarts.
func New(cfg config.HostConfig) (*Host, error) {
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	h := &Host{
		cfg:   cfg,
		store: st,
	}
	h.sub = newSubscriptionEngine(h)
	return h, nil
}

// Config returns the configuration the Host was built from.
func (h *Host) Config() config.HostConfig {
	return h.cfg
}

// Store exposes the Host's underlying persistent store, matching the
// original design's db() accessor: handlers and tests read/write through it
// directly rather than through a copy.
func (h *Host) Store() store.Store {
	return h.store
}

// Start resolves each configured transport's interface and spawns one
// acceptor goroutine per transport, all bound to a cancellable context
// managed by an errgroup so Stop can wait for a clean shutdown.
func (h *Host) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	h.cancel = cancel
	h.group = group

	for _, t := range h.cfg.Transports {
		ip, err := netutil.ResolveInterfaceIPv4(h.cfg.Interface)
		if err != nil {
			cancel()
			return merrors.Wrap(merrors.KindInvalidInterface, h.cfg.Interface, err)
		}
		addr := fmt.Sprintf("%s:%d", ip.String(), h.cfg.Port)

		switch t {
		case config.TCP:
			group.Go(func() error { return h.serveTCP(ctx, addr) })
		case config.UDP:
			group.Go(func() error { return h.serveUDP(ctx, addr) })
		case config.TLSStream:
			group.Go(func() error { return h.serveTLS(ctx, addr) })
		default:
			mlog.Warnf("host: unknown transport %q ignored", t)
		}
	}

	h.sub.start()
	return nil
}

// Stop aborts every acceptor and per-connection handler, matching the
// original's Drop semantics of unconditionally tearing down all tasks. Stop
// is safe to call more than once.
func (h *Host) Stop() error {
	h.once.Do(func() {
		h.mu.Lock()
		for _, c := range h.conns {
			c.cancel()
		}
		h.conns = nil
		h.mu.Unlock()

		h.sub.stop()

		if h.cancel != nil {
			h.cancel()
		}
		if h.group != nil {
			_ = h.group.Wait()
		}
		if err := h.store.Close(); err != nil {
			mlog.Warnf("host: closing store: %v", err)
		}

		if h.cfg.Temporary && h.cfg.StorePath != "" {
			if err := os.Remove(h.cfg.StorePath); err != nil && !os.IsNotExist(err) {
				mlog.Warnf("host: removing temporary store %q: %v", h.cfg.StorePath, err)
			}
		}
	})
	return nil
}

// PrintConnections logs the name and address of every active connection.
func (h *Host) PrintConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.conns {
		mlog.Infof("\t- %s:%s", c.name, c.addr)
	}
}

func (h *Host) addConnection(name string, addr net.Addr, cancel context.CancelFunc) *connection {
	c := &connection{addr: addr, name: name, cancel: cancel}
	h.mu.Lock()
	h.conns = append(h.conns, c)
	h.mu.Unlock()
	return c
}

func (h *Host) removeConnection(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.conns {
		if existing == c {
			h.conns = append(h.conns[:i], h.conns[i+1:]...)
			return
		}
	}
}
