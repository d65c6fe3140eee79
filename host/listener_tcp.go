// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/quietlychris/meadow-sub000/internal/mlog"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

type tcpWriter struct {
	conn net.Conn
	mu   *sync.Mutex
}

func (w *tcpWriter) WriteEnvelope(e protocol.Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return protocol.WriteFramed(w.conn, e)
}

func (h *Host) serveTCP(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	mlog.Infof("host: listening for TCP on %s", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			mlog.Warnf("host: tcp accept: %v", err)
			continue
		}
		go h.handleTCPConn(ctx, conn)
	}
}

func (h *Host) handleTCPConn(parent context.Context, conn net.Conn) {
	defer conn.Close()

	name, err := tcpHandshake(conn, h.cfg.BufferSize, h.cfg.MaxTopicLen)
	if err != nil {
		mlog.Warnf("host: tcp handshake from %s failed: %v", conn.RemoteAddr(), err)
		return
	}
	mlog.Debugf("host: tcp connection from %s named %q", conn.RemoteAddr(), name)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	c := h.addConnection(name, conn.RemoteAddr(), cancel)
	defer h.removeConnection(c)

	w := &tcpWriter{conn: conn, mu: &sync.Mutex{}}
	reader := bufio.NewReaderSize(conn, h.cfg.BufferSize)

	for {
		if ctx.Err() != nil {
			return
		}
		env, err := protocol.ReadFramed(reader)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			mlog.Warnf("host: tcp decode from %s: %v", conn.RemoteAddr(), err)
			return
		}

		if env.Kind == protocol.KindSubscribe {
			h.startSubscription(ctx, name, env, w)
			continue
		}

		resp := dispatch(h.store, env)
		w.mu.Lock()
		writeErr := protocol.WriteFramed(conn, resp)
		w.mu.Unlock()
		if writeErr != nil {
			mlog.Warnf("host: tcp write to %s: %v", conn.RemoteAddr(), writeErr)
			return
		}
	}
}

// tcpHandshake reads one unframed message from a fresh connection containing
// the name the peer identifies itself by (a Node sends its configured
// NodeConfig.Name), truncated to maxNameLen bytes, then pauses
// briefly so the name bytes are never confused with the first real request.
func tcpHandshake(conn net.Conn, bufSize, maxNameLen int) (string, error) {
	buf := make([]byte, maxOf(bufSize, maxNameLen))
	n, err := conn.Read(buf)
	if err != nil {
		return "", err
	}
	if n > maxNameLen {
		n = maxNameLen
	}
	time.Sleep(5 * time.Millisecond)
	return string(buf[:n]), nil
}

func (h *Host) startSubscription(ctx context.Context, connName string, env protocol.Envelope, w writer) {
	interval, err := subscribeInterval(env)
	if err != nil {
		mlog.Warnf("host: subscribe request from %q had bad interval: %v", connName, err)
		return
	}
	id := connName + ":" + env.Topic
	h.sub.Register(ctx, id, env.Topic, interval, w)
}

func subscribeInterval(env protocol.Envelope) (time.Duration, error) {
	var micros int64
	if err := protocol.DecodePayload(env.Data, &micros); err != nil {
		return 0, err
	}
	return time.Duration(micros) * time.Microsecond, nil
}

func maxOf(a, b int) int {
	if a > b {
		return a
	}
	return b
}
