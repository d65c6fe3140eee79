// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/quietlychris/meadow-sub000/internal/mlog"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// serveTLS mirrors serveTCP's connection lifecycle over a tls.Conn. Go's
// standard library exposes TLS only as a single reliable stream, without
// QUIC/HTTP2-style independent sub-streams, so each accepted connection
// carries its round trips one after another over that one stream, exactly
// as a TCP connection does, rather than one multiplexed stream per round
// trip.
func (h *Host) serveTLS(ctx context.Context, addr string) error {
	cert, err := tls.X509KeyPair([]byte(h.tlsCert), []byte(h.tlsKey))
	if err != nil {
		if h.cfg.CertPath == "" || h.cfg.KeyPath == "" {
			return err
		}
		cert, err = tls.LoadX509KeyPair(h.cfg.CertPath, h.cfg.KeyPath)
		if err != nil {
			return err
		}
	}

	lc := net.ListenConfig{}
	inner, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	ln := tls.NewListener(inner, &tls.Config{Certificates: []tls.Certificate{cert}})
	mlog.Infof("host: listening for TLS-stream on %s", addr)

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
			mlog.Warnf("host: tls accept: %v", err)
			continue
		}
		go h.handleTLSConn(ctx, conn)
	}
}

func (h *Host) handleTLSConn(parent context.Context, conn net.Conn) {
	defer conn.Close()

	name, err := tcpHandshake(conn, h.cfg.BufferSize, h.cfg.MaxTopicLen)
	if err != nil {
		mlog.Warnf("host: tls handshake from %s failed: %v", conn.RemoteAddr(), err)
		return
	}

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
			if !errors.Is(err, io.EOF) {
				mlog.Warnf("host: tls decode from %s: %v", conn.RemoteAddr(), err)
			}
			return
		}

		if env.Kind == protocol.KindSubscribe {
			h.startSubscription(ctx, name, env, w)
			continue
		}

		resp := dispatch(h.store, env)
		if err := w.WriteEnvelope(resp); err != nil {
			mlog.Warnf("host: tls write to %s: %v", conn.RemoteAddr(), err)
			return
		}
	}
}
