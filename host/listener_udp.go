// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"context"
	"net"

	"github.com/quietlychris/meadow-sub000/internal/mlog"
	"github.com/quietlychris/meadow-sub000/pkg/merrors"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// serveUDP runs a single goroutine owning the datagram socket: unlike TCP
// and TLS, there is no per-peer handler task, since a datagram carries its
// own full request and needs no connection state between packets.
func (h *Host) serveUDP(ctx context.Context, addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	mlog.Infof("host: listening for UDP on %s", addr)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	buf := make([]byte, h.cfg.BufferSize)
	for {
		n, peer, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			mlog.Warnf("host: udp read: %v", err)
			continue
		}

		env, err := protocol.DecodeDatagram(append([]byte(nil), buf[:n]...))
		if err != nil {
			mlog.Warnf("host: udp decode from %s: %v", peer, err)
			continue
		}

		var resp protocol.Envelope
		if env.Kind == protocol.KindSubscribe {
			// Subscribe has no connection to tick updates over on a
			// connectionless transport; refuse the request rather than
			// silently dropping it.
			resp, _ = protocol.EncodeHostOperation(env.Topic, env.DataType, nil,
				merrors.New(merrors.KindConnectionError, "subscribe is not supported on the datagram transport"))
		} else {
			resp = dispatch(h.store, env)
		}

		out, err := protocol.EncodeDatagram(resp)
		if err != nil {
			mlog.Warnf("host: udp encode response to %s: %v", peer, err)
			continue
		}
		if _, err := conn.WriteToUDP(out, peer); err != nil {
			mlog.Warnf("host: udp write to %s: %v", peer, err)
		}
	}
}
