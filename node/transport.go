// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package node

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/quietlychris/meadow-sub000/config"
	"github.com/quietlychris/meadow-sub000/pkg/merrors"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// transport is the per-connection primitive an activated Node sends
// envelopes through. TCP and TLS share one long-lived socket; UDP dials a
// connected datagram socket so Write/Read address the same peer.
type transport interface {
	// RoundTrip sends req and returns the Host's response.
	RoundTrip(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error)
	// Stream sends req once, then hands every subsequent envelope the Host
	// writes to onRecv until ctx is cancelled. Used only by Subscribe.
	Stream(ctx context.Context, req protocol.Envelope, onRecv func(protocol.Envelope)) error
	Close() error
}

func dial(ctx context.Context, cfg config.NodeConfig) (transport, error) {
	switch cfg.Transport {
	case config.TCP:
		return dialStream(ctx, "tcp", cfg, nil)
	case config.TLSStream:
		tlsCfg := &tls.Config{InsecureSkipVerify: true} // the Host's certificate is never verified; cfg.CertPath/KeyPath are not read here
		return dialStream(ctx, "tcp", cfg, tlsCfg)
	case config.UDP:
		return dialUDP(ctx, cfg)
	default:
		return nil, merrors.New(merrors.KindInvalidInterface, string(cfg.Transport))
	}
}

// streamTransport backs both TCP and TLS-stream: the handshake and framing
// are identical, only the dial step differs.
type streamTransport struct {
	conn   net.Conn
	reader *bufio.Reader
	tries  int
	limit  *rate.Limiter
}

func dialStream(ctx context.Context, network string, cfg config.NodeConfig, tlsCfg *tls.Config) (*streamTransport, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, network, cfg.HostAddr)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindStreamConnection, cfg.HostAddr, err)
	}
	if tlsCfg != nil {
		conn = tls.Client(conn, tlsCfg)
	}

	if _, err := conn.Write([]byte(cfg.Name)); err != nil {
		conn.Close()
		return nil, merrors.Wrap(merrors.KindHandshake, cfg.Name, err)
	}
	time.Sleep(5 * time.Millisecond)

	tries := cfg.SendTries
	if tries < 1 {
		tries = 1
	}
	return &streamTransport{
		conn:   conn,
		reader: bufio.NewReaderSize(conn, cfg.BufferSize()),
		tries:  tries,
		limit:  rate.NewLimiter(rate.Every(10*time.Millisecond), 1),
	}, nil
}

func (t *streamTransport) write(e protocol.Envelope) error {
	var lastErr error
	for i := 0; i < t.tries; i++ {
		if i > 0 {
			_ = t.limit.Wait(context.Background())
		}
		if err := protocol.WriteFramed(t.conn, e); err != nil {
			lastErr = merrors.Wrap(merrors.KindTCPSend, "tcp/tls write", err)
			continue
		}
		return nil
	}
	return lastErr
}

func (t *streamTransport) RoundTrip(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
		defer t.conn.SetDeadline(time.Time{})
	}
	if err := t.write(req); err != nil {
		return protocol.Envelope{}, err
	}
	resp, err := protocol.ReadFramed(t.reader)
	if err != nil {
		return protocol.Envelope{}, merrors.Wrap(merrors.KindAccessStream, "tcp/tls read", err)
	}
	return resp, nil
}

func (t *streamTransport) Stream(ctx context.Context, req protocol.Envelope, onRecv func(protocol.Envelope)) error {
	if err := t.write(req); err != nil {
		return err
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		env, err := protocol.ReadFramed(t.reader)
		if err != nil {
			return merrors.Wrap(merrors.KindAccessStream, "tcp/tls subscription read", err)
		}
		onRecv(env)
	}
}

func (t *streamTransport) Close() error {
	return t.conn.Close()
}

// udpTransport sends one datagram per request and reads one datagram back;
// it has no persistent Subscribe support, matching the Host side's refusal
// of Subscribe requests on the datagram transport.
type udpTransport struct {
	conn  *net.UDPConn
	buf   []byte
	tries int
	limit *rate.Limiter
}

func dialUDP(ctx context.Context, cfg config.NodeConfig) (*udpTransport, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.HostAddr)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindIPParsing, cfg.HostAddr, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, merrors.Wrap(merrors.KindAccessSocket, cfg.HostAddr, err)
	}
	tries := cfg.SendTries
	if tries < 1 {
		tries = 1
	}
	return &udpTransport{
		conn:  conn,
		buf:   make([]byte, cfg.BufferSize()),
		tries: tries,
		limit: rate.NewLimiter(rate.Every(10*time.Millisecond), 1),
	}, nil
}

func (t *udpTransport) RoundTrip(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
		defer t.conn.SetDeadline(time.Time{})
	}

	out, err := protocol.EncodeDatagram(req)
	if err != nil {
		return protocol.Envelope{}, err
	}

	var lastErr error
	for i := 0; i < t.tries; i++ {
		if i > 0 {
			_ = t.limit.Wait(context.Background())
		}
		if _, err := t.conn.Write(out); err != nil {
			lastErr = merrors.Wrap(merrors.KindUDPSend, "udp write", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return protocol.Envelope{}, lastErr
	}

	n, err := t.conn.Read(t.buf)
	if err != nil {
		return protocol.Envelope{}, merrors.Wrap(merrors.KindAccessSocket, "udp read", err)
	}
	return protocol.DecodeDatagram(t.buf[:n])
}

func (t *udpTransport) Stream(ctx context.Context, req protocol.Envelope, onRecv func(protocol.Envelope)) error {
	return merrors.New(merrors.KindConnectionError, "subscribe is not supported on the datagram transport")
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}
