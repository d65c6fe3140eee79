// Copyright (C) 2026 Meadow authors.
// All rights reserved. This file is part of the meadow module.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package host

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/quietlychris/meadow-sub000/internal/mlog"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// writer is whatever a Subscribe job ticks a fresh value into: the framed
// stream writer of a TCP or TLS connection. The UDP listener refuses
// Subscribe, so there is no datagram writer.
type writer interface {
	WriteEnvelope(protocol.Envelope) error
}

// subscriptionEngine owns one gocron scheduler shared by every subscribed
// connection and registers one job per subscription. Ticking lives here, on the
// Host, rather than as a client-side sleep loop, so one slow or
// clock-skewed Node cannot desynchronize from the value's true cadence.
type subscriptionEngine struct {
	host *Host

	mu        sync.Mutex
	scheduler gocron.Scheduler
	jobs      map[string]gocron.Job
}

func newSubscriptionEngine(h *Host) *subscriptionEngine {
	return &subscriptionEngine{host: h, jobs: make(map[string]gocron.Job)}
}

func (e *subscriptionEngine) start() {
	s, err := gocron.NewScheduler()
	if err != nil {
		mlog.Errorf("host: creating subscription scheduler: %v", err)
		return
	}
	e.mu.Lock()
	e.scheduler = s
	e.mu.Unlock()
	s.Start()
}

func (e *subscriptionEngine) stop() {
	e.mu.Lock()
	s := e.scheduler
	e.mu.Unlock()
	if s != nil {
		if err := s.Shutdown(); err != nil {
			mlog.Warnf("host: shutting down subscription scheduler: %v", err)
		}
	}
}

// Register starts ticking topic at the given interval, writing the latest
// record through w on every tick, until ctx is cancelled (the connection
// closing) or a write fails.
func (e *subscriptionEngine) Register(ctx context.Context, id string, topic string, interval time.Duration, w writer) {
	e.mu.Lock()
	s := e.scheduler
	e.mu.Unlock()
	if s == nil {
		return
	}

	tick := func() {
		rec, err := e.host.store.Last(topic)
		if err != nil {
			return
		}
		env := protocol.Envelope{
			Kind:     protocol.KindGet,
			Time:     rec.Time,
			Topic:    topic,
			DataType: rec.DataType,
			Data:     rec.Data,
		}
		if err := w.WriteEnvelope(env); err != nil {
			e.Unregister(id)
		}
	}

	job, err := s.NewJob(gocron.DurationJob(interval), gocron.NewTask(tick))
	if err != nil {
		mlog.Errorf("host: registering subscription job for %q: %v", topic, err)
		return
	}

	e.mu.Lock()
	e.jobs[id] = job
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.Unregister(id)
	}()
}

func (e *subscriptionEngine) Unregister(id string) {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if ok {
		delete(e.jobs, id)
	}
	s := e.scheduler
	e.mu.Unlock()
	if ok && s != nil {
		_ = s.RemoveJob(job.ID())
	}
}
