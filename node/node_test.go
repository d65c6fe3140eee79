package node

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

// fakeTransport lets these tests exercise ActiveNode/SubscriptionNode logic
// without a real socket.
type fakeTransport struct {
	respond func(protocol.Envelope) protocol.Envelope
	ticks   []protocol.Envelope
	closed  bool
}

func (f *fakeTransport) RoundTrip(ctx context.Context, req protocol.Envelope) (protocol.Envelope, error) {
	return f.respond(req), nil
}

func (f *fakeTransport) Stream(ctx context.Context, req protocol.Envelope, onRecv func(protocol.Envelope)) error {
	for _, e := range f.ticks {
		onRecv(e)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeTransport) Close() error {
	f.closed = true
	return nil
}

func TestActiveNodePublishAndRequest(t *testing.T) {
	stored := map[string]protocol.Envelope{}
	ft := &fakeTransport{
		respond: func(req protocol.Envelope) protocol.Envelope {
			switch req.Kind {
			case protocol.KindSet:
				stored[req.Topic] = req
				resp, _ := protocol.EncodeHostOperation(req.Topic, req.DataType, nil, nil)
				return resp
			case protocol.KindGet:
				e := stored[req.Topic]
				return protocol.Envelope{Kind: protocol.KindGet, Time: e.Time, Topic: e.Topic, DataType: e.DataType, Data: e.Data}
			}
			return protocol.Envelope{}
		},
	}

	n := &ActiveNode[int]{tr: ft}
	ctx := context.Background()

	require.NoError(t, n.Publish(ctx, "counter", 99))
	msg, err := n.Request(ctx, "counter")
	require.NoError(t, err)
	require.Equal(t, 99, msg.Data)
}

func TestSubscriptionNodeMonotonicityFilter(t *testing.T) {
	base := time.Now()
	older, _ := protocol.ToGeneric(protocol.Msg[int]{Time: base, Data: 1}, "int")
	newer, _ := protocol.ToGeneric(protocol.Msg[int]{Time: base.Add(time.Second), Data: 2}, "int")
	stale, _ := protocol.ToGeneric(protocol.Msg[int]{Time: base, Data: 999}, "int")

	ft := &fakeTransport{ticks: []protocol.Envelope{older, newer, stale}}

	sn := &SubscriptionNode[int]{tr: ft, topic: "t"}
	sn.ctx, sn.cancel = context.WithCancel(context.Background())
	sn.done = make(chan error, 1)
	go func() { sn.done <- ft.Stream(sn.ctx, protocol.Envelope{}, sn.onRecv) }()

	require.Eventually(t, func() bool {
		msg, ok := sn.GetSubscribedData()
		return ok && msg.Data == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, sn.Close())
	require.True(t, ft.closed)
}
