package host

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quietlychris/meadow-sub000/config"
	"github.com/quietlychris/meadow-sub000/pkg/protocol"
)

func testHostConfig(t *testing.T) config.HostConfig {
	t.Helper()
	cfg := config.DefaultHostConfig("testhost")
	cfg.StorePath = filepath.Join(t.TempDir(), "meadow.db")
	cfg.Port = 0 // overridden per-test once a free port is picked
	return cfg
}

func TestDispatchSetAndGet(t *testing.T) {
	cfg := testHostConfig(t)
	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Stop()

	payload, err := protocol.EncodePayload(42)
	require.NoError(t, err)

	setEnv := protocol.Envelope{Kind: protocol.KindSet, Time: time.Now(), Topic: "counter", DataType: "int", Data: payload}
	resp := dispatch(h.Store(), setEnv)
	require.Equal(t, protocol.KindHostOperation, resp.Kind)
	_, _, err = protocol.DecodeHostOperation(resp)
	require.NoError(t, err)

	getEnv := protocol.Envelope{Kind: protocol.KindGet, Time: time.Now(), Topic: "counter"}
	resp = dispatch(h.Store(), getEnv)
	require.Equal(t, protocol.KindGet, resp.Kind)

	var got int
	require.NoError(t, protocol.DecodePayload(resp.Data, &got))
	require.Equal(t, 42, got)
}

func TestDispatchGetMissingTopic(t *testing.T) {
	cfg := testHostConfig(t)
	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Stop()

	resp := dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindGet, Time: time.Now(), Topic: "missing"})
	require.Equal(t, protocol.KindHostOperation, resp.Kind)

	_, _, err = protocol.DecodeHostOperation(resp)
	require.Error(t, err)
}

func TestDispatchTopics(t *testing.T) {
	cfg := testHostConfig(t)
	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Stop()

	payload, err := protocol.EncodePayload("hello")
	require.NoError(t, err)
	dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindSet, Time: time.Now(), Topic: "greeting", DataType: "string", Data: payload})

	resp := dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindTopics, Time: time.Now()})
	require.Equal(t, protocol.KindTopics, resp.Kind)

	var topics []string
	require.NoError(t, protocol.DecodePayload(resp.Data, &topics))
	require.Contains(t, topics, "greeting")
}

func TestDispatchGetNthBack(t *testing.T) {
	cfg := testHostConfig(t)
	h, err := New(cfg)
	require.NoError(t, err)
	defer h.Stop()

	for i := 0; i < 3; i++ {
		payload, err := protocol.EncodePayload(i)
		require.NoError(t, err)
		dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindSet, Time: time.Now().Add(time.Duration(i) * time.Millisecond), Topic: "seq", DataType: "int", Data: payload})
	}

	n := int64(1)
	resp := dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindGetNth, N: &n, Time: time.Now(), Topic: "seq"})
	require.Equal(t, protocol.KindGet, resp.Kind)

	var got int
	require.NoError(t, protocol.DecodePayload(resp.Data, &got))
	require.Equal(t, 1, got)
}

func TestTemporaryStoreRemovedOnStop(t *testing.T) {
	cfg := testHostConfig(t)
	cfg.Temporary = true

	h, err := New(cfg)
	require.NoError(t, err)

	payload, err := protocol.EncodePayload(1)
	require.NoError(t, err)
	dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindSet, Time: time.Now(), Topic: "counter", DataType: "int", Data: payload})

	_, err = os.Stat(cfg.StorePath)
	require.NoError(t, err)

	require.NoError(t, h.Stop())

	_, err = os.Stat(cfg.StorePath)
	require.True(t, os.IsNotExist(err))
}

func TestNonTemporaryStorePersistsAcrossRestart(t *testing.T) {
	cfg := testHostConfig(t)

	h, err := New(cfg)
	require.NoError(t, err)

	payload, err := protocol.EncodePayload(1)
	require.NoError(t, err)
	dispatch(h.Store(), protocol.Envelope{Kind: protocol.KindSet, Time: time.Now(), Topic: "counter", DataType: "int", Data: payload})
	require.NoError(t, h.Stop())

	_, err = os.Stat(cfg.StorePath)
	require.NoError(t, err)

	h2, err := New(cfg)
	require.NoError(t, err)
	defer h2.Stop()

	resp := dispatch(h2.Store(), protocol.Envelope{Kind: protocol.KindGet, Time: time.Now(), Topic: "counter"})
	var got int
	require.NoError(t, protocol.DecodePayload(resp.Data, &got))
	require.Equal(t, 1, got)
}
