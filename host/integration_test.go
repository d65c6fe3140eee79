package host

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quietlychris/meadow-sub000/config"
	"github.com/quietlychris/meadow-sub000/node"
)

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func startTestHost(t *testing.T, transports ...config.Transport) (config.HostConfig, *Host) {
	t.Helper()
	cfg := config.DefaultHostConfig("itest")
	cfg.Interface = "lo"
	cfg.StorePath = filepath.Join(t.TempDir(), "meadow.db")
	cfg.Port = uint16(freePort(t))
	cfg.Transports = transports

	h, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, h.Start())
	t.Cleanup(func() { h.Stop() })

	// give acceptors a moment to bind
	time.Sleep(20 * time.Millisecond)
	return cfg, h
}

func TestEndToEndPublishAndRequestTCP(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	nodeCfg := config.DefaultNodeConfig("publisher")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	nodeCfg.Transport = config.TCP

	idle := node.New[float64](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	require.NoError(t, active.Publish(ctx, "temperature", 21.5))

	got, err := active.Request(ctx, "temperature")
	require.NoError(t, err)
	require.InDelta(t, 21.5, got.Data, 0.0001)
}

func TestEndToEndRequestNthBackTCP(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	nodeCfg := config.DefaultNodeConfig("publisher")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)

	idle := node.New[int](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, active.Publish(ctx, "seq", i))
		time.Sleep(time.Millisecond)
	}

	got, err := active.RequestNthBack(ctx, "seq", 2)
	require.NoError(t, err)
	require.Equal(t, 2, got.Data)
}

func TestEndToEndTopicsTCP(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	nodeCfg := config.DefaultNodeConfig("publisher")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)

	idle := node.New[string](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	require.NoError(t, active.Publish(ctx, "alpha", "a"))
	require.NoError(t, active.Publish(ctx, "beta", "b"))

	topics, err := active.Topics(ctx)
	require.NoError(t, err)
	require.Contains(t, topics, "alpha")
	require.Contains(t, topics, "beta")
}

func TestEndToEndRequestMissingTopicTCP(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	nodeCfg := config.DefaultNodeConfig("publisher")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)

	idle := node.New[int](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	_, err = active.Request(ctx, "nonexistent")
	require.Error(t, err)
}

func TestEndToEndSubscribeTCP(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	pubCfg := config.DefaultNodeConfig("publisher")
	pubCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	ctx := context.Background()
	pub, err := node.New[int](pubCfg).Activate(ctx)
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Publish(ctx, "ticks", 1))

	subCfg := config.DefaultNodeConfig("subscriber")
	subCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	sub, err := node.New[int](subCfg).Subscribe(ctx, "ticks", 10*time.Millisecond)
	require.NoError(t, err)
	defer sub.Close()

	require.Eventually(t, func() bool {
		msg, ok := sub.GetSubscribedData()
		return ok && msg.Data == 1
	}, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, pub.Publish(ctx, "ticks", 2))
	require.Eventually(t, func() bool {
		msg, ok := sub.GetSubscribedData()
		return ok && msg.Data == 2
	}, 2*time.Second, 20*time.Millisecond)
}

func TestEndToEndUDPSetAndGet(t *testing.T) {
	cfg, _ := startTestHost(t, config.UDP)

	nodeCfg := config.DefaultNodeConfig("udp-node")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	nodeCfg.Transport = config.UDP

	idle := node.New[int](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	require.NoError(t, active.Publish(ctx, "udp-counter", 7))

	got, err := active.Request(ctx, "udp-counter")
	require.NoError(t, err)
	require.Equal(t, 7, got.Data)
}

func TestEndToEndPublishAndRequestTLS(t *testing.T) {
	cfg := config.DefaultHostConfig("itest-tls")
	cfg.Interface = "lo"
	cfg.StorePath = filepath.Join(t.TempDir(), "meadow.db")
	cfg.Port = uint16(freePort(t))
	cfg.Transports = []config.Transport{config.TLSStream}

	h, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, h.UseSelfSignedCert("localhost"))
	require.NoError(t, h.Start())
	t.Cleanup(func() { h.Stop() })
	time.Sleep(20 * time.Millisecond)

	nodeCfg := config.DefaultNodeConfig("tls-node")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	nodeCfg.Transport = config.TLSStream

	idle := node.New[float64](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	require.NoError(t, active.Publish(ctx, "tls-temperature", 98.6))

	got, err := active.Request(ctx, "tls-temperature")
	require.NoError(t, err)
	require.InDelta(t, 98.6, got.Data, 0.0001)
}

// TestEndToEndOptionPayloadPreservesNone publishes Some(v) then nil on the
// same topic: a *float32 payload must round-trip both a populated and a nil
// value without the nil collapsing into a zero value or an error.
func TestEndToEndOptionPayloadPreservesNone(t *testing.T) {
	cfg, _ := startTestHost(t, config.TCP)

	nodeCfg := config.DefaultNodeConfig("optional-publisher")
	nodeCfg.HostAddr = fmt.Sprintf("127.0.0.1:%d", cfg.Port)

	idle := node.New[*float32](nodeCfg)
	ctx := context.Background()
	active, err := idle.Activate(ctx)
	require.NoError(t, err)
	defer active.Close()

	v := float32(1.0)
	require.NoError(t, active.Publish(ctx, "optional", &v))
	got, err := active.Request(ctx, "optional")
	require.NoError(t, err)
	require.NotNil(t, got.Data)
	require.InDelta(t, 1.0, *got.Data, 0.0001)

	require.NoError(t, active.Publish(ctx, "optional", nil))
	got, err = active.Request(ctx, "optional")
	require.NoError(t, err)
	require.Nil(t, got.Data)
}
