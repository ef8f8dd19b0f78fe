package irc

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/logger"
)

func probeServer() *config.ServerConfig {
	return &config.ServerConfig{Host: "irc.example.org", Port: 6697, Nick: "bridgebot"}
}

func probeDialer(conn *fakeConn) Dialer {
	return func(logger.Logger, *config.ServerConfig) Conn { return conn }
}

func TestProbeTimeout(t *testing.T) {
	conn := newFakeConn() // never registers

	res := Probe(context.Background(), logger.Nop(), probeServer(), 50*time.Millisecond, probeDialer(conn))

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "timeout")
	assert.Equal(t, "irc.example.org", res.Host)
	assert.Equal(t, 6697, res.Port)
	assert.Equal(t, 1, conn.quitCount())
}

func TestProbeSuccess(t *testing.T) {
	conn := newFakeConn()
	conn.feed(Event{Type: EventRegistered, Nick: "bridgebot"})

	res := Probe(context.Background(), logger.Nop(), probeServer(), time.Second, probeDialer(conn))

	assert.True(t, res.OK)
	assert.True(t, res.Connected)
	assert.Equal(t, "bridgebot", res.Nick)
	assert.Empty(t, res.Err)
	assert.Equal(t, 1, conn.quitCount())
}

func TestProbeConnectError(t *testing.T) {
	conn := newFakeConn()
	conn.connectErr = errors.New("connection refused")

	res := Probe(context.Background(), logger.Nop(), probeServer(), time.Second, probeDialer(conn))

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "connection refused")
	assert.Equal(t, 1, conn.quitCount())
}

func TestProbeProtocolError(t *testing.T) {
	conn := newFakeConn()
	conn.feed(Event{Type: EventError, Text: "Too many connections"})

	res := Probe(context.Background(), logger.Nop(), probeServer(), time.Second, probeDialer(conn))

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "Too many connections")
	assert.Equal(t, 1, conn.quitCount())
}

func TestProbeCloseBeforeRegistration(t *testing.T) {
	conn := newFakeConn()
	conn.feed(Event{Type: EventClosed})

	res := Probe(context.Background(), logger.Nop(), probeServer(), time.Second, probeDialer(conn))

	assert.False(t, res.OK)
	assert.Contains(t, res.Err, "closed before registration")
	require.Equal(t, 1, conn.quitCount())
}

func TestProbeConnectErrorReleasesGoroutines(t *testing.T) {
	before := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		conn := newFakeConn()
		conn.connectErr = errors.New("connection refused")

		res := Probe(context.Background(), logger.Nop(), probeServer(), time.Second, probeDialer(conn))
		require.False(t, res.OK)
	}

	// Each cleanup spawns a drain goroutine; all of them must exit
	// once the failed connection's event channel is closed.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines leaked after failed probes: before=%d after=%d", before, runtime.NumGoroutine())
}
