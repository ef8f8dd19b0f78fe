package irc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/logger"
	"github.com/relaynet/ircbridge/internal/metrics"
)

// ProbeResult reports a one-shot reachability check. Failures are
// carried in Err; Probe never panics or returns a Go error.
type ProbeResult struct {
	OK        bool   `json:"ok"`
	Connected bool   `json:"connected"`
	Err       string `json:"error,omitempty"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Nick      string `json:"nick,omitempty"`
}

// Dialer builds a throwaway connection for probing. Production use
// passes NewConn; tests substitute fakes.
type Dialer func(log logger.Logger, sc *config.ServerConfig) Conn

// Probe opens an isolated connection and races registration against
// the timeout. Exactly one cleanup (quit plus queue drain) runs on
// every outcome.
func Probe(ctx context.Context, log logger.Logger, sc *config.ServerConfig, timeout time.Duration, dial Dialer) ProbeResult {
	if dial == nil {
		dial = NewConn
	}

	probeID := uuid.NewString()[:8]
	result := ProbeResult{Host: sc.Host, Port: sc.Port}

	log.Debug("probing server", "probe", probeID, "addr", sc.Addr(), "timeout", timeout.String())

	conn := dial(log, sc)

	var cleanup sync.Once
	quit := func() {
		cleanup.Do(func() {
			conn.Quit()
			// Drain so the producer side never wedges on a full
			// queue after we stop reading.
			go func() {
				for range conn.Events() {
				}
			}()
		})
	}
	defer quit()

	if err := conn.Connect(); err != nil {
		result.Err = fmt.Sprintf("connect failed: %v", err)
		metrics.ProbeResults.WithLabelValues("error").Inc()
		return result
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				result.Err = "connection closed before registration"
				metrics.ProbeResults.WithLabelValues("error").Inc()
				return result
			}
			switch ev.Type {
			case EventRegistered:
				result.OK = true
				result.Connected = true
				result.Nick = conn.CurrentNick()
				log.Debug("probe succeeded", "probe", probeID, "nick", result.Nick)
				metrics.ProbeResults.WithLabelValues("ok").Inc()
				return result
			case EventError:
				result.Err = "protocol error: " + ev.Text
				metrics.ProbeResults.WithLabelValues("error").Inc()
				return result
			case EventClosed:
				result.Err = "connection closed before registration"
				metrics.ProbeResults.WithLabelValues("error").Inc()
				return result
			}

		case <-timer.C:
			result.Err = fmt.Sprintf("timeout after %s", timeout)
			metrics.ProbeResults.WithLabelValues("timeout").Inc()
			return result

		case <-ctx.Done():
			result.Err = fmt.Sprintf("cancelled: %v", ctx.Err())
			metrics.ProbeResults.WithLabelValues("error").Inc()
			return result
		}
	}
}
