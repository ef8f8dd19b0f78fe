package irc

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/relaynet/ircbridge/internal/logger"
	"github.com/relaynet/ircbridge/internal/metrics"
)

// chunkPacing is the delay awaited between chunk sends (not after the
// final one) to stay under server flood limits.
const chunkPacing = 500 * time.Millisecond

// Kind selects the protocol verb for an outbound message.
type Kind int

const (
	KindSay Kind = iota
	KindNotice
	KindAction
)

func (k Kind) String() string {
	switch k {
	case KindNotice:
		return "notice"
	case KindAction:
		return "action"
	}
	return "say"
}

// DeliverOptions tunes one logical send.
type DeliverOptions struct {
	Kind Kind
	// MaxLength is the per-chunk byte budget; 0 means DefaultMaxLength.
	MaxLength int
	// Split enables chunking of over-budget text. When disabled the
	// text goes out as a single protocol call regardless of length.
	Split bool
	// SplitPrefix is prepended to every chunk after the first.
	SplitPrefix string
}

// Pipeline converts one logical send request into one or more paced
// protocol calls under a byte budget.
type Pipeline struct {
	log       logger.Logger
	accountID string

	// pacing overrides chunkPacing; tests shrink it.
	pacing time.Duration
}

func NewPipeline(log logger.Logger, accountID string) *Pipeline {
	return &Pipeline{log: log, accountID: accountID, pacing: chunkPacing}
}

// Deliver sends text to target. It fails with ErrNotConnected up
// front, and with SendInterruptedError if the connection drops
// mid-sequence. Returns the number of protocol calls issued.
func (p *Pipeline) Deliver(ctx context.Context, conn Conn, target, text string, opts DeliverOptions) (int, error) {
	if !conn.Connected() {
		metrics.SendFailures.WithLabelValues(p.accountID, "not_connected").Inc()
		return 0, ErrNotConnected
	}

	max := opts.MaxLength
	if max <= 0 {
		max = DefaultMaxLength
	}

	chunks := []string{text}
	if opts.Split && len(text) > max {
		chunks = Split(text, SplitOptions{MaxLength: max, Prefix: opts.SplitPrefix})
		p.log.Debug("splitting outbound message",
			"target", target, "bytes", len(text), "chunks", len(chunks))
	}

	// The limiter is per delivery: pacing one account's chunk
	// sequence must not hold up any other account's sends.
	limiter := rate.NewLimiter(rate.Every(p.pacing), 1)

	for i, chunk := range chunks {
		if i > 0 {
			if err := limiter.Wait(ctx); err != nil {
				return i, &SendInterruptedError{Sent: i, Err: err}
			}
		} else {
			// Consume the initial token so the next chunk waits.
			limiter.Allow()
		}

		if !conn.Connected() {
			metrics.SendFailures.WithLabelValues(p.accountID, "interrupted").Inc()
			return i, &SendInterruptedError{Sent: i, Err: ErrNotConnected}
		}

		if err := p.sendOne(conn, target, chunk, opts.Kind); err != nil {
			metrics.SendFailures.WithLabelValues(p.accountID, "interrupted").Inc()
			return i, &SendInterruptedError{Sent: i, Err: err}
		}
		metrics.ChunksSent.WithLabelValues(p.accountID).Inc()
	}

	metrics.MessagesSent.WithLabelValues(p.accountID, opts.Kind.String()).Inc()
	return len(chunks), nil
}

func (p *Pipeline) sendOne(conn Conn, target, text string, kind Kind) error {
	switch kind {
	case KindNotice:
		return conn.Notice(target, text)
	case KindAction:
		return conn.Action(target, text)
	default:
		return conn.Say(target, text)
	}
}
