// Package bridge is the platform-facing surface of the IRC
// integration: outbound sends, target resolution, account lifecycle,
// and status snapshots.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/relaynet/ircbridge/internal/access"
	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/irc"
	"github.com/relaynet/ircbridge/internal/journal"
	"github.com/relaynet/ircbridge/internal/logger"
	"github.com/relaynet/ircbridge/internal/target"
)

// InvalidTargetError reports a destination Send could not interpret.
type InvalidTargetError struct {
	Input string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("unrecognized irc target %q", e.Input)
}

// SendOptions selects the account and protocol verb for a send.
type SendOptions struct {
	AccountID string
	Action    bool
	Notice    bool
}

// SendResult echoes the canonical destination and delivered text.
type SendResult struct {
	Target string `json:"target"`
	Text   string `json:"text"`
}

// ResolvedTarget is one item of a ResolveTargets batch. Malformed
// inputs degrade per item: Resolved false plus a note, never an error.
type ResolvedTarget struct {
	Input    string `json:"input"`
	Resolved bool   `json:"resolved"`
	ID       string `json:"id,omitempty"`
	Note     string `json:"note,omitempty"`
}

// AccountStatus is the per-account status snapshot.
type AccountStatus struct {
	AccountID   string           `json:"accountId"`
	Enabled     bool             `json:"enabled"`
	Configured  bool             `json:"configured"`
	Running     bool             `json:"running"`
	State       string           `json:"state,omitempty"`
	LastStartAt *time.Time       `json:"lastStartAt,omitempty"`
	LastStopAt  *time.Time       `json:"lastStopAt,omitempty"`
	LastError   string           `json:"lastError,omitempty"`
	Probe       *irc.ProbeResult `json:"probe,omitempty"`
}

type accountTimes struct {
	lastStart *time.Time
	lastStop  *time.Time
	lastErr   string
	probe     *irc.ProbeResult
}

// Bridge wires the registry, pipelines, and config together behind
// the interface the host platform calls.
type Bridge struct {
	log      logger.Logger
	manager  *config.Manager
	registry *irc.Registry
	jrnl     *journal.Journal
	dial     irc.Dialer

	mu      sync.Mutex
	times   map[string]*accountTimes
	inbound func(irc.InboundMessage)
}

func New(log logger.Logger, manager *config.Manager, jrnl *journal.Journal) *Bridge {
	return &Bridge{
		log:      log,
		manager:  manager,
		registry: irc.NewRegistry(log),
		jrnl:     jrnl,
		dial:     irc.NewConn,
		times:    make(map[string]*accountTimes),
	}
}

// OnInbound sets the platform handler for inbound messages, across
// all accounts. Access control for channel senders belongs to that
// handler; SenderAllowed does the policy lookup.
func (b *Bridge) OnInbound(h func(irc.InboundMessage)) {
	b.mu.Lock()
	b.inbound = h
	b.mu.Unlock()
}

// Send delivers text to a target: a canonical irc:<account>:<dest>
// key, a #channel, or a bare nick. The account comes from the key
// when present, else from opts, else from single-account resolution.
func (b *Bridge) Send(ctx context.Context, rawTarget, text string, opts SendOptions) (*SendResult, error) {
	accountID := opts.AccountID
	dest := rawTarget
	if id, tgt, ok := target.Decode(rawTarget); ok {
		accountID = id
		dest = tgt
	}

	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		return nil, err
	}

	key, ok := target.Normalize(res.ID, dest)
	if !ok {
		return nil, &InvalidTargetError{Input: rawTarget}
	}
	_, dest, _ = target.Decode(key)

	monitor, ok := b.registry.Get(res.ID)
	if !ok {
		return nil, fmt.Errorf("account %q: %w", res.ID, irc.ErrNotConnected)
	}

	kind := irc.KindSay
	switch {
	case opts.Action:
		kind = irc.KindAction
	case opts.Notice:
		kind = irc.KindNotice
	}

	pipeline := irc.NewPipeline(logger.ForAccount(b.log, res.ID), res.ID)
	_, err = pipeline.Deliver(ctx, monitor.Conn(), dest, text, irc.DeliverOptions{
		Kind:        kind,
		MaxLength:   res.Account.MaxMessageLength,
		Split:       res.Account.SplitEnabled(),
		SplitPrefix: res.Account.SplitPrefix,
	})
	if err != nil {
		return nil, err
	}

	return &SendResult{Target: key, Text: text}, nil
}

// ResolveTargets normalizes a batch of inputs under one account.
// Each item resolves or fails independently.
func (b *Bridge) ResolveTargets(accountID string, inputs []string) []ResolvedTarget {
	results := make([]ResolvedTarget, 0, len(inputs))

	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		for _, input := range inputs {
			results = append(results, ResolvedTarget{Input: input, Note: err.Error()})
		}
		return results
	}

	for _, input := range inputs {
		key, ok := target.Normalize(res.ID, input)
		if !ok {
			note := "not a channel or nick"
			if strings.ContainsAny(strings.TrimSpace(input), " \t") {
				note = "targets cannot contain whitespace"
			}
			results = append(results, ResolvedTarget{Input: input, Note: note})
			continue
		}
		results = append(results, ResolvedTarget{Input: input, Resolved: true, ID: key})
	}
	return results
}

// StartAccount resolves and starts an account. A second start for a
// running account observes the existing connection. Cancelling ctx
// stops the account.
func (b *Bridge) StartAccount(ctx context.Context, accountID string) error {
	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		b.noteError(accountID, err)
		return err
	}
	if !res.Account.IsEnabled() {
		return fmt.Errorf("irc account %q is disabled", res.ID)
	}

	log := logger.ForAccount(b.log, res.ID)
	monitor, err := b.registry.GetOrStart(res.ID, func() (*irc.Monitor, error) {
		m := irc.NewMonitor(log, res.ID, res.Account, b.dial(log, res.Server), b.jrnl)
		m.Handle(b.dispatchInbound)
		m.OnError(func(err error) { b.noteError(res.ID, err) })
		return m, nil
	})
	if err != nil {
		b.noteError(res.ID, err)
		return err
	}

	now := time.Now()
	state := b.timesFor(res.ID)
	b.mu.Lock()
	state.lastStart = &now
	state.lastErr = ""
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				b.StopAccount(context.Background(), res.ID)
			case <-monitor.Done():
			}
		}()
	}
	return nil
}

// StopAccount stops a running account. Stopping a stopped account is
// a no-op.
func (b *Bridge) StopAccount(ctx context.Context, accountID string) error {
	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		return err
	}

	b.registry.Stop(res.ID)

	now := time.Now()
	state := b.timesFor(res.ID)
	b.mu.Lock()
	state.lastStop = &now
	b.mu.Unlock()
	return nil
}

// StopAll shuts every account down, for process exit.
func (b *Bridge) StopAll() {
	b.registry.StopAll()
}

// Probe runs an isolated reachability check for an account. The
// result lands in the status snapshot as well.
func (b *Bridge) Probe(ctx context.Context, accountID string, timeout time.Duration) (irc.ProbeResult, error) {
	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		return irc.ProbeResult{}, err
	}

	result := irc.Probe(ctx, logger.ForAccount(b.log, res.ID), res.Server, timeout, b.dial)

	state := b.timesFor(res.ID)
	b.mu.Lock()
	state.probe = &result
	b.mu.Unlock()

	if b.jrnl != nil {
		outcome := "ok"
		if !result.OK {
			outcome = result.Err
		}
		if err := b.jrnl.Record(res.ID, "probe "+outcome); err != nil {
			b.log.Debug("journal write failed", "error", err.Error())
		}
	}
	return result, nil
}

// SenderAllowed evaluates the allowlist in force for a channel
// sender: the channel-level list when present, else the
// network-level one.
func (b *Bridge) SenderAllowed(accountID, channel, nick, hostmask string) bool {
	res, err := config.Resolve(b.manager.Get(), accountID)
	if err != nil {
		return false
	}

	channel = strings.ToLower(channel)
	for _, network := range res.Account.Networks {
		if ch, ok := network.Channels[channel]; ok {
			return access.IsAllowed(nick, hostmask, access.Effective(ch, network))
		}
	}
	// Unconfigured channel: only network-level policy can apply, and
	// with several networks there is nothing to pick from.
	if len(res.Account.Networks) == 1 {
		for _, network := range res.Account.Networks {
			return access.IsAllowed(nick, hostmask, access.Effective(nil, network))
		}
	}
	return true
}

// Status reports a snapshot for every configured account.
func (b *Bridge) Status() []AccountStatus {
	cfg := b.manager.Get()

	var out []AccountStatus
	for _, id := range cfg.AllAccountIDs() {
		res, err := config.Resolve(cfg, id)

		st := AccountStatus{AccountID: id}
		st.Configured = err == nil && res.Server != nil
		if st.Configured {
			st.Enabled = res.Account.IsEnabled()
		}

		if monitor, ok := b.registry.Get(id); ok {
			st.Running = true
			st.State = monitor.State().String()
			if msg := monitor.LastError(); msg != "" {
				st.LastError = msg
			}
		}

		b.mu.Lock()
		if times, ok := b.times[id]; ok {
			st.LastStartAt = times.lastStart
			st.LastStopAt = times.lastStop
			if st.LastError == "" {
				st.LastError = times.lastErr
			}
			st.Probe = times.probe
		}
		b.mu.Unlock()

		out = append(out, st)
	}
	return out
}

func (b *Bridge) dispatchInbound(msg irc.InboundMessage) {
	b.mu.Lock()
	h := b.inbound
	b.mu.Unlock()
	if h != nil {
		h(msg)
	}
}

func (b *Bridge) timesFor(accountID string) *accountTimes {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t, ok := b.times[accountID]; ok {
		return t
	}
	t := &accountTimes{}
	b.times[accountID] = t
	return t
}

func (b *Bridge) noteError(accountID string, err error) {
	state := b.timesFor(accountID)
	b.mu.Lock()
	state.lastErr = err.Error()
	b.mu.Unlock()
}
