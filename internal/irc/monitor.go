package irc

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/journal"
	"github.com/relaynet/ircbridge/internal/logger"
	"github.com/relaynet/ircbridge/internal/metrics"
)

// State of one account's connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateRegistered
	StateClosing
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateRegistered:
		return "registered"
	case StateClosing:
		return "closing"
	case StateErrored:
		return "errored"
	}
	return "idle"
}

// InboundMessage is the structured event forwarded to the platform's
// inbound handler. Access control is applied by that handler, not
// here.
type InboundMessage struct {
	AccountID string
	Nick      string
	Hostmask  string
	Target    string
	Text      string
	IsDM      bool
}

// Monitor drives one account's connection: state tracking, auto-join,
// inbound dispatch, and CTCP auto-responses. Reconnecting after a
// dropped connection is the protocol client's job, not the monitor's.
type Monitor struct {
	log       logger.Logger
	accountID string
	acct      *config.AccountConfig
	conn      Conn
	jrnl      *journal.Journal

	mu      sync.Mutex
	state   State
	stopped bool
	joined  map[string]bool
	lastErr string

	handler func(InboundMessage)
	onError func(error)

	done chan struct{}
}

func NewMonitor(log logger.Logger, accountID string, acct *config.AccountConfig, conn Conn, jrnl *journal.Journal) *Monitor {
	return &Monitor{
		log:       log,
		accountID: accountID,
		acct:      acct,
		conn:      conn,
		jrnl:      jrnl,
		joined:    make(map[string]bool),
		done:      make(chan struct{}),
	}
}

// Handle sets the inbound dispatch target. There is no replay: a
// handler installed after registration completes only observes
// subsequent events.
func (m *Monitor) Handle(h func(InboundMessage)) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// OnError sets the callback for protocol error events.
func (m *Monitor) OnError(f func(error)) {
	m.mu.Lock()
	m.onError = f
	m.mu.Unlock()
}

// Conn exposes the underlying connection for the delivery pipeline.
func (m *Monitor) Conn() Conn { return m.conn }

// Start opens the connection and begins consuming its event queue.
func (m *Monitor) Start() error {
	m.setState(StateConnecting)

	if err := m.conn.Connect(); err != nil {
		m.setState(StateErrored)
		m.noteError(err)
		return err
	}

	go m.loop()
	return nil
}

// Stop is idempotent. It flips the stop flag first, so events that
// straggle in while the socket tears down are dropped.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.state = StateClosing
	m.mu.Unlock()

	m.conn.Quit()
}

// Done closes when the event loop has fully drained.
func (m *Monitor) Done() <-chan struct{} { return m.done }

func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the most recent protocol error, if any.
func (m *Monitor) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

func (m *Monitor) loop() {
	for ev := range m.conn.Events() {
		if m.isStopped() && ev.Type != EventClosed {
			m.log.Debug("dropping event after stop", "type", ev.Type.String())
			continue
		}

		switch ev.Type {
		case EventRegistered:
			m.onRegistered(ev)
		case EventMessage:
			m.onMessage(ev)
		case EventCTCPRequest:
			m.onCTCP(ev)
		case EventJoin:
			if ev.Nick == m.conn.CurrentNick() {
				m.trackJoin(ev.Target, true)
			}
		case EventPart:
			if ev.Nick == m.conn.CurrentNick() {
				m.trackJoin(ev.Target, false)
			}
		case EventKick:
			if len(ev.Params) > 0 && ev.Params[0] == m.conn.CurrentNick() {
				m.log.Warn("kicked from channel", "channel", ev.Target)
				m.trackJoin(ev.Target, false)
			}
		case EventError:
			m.onProtocolError(ev)
		case EventClosed:
			m.onClosed()
		}
	}

	m.setState(StateIdle)
	metrics.AccountConnected.WithLabelValues(m.accountID).Set(0)
	close(m.done)
}

func (m *Monitor) onRegistered(ev Event) {
	m.setState(StateRegistered)
	metrics.AccountConnected.WithLabelValues(m.accountID).Set(1)

	m.log.Info("registered with server", "nick", ev.Nick)
	m.journal(fmt.Sprintf("registered as %s", ev.Nick))

	m.autoJoin()
}

// autoJoin joins every channel across all networks whose enabled flag
// is not false.
func (m *Monitor) autoJoin() {
	for _, name := range m.enabledChannels() {
		if err := m.conn.Join(name); err != nil {
			m.log.Warn("join failed", "channel", name, "error", err.Error())
		}
	}
}

func (m *Monitor) enabledChannels() []string {
	var names []string
	for _, network := range m.acct.Networks {
		for name, ch := range network.Channels {
			if ch != nil && ch.Enabled != nil && !*ch.Enabled {
				continue
			}
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// channelConfig finds the config entry for a channel, if any.
func (m *Monitor) channelConfig(name string) *config.ChannelConfig {
	for _, network := range m.acct.Networks {
		if ch, ok := network.Channels[name]; ok {
			return ch
		}
	}
	return nil
}

func (m *Monitor) onMessage(ev Event) {
	isDM := !strings.HasPrefix(ev.Target, "#")

	if !isDM {
		// Disabled channels never receive dispatched events.
		if ch := m.channelConfig(strings.ToLower(ev.Target)); ch != nil && ch.Enabled != nil && !*ch.Enabled {
			return
		}
	}

	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()
	if handler == nil {
		return
	}

	kind := "channel"
	if isDM {
		kind = "dm"
	}
	metrics.InboundMessages.WithLabelValues(m.accountID, kind).Inc()

	handler(InboundMessage{
		AccountID: m.accountID,
		Nick:      ev.Nick,
		Hostmask:  ev.Hostmask,
		Target:    ev.Target,
		Text:      ev.Text,
		IsDM:      isDM,
	})
}

// onCTCP answers the fixed CTCP queries; everything else is ignored.
func (m *Monitor) onCTCP(ev Event) {
	if len(ev.Params) == 0 {
		return
	}

	switch strings.ToUpper(ev.Params[0]) {
	case "VERSION":
		m.reply(ev.Nick, fmt.Sprintf("VERSION ircbridge %s", Version))
	case "PING":
		m.reply(ev.Nick, ev.Text)
	case "TIME":
		m.reply(ev.Nick, "TIME "+time.Now().Format(time.RFC1123))
	case "SOURCE":
		m.reply(ev.Nick, "SOURCE "+SourceURL)
	}
}

func (m *Monitor) reply(nick, body string) {
	if err := m.conn.CTCPReply(nick, body); err != nil {
		m.log.Debug("ctcp reply failed", "nick", nick, "error", err.Error())
	}
}

func (m *Monitor) onProtocolError(ev Event) {
	err := fmt.Errorf("protocol error: %s", ev.Text)
	m.log.Error("protocol error from server", err)
	m.journal("protocol error: " + ev.Text)
	m.noteError(err)

	m.mu.Lock()
	if !m.stopped {
		m.state = StateErrored
	}
	cb := m.onError
	m.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

func (m *Monitor) onClosed() {
	metrics.AccountConnected.WithLabelValues(m.accountID).Set(0)

	m.mu.Lock()
	stopped := m.stopped
	m.joined = make(map[string]bool)
	if !stopped {
		m.state = StateConnecting
	}
	m.mu.Unlock()

	if stopped {
		m.journal("connection closed")
		return
	}

	// Not an explicit stop: the client reconnects on its own.
	m.log.Warn("connection closed, waiting for client reconnect")
	m.journal("connection lost")
}

func (m *Monitor) trackJoin(channel string, in bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in {
		m.joined[strings.ToLower(channel)] = true
	} else {
		delete(m.joined, strings.ToLower(channel))
	}
}

// JoinedChannels lists channels the connection is currently in.
func (m *Monitor) JoinedChannels() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for name := range m.joined {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MissingChannels reports configured, enabled channels the connection
// has not joined.
func (m *Monitor) MissingChannels() []string {
	configured := m.enabledChannels()

	m.mu.Lock()
	defer m.mu.Unlock()

	var missing []string
	for _, name := range configured {
		if !m.joined[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (m *Monitor) noteError(err error) {
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

func (m *Monitor) journal(event string) {
	if m.jrnl == nil {
		return
	}
	if err := m.jrnl.Record(m.accountID, event); err != nil {
		m.log.Debug("journal write failed", "error", err.Error())
	}
}
