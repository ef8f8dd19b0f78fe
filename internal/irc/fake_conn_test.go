package irc

import (
	"sync"
)

// fakeConn is an in-memory Conn for tests. Events are fed through
// feed(); sends are recorded.
type fakeConn struct {
	mu        sync.Mutex
	connected bool
	nick      string

	connectErr error
	sayErr     error

	sent       []sentCall
	joined     []string
	parted     []string
	ctcpSent   []string
	quitCalls  int
	events     chan Event
	closeOnce  sync.Once
}

type sentCall struct {
	kind   string
	target string
	text   string
}

func newFakeConn() *fakeConn {
	return &fakeConn{connected: true, nick: "bridgebot", events: make(chan Event, 64)}
}

func (f *fakeConn) Connect() error {
	if f.connectErr != nil {
		// Same contract as the real client: a failed connect closes
		// the event channel, nothing will ever produce into it.
		f.closeOnce.Do(func() { close(f.events) })
		return f.connectErr
	}
	return nil
}

func (f *fakeConn) Quit() {
	f.mu.Lock()
	f.quitCalls++
	f.connected = false
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.events) })
}

func (f *fakeConn) quitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quitCalls
}

func (f *fakeConn) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeConn) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakeConn) CurrentNick() string { return f.nick }

func (f *fakeConn) record(kind, target, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sayErr != nil {
		return f.sayErr
	}
	f.sent = append(f.sent, sentCall{kind: kind, target: target, text: text})
	return nil
}

func (f *fakeConn) Say(target, text string) error    { return f.record("say", target, text) }
func (f *fakeConn) Notice(target, text string) error { return f.record("notice", target, text) }
func (f *fakeConn) Action(target, text string) error { return f.record("action", target, text) }

func (f *fakeConn) Join(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, channel)
	return nil
}

func (f *fakeConn) Part(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parted = append(f.parted, channel)
	return nil
}

func (f *fakeConn) CTCPReply(nick, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctcpSent = append(f.ctcpSent, nick+" "+body)
	return nil
}

func (f *fakeConn) Events() <-chan Event { return f.events }

func (f *fakeConn) feed(ev Event) { f.events <- ev }

func (f *fakeConn) sentCalls() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCall, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) joinedChannels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.joined))
	copy(out, f.joined)
	return out
}

func (f *fakeConn) ctcpReplies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ctcpSent))
	copy(out, f.ctcpSent)
	return out
}
