package irc

import "time"

// EventType tags connection events as they are queued for dispatch.
type EventType int

const (
	EventRegistered EventType = iota
	EventMessage
	EventNotice
	EventJoin
	EventPart
	EventQuit
	EventKick
	EventCTCPRequest
	EventError
	EventClosed
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventMessage:
		return "message"
	case EventNotice:
		return "notice"
	case EventJoin:
		return "join"
	case EventPart:
		return "part"
	case EventQuit:
		return "quit"
	case EventKick:
		return "kick"
	case EventCTCPRequest:
		return "ctcp-request"
	case EventError:
		return "error"
	case EventClosed:
		return "close"
	}
	return "unknown"
}

// Event is one connection event. Events for a connection are consumed
// from a single queue, so at most one handler processes an event for a
// given connection at a time.
type Event struct {
	Type     EventType
	Nick     string
	Hostmask string
	Target   string
	Text     string
	Params   []string
	Time     time.Time
}

// Conn is the protocol-client surface the pipeline, monitor, and
// probe operate on. The production implementation wraps
// ircevent.Connection; tests substitute fakes.
type Conn interface {
	Connect() error
	Quit()
	Connected() bool
	CurrentNick() string

	Say(target, text string) error
	Notice(target, text string) error
	Action(target, text string) error
	Join(channel string) error
	Part(channel string) error
	CTCPReply(nick, body string) error

	// Events yields the connection's event queue. The channel is
	// closed when the connection shuts down for good.
	Events() <-chan Event
}
