package irc

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/relaynet/ircbridge/internal/config"
	"github.com/relaynet/ircbridge/internal/logger"
)

// Version information (set at build time or here)
var (
	Version   = "1.0.0"
	SourceURL = "https://github.com/relaynet/ircbridge"
)

const eventQueueSize = 256

// client wraps an ircevent connection, translating its live callbacks
// into a single tagged event queue per connection.
type client struct {
	conn *ircevent.Connection
	log  logger.Logger

	mu        sync.Mutex
	connected bool

	events    chan Event
	closeOnce sync.Once
}

// NewConn builds a connection handle for a server config. The
// connection is not opened until Connect is called.
func NewConn(log logger.Logger, sc *config.ServerConfig) Conn {
	c := &client{
		log:    log,
		events: make(chan Event, eventQueueSize),
	}

	user := sc.Username
	if user == "" {
		user = sc.Nick
	}
	realname := sc.Realname
	if realname == "" {
		realname = sc.Nick
	}

	conn := &ircevent.Connection{
		Server:       sc.Addr(),
		Nick:         sc.Nick,
		User:         user,
		RealName:     realname,
		Password:     sc.ServerPassword,
		QuitMessage:  "Shutting down",
		Debug:        false,
		UseTLS:       sc.TLS,
		TLSConfig:    &tls.Config{ServerName: sc.Host},
		SASLLogin:    sc.SASLLogin,
		SASLPassword: sc.SASLPassword,
	}
	c.conn = conn

	c.registerHandlers(sc)

	return c
}

func (c *client) registerHandlers(sc *config.ServerConfig) {
	c.conn.AddConnectCallback(func(e ircmsg.Message) {
		// Identify to NickServ before anything else sees us.
		if sc.NickservPass != "" {
			c.conn.Privmsg("NickServ", fmt.Sprintf("IDENTIFY %s %s", sc.Nick, sc.NickservPass))
		}

		c.mu.Lock()
		c.connected = true
		c.mu.Unlock()

		c.emit(Event{Type: EventRegistered, Nick: c.conn.CurrentNick()})
	})

	c.conn.AddDisconnectCallback(func(e ircmsg.Message) {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()

		c.emit(Event{Type: EventClosed})
	})

	c.conn.AddCallback("PRIVMSG", func(e ircmsg.Message) { c.onPrivMsg(e, EventMessage) })
	c.conn.AddCallback("NOTICE", func(e ircmsg.Message) { c.onPrivMsg(e, EventNotice) })

	c.conn.AddCallback("JOIN", func(e ircmsg.Message) {
		if len(e.Params) < 1 {
			return
		}
		c.emit(Event{Type: EventJoin, Nick: e.Nick(), Target: e.Params[0]})
	})

	c.conn.AddCallback("PART", func(e ircmsg.Message) {
		if len(e.Params) < 1 {
			return
		}
		c.emit(Event{Type: EventPart, Nick: e.Nick(), Target: e.Params[0]})
	})

	c.conn.AddCallback("QUIT", func(e ircmsg.Message) {
		c.emit(Event{Type: EventQuit, Nick: e.Nick(), Text: lastParam(e)})
	})

	c.conn.AddCallback("KICK", func(e ircmsg.Message) {
		if len(e.Params) < 2 {
			return
		}
		c.emit(Event{Type: EventKick, Nick: e.Nick(), Target: e.Params[0], Params: e.Params[1:]})
	})

	c.conn.AddCallback("ERROR", func(e ircmsg.Message) {
		c.emit(Event{Type: EventError, Text: lastParam(e)})
	})
}

// onPrivMsg routes PRIVMSG and NOTICE lines, peeling off CTCP
// requests wrapped in \x01 markers.
func (c *client) onPrivMsg(e ircmsg.Message, kind EventType) {
	if len(e.Params) < 2 {
		return
	}

	target := e.Params[0]
	text := e.Params[1]
	nick := e.Nick()

	hostmask := e.Source
	if nuh, err := e.NUH(); err == nil {
		hostmask = nuh.Canonical()
	}

	if kind == EventMessage && strings.HasPrefix(text, "\x01") && strings.HasSuffix(text, "\x01") && len(text) > 1 {
		body := strings.Trim(text, "\x01")
		c.emit(Event{
			Type:     EventCTCPRequest,
			Nick:     nick,
			Hostmask: hostmask,
			Target:   target,
			Text:     body,
			Params:   strings.Fields(body),
		})
		return
	}

	c.emit(Event{Type: kind, Nick: nick, Hostmask: hostmask, Target: target, Text: text})
}

func (c *client) emit(ev Event) {
	ev.Time = time.Now()
	select {
	case c.events <- ev:
	default:
		c.log.Warn("event queue full, dropping event", "type", ev.Type.String())
	}
}

// Connect opens the connection and starts the event loop. The event
// channel closes when the loop exits for good — or right away when
// the connect itself fails, since no loop will ever run then and
// consumers draining the queue must not block forever.
func (c *client) Connect() error {
	if err := c.conn.Connect(); err != nil {
		c.closeEvents()
		return err
	}

	go func() {
		c.conn.Loop()
		c.closeEvents()
	}()

	return nil
}

func (c *client) closeEvents() {
	c.closeOnce.Do(func() { close(c.events) })
}

func (c *client) Quit() {
	c.conn.Quit()
}

func (c *client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *client) CurrentNick() string {
	return c.conn.CurrentNick()
}

func (c *client) Say(target, text string) error {
	return c.conn.Privmsg(target, text)
}

func (c *client) Notice(target, text string) error {
	return c.conn.Notice(target, text)
}

func (c *client) Action(target, text string) error {
	return c.conn.Privmsg(target, fmt.Sprintf("\x01ACTION %s\x01", text))
}

func (c *client) Join(channel string) error {
	return c.conn.Join(channel)
}

func (c *client) Part(channel string) error {
	return c.conn.Part(channel)
}

func (c *client) CTCPReply(nick, body string) error {
	return c.conn.SendRaw(fmt.Sprintf("NOTICE %s :\x01%s\x01", nick, body))
}

func (c *client) Events() <-chan Event {
	return c.events
}

func lastParam(e ircmsg.Message) string {
	if len(e.Params) == 0 {
		return ""
	}
	return e.Params[len(e.Params)-1]
}
