package irc

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when an operation requires a registered
// connection. The pipeline never reconnects implicitly.
var ErrNotConnected = errors.New("irc: not connected")

// SendInterruptedError reports a disconnect in the middle of a chunk
// sequence, with the count of chunks already delivered. There is no
// automatic retry.
type SendInterruptedError struct {
	Sent int
	Err  error
}

func (e *SendInterruptedError) Error() string {
	return fmt.Sprintf("irc: send interrupted after %d chunk(s): %v", e.Sent, e.Err)
}

func (e *SendInterruptedError) Unwrap() error { return e.Err }
