// Package target implements the canonical addressing scheme for IRC
// destinations: irc:<accountId>:<target>, lower-cased target.
package target

import (
	"fmt"
	"regexp"
	"strings"
)

// Prefix marks canonical target keys.
const Prefix = "irc"

// Kind classifies a raw IRC destination.
type Kind int

const (
	Unrecognized Kind = iota
	Channel
	DM
)

func (k Kind) String() string {
	switch k {
	case Channel:
		return "channel"
	case DM:
		return "dm"
	}
	return "unrecognized"
}

// nickPattern follows RFC 2812 nick grammar: leading letter or IRC
// special, then letters, digits, specials, or hyphens.
var nickPattern = regexp.MustCompile("^[A-Za-z\\[\\]\\\\`_^{|}][A-Za-z0-9\\[\\]\\\\`_^{|}-]*$")

// Encode assembles the canonical key for an account and destination.
// Injective for distinct (accountID, lower-cased target) pairs.
func Encode(accountID, rawTarget string) string {
	return fmt.Sprintf("%s:%s:%s", Prefix, accountID, strings.ToLower(rawTarget))
}

// Decode splits a canonical key back into account id and target.
// ok is false if key does not have the irc:<id>:<target> shape.
func Decode(key string) (accountID, tgt string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || !strings.EqualFold(parts[0], Prefix) || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// Classify reports whether a raw destination is a channel, a nick, or
// unrecognized.
func Classify(rawTarget string) Kind {
	if strings.HasPrefix(rawTarget, "#") {
		return Channel
	}
	if nickPattern.MatchString(rawTarget) {
		return DM
	}
	return Unrecognized
}

// Normalize turns user input into a canonical key under the given
// account: an already-prefixed key (prefix matched case-insensitively),
// a #channel, or a bare nick. Anything with whitespace or otherwise
// unrecognized is rejected.
func Normalize(accountID, rawTarget string) (string, bool) {
	rawTarget = strings.TrimSpace(rawTarget)
	if rawTarget == "" || strings.ContainsAny(rawTarget, " \t") {
		return "", false
	}

	if id, tgt, ok := Decode(rawTarget); ok {
		if Classify(tgt) == Unrecognized {
			return "", false
		}
		return Encode(id, tgt), true
	}

	if Classify(rawTarget) == Unrecognized {
		return "", false
	}
	return Encode(accountID, rawTarget), true
}
