// Package access evaluates sender allowlists against nicks and
// hostmask patterns.
package access

import (
	"regexp"
	"strings"

	"github.com/relaynet/ircbridge/internal/config"
)

// IsAllowed reports whether a sender passes an allowlist. An empty
// list is open policy. A non-empty list matches on case-insensitive
// nick equality, or on the hostmask matching an entry where * stands
// for any run of characters, anchored to the full string.
func IsAllowed(nick, hostmask string, allowlist []string) bool {
	if len(allowlist) == 0 {
		return true
	}

	for _, entry := range allowlist {
		if strings.EqualFold(nick, entry) {
			return true
		}
		if matchPattern(entry, hostmask) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, hostmask string) bool {
	expr := "^" + strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*") + "$"
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return false
	}
	return re.MatchString(hostmask)
}

// Effective picks the allowlist in force for a channel lookup. A
// channel-level list, when present, fully replaces the network-level
// one; the two are never merged. Presence is keyed off nil, so an
// explicitly empty channel list yields open policy.
func Effective(channel *config.ChannelConfig, network *config.NetworkEntry) []string {
	if channel != nil && channel.Allowlist != nil {
		return channel.Allowlist
	}
	if network != nil {
		return network.Allowlist
	}
	return nil
}
