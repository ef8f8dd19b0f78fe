package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relaynet/ircbridge/internal/config"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		nick      string
		hostmask  string
		allowlist []string
		want      bool
	}{
		{"empty_list_open", "anyone", "anyone@anywhere", nil, true},
		{"empty_slice_open", "anyone", "anyone@anywhere", []string{}, true},
		{"nick_match", "bob", "bob@example.com", []string{"bob"}, true},
		{"nick_match_case_insensitive", "Bob", "bob@example.com", []string{"bOB"}, true},
		{"wildcard_host_match", "bob", "bob@example.com", []string{"*@example.com"}, true},
		{"wildcard_host_mismatch", "bob", "bob@other.org", []string{"*@example.com"}, false},
		{"wildcard_not_substring", "bob", "bob@example.com.evil.org", []string{"*@example.com"}, false},
		{"full_hostmask_wildcard", "bob", "bob!~bob@host.example.com", []string{"bob!*@*.example.com"}, true},
		{"no_match", "eve", "eve@evil.org", []string{"bob", "*@example.com"}, false},
		{"regex_chars_literal", "bob", "bob@ex.mple.com", []string{"*@example.com"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowed(tt.nick, tt.hostmask, tt.allowlist))
		})
	}
}

func TestIsAllowedOrderIndependent(t *testing.T) {
	forward := []string{"alice", "*@example.com", "bob"}
	backward := []string{"bob", "*@example.com", "alice"}

	for _, nick := range []string{"alice", "bob", "eve"} {
		assert.Equal(t,
			IsAllowed(nick, nick+"@nowhere", forward),
			IsAllowed(nick, nick+"@nowhere", backward))
	}
}

func TestEffectivePrecedence(t *testing.T) {
	network := &config.NetworkEntry{Allowlist: []string{"*@example.com"}}

	// Channel list replaces the network list outright.
	channel := &config.ChannelConfig{Allowlist: []string{"bob"}}
	assert.Equal(t, []string{"bob"}, Effective(channel, network))

	// Absent channel list falls through to the network list.
	assert.Equal(t, []string{"*@example.com"}, Effective(&config.ChannelConfig{}, network))
	assert.Equal(t, []string{"*@example.com"}, Effective(nil, network))

	// Explicitly empty channel list means open policy, not the
	// network list.
	empty := &config.ChannelConfig{Allowlist: []string{}}
	got := Effective(empty, network)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
