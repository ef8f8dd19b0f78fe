package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadSingleAccount(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
server:
  host: irc.libera.chat
  port: 6697
  tls: true
  nick: bridgebot
networks:
  libera:
    channels:
      "#general": {}
      "#noisy":
        enabled: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "irc.libera.chat:6697", cfg.Server.Addr())
	assert.Equal(t, []string{"default"}, cfg.AccountIDs())

	ch := cfg.Networks["libera"].Channels["#noisy"]
	require.NotNil(t, ch.Enabled)
	assert.False(t, *ch.Enabled)
}

func TestLoadMultiAccount(t *testing.T) {
	path := writeConfig(t, `
accounts:
  libera:
    server:
      host: irc.libera.chat
      port: 6697
      nick: bridgebot
  oftc:
    enabled: false
    server:
      host: irc.oftc.net
      port: 6697
      nick: bridgebot
  efnet:
    server:
      host: irc.efnet.org
      port: 6667
      nick: bridgebot
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Disabled accounts are excluded from the id list.
	assert.Equal(t, []string{"efnet", "libera"}, cfg.AccountIDs())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing_host",
			content: `
server:
  port: 6667
  nick: bot
`,
			wantErr: "server.host is required",
		},
		{
			name: "bad_port",
			content: `
server:
  host: irc.example.org
  port: 70000
  nick: bot
`,
			wantErr: "server.port must be 1..65535",
		},
		{
			name: "missing_nick",
			content: `
server:
  host: irc.example.org
  port: 6667
`,
			wantErr: "server.nick is required",
		},
		{
			name: "bad_log_level",
			content: `
log_level: verbose
`,
			wantErr: "log_level must be one of",
		},
		{
			name: "both_modes",
			content: `
server:
  host: irc.example.org
  port: 6667
  nick: bot
accounts:
  other:
    server:
      host: irc.other.org
      port: 6667
      nick: bot
`,
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestManagerReloadSwapsWholesale(t *testing.T) {
	path := writeConfig(t, `
server:
  host: irc.example.org
  port: 6667
  nick: bot
`)

	m, err := NewManager(path)
	require.NoError(t, err)

	before := m.Get()

	require.NoError(t, os.WriteFile(path, []byte(`
server:
  host: irc.example.org
  port: 6697
  tls: true
  nick: bot
`), 0644))
	require.NoError(t, m.Reload())

	after := m.Get()
	assert.NotSame(t, before, after)
	assert.Equal(t, 6667, before.Server.Port)
	assert.Equal(t, 6697, after.Server.Port)
}

func TestManagerReloadKeepsOldOnError(t *testing.T) {
	path := writeConfig(t, `
server:
  host: irc.example.org
  port: 6667
  nick: bot
`)

	m, err := NewManager(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log_level: [broken"), 0644))
	require.Error(t, m.Reload())
	assert.Equal(t, "irc.example.org", m.Get().Server.Host)
}

func TestLoadNormalizesChannelKeys(t *testing.T) {
	path := writeConfig(t, `
server:
  host: irc.libera.chat
  port: 6697
  nick: bridgebot
networks:
  libera:
    channels:
      "#Quiet":
        enabled: false
      "#General": {}
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	channels := cfg.Networks["libera"].Channels
	assert.NotContains(t, channels, "#Quiet")
	require.Contains(t, channels, "#quiet")
	require.Contains(t, channels, "#general")

	ch := channels["#quiet"]
	require.NotNil(t, ch.Enabled)
	assert.False(t, *ch.Enabled)
}

func TestLoadNormalizesAccountChannelKeys(t *testing.T) {
	path := writeConfig(t, `
accounts:
  libera:
    server:
      host: irc.libera.chat
      port: 6697
      nick: bridgebot
    networks:
      libera:
        channels:
          "#Dev":
            allowlist: ["bob"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	channels := cfg.Accounts["libera"].Networks["libera"].Channels
	require.Contains(t, channels, "#dev")
	assert.Equal(t, []string{"bob"}, channels["#dev"].Allowlist)
}
