package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultAccountID is the sentinel id used for the top-level server
// block and as the fallback when several accounts are configured but
// the caller names none.
const DefaultAccountID = "default"

// ServerConfig describes one IRC server identity. Immutable once
// loaded; reloads replace the whole Config.
type ServerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            bool   `yaml:"tls"`
	Nick           string `yaml:"nick"`
	Username       string `yaml:"username"`
	Realname       string `yaml:"realname"`
	ServerPassword string `yaml:"server_password"`
	NickservPass   string `yaml:"nickserv_password"`
	SASLLogin      string `yaml:"sasl_login"`
	SASLPassword   string `yaml:"sasl_password"`
}

// Addr returns host:port for dialing and log lines.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// ChannelConfig holds per-channel policy. Pointer-typed flags
// distinguish "unset" from an explicit false.
type ChannelConfig struct {
	Enabled        *bool    `yaml:"enabled"`
	Allowed        *bool    `yaml:"allowed"`
	Allowlist      []string `yaml:"allowlist"`
	RequireMention *bool    `yaml:"require_mention"`
}

// NetworkEntry groups channels under an account with network-level
// policy overrides.
type NetworkEntry struct {
	Channels       map[string]*ChannelConfig `yaml:"channels"`
	Allowlist      []string                  `yaml:"allowlist"`
	ToolPolicy     string                    `yaml:"tool_policy"`
	RequireMention *bool                     `yaml:"require_mention"`
}

// AccountConfig is one configured server account.
type AccountConfig struct {
	Enabled  *bool                    `yaml:"enabled"`
	Server   *ServerConfig            `yaml:"server"`
	Networks map[string]*NetworkEntry `yaml:"networks"`

	MaxMessageLength int    `yaml:"max_message_length"`
	SplitMessages    *bool  `yaml:"split_messages"`
	SplitPrefix      string `yaml:"split_prefix"`
}

// IsEnabled reports whether the account takes part in startup and
// resolution. Only an explicit false disables it.
func (a *AccountConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// SplitEnabled reports whether long messages are chunked.
func (a *AccountConfig) SplitEnabled() bool {
	return a.SplitMessages == nil || *a.SplitMessages
}

// Config is the root of the loaded configuration. Single-account
// deployments put a server block at the top level; multi-account
// deployments use the accounts map. Both at once is rejected.
type Config struct {
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`
	HTTPAddr string `yaml:"http_addr"`

	// Single-account mode.
	Enabled  *bool                    `yaml:"enabled"`
	Server   *ServerConfig            `yaml:"server"`
	Networks map[string]*NetworkEntry `yaml:"networks"`

	MaxMessageLength int    `yaml:"max_message_length"`
	SplitMessages    *bool  `yaml:"split_messages"`
	SplitPrefix      string `yaml:"split_prefix"`

	// Multi-account mode.
	Accounts map[string]*AccountConfig `yaml:"accounts"`
}

// Load reads and parses a YAML configuration file and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	normalize(&cfg)

	return &cfg, nil
}

// normalize lowercases channel-map keys so lookups against lowercased
// protocol targets always hit. Downstream code relies on this and
// never re-folds config keys.
func normalize(cfg *Config) {
	for _, network := range cfg.Networks {
		normalizeChannels(network)
	}
	for _, acct := range cfg.Accounts {
		if acct == nil {
			continue
		}
		for _, network := range acct.Networks {
			normalizeChannels(network)
		}
	}
}

func normalizeChannels(network *NetworkEntry) {
	if network == nil || len(network.Channels) == 0 {
		return
	}
	channels := make(map[string]*ChannelConfig, len(network.Channels))
	for name, ch := range network.Channels {
		channels[strings.ToLower(name)] = ch
	}
	network.Channels = channels
}

func validate(cfg *Config) error {
	switch cfg.LogLevel {
	case "", "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of trace, debug, info, warn, error; got %q", cfg.LogLevel)
	}

	if cfg.Server != nil && len(cfg.Accounts) > 0 {
		return errors.New("top-level server block and accounts map are mutually exclusive")
	}

	if cfg.Server != nil {
		if err := validateServer(DefaultAccountID, cfg.Server); err != nil {
			return err
		}
	}
	if cfg.MaxMessageLength < 0 {
		return errors.New("max_message_length must be >= 0")
	}

	for id, acct := range cfg.Accounts {
		if acct == nil {
			return fmt.Errorf("account %q is empty", id)
		}
		if acct.Server != nil {
			if err := validateServer(id, acct.Server); err != nil {
				return err
			}
		}
		if acct.MaxMessageLength < 0 {
			return fmt.Errorf("account %q: max_message_length must be >= 0", id)
		}
	}

	return nil
}

func validateServer(id string, s *ServerConfig) error {
	if s.Host == "" {
		return fmt.Errorf("account %q: server.host is required", id)
	}
	if s.Port <= 0 || s.Port > 65535 {
		return fmt.Errorf("account %q: server.port must be 1..65535", id)
	}
	if s.Nick == "" {
		return fmt.Errorf("account %q: server.nick is required", id)
	}
	return nil
}

// accounts returns the account map with the top-level server block
// folded in as the default account. The returned entries alias the
// Config; callers treat them as read-only.
func (c *Config) accounts() map[string]*AccountConfig {
	if len(c.Accounts) > 0 {
		return c.Accounts
	}
	if c.Server == nil {
		return nil
	}
	return map[string]*AccountConfig{
		DefaultAccountID: {
			Enabled:          c.Enabled,
			Server:           c.Server,
			Networks:         c.Networks,
			MaxMessageLength: c.MaxMessageLength,
			SplitMessages:    c.SplitMessages,
			SplitPrefix:      c.SplitPrefix,
		},
	}
}

// AccountIDs lists every enabled account id in sorted order.
func (c *Config) AccountIDs() []string {
	var ids []string
	for id, acct := range c.accounts() {
		if acct.IsEnabled() {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// AllAccountIDs lists every configured account id, disabled ones
// included, in sorted order.
func (c *Config) AllAccountIDs() []string {
	var ids []string
	for id := range c.accounts() {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Manager holds the active configuration and swaps it wholesale on
// reload. Components read a snapshot via Get and never mutate it.
type Manager struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, path: path}, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Reload re-reads the file and replaces the active config. On error
// the previous config stays in place.
func (m *Manager) Reload() error {
	cfg, err := Load(m.path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}
