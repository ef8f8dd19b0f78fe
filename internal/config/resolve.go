package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when no IRC configuration exists at all.
var ErrNotConfigured = errors.New("irc is not configured")

// AccountNotFoundError reports an account id with no matching entry,
// naming the ids that do exist.
type AccountNotFoundError struct {
	ID        string
	Available []string
}

func (e *AccountNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("irc account %q not found (no accounts configured)", e.ID)
	}
	return fmt.Sprintf("irc account %q not found (available: %s)", e.ID, strings.Join(e.Available, ", "))
}

// MissingServerError reports an account entry without a server block.
type MissingServerError struct {
	ID string
}

func (e *MissingServerError) Error() string {
	return fmt.Sprintf("irc account %q has no server block", e.ID)
}

// Resolved is the outcome of a successful account resolution. Server
// is always non-nil.
type Resolved struct {
	ID      string
	Account *AccountConfig
	Server  *ServerConfig
}

// Resolve maps an optional account id to its validated server config.
// An empty id picks the single configured account, or the default
// sentinel when several are configured.
func Resolve(cfg *Config, accountID string) (*Resolved, error) {
	if cfg == nil {
		return nil, ErrNotConfigured
	}

	accounts := cfg.accounts()
	if len(accounts) == 0 {
		return nil, ErrNotConfigured
	}

	if accountID == "" {
		if len(accounts) == 1 {
			for id := range accounts {
				accountID = id
			}
		} else {
			accountID = DefaultAccountID
		}
	}

	acct, ok := accounts[accountID]
	if !ok {
		return nil, &AccountNotFoundError{ID: accountID, Available: cfg.AccountIDs()}
	}
	if acct.Server == nil {
		return nil, &MissingServerError{ID: accountID}
	}

	return &Resolved{ID: accountID, Account: acct, Server: acct.Server}, nil
}
