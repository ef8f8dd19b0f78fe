package irc

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/relaynet/ircbridge/internal/logger"
)

// Registry owns the account id to connection-handle mapping. It is
// passed explicitly to every entry point; there is no package-level
// state. Concurrent get-or-create calls for the same account collapse
// onto one monitor instead of racing to open duplicate sockets.
type Registry struct {
	log logger.Logger

	mu       sync.Mutex
	monitors map[string]*Monitor
	group    singleflight.Group
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		log:      log,
		monitors: make(map[string]*Monitor),
	}
}

// Get returns the monitor for an account, if one is running.
func (r *Registry) Get(accountID string) (*Monitor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.monitors[accountID]
	return m, ok
}

// GetOrStart returns the existing monitor for an account, or builds
// and starts one via create. Callers racing on the same id all
// observe the same monitor; a failed start leaves nothing behind.
func (r *Registry) GetOrStart(accountID string, create func() (*Monitor, error)) (*Monitor, error) {
	v, err, _ := r.group.Do(accountID, func() (interface{}, error) {
		r.mu.Lock()
		if m, ok := r.monitors[accountID]; ok {
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()

		m, err := create()
		if err != nil {
			return nil, err
		}
		if err := m.Start(); err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.monitors[accountID] = m
		r.mu.Unlock()

		r.log.Info("account started", "account", accountID)
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Monitor), nil
}

// Stop stops and removes an account's monitor. Unknown ids are a
// no-op.
func (r *Registry) Stop(accountID string) {
	r.mu.Lock()
	m, ok := r.monitors[accountID]
	delete(r.monitors, accountID)
	r.mu.Unlock()

	if !ok {
		return
	}
	m.Stop()
	<-m.Done()
	r.log.Info("account stopped", "account", accountID)
}

// StopAll stops every running account, for shutdown.
func (r *Registry) StopAll() {
	r.mu.Lock()
	monitors := make(map[string]*Monitor, len(r.monitors))
	for id, m := range r.monitors {
		monitors[id] = m
	}
	r.monitors = make(map[string]*Monitor)
	r.mu.Unlock()

	for id, m := range monitors {
		m.Stop()
		<-m.Done()
		r.log.Info("account stopped", "account", id)
	}
}

// Running lists account ids with live monitors, sorted.
func (r *Registry) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id := range r.monitors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
