package auth

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultIdleTTL is how long an unauthorized manager is kept after its
	// last use.
	DefaultIdleTTL = 15 * time.Minute
	sweepInterval  = time.Minute
)

type entry struct {
	m        *Manager
	lastSeen time.Time
}

// Registry hands out one Manager per Mini App client. Managers share the
// registry's options; only the client id differs. Managers without a session
// are dropped once idle for longer than the idle TTL.
type Registry struct {
	mu        sync.Mutex
	base      Options
	idleTTL   time.Duration
	now       func() time.Time
	lastSweep time.Time
	managers  map[string]*entry
}

// NewRegistry builds a registry whose managers are configured from base.
func NewRegistry(base Options) *Registry {
	now := base.Now
	if now == nil {
		now = time.Now
	}
	return &Registry{
		base:      base,
		idleTTL:   DefaultIdleTTL,
		now:       now,
		lastSweep: now(),
		managers:  make(map[string]*entry),
	}
}

// Get returns the client's manager, creating it on first use.
func (r *Registry) Get(clientID string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	r.sweepLocked(now)
	if e, ok := r.managers[clientID]; ok {
		e.lastSeen = now
		return e.m
	}
	m := r.newManager(clientID)
	r.managers[clientID] = &entry{m: m, lastSeen: now}
	return m
}

// Authorize restores the client's session from storage and returns its
// manager. Expiry is evaluated on every call. A client the registry does not
// know yet is only remembered when a session was restored; otherwise the
// returned manager is detached and discarded after the request.
func (r *Registry) Authorize(ctx context.Context, clientID string) (*Manager, error) {
	r.mu.Lock()
	now := r.now()
	r.sweepLocked(now)
	e, known := r.managers[clientID]
	if known {
		e.lastSeen = now
	}
	r.mu.Unlock()

	if known {
		_, err := e.m.RestoreSession(ctx)
		return e.m, err
	}

	m := r.newManager(clientID)
	s, err := m.RestoreSession(ctx)
	if err != nil || s == nil {
		return m, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.managers[clientID]; ok {
		// A concurrent request registered the client first; its manager wins.
		e.lastSeen = now
		if _, err := e.m.RestoreSession(ctx); err != nil {
			return e.m, err
		}
		return e.m, nil
	}
	r.managers[clientID] = &entry{m: m, lastSeen: now}
	return m, nil
}

// Forget drops the client's manager after stopping its timers.
func (r *Registry) Forget(clientID string) {
	r.mu.Lock()
	e, ok := r.managers[clientID]
	delete(r.managers, clientID)
	r.mu.Unlock()
	if ok {
		e.m.CancelPending()
	}
}

// Len is the number of live managers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.managers)
}

func (r *Registry) newManager(clientID string) *Manager {
	opts := r.base
	opts.ClientID = clientID
	return NewManager(opts)
}

// sweepLocked evicts managers that are unused for longer than the idle TTL
// and hold no valid session. Pending codes of evicted managers are dropped.
func (r *Registry) sweepLocked(now time.Time) {
	if now.Sub(r.lastSweep) < sweepInterval {
		return
	}
	r.lastSweep = now
	for id, e := range r.managers {
		if now.Sub(e.lastSeen) <= r.idleTTL || e.m.IsAuthorized() {
			continue
		}
		if e.m.State() == StateRequestingPhone {
			continue
		}
		delete(r.managers, id)
		e.m.CancelPending()
	}
}
