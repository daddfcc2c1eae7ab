package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/fakestore/internal/core/domain"
	"github.com/niksmo/fakestore/internal/core/port"
)

const defaultIdleTTL = 30 * time.Minute

type SessionsOpt func(*Sessions)

func SessionsIdleTTLOpt(ttl time.Duration) SessionsOpt {
	return func(s *Sessions) {
		if ttl > 0 {
			s.idleTTL = ttl
		}
	}
}

func SessionsDefaultCriteriaOpt(f domain.FilterCriteria) SessionsOpt {
	return func(s *Sessions) {
		s.defaults = f
	}
}

func SessionsCartObserversOpt(obs ...port.CartObserver) SessionsOpt {
	return func(s *Sessions) {
		s.cartObs = append(s.cartObs, obs...)
	}
}

func SessionsFilterObserversOpt(obs ...port.FilterObserver) SessionsOpt {
	return func(s *Sessions) {
		s.filterObs = append(s.filterObs, obs...)
	}
}

func sessionsClockOpt(now func() time.Time) SessionsOpt {
	return func(s *Sessions) {
		s.now = now
	}
}

type session struct {
	storefront *Storefront
	lastSeen   time.Time
}

// Sessions keeps one [Storefront] per browser session in memory.
//
// Idle sessions are evicted together with their carts.
type Sessions struct {
	catalog   port.CatalogReader
	defaults  domain.FilterCriteria
	idleTTL   time.Duration
	cartObs   []port.CartObserver
	filterObs []port.FilterObserver
	now       func() time.Time

	mu    sync.Mutex
	items map[string]*session
}

func NewSessions(catalog port.CatalogReader, opts ...SessionsOpt) *Sessions {
	s := &Sessions{
		catalog: catalog,
		idleTTL: defaultIdleTTL,
		now:     time.Now,
		items:   make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the storefront of the session id, creating it on first use.
func (s *Sessions) Get(id string) *Storefront {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item, ok := s.items[id]; ok {
		item.lastSeen = s.now()
		return item.storefront
	}

	sf := NewStorefront(id, s.catalog, s.defaults)
	for _, obs := range s.cartObs {
		sf.SubscribeCart(obs)
	}
	for _, obs := range s.filterObs {
		sf.SubscribeFilter(obs)
	}
	s.items[id] = &session{storefront: sf, lastSeen: s.now()}

	slog.Debug("session created", "op", "Sessions.Get", "session", id)
	return sf
}

// Touch marks the session id as active. It reports false
// when the session does not exist, e.g. after eviction.
func (s *Sessions) Touch(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return false
	}
	item.lastSeen = s.now()
	return true
}

func (s *Sessions) Lookup(id string) (*Storefront, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return item.storefront, true
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Sweep evicts the sessions idle for longer than the idle TTL
// and returns how many were evicted.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := s.now().Add(-s.idleTTL)
	var n int
	for id, item := range s.items {
		if item.lastSeen.Before(deadline) {
			delete(s.items, id)
			n++
		}
	}
	return n
}

// Run sweeps idle sessions until ctx is done.
func (s *Sessions) Run(ctx context.Context) {
	const op = "Sessions.Run"
	log := slog.With("op", op)

	ticker := time.NewTicker(s.idleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped")
			return
		case <-ticker.C:
			if n := s.Sweep(); n != 0 {
				log.Info("idle sessions evicted", "n", n, "active", s.Len())
			}
		}
	}
}
