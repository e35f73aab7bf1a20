package store

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/trip-itinerary/backend/internal/daytabs"
	"github.com/pkordes/trip-itinerary/backend/internal/repo"
)

// Session is the itinerary state of one group: its Store and tab selection.
type Session struct {
	GroupID uuid.UUID
	Store   *Store
	Tabs    *daytabs.Controller

	lastUsed time.Time // guarded by Registry.mu
}

// Registry hands out one Session per group, created on first use.
// All Stores share the repos and the Reconciler. Sessions unused for
// idleTTL are dropped; the next request for that group reloads from the
// database.
type Registry struct {
	itineraries repo.ItineraryRepo
	days        repo.DayRepo
	items       repo.ItemRepo
	recon       *Reconciler
	log         *slog.Logger
	idleTTL     time.Duration

	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry constructs an empty Registry. An idleTTL of zero keeps
// sessions forever.
func NewRegistry(itineraries repo.ItineraryRepo, days repo.DayRepo, items repo.ItemRepo, recon *Reconciler, log *slog.Logger, idleTTL time.Duration) *Registry {
	return &Registry{
		itineraries: itineraries,
		days:        days,
		items:       items,
		recon:       recon,
		log:         log,
		idleTTL:     idleTTL,
		sessions:    map[uuid.UUID]*Session{},
	}
}

// Session returns the session of groupID, creating it unloaded if needed.
// Creating a session also sweeps out idle ones.
func (r *Registry) Session(groupID uuid.UUID) *Session {
	now := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[groupID]; ok {
		s.lastUsed = now
		return s
	}
	if r.idleTTL > 0 {
		r.evictLocked(now.Add(-r.idleTTL))
	}
	st := New(r.itineraries, r.days, r.items, r.recon, r.log.With("group_id", groupID))
	s := &Session{GroupID: groupID, Store: st, Tabs: daytabs.NewController(st), lastUsed: now}
	r.sessions[groupID] = s
	return s
}

// EvictIdle drops every session last used before cutoff and returns how
// many were dropped. Pending background writes are unaffected.
func (r *Registry) EvictIdle(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictLocked(cutoff)
}

func (r *Registry) evictLocked(cutoff time.Time) int {
	n := 0
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	if n > 0 {
		r.log.Debug("evicted idle sessions", "count", n, "remaining", len(r.sessions))
	}
	return n
}

// Reconciler returns the shared background writer.
func (r *Registry) Reconciler() *Reconciler { return r.recon }

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
