package unlocker

import (
	"sync"
	"time"
)

type gateEntry struct {
	unlockerID  string
	destination string
	gate        *Gate
	touched     time.Time
}

const DefaultMaxSessions = 10_000

// GateSessions keeps visitor progress in memory. Entries idle for longer than
// the TTL are dropped by Sweep. At most max entries are held at once.
type GateSessions struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	entries map[string]*gateEntry
	now     func() time.Time
}

func NewGateSessions(ttl time.Duration, maxEntries int) *GateSessions {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxSessions
	}
	return &GateSessions{
		ttl:     ttl,
		max:     maxEntries,
		entries: make(map[string]*gateEntry),
		now:     time.Now,
	}
}

func (s *GateSessions) open(id, unlockerID, destination string, gate *Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) >= s.max {
		s.dropIdle()
		if len(s.entries) >= s.max {
			return ErrTooManySessions
		}
	}

	s.entries[id] = &gateEntry{
		unlockerID:  unlockerID,
		destination: destination,
		gate:        gate,
		touched:     s.now(),
	}
	return nil
}

func (s *GateSessions) click(id, unlockerID string, c Color) (ClickResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.unlockerID != unlockerID || s.idle(e) {
		return ClickResult{}, ErrSessionNotFound
	}
	e.touched = s.now()

	wasUnlocked := e.gate.Step().State == Unlocked
	step := e.gate.Click(c)

	res := ClickResult{Step: step}
	if step.State == Unlocked {
		res.DestinationURL = e.destination
		res.JustUnlocked = !wasUnlocked
	}
	return res, nil
}

func (s *GateSessions) idle(e *gateEntry) bool {
	return s.now().Sub(e.touched) > s.ttl
}

// Sweep removes idle sessions and returns how many were dropped.
func (s *GateSessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropIdle()
}

// dropIdle expects s.mu to be held.
func (s *GateSessions) dropIdle() int {
	removed := 0
	for id, e := range s.entries {
		if s.idle(e) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

func (s *GateSessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
