package unlocker

import (
	"errors"
	"testing"
	"time"
)

func newTestSessions(clock *time.Time, maxEntries int) *GateSessions {
	s := NewGateSessions(10*time.Minute, maxEntries)
	s.now = func() time.Time { return *clock }
	return s
}

func TestGateSessions_Click(t *testing.T) {
	clock := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s := newTestSessions(&clock, 0)

	g, _ := NewGate([]Color{Red, Blue}, nil)
	s.open("sess-1", "u-1", "https://example.com", g)

	t.Run("wrong unlocker id", func(t *testing.T) {
		if _, err := s.click("sess-1", "u-2", Red); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := s.click("nope", "u-1", Red); !errors.Is(err, ErrSessionNotFound) {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("destination hidden until unlocked", func(t *testing.T) {
		res, err := s.click("sess-1", "u-1", Red)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.DestinationURL != "" || res.JustUnlocked {
			t.Fatalf("unexpected reveal: %+v", res)
		}
	})

	t.Run("unlock reveals destination once", func(t *testing.T) {
		res, err := s.click("sess-1", "u-1", Blue)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.State != Unlocked || res.DestinationURL != "https://example.com" || !res.JustUnlocked {
			t.Fatalf("unexpected result: %+v", res)
		}

		res, err = s.click("sess-1", "u-1", Yellow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.State != Unlocked || res.DestinationURL == "" || res.JustUnlocked {
			t.Fatalf("unexpected result after unlock: %+v", res)
		}
	})
}

func TestGateSessions_IdleExpiry(t *testing.T) {
	clock := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s := newTestSessions(&clock, 0)

	g1, _ := NewGate([]Color{Red}, nil)
	g2, _ := NewGate([]Color{Red}, nil)
	s.open("old", "u-1", "https://a.example", g1)

	clock = clock.Add(8 * time.Minute)
	s.open("fresh", "u-1", "https://a.example", g2)

	clock = clock.Add(3 * time.Minute)

	if _, err := s.click("old", "u-1", Red); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("idle session should be gone, got %v", err)
	}
	if _, err := s.click("fresh", "u-1", Red); err != nil {
		t.Fatalf("fresh session should still work: %v", err)
	}

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestGateSessions_Capacity(t *testing.T) {
	clock := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	s := newTestSessions(&clock, 2)

	for _, id := range []string{"a", "b"} {
		g, _ := NewGate([]Color{Red}, nil)
		if err := s.open(id, "u-1", "https://a.example", g); err != nil {
			t.Fatalf("open %s: %v", id, err)
		}
	}

	g, _ := NewGate([]Color{Red}, nil)
	if err := s.open("c", "u-1", "https://a.example", g); !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("expected ErrTooManySessions, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	clock = clock.Add(11 * time.Minute)
	if err := s.open("c", "u-1", "https://a.example", g); err != nil {
		t.Fatalf("idle sessions should make room: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestNewGateSessions_Defaults(t *testing.T) {
	s := NewGateSessions(0, 0)
	if s.ttl != 30*time.Minute {
		t.Fatalf("ttl = %v, want 30m", s.ttl)
	}
	if s.max != DefaultMaxSessions {
		t.Fatalf("max = %d, want %d", s.max, DefaultMaxSessions)
	}
}
