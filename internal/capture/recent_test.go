package capture

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRecentSet(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewRecentSet(8*time.Second, clock.now)

	if !s.Claim("mb|1") {
		t.Fatal("first Claim() = false")
	}
	if s.Claim("mb|1") {
		t.Error("second Claim() inside the window = true")
	}
	if !s.Claim("mb|2") {
		t.Error("Claim() of another key = false")
	}

	clock.advance(7 * time.Second)
	if !s.Contains("mb|1") {
		t.Error("key expired before the window")
	}

	clock.advance(time.Second)
	if s.Contains("mb|1") {
		t.Error("key still live after the window")
	}
	if !s.Claim("mb|1") {
		t.Error("Claim() after expiry = false")
	}
	if n := s.Len(); n != 1 {
		t.Errorf("Len() = %d, want 1", n)
	}
}

func TestRecentSetRelease(t *testing.T) {
	s := NewRecentSet(time.Minute, nil)
	if !s.Claim("mb|1") {
		t.Fatal("first Claim() = false")
	}
	s.Release("mb|1")
	s.Release("mb|unknown")
	if s.Contains("mb|1") {
		t.Error("released key is still live")
	}
	if !s.Claim("mb|1") {
		t.Error("Claim() after Release() = false")
	}
}

func TestRecentSetsAreIndependent(t *testing.T) {
	a := NewRecentSet(0, nil)
	b := NewRecentSet(0, nil)
	a.Claim("k")
	if b.Contains("k") {
		t.Error("sets share state")
	}
}
