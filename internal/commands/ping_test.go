package commands

import (
	"testing"
	"time"
)

func TestPing_ReportsLatency(t *testing.T) {
	m := newTestManager(t, Options{})
	if err := m.Register(Ping()); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s := &fakeSession{latency: 42 * time.Millisecond}
	m.Dispatch(s, commandInteraction("ping", "u1"))

	if got, want := s.lastContent(), "Pong! 42ms"; got != want {
		t.Errorf("response = %q, want %q", got, want)
	}
}
