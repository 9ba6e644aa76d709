package typing

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestIndicator_EmitsImmediatelyOnStart(t *testing.T) {
	var calls int32
	ind := NewIndicator(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, time.Hour, nil)
	defer ind.Stop()

	ind.Start()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls after Start = %d, want 1", got)
	}
}

func TestIndicator_RefreshesOnInterval(t *testing.T) {
	var calls int32
	ind := NewIndicator(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 10*time.Millisecond, nil)

	ind.Start()
	time.Sleep(55 * time.Millisecond)
	ind.Stop()

	if got := atomic.LoadInt32(&calls); got < 3 {
		t.Errorf("calls after 55ms at 10ms interval = %d, want at least 3", got)
	}
}

func TestIndicator_StopEndsRefreshes(t *testing.T) {
	var calls int32
	ind := NewIndicator(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 5*time.Millisecond, nil)

	ind.Start()
	ind.Stop()

	at := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	if got := atomic.LoadInt32(&calls); got != at {
		t.Errorf("calls grew from %d to %d after Stop", at, got)
	}
}

func TestIndicator_StopIsIdempotent(t *testing.T) {
	ind := NewIndicator(func() error { return nil }, time.Hour, nil)
	ind.Start()

	ind.Stop()
	ind.Stop()
	ind.Stop()

	if ind.Active() {
		t.Error("indicator still active after Stop")
	}
}

func TestIndicator_StopBeforeStartIsSafe(t *testing.T) {
	ind := NewIndicator(func() error { return nil }, time.Hour, nil)
	ind.Stop()

	if ind.Active() {
		t.Error("indicator active without Start")
	}
}

func TestIndicator_StartTwiceRunsOneLoop(t *testing.T) {
	var calls int32
	ind := NewIndicator(func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, time.Hour, nil)
	defer ind.Stop()

	ind.Start()
	ind.Start()

	// The initial signal fires once; the second Start is a no-op.
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("calls after double Start = %d, want 1", got)
	}
}

func TestIndicator_SendFailureKeepsLoopAlive(t *testing.T) {
	var calls int32
	ind := NewIndicator(func() error {
		atomic.AddInt32(&calls, 1)
		return errors.New("gateway hiccup")
	}, 5*time.Millisecond, nil)

	ind.Start()
	time.Sleep(30 * time.Millisecond)
	ind.Stop()

	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Errorf("calls = %d, want the loop to keep emitting despite errors", got)
	}
}
