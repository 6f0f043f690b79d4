package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/raunaksarawgi/dexflow-realtime/internal/infrastructure/ratelimit"
)

func TestFixedWindowBlocksSixthRequest(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(5, 1*time.Second, nil)
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if !limiter.Admit("dexscreener") {
			t.Fatalf("request %d should have been admitted", i+1)
		}
	}

	if limiter.Admit("dexscreener") {
		t.Error("6th request within the window should be rejected")
	}
	if got := limiter.Remaining("dexscreener"); got != 0 {
		t.Errorf("expected 0 remaining, got %d", got)
	}

	// After the window elapses the counter resets.
	time.Sleep(1100 * time.Millisecond)
	if !limiter.Admit("dexscreener") {
		t.Error("request after window rollover should be admitted")
	}
	if got := limiter.Remaining("dexscreener"); got != 4 {
		t.Errorf("expected 4 remaining after rollover, got %d", got)
	}
}

func TestFixedWindowIdentifiersAreIndependent(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, time.Minute, nil)
	defer limiter.Stop()

	if !limiter.Admit("a") {
		t.Fatal("first request for a should be admitted")
	}
	if limiter.Admit("a") {
		t.Error("second request for a should be rejected")
	}
	if !limiter.Admit("b") {
		t.Error("exhausting a must not affect b")
	}
}

func TestFixedWindowResetTime(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, time.Minute, nil)
	defer limiter.Stop()

	before := time.Now()
	limiter.Admit("x")
	reset := limiter.ResetTime("x")

	if reset.Before(before.Add(59 * time.Second)) {
		t.Errorf("reset time %v too early for a 1m window started around %v", reset, before)
	}
}

func TestAwaitSlotObtainsSlotAfterRollover(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, 200*time.Millisecond, nil)
	defer limiter.Stop()

	if !limiter.Admit("x") {
		t.Fatal("first request should be admitted")
	}

	// The first backoff (500ms base) outlives the 200ms window, so one
	// retry must succeed.
	if !limiter.AwaitSlot(context.Background(), "x", 2) {
		t.Error("AwaitSlot should obtain a slot once the window rolls over")
	}
}

func TestAwaitSlotGivesUpAfterRetries(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, time.Hour, nil)
	defer limiter.Stop()

	limiter.Admit("x")
	if limiter.AwaitSlot(context.Background(), "x", 0) {
		t.Error("AwaitSlot with no retries against a full hour-long window should fail")
	}
}

func TestAwaitSlotHonorsContextCancellation(t *testing.T) {
	limiter := ratelimit.NewFixedWindow(1, time.Hour, nil)
	defer limiter.Stop()

	limiter.Admit("x")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if limiter.AwaitSlot(ctx, "x", 5) {
		t.Error("AwaitSlot should fail when the context is cancelled")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("AwaitSlot kept waiting %v after cancellation", elapsed)
	}
}
