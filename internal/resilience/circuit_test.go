package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errUpstream = NewTransientError(errors.New("503 from upstream"), 503)

func failing(context.Context) (int, error) { return 0, errUpstream }
func working(context.Context) (int, error) { return 1, nil }

func testBreaker(threshold int, clock *time.Time) *Breaker {
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: time.Minute})
	b.now = func() time.Time { return *clock }
	return b
}

func TestBreaker_ClosedPassesThrough(t *testing.T) {
	now := time.Now()
	b := testBreaker(3, &now)

	v, err := Call(context.Background(), b, working)
	if err != nil || v != 1 {
		t.Fatalf("got %d, %v", v, err)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	now := time.Now()
	b := testBreaker(3, &now)

	for range 3 {
		_, _ = Call(context.Background(), b, failing)
	}
	if b.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	_, err := Call(context.Background(), b, func(context.Context) (int, error) {
		t.Error("must not be called while open")
		return 0, nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	now := time.Now()
	b := testBreaker(3, &now)

	_, _ = Call(context.Background(), b, failing)
	_, _ = Call(context.Background(), b, failing)
	_, _ = Call(context.Background(), b, working)
	_, _ = Call(context.Background(), b, failing)
	_, _ = Call(context.Background(), b, failing)

	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	now := time.Now()
	b := testBreaker(2, &now)

	for range 5 {
		_, _ = Call(context.Background(), b, func(context.Context) (int, error) {
			return 0, errors.New("400 bad request")
		})
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	b := testBreaker(1, &now)

	_, _ = Call(context.Background(), b, failing)
	if b.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	now = now.Add(time.Minute)
	if b.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	// Failed probe reopens.
	_, _ = Call(context.Background(), b, failing)
	if b.State() != CircuitOpen {
		t.Fatalf("expected open after failed probe, got %s", b.State())
	}

	// Successful probe closes.
	now = now.Add(time.Minute)
	if _, err := Call(context.Background(), b, working); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", b.State())
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var seen []string
	now := time.Now()
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		OnStateChange: func(from, to CircuitState) {
			seen = append(seen, from.String()+"->"+to.String())
		},
	})
	b.now = func() time.Time { return now }

	_, _ = Call(context.Background(), b, failing)
	now = now.Add(time.Second)
	_, _ = Call(context.Background(), b, working)

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestBreaker_Nil(t *testing.T) {
	v, err := Call(context.Background(), nil, working)
	if err != nil || v != 1 {
		t.Errorf("nil breaker should call through, got %d, %v", v, err)
	}
}

func TestCircuitState_String(t *testing.T) {
	cases := map[CircuitState]string{
		CircuitClosed:    "closed",
		CircuitOpen:      "open",
		CircuitHalfOpen:  "half-open",
		CircuitState(99): "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("expected %q, got %q", want, s.String())
		}
	}
}
