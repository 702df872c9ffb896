package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCallReturnsValue(t *testing.T) {
	v, err := Call(context.Background(), time.Second, "fast", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	if err != nil || v != 42 {
		t.Fatalf("got (%d, %v), want (42, nil)", v, err)
	}
}

func TestCallDeadline(t *testing.T) {
	_, err := Call(context.Background(), 20*time.Millisecond, "slow fetch", func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "late", ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "slow fetch:") {
		t.Errorf("error should be prefixed with the call name: %v", err)
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "op", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected Canceled, got %v", err)
	}
}

func TestWithTimeoutZeroDisablesDeadline(t *testing.T) {
	called := false
	err := WithTimeout(context.Background(), 0, "op", func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); ok {
			t.Error("zero timeout should not set a deadline")
		}
		return nil
	})
	if err != nil || !called {
		t.Fatalf("called=%v err=%v", called, err)
	}
}
