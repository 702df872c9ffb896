package errors

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestFetchErrorMatchesSentinelAndCause(t *testing.T) {
	err := fmt.Errorf("crawl branch: %w", &FetchError{
		URL:    "http://example.com",
		Reason: ReasonTimeout,
		Err:    context.DeadlineExceeded,
	})
	if !errors.Is(err, ErrFetch) {
		t.Error("expected errors.Is(err, ErrFetch)")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected cause to be reachable")
	}
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Reason != ReasonTimeout {
		t.Errorf("expected FetchError with timeout reason, got %v", fe)
	}
}

func TestPersistenceError(t *testing.T) {
	err := Persistence("writing", "/tmp/cacheIndex.txt", fs.ErrPermission)
	if !errors.Is(err, ErrCachePersistence) {
		t.Error("expected ErrCachePersistence")
	}
	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected wrapped cause")
	}
	want := "writing /tmp/cacheIndex.txt: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("bad seed: %w", ErrInvalidInput), 2},
		{Persistence("reading", "x", fs.ErrNotExist), 3},
		{fmt.Errorf("add: %w", ErrIndexSealed), 4},
		{errors.New("boom"), 1},
	}
	for _, c := range cases {
		if got := ExitCode(c.err); got != c.want {
			t.Errorf("ExitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}
