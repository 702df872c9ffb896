// Package tracing times the phases of a run as a tree of spans carried in
// the context. The finished tree is logged through slog and can be printed
// by the CLI.
package tracing

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

type contextKey struct{}

// Span is one timed phase.
type Span struct {
	Name      string
	RunID     string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu    sync.Mutex
	ended bool
}

// Start opens a root span for runID and stores it in the returned context.
func Start(ctx context.Context, name, runID string) (context.Context, *Span) {
	span := &Span{
		Name:      name,
		RunID:     runID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild opens a span under the one in ctx. Without a parent the span
// is still usable but belongs to no tree.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	parent := FromContext(ctx)
	child := &Span{
		Name:      name,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	if parent != nil {
		child.RunID = parent.RunID
		parent.mu.Lock()
		parent.Children = append(parent.Children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// End fixes the span's duration. Only the first call counts.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	s.Duration = time.Since(s.StartTime)
}

func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

func FromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// Find returns the first span named name in a pre-order walk of the tree.
func (s *Span) Find(name string) *Span {
	if s.Name == name {
		return s
	}
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, c := range children {
		if found := c.Find(name); found != nil {
			return found
		}
	}
	return nil
}

// Log writes one debug record per span.
func (s *Span) Log(logger *slog.Logger) {
	s.walk(0, func(sp *Span, depth int) {
		attrs := []any{
			"run_id", sp.RunID,
			"span", sp.Name,
			"duration_us", sp.Duration.Microseconds(),
			"depth", depth,
		}
		for k, v := range sp.Attrs {
			attrs = append(attrs, k, v)
		}
		logger.Debug("span", attrs...)
	})
}

// Fprint writes the tree as an indented list of phase timings.
func (s *Span) Fprint(w io.Writer) {
	s.walk(0, func(sp *Span, depth int) {
		fmt.Fprintf(w, "%s%-*s %v\n", strings.Repeat("  ", depth), 16-2*depth, sp.Name, sp.Duration.Round(time.Microsecond))
	})
}

func (s *Span) walk(depth int, fn func(*Span, int)) {
	fn(s, depth)
	s.mu.Lock()
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()
	for _, c := range children {
		c.walk(depth+1, fn)
	}
}
