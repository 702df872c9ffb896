// Package crawlcache keeps track of persisted indexes, one per (seed, depth)
// pair. The directory file lists every entry; each entry owns a storage
// location under <root>/cache that holds its sealed segment.
package crawlcache

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/minecrawler/pkg/metrics"
)

const (
	IndexFileName = "cacheIndex.txt"
	storageDir    = "cache"
	storageExt    = ".cache"
	DefaultTTL    = time.Hour
)

type Config struct {
	Root    string
	TTL     time.Duration
	Clock   func() time.Time
	Metrics *metrics.Metrics
}

// Entry is one persisted crawl.
type Entry struct {
	Seed      string
	Depth     int
	CreatedAt time.Time
	ID        int64

	root string
}

// Location is the directory holding the entry's sealed index.
func (e Entry) Location() string {
	return filepath.Join(e.root, storageDir, strconv.FormatInt(e.ID, 10)+storageExt)
}

type key struct {
	seed  string
	depth int
}

type Manager struct {
	root    string
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[key]Entry
	lastID  int64
}

// New opens the cache rooted at cfg.Root, creating the storage directory
// and loading the directory file if one exists.
func New(cfg Config) (*Manager, error) {
	if cfg.Root == "" {
		return nil, fmt.Errorf("crawl cache: %w: empty root", apperrors.ErrInvalidInput)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &Manager{
		root:    cfg.Root,
		ttl:     cfg.TTL,
		now:     cfg.Clock,
		metrics: cfg.Metrics,
		logger:  slog.Default().With("component", "crawl-cache"),
		entries: make(map[key]Entry),
	}
	if err := os.MkdirAll(filepath.Join(cfg.Root, storageDir), 0o755); err != nil {
		return nil, apperrors.Persistence("creating cache directory", cfg.Root, err)
	}
	if err := m.load(); err != nil {
		return nil, err
	}
	m.observeSize()
	m.logger.Debug("crawl cache loaded", "root", cfg.Root, "entries", len(m.entries), "last_id", m.lastID)
	return m, nil
}

func (m *Manager) indexPath() string {
	return filepath.Join(m.root, IndexFileName)
}

func (m *Manager) load() error {
	path := m.indexPath()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return apperrors.Persistence("reading cache index", path, err)
	}

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		e, err := parseLine(line)
		if err != nil {
			m.logger.Warn("skipping malformed cache index line", "line", lineNo, "error", err)
			continue
		}
		e.root = m.root
		k := key{e.Seed, e.Depth}
		// A later line for the same key wins.
		if old, ok := m.entries[k]; !ok || old.ID < e.ID {
			m.entries[k] = e
		}
		if e.ID > m.lastID {
			m.lastID = e.ID
		}
	}
	if err := sc.Err(); err != nil {
		return apperrors.Persistence("reading cache index", path, err)
	}
	return nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Entry{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}
	depth, err := strconv.Atoi(fields[1])
	if err != nil {
		return Entry{}, fmt.Errorf("depth: %w", err)
	}
	created, err := time.Parse(time.RFC3339Nano, fields[2])
	if err != nil {
		return Entry{}, fmt.Errorf("timestamp: %w", err)
	}
	id, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil || id <= 0 {
		return Entry{}, fmt.Errorf("invalid id %q", fields[3])
	}
	return Entry{Seed: fields[0], Depth: depth, CreatedAt: created, ID: id}, nil
}

// Lookup returns the unexpired entry for (seed, depth). An expired entry is
// removed together with its storage and reported absent.
func (m *Manager) Lookup(seed string, depth int) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key{seed, depth}]
	if !ok {
		m.observeLookup("miss")
		return Entry{}, false, nil
	}
	if m.expired(e) {
		m.observeLookup("expired")
		m.logger.Info("cache entry expired", "seed", seed, "depth", depth, "id", e.ID, "created_at", e.CreatedAt)
		if err := m.removeLocked(e); err != nil {
			return Entry{}, false, err
		}
		return Entry{}, false, nil
	}
	m.observeLookup("hit")
	return e, true, nil
}

// Reserve records a new entry for (seed, depth) created now and returns
// it. Any existing entry for the pair is replaced and its storage deleted.
func (m *Manager) Reserve(seed string, depth int) (Entry, error) {
	if seed == "" || strings.ContainsAny(seed, " \t\r\n") {
		return Entry{}, fmt.Errorf("reserving cache entry: %w: seed %q", apperrors.ErrInvalidInput, seed)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{seed, depth}
	if old, ok := m.entries[k]; ok {
		if err := os.RemoveAll(old.Location()); err != nil {
			return Entry{}, apperrors.Persistence("removing cache storage", old.Location(), err)
		}
	}
	m.lastID++
	e := Entry{Seed: seed, Depth: depth, CreatedAt: m.now().UTC(), ID: m.lastID, root: m.root}
	m.entries[k] = e
	if err := m.writeLocked(); err != nil {
		return Entry{}, err
	}
	m.observeSize()
	m.logger.Debug("cache entry reserved", "seed", seed, "depth", depth, "id", e.ID)
	return e, nil
}

// Invalidate removes the entry for (seed, depth) and deletes its storage.
// It reports whether an entry existed.
func (m *Manager) Invalidate(seed string, depth int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key{seed, depth}]
	if !ok {
		return false, nil
	}
	return true, m.removeLocked(e)
}

// Entries returns every recorded entry, expired ones included, ordered by
// id.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

// Expired reports whether e has outlived the TTL.
func (m *Manager) Expired(e Entry) bool {
	return m.expired(e)
}

// Purge removes every expired entry and returns how many were removed.
func (m *Manager) Purge() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for _, e := range m.sortedLocked() {
		if !m.expired(e) {
			continue
		}
		if err := os.RemoveAll(e.Location()); err != nil {
			return removed, apperrors.Persistence("removing cache storage", e.Location(), err)
		}
		delete(m.entries, key{e.Seed, e.Depth})
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	m.observeSize()
	return removed, m.writeLocked()
}

// Clear removes every entry and its storage.
func (m *Manager) Clear() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.entries)
	for k, e := range m.entries {
		if err := os.RemoveAll(e.Location()); err != nil {
			return 0, apperrors.Persistence("removing cache storage", e.Location(), err)
		}
		delete(m.entries, k)
	}
	m.observeSize()
	return n, m.writeLocked()
}

func (m *Manager) expired(e Entry) bool {
	return m.now().Sub(e.CreatedAt) >= m.ttl
}

func (m *Manager) removeLocked(e Entry) error {
	delete(m.entries, key{e.Seed, e.Depth})
	m.observeSize()
	if err := os.RemoveAll(e.Location()); err != nil {
		return apperrors.Persistence("removing cache storage", e.Location(), err)
	}
	return m.writeLocked()
}

func (m *Manager) sortedLocked() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// writeLocked rewrites the directory file through a temp file and rename.
func (m *Manager) writeLocked() error {
	path := m.indexPath()
	tmpPath := path + ".tmp"

	var buf bytes.Buffer
	for _, e := range m.sortedLocked() {
		fmt.Fprintf(&buf, "%s %d %s %d\n", e.Seed, e.Depth, e.CreatedAt.Format(time.RFC3339Nano), e.ID)
	}
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		os.Remove(tmpPath)
		return apperrors.Persistence("writing cache index", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return apperrors.Persistence("renaming cache index", path, err)
	}
	return nil
}

func (m *Manager) observeLookup(outcome string) {
	if m.metrics != nil {
		m.metrics.CacheLookupsTotal.WithLabelValues(outcome).Inc()
	}
}

func (m *Manager) observeSize() {
	if m.metrics != nil {
		m.metrics.CacheEntries.Set(float64(len(m.entries)))
	}
}
