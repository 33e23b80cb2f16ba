package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultMaxEntries bounds a Memory cache created by NewMemory.
const DefaultMaxEntries = 10000

// Memory is an in-process Cache used when Redis is disabled and in tests.
// Expired entries are dropped on read, by Sweep and by RunJanitor. At
// capacity, Set evicts the entry closest to expiry.
type Memory struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	maxEntries int
	now        func() time.Time
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemory returns an empty in-process cache holding up to
// DefaultMaxEntries entries.
func NewMemory() *Memory {
	return NewMemoryWithLimit(DefaultMaxEntries)
}

// NewMemoryWithLimit returns an empty cache holding up to maxEntries entries.
func NewMemoryWithLimit(maxEntries int) *Memory {
	if maxEntries < 1 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{entries: make(map[string]memoryEntry), maxEntries: maxEntries, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	e, ok := m.entries[key]
	if ok && !e.expires.IsZero() && m.now().After(e.expires) {
		delete(m.entries, key)
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return ErrMiss
	}
	return json.Unmarshal(e.data, dest)
}

func (m *Memory) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	e := memoryEntry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		if m.sweepLocked() == 0 {
			m.evictLocked()
		}
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Sweep removes expired entries and reports how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Memory) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) sweepLocked() int {
	now := m.now()
	dropped := 0
	for k, e := range m.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(m.entries, k)
			dropped++
		}
	}
	return dropped
}

// evictLocked drops the entry that expires soonest. Entries without a TTL go
// last.
func (m *Memory) evictLocked() {
	var victim string
	var soonest time.Time
	found := false
	for k, e := range m.entries {
		switch {
		case !found:
		case e.expires.IsZero():
			continue
		case soonest.IsZero() || e.expires.Before(soonest):
		default:
			continue
		}
		victim, soonest, found = k, e.expires, true
	}
	if found {
		delete(m.entries, victim)
	}
}
