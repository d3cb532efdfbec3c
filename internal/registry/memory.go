package registry

import (
	"context"
	"sync"
	"time"

	"server/internal/domain"
)

const memorySweepInterval = time.Minute

type memoryEntry struct {
	rec       domain.JobRecord
	expiresAt time.Time // zero until the record turns terminal
}

// Memory is a process-lifetime registry backed by a mutex-guarded map.
// Terminal records expire after the configured TTL; expired entries are swept
// lazily on write and by Prune.
type Memory struct {
	ttl time.Duration

	mu        sync.RWMutex
	entries   map[string]memoryEntry
	lastSweep time.Time
	now       func() time.Time
}

// NewMemory constructs an in-memory registry; ttl <= 0 uses
// DefaultTerminalTTL.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTerminalTTL
	}
	return &Memory{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Put(ctx context.Context, rec domain.JobRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.entries[rec.Handle.ID]; ok {
		// Terminal status is authoritative once observed.
		if existing.rec.Status.State.Terminal() && !rec.Status.State.Terminal() {
			return nil
		}
	}
	entry := memoryEntry{rec: rec}
	if rec.Status.State.Terminal() {
		entry.expiresAt = now.Add(m.ttl)
	}
	m.entries[rec.Handle.ID] = entry

	if now.Sub(m.lastSweep) > memorySweepInterval {
		m.sweepLocked(now)
	}
	return nil
}

func (m *Memory) Get(ctx context.Context, handleID string) (domain.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[handleID]
	if !ok {
		return domain.JobRecord{}, domain.ErrUnknownJob
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		return domain.JobRecord{}, domain.ErrUnknownJob
	}
	return entry.rec, nil
}

func (m *Memory) List(ctx context.Context) ([]domain.JobRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	records := make([]domain.JobRecord, 0, len(m.entries))
	for _, entry := range m.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			continue
		}
		records = append(records, entry.rec)
	}
	return records, nil
}

func (m *Memory) Prune(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked(m.now()), nil
}

func (m *Memory) sweepLocked(now time.Time) int {
	dropped := 0
	for id, entry := range m.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(m.entries, id)
			dropped++
		}
	}
	m.lastSweep = now
	return dropped
}

var _ Registry = (*Memory)(nil)
