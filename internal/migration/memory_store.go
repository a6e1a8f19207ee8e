package migration

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	raw       []byte
	ownerID   uuid.UUID
	expiresAt time.Time
}

// MemoryProgressStore is the single-process progress store used when redis
// is not configured and in tests. Entries expire lazily on read.
type MemoryProgressStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[uuid.UUID]memoryEntry
}

func NewMemoryProgressStore(ttl time.Duration) *MemoryProgressStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &MemoryProgressStore{
		ttl:     ttl,
		entries: map[uuid.UUID]memoryEntry{},
	}
}

func (s *MemoryProgressStore) put(p *Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[p.JobID] = memoryEntry{
		raw:       raw,
		ownerID:   p.OwnerID,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryProgressStore) Create(_ context.Context, p *Progress) error {
	return s.put(p)
}

func (s *MemoryProgressStore) Update(_ context.Context, p *Progress) error {
	return s.put(p)
}

func (s *MemoryProgressStore) Get(_ context.Context, jobID uuid.UUID) (*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, jobID)
		return nil, ErrNotFound
	}
	var p Progress
	if err := json.Unmarshal(entry.raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MemoryProgressStore) ListActive(_ context.Context, ownerID uuid.UUID) ([]*Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	out := []*Progress{}
	for id, entry := range s.entries {
		if entry.ownerID != ownerID {
			continue
		}
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
			continue
		}
		var p Progress
		if err := json.Unmarshal(entry.raw, &p); err != nil {
			continue
		}
		if p.active() {
			out = append(out, &p)
		}
	}
	return out, nil
}

func (s *MemoryProgressStore) Delete(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, jobID)
	return nil
}
