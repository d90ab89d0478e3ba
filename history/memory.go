package history

import (
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records for the lifetime of the process. It is used when
// no database is configured.
type MemoryStore struct {
	mu     sync.Mutex
	nextID uint
	recs   map[string]*RenderRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]*RenderRecord)}
}

func (s *MemoryStore) Save(r *RenderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if old, ok := s.recs[r.JobID]; ok {
		r.ID = old.ID
		r.CreatedAt = old.CreatedAt
	} else {
		s.nextID++
		r.ID = s.nextID
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
	r.UpdatedAt = now
	c := *r
	s.recs[r.JobID] = &c
	return nil
}

func (s *MemoryStore) Get(jobID string) (*RenderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) List(limit int) ([]*RenderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs := make([]*RenderRecord, 0, len(s.recs))
	for _, r := range s.recs {
		c := *r
		rs = append(rs, &c)
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
	if limit > 0 && len(rs) > limit {
		rs = rs[:limit]
	}
	return rs, nil
}

func (s *MemoryStore) Delete(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recs[jobID]; !ok {
		return ErrNotFound
	}
	delete(s.recs, jobID)
	return nil
}
