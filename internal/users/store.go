// Package users keeps per-user quota counters and language preferences.
package users

import (
	"sort"
	"sync"
	"time"
)

// Record is the mutable per-user state.
type Record struct {
	UserID      int64     `json:"user_id"`
	UploadCount int       `json:"upload_count"`
	WindowStart time.Time `json:"window_start"`
	Language    string    `json:"language,omitempty"`
	LastSeen    time.Time `json:"last_seen"`
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Store is a synchronized key-value store of user records.
type Store interface {
	// Get returns a copy of the record for userID.
	Get(userID int64) (Record, bool)
	// Update runs fn on the record for userID, creating it when missing.
	// Calls for the same user never interleave.
	Update(userID int64, fn func(*Record)) Record
	// DeleteWhere removes every record for which match returns true.
	DeleteWhere(match func(Record) bool) int
	// List returns a copy of all records ordered by user id.
	List() []Record
	Len() int
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[int64]*Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]*Record)}
}

func (s *MemoryStore) Get(userID int64) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

func (s *MemoryStore) Update(userID int64, fn func(*Record)) Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		r = &Record{UserID: userID}
		s.records[userID] = r
	}
	fn(r)
	return *r
}

func (s *MemoryStore) DeleteWhere(match func(Record) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, r := range s.records {
		if match(*r) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) List() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
