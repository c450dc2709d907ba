package session

import (
	"context"
	"sync"
	"time"

	"github.com/nidhogg/smart-money/internal/calc"
)

type entry struct {
	mu        sync.Mutex
	salary    *calc.SalaryProfile
	memory    []Exchange
	createdAt time.Time
}

// MemoryStore keeps sessions in process memory. The map lock is only held
// to find or insert an entry; each entry has its own lock, so turns on
// different sessions never wait on each other.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	window   int
	now      func() time.Time
}

// NewMemoryStore creates an empty store remembering window exchanges per
// session (DefaultWindow when window <= 0).
func NewMemoryStore(window int) *MemoryStore {
	if window <= 0 {
		window = DefaultWindow
	}
	return &MemoryStore{
		sessions: make(map[string]*entry),
		window:   window,
		now:      time.Now,
	}
}

func (s *MemoryStore) entry(id string) (*entry, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		return e, nil
	}
	e = &entry{createdAt: s.now()}
	s.sessions[id] = e
	return e, nil
}

func (s *MemoryStore) GetOrCreate(_ context.Context, id string) (State, error) {
	e, err := s.entry(id)
	if err != nil {
		return State{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		ID:        id,
		Memory:    append([]Exchange(nil), e.memory...),
		CreatedAt: e.createdAt,
	}
	if e.salary != nil {
		p := *e.salary
		st.Salary = &p
	}
	return st, nil
}

func (s *MemoryStore) UpdateSalary(_ context.Context, id string, p calc.SalaryProfile) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.salary = &p
	e.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetSalary(_ context.Context, id string) (*calc.SalaryProfile, error) {
	e, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.salary == nil {
		return nil, nil
	}
	p := *e.salary
	return &p, nil
}

func (s *MemoryStore) AppendExchange(_ context.Context, id string, ex Exchange) error {
	e, err := s.entry(id)
	if err != nil {
		return err
	}
	if ex.At.IsZero() {
		ex.At = s.now()
	}
	e.mu.Lock()
	e.memory = trimWindow(append(e.memory, ex), s.window)
	e.mu.Unlock()
	return nil
}

// Len returns the number of sessions held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error { return nil }
