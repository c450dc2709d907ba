package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nidhogg/smart-money/internal/calc"
)

func TestMemoryStoreGetOrCreate(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	st, err := s.GetOrCreate(ctx, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.ID != "abc" || st.Salary != nil || len(st.Memory) != 0 {
		t.Fatalf("expected fresh session, got %+v", st)
	}
	if st.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	again, _ := s.GetOrCreate(ctx, "abc")
	if !again.CreatedAt.Equal(st.CreatedAt) {
		t.Errorf("second call recreated session")
	}
	if s.Len() != 1 {
		t.Errorf("got %d sessions, want 1", s.Len())
	}
}

func TestMemoryStoreEmptyID(t *testing.T) {
	s := NewMemoryStore(0)
	if _, err := s.GetOrCreate(context.Background(), ""); !errors.Is(err, ErrEmptyID) {
		t.Fatalf("got %v, want ErrEmptyID", err)
	}
}

func TestMemoryStoreSalaryIsCopied(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	if p, err := s.GetSalary(ctx, "u1"); err != nil || p != nil {
		t.Fatalf("got %v, %v; want nil, nil", p, err)
	}

	s.UpdateSalary(ctx, "u1", calc.Salary(20, 40))
	p, _ := s.GetSalary(ctx, "u1")
	p.Hourly = 999

	again, _ := s.GetSalary(ctx, "u1")
	if again.Hourly != 20 {
		t.Errorf("stored profile was mutated through a returned copy: %+v", again)
	}
}

func TestMemoryStoreWindow(t *testing.T) {
	s := NewMemoryStore(3)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.AppendExchange(ctx, "w", Exchange{Question: fmt.Sprintf("q%d", i), Answer: "a"})
	}
	st, _ := s.GetOrCreate(ctx, "w")
	if len(st.Memory) != 3 {
		t.Fatalf("got %d exchanges, want 3", len(st.Memory))
	}
	if st.Memory[0].Question != "q2" || st.Memory[2].Question != "q4" {
		t.Errorf("window kept wrong exchanges: %+v", st.Memory)
	}
	if st.Memory[0].At.IsZero() {
		t.Error("expected exchange timestamp to be filled")
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", i)
			for j := 0; j < 20; j++ {
				s.UpdateSalary(ctx, id, calc.Salary(float64(i+1), 40))
				s.AppendExchange(ctx, id, Exchange{Question: id})
				s.GetOrCreate(ctx, id)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("user-%d", i)
		st, _ := s.GetOrCreate(ctx, id)
		if st.Salary == nil || st.Salary.Hourly != float64(i+1) {
			t.Fatalf("%s: got salary %+v, want hourly %d", id, st.Salary, i+1)
		}
		if len(st.Memory) != DefaultWindow {
			t.Fatalf("%s: got %d exchanges, want %d", id, len(st.Memory), DefaultWindow)
		}
		for _, ex := range st.Memory {
			if ex.Question != id {
				t.Fatalf("%s: found exchange from %s", id, ex.Question)
			}
		}
	}
}
