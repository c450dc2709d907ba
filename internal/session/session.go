// Package session keeps per-conversation state: the last computed salary
// profile and a bounded window of recent exchanges.
//
// State lives for the lifetime of the process. Nothing is evicted.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/nidhogg/smart-money/internal/calc"
)

// DefaultWindow is the number of exchanges a session remembers.
const DefaultWindow = 10

// ErrEmptyID is returned for a blank session id.
var ErrEmptyID = errors.New("session: empty id")

// Exchange is one question and the answer it received.
type Exchange struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	At       time.Time `json:"at"`
}

// State is a snapshot of one session. Stores return copies, so callers may
// read it freely without affecting the stored session.
type State struct {
	ID        string              `json:"id"`
	Salary    *calc.SalaryProfile `json:"salary,omitempty"`
	Memory    []Exchange          `json:"memory"`
	CreatedAt time.Time           `json:"created_at"`
}

// Store holds session state keyed by an opaque session id. Implementations
// must be safe for concurrent use; sessions never observe each other.
type Store interface {
	// GetOrCreate returns the session, creating an empty one if absent.
	GetOrCreate(ctx context.Context, id string) (State, error)
	// UpdateSalary replaces the session's salary profile.
	UpdateSalary(ctx context.Context, id string, p calc.SalaryProfile) error
	// GetSalary returns the stored profile, or nil if none was computed yet.
	GetSalary(ctx context.Context, id string) (*calc.SalaryProfile, error)
	// AppendExchange records an exchange, keeping only the latest window.
	AppendExchange(ctx context.Context, id string, ex Exchange) error
	Close() error
}

func trimWindow(mem []Exchange, window int) []Exchange {
	if len(mem) <= window {
		return mem
	}
	return append([]Exchange(nil), mem[len(mem)-window:]...)
}
