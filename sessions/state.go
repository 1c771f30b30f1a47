// Package sessions keeps the per-user dialogue state and serializes access to it.
package sessions

import (
	"context"
	"time"
)

// Step is the dialogue state machine position.
type Step string

const (
	StepInit                Step = "INIT"
	StepMenu                Step = "MENU"
	StepSearching           Step = "SEARCHING"
	StepDetailShown         Step = "DETAIL_SHOWN"
	StepVisitPendingListing Step = "VISIT_PENDING_LISTING"
	StepVisitPendingName    Step = "VISIT_PENDING_NAME"
	StepVisitPendingDate    Step = "VISIT_PENDING_DATE"
)

// MaxResults bounds the references remembered from the last search.
const MaxResults = 10

// State is one user's conversation progress.
type State struct {
	Step           Step      `json:"step"`
	Results        []string  `json:"results,omitempty"` // references of the last search, in display order
	CurrentListing string    `json:"current_listing,omitempty"`
	ClientName     string    `json:"client_name,omitempty"`
	LastActivity   time.Time `json:"last_activity"`
}

// Initial is the state of an unseen or reset user.
func Initial() State {
	return State{Step: StepInit}
}

// ResetTransient drops everything accumulated by multi-turn flows.
func (s *State) ResetTransient() {
	s.Results = nil
	s.CurrentListing = ""
	s.ClientName = ""
}

// SetResults stores up to MaxResults references.
func (s *State) SetResults(refs []string) {
	if len(refs) > MaxResults {
		refs = refs[:MaxResults]
	}
	s.Results = append([]string(nil), refs...)
}

// Store persists one State per user id. Get never reports absence: a missing entry
// is Initial(). Put stamps LastActivity; Sweep removes entries whose last Put is
// older than idle and returns how many it removed.
type Store interface {
	Get(ctx context.Context, userID string) (State, error)
	Put(ctx context.Context, userID string, st State) error
	Clear(ctx context.Context, userID string) error
	Sweep(ctx context.Context, idle time.Duration) (int, error)
}
