/*
Package session keeps the per-browser-session state: the generated plan, the weekly
progress checklist and the follow-up plan. Nothing here outlives the session.
*/
package session

import (
	"context"
	"time"

	"fitplan/internal/progress"
)

// State is everything one browser session has accumulated.
type State struct {
	// Plan is the opaque text returned by the model, overwritten on each generation.
	Plan        string    `json:"plan"`
	PlanModel   string    `json:"plan_model,omitempty"`
	PlanBMI     string    `json:"plan_bmi,omitempty"`
	GeneratedAt time.Time `json:"generated_at,omitempty"`

	Progress *progress.WeeklyProgress `json:"progress"`

	FollowUpPlan        string    `json:"follow_up_plan,omitempty"`
	FollowUpModel       string    `json:"follow_up_model,omitempty"`
	FollowUpAdjustments string    `json:"follow_up_adjustments,omitempty"`
	FollowUpAt          time.Time `json:"follow_up_at,omitempty"`
}

// NewState returns an empty plan and all weeks Not Completed.
func NewState() *State {
	return &State{Progress: progress.New()}
}

func (s *State) HasPlan() bool {
	return s.Plan != ""
}

// Clone deep-copies the state so callers never share the progress map.
func (s *State) Clone() *State {
	out := *s
	out.Progress = progress.New()
	if s.Progress != nil {
		for _, w := range s.Progress.Ordered() {
			out.Progress.Weeks[w.Number] = w
		}
	}
	return &out
}

// Store persists session state keyed by session ID.
type Store interface {
	// Get returns a copy of the state, or a fresh state if the session is unknown or expired.
	Get(ctx context.Context, id string) (*State, error)

	// Update applies fn to the session's state atomically and saves the result.
	// If fn returns an error nothing is saved.
	Update(ctx context.Context, id string, fn func(*State) error) (*State, error)

	// Delete forgets the session.
	Delete(ctx context.Context, id string) error

	// Health returns a map of health status information.
	Health(ctx context.Context) map[string]string
}
