/*
Package planner orchestrates the three tabs: it turns a submitted profile into a plan,
records the weekly checklist, and requests the follow-up plan once all 12 weeks are done.
*/
package planner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"fitplan/internal/llm"
	"fitplan/internal/profile"
	"fitplan/internal/progress"
	"fitplan/internal/prompt"
	"fitplan/internal/session"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNoPlan             = errors.New("no plan generated yet")
	ErrProgressIncomplete = errors.New("all 12 weeks must be completed first")

	// ErrPlanChanged is returned when a new plan replaced the one a follow-up was based on.
	ErrPlanChanged = errors.New("plan changed while the follow-up was generated")
)

// DefaultCallTimeout bounds one model call with all its retries.
const DefaultCallTimeout = 10 * time.Minute

// Notifier is told when a session's state changed so open tabs can refresh.
type Notifier interface {
	TriggerRefresh(sessionID string)
}

// WeekAnswer is one row of the Track tab.
type WeekAnswer struct {
	Week        int
	WorkoutDone bool
	DietDone    bool
}

// Service wires the prompt builders, the two model providers and the session store.
type Service struct {
	store    session.Store
	primary  llm.Generator
	followUp llm.Generator
	notifier Notifier
	now      func() time.Time

	// callTimeout bounds one shared model call including its retries.
	callTimeout time.Duration

	calls singleflight.Group
}

// New builds the Service. notifier may be nil.
func New(store session.Store, primary, followUp llm.Generator, notifier Notifier) *Service {
	return &Service{
		store:    store,
		primary:  primary,
		followUp: followUp,
		notifier: notifier,
		now:      time.Now,

		callTimeout: DefaultCallTimeout,
	}
}

// State returns the session's current state.
func (s *Service) State(ctx context.Context, sessionID string) (*session.State, error) {
	return s.store.Get(ctx, sessionID)
}

// GeneratePlan builds the plan prompt from the profile, asks the primary model and
// stores the answer as the session's plan. The previous plan and any follow-up plan
// are replaced.
func (s *Service) GeneratePlan(ctx context.Context, sessionID string, p profile.Profile) (*session.State, error) {
	logger := zerolog.Ctx(ctx)

	if err := p.Validate(); err != nil {
		return nil, err
	}

	userPrompt := prompt.PlanPrompt(p)

	// Identical submissions for the same session collapse into one model call.
	st, shared, err := s.share(ctx, callKey("plan", sessionID, userPrompt), func(callCtx context.Context) (*session.State, error) {
		logger.Info().Str("model", s.primary.Name()).Msg("Sending plan prompt to model...")

		text, err := s.primary.Generate(callCtx, prompt.SystemPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("plan generation failed: %w", err)
		}

		var bmi string
		if b, err := p.BMI(); err == nil {
			bmi = b.String()
		}

		st, err := s.store.Update(callCtx, sessionID, func(st *session.State) error {
			st.Plan = text
			st.PlanModel = s.primary.Name()
			st.PlanBMI = bmi
			st.GeneratedAt = s.now()
			st.FollowUpPlan = ""
			st.FollowUpModel = ""
			st.FollowUpAdjustments = ""
			st.FollowUpAt = time.Time{}
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.notify(sessionID)
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug().Msg("Plan generation shared with a concurrent request")
	}

	logger.Info().Int("plan_length", len(st.Plan)).Msg("Plan stored in session")
	return st, nil
}

// UpdateProgress records the checklist answers. Weeks not present in answers are left
// unchanged.
func (s *Service) UpdateProgress(ctx context.Context, sessionID string, answers []WeekAnswer) (*session.State, error) {
	st, err := s.store.Update(ctx, sessionID, func(st *session.State) error {
		for _, a := range answers {
			if err := st.Progress.Set(a.Week, a.WorkoutDone, a.DietDone); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Int("completed_weeks", st.Progress.CompletedCount()).
		Msg("Progress updated")
	return st, nil
}

// GenerateFollowUp asks the follow-up model for the next 12 weeks. It needs a stored
// plan and every week Completed.
func (s *Service) GenerateFollowUp(ctx context.Context, sessionID, adjustments string) (*session.State, error) {
	logger := zerolog.Ctx(ctx)

	st, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !st.Progress.AllCompleted() {
		return nil, fmt.Errorf("%d of %d weeks completed: %w", st.Progress.CompletedCount(), progress.Weeks, ErrProgressIncomplete)
	}
	if !st.HasPlan() {
		return nil, ErrNoPlan
	}

	basePlan := st.Plan
	userPrompt := prompt.FollowUpPrompt(basePlan, adjustments)

	out, _, err := s.share(ctx, callKey("followup", sessionID, userPrompt), func(callCtx context.Context) (*session.State, error) {
		logger.Info().Str("model", s.followUp.Name()).Msg("Sending follow-up prompt to model...")

		text, err := s.followUp.Generate(callCtx, prompt.FollowUpSystemPrompt, userPrompt)
		if err != nil {
			return nil, fmt.Errorf("follow-up generation failed: %w", err)
		}

		st, err := s.store.Update(callCtx, sessionID, func(cur *session.State) error {
			// The plan may have been regenerated while the model was busy.
			if cur.Plan != basePlan {
				return ErrPlanChanged
			}
			cur.FollowUpPlan = text
			cur.FollowUpModel = s.followUp.Name()
			cur.FollowUpAdjustments = adjustments
			cur.FollowUpAt = s.now()
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.notify(sessionID)
		return st, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// share runs fn once per key among concurrent callers. fn gets a context that
// outlives any single caller, bounded by callTimeout, so one caller leaving does not
// fail the others. A caller whose ctx ends stops waiting; the call still completes
// and its result is stored.
func (s *Service) share(ctx context.Context, key string, fn func(context.Context) (*session.State, error)) (*session.State, bool, error) {
	ch := s.calls.DoChan(key, func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.callTimeout)
		defer cancel()
		return fn(callCtx)
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Shared, res.Err
		}
		return res.Val.(*session.State).Clone(), res.Shared, nil
	}
}

// callKey identifies one model request: the action, the session and the exact prompt.
func callKey(action, sessionID, userPrompt string) string {
	sum := sha256.Sum256([]byte(userPrompt))
	return action + ":" + sessionID + ":" + hex.EncodeToString(sum[:])
}

func (s *Service) notify(sessionID string) {
	if s.notifier != nil {
		s.notifier.TriggerRefresh(sessionID)
	}
}
