package server

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"fitplan/internal/llm"
	"fitplan/internal/planner"
	"fitplan/internal/profile"
	"fitplan/internal/progress"
	"fitplan/internal/session"
	"github.com/labstack/echo/v4"
)

const (
	msgPlanReady        = "Please see your plan in the Plan tab."
	msgFollowUpReady    = "Your plan for the next 12 weeks is ready."
	msgProgressSaved    = "Progress saved."
	msgModelDown        = "AI service temporarily unavailable. Please try again later."
	msgNotConfigured    = "The server is not configured for AI plans. Please contact the administrator."
	msgStateUnavailable = "Your session could not be loaded. Please try again."
)

// pageData is what every tab template receives.
type pageData struct {
	Title  string
	Tab    string
	Error  string
	Notice string

	State *session.State

	// Generate tab
	Profile       profile.Profile
	Errors        map[string]string
	Genders       []string
	FitnessLevels []string
	StressLevels  []string

	// Plan and Track tabs
	PlanHTML     template.HTML
	FollowUpHTML template.HTML
	Weeks        []progress.Week
	Completed    int
	AllCompleted bool
}

func (s *Server) newPage(tab, title string, st *session.State) *pageData {
	if st == nil {
		st = session.NewState()
	}
	return &pageData{
		Title:         title,
		Tab:           tab,
		State:         st,
		Profile:       profile.Default(),
		Genders:       profile.Genders,
		FitnessLevels: profile.FitnessLevels,
		StressLevels:  profile.StressLevels,
	}
}

// loadState reads the session state, logging and returning a 500 on store failure.
func (s *Server) loadState(c echo.Context) (*session.State, error) {
	st, err := s.plans.State(c.Request().Context(), getSessionID(c))
	if err != nil {
		getLogger(c).Error().Err(err).Msg("Failed to load session state")
		return nil, echo.NewHTTPError(http.StatusInternalServerError, msgStateUnavailable)
	}
	return st, nil
}

// --- Generate tab ---

func (s *Server) generateTabHandler(c echo.Context) error {
	st, err := s.loadState(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "generate.html", s.newPage("generate", "Generate", st))
}

func (s *Server) generatePlanHandler(c echo.Context) error {
	logger := getLogger(c)
	ctx := c.Request().Context()

	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form submission")
	}

	page := s.newPage("generate", "Generate", nil)

	p, err := profile.FromForm(form)
	page.Profile = p

	if err == nil {
		var st *session.State
		st, err = s.plans.GeneratePlan(ctx, getSessionID(c), p)
		if err == nil {
			page.State = st
			page.Notice = msgPlanReady
			return c.Render(http.StatusOK, "generate.html", page)
		}
	}

	status, msg := s.classifyError(err)
	var verr *profile.ValidationError
	if errors.As(err, &verr) {
		page.Errors = verr.Fields
		msg = "Please correct the highlighted fields."
	} else {
		logger.Error().Err(err).Msg("Plan generation failed")
	}
	page.Error = msg

	if st, stErr := s.plans.State(ctx, getSessionID(c)); stErr == nil {
		page.State = st
	}
	return c.Render(status, "generate.html", page)
}

// --- Plan tab ---

func (s *Server) planTabHandler(c echo.Context) error {
	st, err := s.loadState(c)
	if err != nil {
		return err
	}

	page := s.newPage("plan", "Plan", st)
	if st.HasPlan() {
		page.PlanHTML = s.markdown.HTMLOrText(st.Plan)
	}
	return c.Render(http.StatusOK, "plan.html", page)
}

// --- Track tab ---

func (s *Server) trackTabHandler(c echo.Context) error {
	st, err := s.loadState(c)
	if err != nil {
		return err
	}
	page := s.trackPage(st)
	if c.QueryParam("saved") == "1" {
		page.Notice = msgProgressSaved
	}
	return c.Render(http.StatusOK, "track.html", page)
}

func (s *Server) trackPage(st *session.State) *pageData {
	page := s.newPage("track", "Track", st)
	page.Weeks = st.Progress.Ordered()
	page.Completed = st.Progress.CompletedCount()
	page.AllCompleted = st.Progress.AllCompleted()
	if st.FollowUpPlan != "" {
		page.FollowUpHTML = s.markdown.HTMLOrText(st.FollowUpPlan)
	}
	return page
}

// updateProgressHandler saves the checklist and redirects back to the Track tab.
// Weeks missing from the form keep their stored answers.
func (s *Server) updateProgressHandler(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form submission")
	}

	answers, err := parseWeekAnswers(form.Get)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if _, err := s.plans.UpdateProgress(c.Request().Context(), getSessionID(c), answers); err != nil {
		if errors.Is(err, progress.ErrInvalidWeek) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		getLogger(c).Error().Err(err).Msg("Failed to update progress")
		return echo.NewHTTPError(http.StatusInternalServerError, msgStateUnavailable)
	}
	return c.Redirect(http.StatusSeeOther, "/track?saved=1")
}

// parseWeekAnswers reads workout_N and diet_N radios. A week is included when at
// least one of its two questions was answered; an unanswered question counts as No.
func parseWeekAnswers(get func(string) string) ([]planner.WeekAnswer, error) {
	answers := make([]planner.WeekAnswer, 0, progress.Weeks)
	for w := 1; w <= progress.Weeks; w++ {
		n := strconv.Itoa(w)
		workout, workoutSet, err := parseYesNo(get("workout_" + n))
		if err != nil {
			return nil, fmt.Errorf("workout_%s: %w", n, err)
		}
		diet, dietSet, err := parseYesNo(get("diet_" + n))
		if err != nil {
			return nil, fmt.Errorf("diet_%s: %w", n, err)
		}
		if !workoutSet && !dietSet {
			continue
		}
		answers = append(answers, planner.WeekAnswer{Week: w, WorkoutDone: workout, DietDone: diet})
	}
	return answers, nil
}

func parseYesNo(v string) (value bool, set bool, err error) {
	switch v {
	case "":
		return false, false, nil
	case "Yes":
		return true, true, nil
	case "No":
		return false, true, nil
	default:
		return false, false, fmt.Errorf("expected Yes or No, got %q", v)
	}
}

func (s *Server) generateFollowUpHandler(c echo.Context) error {
	ctx := c.Request().Context()
	adjustments := c.FormValue("adjustments")

	st, err := s.plans.GenerateFollowUp(ctx, getSessionID(c), adjustments)
	if err == nil {
		page := s.trackPage(st)
		page.Notice = msgFollowUpReady
		return c.Render(http.StatusOK, "track.html", page)
	}

	status, msg := s.classifyError(err)
	getLogger(c).Error().Err(err).Int("status", status).Msg("Follow-up generation failed")

	cur, stErr := s.plans.State(ctx, getSessionID(c))
	if stErr != nil {
		return echo.NewHTTPError(status, msg)
	}
	page := s.trackPage(cur)
	page.Error = msg
	// Keep what the user typed so it is not lost on a provider failure.
	page.State.FollowUpAdjustments = adjustments
	return c.Render(status, "track.html", page)
}

// --- WebSocket ---

func (s *Server) websocketHandler(c echo.Context) error {
	if err := s.hub.Serve(c.Response(), c.Request(), getSessionID(c)); err != nil {
		getLogger(c).Error().Err(err).Msg("WebSocket upgrade failed")
	}
	return nil
}

// classifyError maps service errors onto an HTTP status and a message safe to show.
func (s *Server) classifyError(err error) (int, string) {
	var verr *profile.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, planner.ErrNoPlan):
		return http.StatusConflict, "No plan generated yet. Please go to the Generate tab to create your plan."
	case errors.Is(err, planner.ErrProgressIncomplete):
		return http.StatusConflict, "Keep going! Complete all weeks to generate the plan for the next 12 weeks."
	case errors.Is(err, planner.ErrPlanChanged):
		return http.StatusConflict, "Your plan was regenerated in the meantime. Please try again."
	case errors.Is(err, llm.ErrNotConfigured):
		return http.StatusServiceUnavailable, msgNotConfigured
	default:
		return http.StatusBadGateway, msgModelDown
	}
}
