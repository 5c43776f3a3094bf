// Package progress tracks the user's week-by-week completion of a 12-week plan.
package progress

import (
	"errors"
	"fmt"
)

const Weeks = 12

type Status string

const (
	Completed    Status = "Completed"
	NotCompleted Status = "Not Completed"
)

var ErrInvalidWeek = errors.New("week must be between 1 and 12")

// Week holds the two answers the Track tab asks for one week.
type Week struct {
	Number      int  `json:"number"`
	WorkoutDone bool `json:"workout_done"`
	DietDone    bool `json:"diet_done"`
}

// Status is Completed only when both the workout and the diet were completed.
func (w Week) Status() Status {
	if w.WorkoutDone && w.DietDone {
		return Completed
	}
	return NotCompleted
}

// WeeklyProgress maps week number (1-12) to the user's answers.
// The zero value is not usable; call New.
type WeeklyProgress struct {
	Weeks map[int]Week `json:"weeks"`
}

// New returns progress with every week Not Completed.
func New() *WeeklyProgress {
	p := &WeeklyProgress{Weeks: make(map[int]Week, Weeks)}
	for n := 1; n <= Weeks; n++ {
		p.Weeks[n] = Week{Number: n}
	}
	return p
}

// Set records the answers for one week.
func (p *WeeklyProgress) Set(week int, workoutDone, dietDone bool) error {
	if week < 1 || week > Weeks {
		return fmt.Errorf("week %d: %w", week, ErrInvalidWeek)
	}
	p.ensure()
	p.Weeks[week] = Week{Number: week, WorkoutDone: workoutDone, DietDone: dietDone}
	return nil
}

// Status returns the derived status of one week.
func (p *WeeklyProgress) Status(week int) (Status, error) {
	if week < 1 || week > Weeks {
		return "", fmt.Errorf("week %d: %w", week, ErrInvalidWeek)
	}
	p.ensure()
	return p.Weeks[week].Status(), nil
}

// Ordered returns weeks 1 through 12 in order.
func (p *WeeklyProgress) Ordered() []Week {
	p.ensure()
	out := make([]Week, 0, Weeks)
	for n := 1; n <= Weeks; n++ {
		out = append(out, p.Weeks[n])
	}
	return out
}

func (p *WeeklyProgress) CompletedCount() int {
	p.ensure()
	count := 0
	for n := 1; n <= Weeks; n++ {
		if p.Weeks[n].Status() == Completed {
			count++
		}
	}
	return count
}

// AllCompleted gates the follow-up plan.
func (p *WeeklyProgress) AllCompleted() bool {
	return p.CompletedCount() == Weeks
}

// ensure fills missing weeks, e.g. after decoding a partial JSON document.
func (p *WeeklyProgress) ensure() {
	if p.Weeks == nil {
		p.Weeks = make(map[int]Week, Weeks)
	}
	for n := 1; n <= Weeks; n++ {
		if _, ok := p.Weeks[n]; !ok {
			p.Weeks[n] = Week{Number: n}
		}
	}
}
