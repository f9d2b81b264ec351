// Package timer tracks the wall-clock time spent on a habit session across
// start, pause and stop transitions. Durations are fractional minutes; rounding
// is left to whoever presents them.
package timer

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type (
	Mode  string
	State struct {
		Mode               Mode       `json:"mode"`
		StartedAt          *time.Time `json:"started_at,omitempty"`
		AccumulatedMinutes float64    `json:"accumulated_minutes"`
	}
)

const (
	ModeIdle    Mode = "idle"
	ModeRunning Mode = "running"
	ModePaused  Mode = "paused"
)

var ErrInvalidTransition = errors.New("invalid timer transition")

// TransitionError reports an operation that is illegal for the current mode.
type TransitionError struct {
	Action string
	Mode   Mode
}

func (e *TransitionError) Error() string {
	switch {
	case e.Action == "start" && e.Mode == ModeRunning:
		return "timer is already running"
	case e.Action == "stop" && e.Mode == ModeIdle:
		return "timer is not running"
	case e.Action == "pause":
		return "timer is not running"
	default:
		return fmt.Sprintf("cannot %s timer while %s", e.Action, e.Mode)
	}
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func NewState() State {
	return State{Mode: ModeIdle}
}

func (s State) mode() Mode {
	if s.Mode == "" {
		return ModeIdle
	}
	return s.Mode
}

// Start begins or resumes a session. Banked minutes from earlier segments are kept.
func Start(s *State, now time.Time) error {
	if s.mode() == ModeRunning {
		return &TransitionError{Action: "start", Mode: ModeRunning}
	}

	startedAt := now
	s.Mode = ModeRunning
	s.StartedAt = &startedAt
	return nil
}

func Pause(s *State, now time.Time) error {
	if s.mode() != ModeRunning || s.StartedAt == nil {
		return &TransitionError{Action: "pause", Mode: s.mode()}
	}

	s.AccumulatedMinutes += MinutesBetween(*s.StartedAt, now)
	s.Mode = ModePaused
	s.StartedAt = nil
	return nil
}

// Stop ends the session and returns its total length in minutes. The state is
// reset to idle so the next Start opens a fresh session.
func Stop(s *State, now time.Time) (float64, error) {
	mode := s.mode()
	if mode == ModeIdle {
		return 0, &TransitionError{Action: "stop", Mode: ModeIdle}
	}

	total := s.AccumulatedMinutes
	if mode == ModeRunning && s.StartedAt != nil {
		total += MinutesBetween(*s.StartedAt, now)
	}

	*s = NewState()
	return total, nil
}

// MinutesBetween clamps negative deltas (clock skew) to zero.
func MinutesBetween(a, b time.Time) float64 {
	d := b.Sub(a)
	if d <= 0 {
		return 0
	}
	return d.Minutes()
}

func CurrentElapsed(s State, now time.Time) float64 {
	elapsed := s.AccumulatedMinutes
	if s.mode() == ModeRunning && s.StartedAt != nil {
		elapsed += MinutesBetween(*s.StartedAt, now)
	}
	return elapsed
}

// Round rounds minutes to two decimals for display.
func Round(minutes float64) float64 {
	return math.Round(minutes*100) / 100
}
