// Package selection implements the two-phase stay date picker: pick a start, then an end.
package selection

import (
	"sync"

	"vilo/internal/stay"
)

// State represents the current phase of a selection.
type State string

const (
	StateEmpty       State = "empty"
	StateAwaitingEnd State = "awaiting_end"
	StateComplete    State = "complete"
)

// Outcome describes what a click did.
type Outcome string

const (
	OutcomeStarted            Outcome = "started"
	OutcomeRestarted          Outcome = "restarted"
	OutcomeCrossedUnavailable Outcome = "crossed_unavailable"
	OutcomeTooShort           Outcome = "too_short"
	OutcomeTooLong            Outcome = "too_long"
	OutcomeCompleted          Outcome = "completed"
	OutcomeIgnoredPast        Outcome = "ignored_past"
	OutcomeIgnoredUnavailable Outcome = "ignored_unavailable"
)

// Advanced reports whether the outcome changed the selection.
func (o Outcome) Advanced() bool {
	switch o {
	case OutcomeTooShort, OutcomeTooLong, OutcomeIgnoredPast, OutcomeIgnoredUnavailable:
		return false
	}
	return true
}

// Rules bound the length of a stay. MaxStayNights <= 0 means unlimited.
type Rules struct {
	MinStayNights int `json:"min_stay_nights"`
	MaxStayNights int `json:"max_stay_nights"`
}

func (r Rules) minNights() int {
	if r.MinStayNights < 1 {
		return 1
	}
	return r.MinStayNights
}

var transitions = map[State][]State{
	StateEmpty:       {StateAwaitingEnd},
	StateAwaitingEnd: {StateAwaitingEnd, StateComplete, StateEmpty},
	StateComplete:    {StateAwaitingEnd, StateEmpty},
}

// CanTransition checks if a transition is allowed.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Selector holds one in-progress date selection. It is safe for concurrent use.
type Selector struct {
	mu    sync.Mutex
	state State
	rng   stay.StayRange
	rules Rules
}

// New creates an empty selector.
func New(rules Rules) *Selector {
	return &Selector{state: StateEmpty, rules: rules}
}

// State returns the current state.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Range returns the current selection.
func (s *Selector) Range() stay.StayRange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// Rules returns the stay-length rules the selector enforces.
func (s *Selector) Rules() Rules {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rules
}

// SetRules replaces the stay-length rules; the current selection is kept.
func (s *Selector) SetRules(rules Rules) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = rules
}

// Reset clears the selection.
func (s *Selector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setState(StateEmpty)
	s.rng = stay.StayRange{}
}

// Click applies a day click. Invalid clicks never raise errors: they leave the
// selection unchanged or restart it, and the outcome tells the caller which.
func (s *Selector) Click(d, today stay.Date, unavailable stay.DateSet) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !today.IsZero() && d.Before(today) {
		return OutcomeIgnoredPast
	}
	if unavailable.Has(d) {
		return OutcomeIgnoredUnavailable
	}

	switch s.state {
	case StateEmpty:
		s.begin(d)
		return OutcomeStarted
	case StateComplete:
		s.begin(d)
		return OutcomeRestarted
	}

	start := s.rng.Start
	if !d.After(start) {
		s.begin(d)
		return OutcomeRestarted
	}
	if unavailable.AnyBetween(start, d) {
		s.begin(d)
		return OutcomeCrossedUnavailable
	}

	nights := start.DaysUntil(d)
	if nights < s.rules.minNights() {
		return OutcomeTooShort
	}
	if s.rules.MaxStayNights > 0 && nights > s.rules.MaxStayNights {
		return OutcomeTooLong
	}

	s.rng.End = d
	s.setState(StateComplete)
	return OutcomeCompleted
}

func (s *Selector) begin(d stay.Date) {
	s.rng = stay.StayRange{Start: d}
	s.setState(StateAwaitingEnd)
}

func (s *Selector) setState(to State) {
	if s.state == to || CanTransition(s.state, to) {
		s.state = to
	}
}
