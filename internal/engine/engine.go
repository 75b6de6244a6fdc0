package engine

import (
	"errors"
	"maps"
	"slices"
)

var ErrInvalidName = errors.New("name is required")
var ErrPoolExhausted = errors.New("hero pool exhausted")

// State is the persisted assignment record.
type State struct {
	Order       []string          `json:"order"`
	Assignments map[string]string `json:"assignments"`
}

// Allocation is the outcome of a registration attempt.
type Allocation struct {
	Name            string // trimmed, as entered
	Key             string // normalized
	Hero            string
	AlreadyAssigned bool
}

type Status struct {
	Total       int               `json:"total"`
	Assigned    int               `json:"assigned"`
	Remaining   int               `json:"remaining"`
	Assignments map[string]string `json:"assignments"`
}

// Allocate hands out the first hero in s.Order that nobody holds yet.
// A name that already holds a hero gets that hero back and the state is
// returned unchanged.
func Allocate(s State, name string) (Allocation, State, error) {
	display, key := SplitName(name)
	if key == "" {
		return Allocation{}, s, ErrInvalidName
	}

	if hero, ok := s.Assignments[key]; ok {
		return Allocation{Name: display, Key: key, Hero: hero, AlreadyAssigned: true}, s, nil
	}

	hero, ok := firstAvailable(s)
	if !ok {
		return Allocation{}, s, ErrPoolExhausted
	}

	// Copy before writing so the caller's map is never mutated.
	newState := State{
		Order:       slices.Clone(s.Order),
		Assignments: make(map[string]string, len(s.Assignments)+1),
	}
	maps.Copy(newState.Assignments, s.Assignments)
	newState.Assignments[key] = hero

	return Allocation{Name: display, Key: key, Hero: hero}, newState, nil
}

func firstAvailable(s State) (string, bool) {
	taken := make(map[string]bool, len(s.Assignments))
	for _, hero := range s.Assignments {
		taken[hero] = true
	}
	for _, hero := range s.Order {
		if !taken[hero] {
			return hero, true
		}
	}
	return "", false
}

// StatusOf summarizes s against the full pool. The returned map is a copy.
func StatusOf(s State) Status {
	total := len(HeroPool)
	assignments := make(map[string]string, len(s.Assignments))
	maps.Copy(assignments, s.Assignments)
	return Status{
		Total:       total,
		Assigned:    len(assignments),
		Remaining:   total - len(assignments),
		Assignments: assignments,
	}
}
