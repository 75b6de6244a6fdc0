package engine

import (
	"math/rand/v2"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Shuffler is the random source used to build an allocation order.
// *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultShuffler uses the process-wide math/rand/v2 source.
var DefaultShuffler Shuffler = globalShuffler{}

// NewState returns an empty record using a fresh permutation of the pool.
func NewState(sh Shuffler) State {
	return State{Order: Shuffle(sh), Assignments: map[string]string{}}
}

// Shuffle returns a new random permutation of HeroPool.
func Shuffle(sh Shuffler) []string {
	if sh == nil {
		sh = DefaultShuffler
	}
	order := Pool()
	sh.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	return order
}

// NormalizeName returns the lookup key for a registrant name.
func NormalizeName(name string) string {
	_, key := SplitName(name)
	return key
}

// SplitName returns the trimmed display form of name and its lookup key.
// Casers are not safe for concurrent use, so one is built per call.
func SplitName(name string) (display, key string) {
	display = strings.TrimSpace(name)
	key = cases.Lower(language.Und).String(norm.NFC.String(display))
	return display, key
}

// IsPermutation reports whether order holds every pool hero exactly once.
func IsPermutation(order []string) bool {
	if len(order) != len(HeroPool) {
		return false
	}
	sorted := slices.Clone(order)
	slices.Sort(sorted)
	want := Pool()
	slices.Sort(want)
	return slices.Equal(sorted, want)
}

// Repair makes s usable for allocation. A missing or malformed order is
// replaced with a fresh shuffle. Assignments pointing outside the pool, or at
// a hero another key already holds, are dropped. The boolean reports whether
// anything changed.
func Repair(s State, sh Shuffler) (State, bool) {
	changed := false
	out := State{Order: s.Order, Assignments: make(map[string]string, len(s.Assignments))}

	if !IsPermutation(s.Order) {
		out.Order = Shuffle(sh)
		changed = true
	}
	if s.Assignments == nil {
		changed = true
	}

	// Sorted keys keep the surviving entry deterministic on duplicates.
	keys := make([]string, 0, len(s.Assignments))
	for k := range s.Assignments {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	held := make(map[string]bool, len(keys))
	for _, k := range keys {
		hero := s.Assignments[k]
		if k == "" || !inPool(hero) || held[hero] {
			changed = true
			continue
		}
		held[hero] = true
		out.Assignments[k] = hero
	}
	return out, changed
}
