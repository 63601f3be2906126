// Package dice implements the dice-rolling logic for the session engine.
//
// Every roll draws die faces from a Source, so callers control determinism:
// live sessions seed a Source from crypto entropy, while tests inject
// scripted sources and assert exact outcomes.
package dice

import (
	"errors"
	"math/rand"
)

// Source yields uniformly distributed die faces.
type Source interface {
	// Roll returns a value in [1, sides]. Sides is always positive.
	Roll(sides int) int
}

// NewSource returns a pseudo-random Source seeded with the provided seed.
// Two sources built from the same seed produce identical face sequences.
func NewSource(seed int64) Source {
	return &rngSource{rng: rand.New(rand.NewSource(seed))}
}

type rngSource struct {
	rng *rand.Rand
}

func (s *rngSource) Roll(sides int) int {
	return s.rng.Intn(sides) + 1
}

// ErrMissingDice indicates a roll request had no dice specified.
var ErrMissingDice = errors.New("at least one die must be provided")

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Spec describes a die to roll and how many times to roll it.
type Spec struct {
	Sides int
	Count int
}

// Roll captures the results for a single dice spec.
type Roll struct {
	Sides   int
	Results []int
	Total   int
}

// Result captures the results from rolling multiple dice.
type Result struct {
	Rolls []Roll
	Total int
}

// RollWithSource rolls the provided specs in slice order against src.
//
// The resulting Roll entries appear in the same order as the corresponding
// Spec entries. Each Roll.Total is the sum of its Results and Result.Total
// is the sum of every die rolled across the entire request.
//
//   - At least one Spec must be provided, otherwise ErrMissingDice is
//     returned.
//   - Each Spec must have Sides > 0 and Count > 0, otherwise
//     ErrInvalidDiceSpec is returned.
func RollWithSource(src Source, specs []Spec) (Result, error) {
	if len(specs) == 0 {
		return Result{}, ErrMissingDice
	}

	rolls := make([]Roll, 0, len(specs))
	total := 0

	for _, spec := range specs {
		if spec.Sides <= 0 || spec.Count <= 0 {
			return Result{}, ErrInvalidDiceSpec
		}

		results := make([]int, spec.Count)
		rollTotal := 0
		for i := 0; i < spec.Count; i++ {
			value := src.Roll(spec.Sides)
			results[i] = value
			rollTotal += value
		}

		rolls = append(rolls, Roll{
			Sides:   spec.Sides,
			Results: results,
			Total:   rollTotal,
		})
		total += rollTotal
	}

	return Result{
		Rolls: rolls,
		Total: total,
	}, nil
}
