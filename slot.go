package musicgen

import (
	"fmt"

	"github.com/unixpickle/anyvec"
)

// A Slot is a placeholder for one timestep worth of data.
// Slots are created when a Model is built and are bound
// to concrete vectors through a Feed.
//
// A bound vector is a packed batch: Rows rows of Cols
// components each, one row per sequence.
type Slot struct {
	// Name identifies the slot in error messages.
	Name string

	// Rows and Cols describe the shape bound vectors are
	// expected to have.
	Rows int
	Cols int
}

// A Feed maps slots to the vectors that should fill them
// for one run of an operation.
//
// Binding never validates anything; missing or mis-sized
// bindings surface when an operation using the Feed is
// executed.
type Feed map[*Slot]anyvec.Vector

// boundVectors extracts the bound vector for each slot,
// checking presence and length the way the engine would
// at execution time.
func boundVectors(f Feed, slots []*Slot) ([]anyvec.Vector, error) {
	res := make([]anyvec.Vector, len(slots))
	for i, s := range slots {
		vec, ok := f[s]
		if !ok || vec == nil {
			return nil, fmt.Errorf("slot %s is not bound", s.Name)
		}
		if vec.Len() != s.Rows*s.Cols {
			return nil, fmt.Errorf("slot %s: bound vector has %d components, expected %d",
				s.Name, vec.Len(), s.Rows*s.Cols)
		}
		res[i] = vec
	}
	return res, nil
}
