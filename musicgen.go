// Package musicgen implements a recurrent sequence model
// for polyphonic music.
// A model unrolls a fixed number of timesteps over note
// vectors, either teacher-forced for training or fed by
// its own predictions for generation, and exposes the
// resulting computation as an operation handle plus a
// binding map, leaving execution to the caller.
package musicgen

import "fmt"

// A Mode selects which computation a Model builds at
// construction time.
type Mode int

const (
	// Train unrolls a teacher-forced decoder and attaches
	// an optimizer update.
	Train Mode = iota

	// Generate unrolls an autoregressive decoder which
	// consumes a single seed frame and feeds each
	// projected output back in as the next input.
	Generate
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case Train:
		return "train"
	case Generate:
		return "generate"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Config holds the structural hyperparameters of a Model.
//
// Every field must be positive.
type Config struct {
	// SampleLength is the number of timesteps the model
	// unrolls at construction time.
	SampleLength int `json:"sample_length"`

	// BatchSize is the number of sequences a training
	// step processes at once.
	// Generation always runs a single sequence.
	BatchSize int `json:"batch_size"`

	// NoteCount is the number of components in a note
	// vector.
	NoteCount int `json:"note_count"`

	// HiddenSize is the state size of each recurrent
	// layer.
	HiddenSize int `json:"hidden_size"`

	// NumLayers is the number of stacked recurrent
	// layers.
	NumLayers int `json:"num_layers"`

	// LearningRate is the optimizer step size used in
	// Train mode.
	LearningRate float64 `json:"learning_rate"`
}

// DefaultConfig returns the hyperparameters of the stock
// piano roll model.
// The note count covers the 88 keys of a standard piano.
func DefaultConfig() Config {
	return Config{
		SampleLength: 40,
		BatchSize:    64,
		NoteCount:    88,
		HiddenSize:   512,
		NumLayers:    2,
		LearningRate: 0.001,
	}
}

// Validate checks that every field is positive.
// The first offending field in declaration order is the
// one reported.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		val  float64
	}{
		{"sample length", float64(c.SampleLength)},
		{"batch size", float64(c.BatchSize)},
		{"note count", float64(c.NoteCount)},
		{"hidden size", float64(c.HiddenSize)},
		{"layer count", float64(c.NumLayers)},
		{"learning rate", c.LearningRate},
	}
	for _, check := range checks {
		if check.val <= 0 {
			return fmt.Errorf("%s must be positive, got %v", check.name, check.val)
		}
	}
	return nil
}
