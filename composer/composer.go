// Package composer turns a trained model into whole
// pieces: it chains fixed-length decoder runs, thresholds
// the resulting activations into roll frames and
// assembles the frames into a song.
package composer

import (
	"fmt"
	"math"

	musicgen "github.com/ChakChak1234/MusicGenerator"
	"github.com/ChakChak1234/MusicGenerator/musicdata"
	"github.com/ChakChak1234/MusicGenerator/songs"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Composer generates complete pieces with a trained
// model.
type Composer struct {
	// Model provides the parameters. It is switched into
	// generation mode internally, so a freshly loaded
	// training checkpoint works as-is.
	Model *musicgen.Model

	// Threshold is the note probability above which a
	// cell counts as playing. Zero means 0.5.
	Threshold float64
}

// Compose generates a song with the given name.
// See ComposeRoll for the seed and frames arguments.
func (c *Composer) Compose(name string, seed []float64,
	frames int) (*songs.Song, error) {
	roll, err := c.ComposeRoll(seed, frames)
	if err != nil {
		return nil, err
	}
	return songs.FromRoll(name, roll), nil
}

// ComposeRoll generates a piano roll with the given
// number of frames.
//
// The seed is the frame the piece starts from, with one
// cell per note. A nil seed means a silent frame.
//
// The decoder runs in chunks of the model's sample
// length, carrying the recurrent state from one chunk to
// the next; surplus frames from the last chunk are
// dropped.
func (c *Composer) ComposeRoll(seed []float64, frames int) (roll [][]float64,
	err error) {
	defer essentials.AddCtxTo("compose piece", &err)

	if frames < 1 {
		return nil, fmt.Errorf("frame count %d is not positive", frames)
	}
	if c.Threshold < 0 || c.Threshold >= 1 {
		return nil, fmt.Errorf("threshold %v is outside [0, 1)", c.Threshold)
	}

	m := c.Model.InMode(musicgen.Generate)
	if seed == nil {
		seed = make([]float64, m.Config.NoteCount)
	}
	batch, err := musicdata.SeedBatch(m.Creator(), m.Config, seed)
	if err != nil {
		return nil, err
	}

	var state anyrnn.State
	for len(roll) < frames {
		handles, feed := m.Step(batch)
		gen, err := handles.Outputs.RunFrom(feed, state)
		if err != nil {
			return nil, err
		}
		state = gen.FinalState
		for _, out := range gen.Outputs {
			roll = append(roll, c.frame(out))
		}
		last := gen.Outputs[len(gen.Outputs)-1]
		batch = &musicgen.Batch{
			Inputs: []anyvec.Vector{musicgen.NextInput(last)},
		}
	}
	return roll[:frames], nil
}

// frame thresholds one activation vector into roll cells.
func (c *Composer) frame(activations anyvec.Vector) []float64 {
	cutoff := c.logitCutoff()
	frame := make([]float64, activations.Len())
	for i, v := range vectorData(activations) {
		if v > cutoff {
			frame[i] = 1
		}
	}
	return frame
}

// logitCutoff translates the probability threshold into
// the pre-sigmoid space the decoder outputs live in.
func (c *Composer) logitCutoff() float64 {
	th := c.Threshold
	if th == 0 {
		th = 0.5
	}
	return math.Log(th / (1 - th))
}

func vectorData(v anyvec.Vector) []float64 {
	switch data := v.Data().(type) {
	case []float64:
		return data
	case []float32:
		res := make([]float64, len(data))
		for i, x := range data {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", data))
	}
}
