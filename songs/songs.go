// Package songs models polyphonic music as notes on a
// fixed time grid and converts between note lists and
// piano rolls.
package songs

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/unixpickle/essentials"
)

const (
	// MinNote and MaxNote are the MIDI note numbers at
	// the edges of a standard 88 key piano.
	MinNote = 21
	MaxNote = 108

	// NoteCount is the number of pitches in a roll frame.
	NoteCount = MaxNote - MinNote + 1
)

// A Note is one key press quantized to the time grid.
type Note struct {
	// Pitch is the MIDI note number.
	Pitch int `json:"pitch"`

	// Start is the frame at which the note begins.
	Start int `json:"start"`

	// Duration is the number of frames the note is held.
	Duration int `json:"duration"`
}

// A Song is a named collection of notes.
type Song struct {
	Name  string `json:"name"`
	Notes []Note `json:"notes"`
}

// ReadSong reads a JSON-encoded song from a file.
func ReadSong(path string) (*Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var song Song
	if err := json.Unmarshal(data, &song); err != nil {
		return nil, err
	}
	return &song, nil
}

// WriteFile writes the song to a file as JSON.
func (s *Song) WriteFile(path string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Frames returns the number of frames the song spans.
func (s *Song) Frames() int {
	var max int
	for _, n := range s.Notes {
		max = essentials.MaxInt(max, n.Start+n.Duration)
	}
	return max
}

// Roll renders the song as a piano roll: one frame per
// timestep, one cell per pitch, 1 where the pitch sounds
// and 0 elsewhere.
// Notes outside the piano range are dropped.
func (s *Song) Roll() [][]float64 {
	roll := make([][]float64, s.Frames())
	for i := range roll {
		roll[i] = make([]float64, NoteCount)
	}
	for _, n := range s.Notes {
		if n.Pitch < MinNote || n.Pitch > MaxNote {
			continue
		}
		for f := n.Start; f < n.Start+n.Duration; f++ {
			if f >= 0 && f < len(roll) {
				roll[f][n.Pitch-MinNote] = 1
			}
		}
	}
	return roll
}

// FromRoll reconstructs a song from a piano roll, merging
// each run of consecutive active frames into one note.
// A cell is active when it exceeds 0.5.
func FromRoll(name string, roll [][]float64) *Song {
	song := &Song{Name: name}
	for pitch := 0; pitch < NoteCount; pitch++ {
		start := -1
		for f := 0; f <= len(roll); f++ {
			active := f < len(roll) && pitch < len(roll[f]) && roll[f][pitch] > 0.5
			if active && start < 0 {
				start = f
			} else if !active && start >= 0 {
				song.Notes = append(song.Notes, Note{
					Pitch:    pitch + MinNote,
					Start:    start,
					Duration: f - start,
				})
				start = -1
			}
		}
	}
	sort.Slice(song.Notes, func(i, j int) bool {
		n1, n2 := song.Notes[i], song.Notes[j]
		if n1.Start != n2.Start {
			return n1.Start < n2.Start
		}
		return n1.Pitch < n2.Pitch
	})
	return song
}
