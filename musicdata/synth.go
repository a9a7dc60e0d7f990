package musicdata

import (
	"fmt"
	"math/rand"

	"github.com/ChakChak1234/MusicGenerator/songs"
)

// Scale interval patterns, in semitones from the root.
var (
	majorScale = []int{0, 2, 4, 5, 7, 9, 11}
	minorScale = []int{0, 2, 3, 5, 7, 8, 10}
	bluesScale = []int{0, 3, 5, 6, 7, 10}
)

// SyntheticCorpus builds simple deterministic songs that
// walk a scale up and down over sustained root chords.
// It stands in for a real corpus in tests and demos.
func SyntheticCorpus(count, frames int, seed int64) []*songs.Song {
	gen := rand.New(rand.NewSource(seed))
	scales := [][]int{majorScale, minorScale, bluesScale}

	var res []*songs.Song
	for i := 0; i < count; i++ {
		scale := scales[gen.Intn(len(scales))]
		root := 48 + gen.Intn(25)
		song := &songs.Song{Name: fmt.Sprintf("synthetic%d", i)}

		pos, dir := 0, 1
		for f := 0; f < frames; f++ {
			octave, idx := pos/len(scale), pos%len(scale)
			song.Notes = append(song.Notes, songs.Note{
				Pitch:    root + 12*octave + scale[idx],
				Start:    f,
				Duration: 1,
			})
			if pos+dir > 2*len(scale) || pos+dir < 0 {
				dir = -dir
			}
			pos += dir

			if f%8 == 0 {
				song.Notes = append(song.Notes,
					songs.Note{Pitch: root - 12, Start: f, Duration: 8},
					songs.Note{Pitch: root - 5, Start: f, Duration: 8})
			}
		}
		res = append(res, song)
	}
	return res
}
