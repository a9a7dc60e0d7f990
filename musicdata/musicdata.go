// Package musicdata prepares piano roll corpora for the
// sequence model: it cuts songs into fixed-length
// windows, shuffles them, and packs them into batches.
package musicdata

import (
	"fmt"
	"os"
	"path/filepath"

	musicgen "github.com/ChakChak1234/MusicGenerator"
	"github.com/ChakChak1234/MusicGenerator/songs"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A Sample is one training window: a run of consecutive
// roll frames, one longer than the model's sample length
// so that every input frame has a next frame to predict.
type Sample struct {
	Frames [][]float64
}

// A SampleList is a shuffleable window collection
// compatible with anysgd.
type SampleList []Sample

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies out a sub-range of the list.
func (s SampleList) Slice(start, end int) anysgd.SampleList {
	return append(SampleList{}, s[start:end]...)
}

// Windows cuts each song's roll into windows of length+1
// frames, advancing by stride frames between windows.
// Songs shorter than one full window contribute nothing.
//
// Windows panics if length or stride is not positive.
func Windows(list []*songs.Song, length, stride int) SampleList {
	if length < 1 || stride < 1 {
		panic("window length and stride must be positive")
	}
	var res SampleList
	for _, song := range list {
		roll := song.Roll()
		for start := 0; start+length+1 <= len(roll); start += stride {
			res = append(res, Sample{Frames: roll[start : start+length+1]})
		}
	}
	return res
}

// MakeBatch packs samples into a training batch: input t
// holds frame t of every sample scaled to [-1, 1], and
// target t holds frame t+1 with its raw 0/1 values.
//
// The number of samples must equal the configured batch
// size, and every frame must match the configured note
// count.
func MakeBatch(c anyvec.Creator, conf musicgen.Config,
	samples SampleList) (*musicgen.Batch, error) {
	if samples.Len() != conf.BatchSize {
		return nil, fmt.Errorf("batch needs %d samples, got %d", conf.BatchSize,
			samples.Len())
	}
	for i, sample := range samples {
		if len(sample.Frames) != conf.SampleLength+1 {
			return nil, fmt.Errorf("sample %d has %d frames, expected %d", i,
				len(sample.Frames), conf.SampleLength+1)
		}
		for _, frame := range sample.Frames {
			if len(frame) != conf.NoteCount {
				return nil, fmt.Errorf("sample %d has a frame with %d cells, expected %d",
					i, len(frame), conf.NoteCount)
			}
		}
	}

	batch := &musicgen.Batch{}
	for t := 0; t < conf.SampleLength; t++ {
		inData := make([]float64, 0, conf.BatchSize*conf.NoteCount)
		targetData := make([]float64, 0, conf.BatchSize*conf.NoteCount)
		for _, sample := range samples {
			for _, cell := range sample.Frames[t] {
				inData = append(inData, 2*cell-1)
			}
			targetData = append(targetData, sample.Frames[t+1]...)
		}
		batch.Inputs = append(batch.Inputs,
			c.MakeVectorData(c.MakeNumericList(inData)))
		batch.Targets = append(batch.Targets,
			c.MakeVectorData(c.MakeNumericList(targetData)))
	}
	return batch, nil
}

// SeedBatch wraps a single roll frame for a generation
// step, scaled to the [-1, 1] input range.
func SeedBatch(c anyvec.Creator, conf musicgen.Config,
	frame []float64) (*musicgen.Batch, error) {
	if len(frame) != conf.NoteCount {
		return nil, fmt.Errorf("seed has %d cells, expected %d", len(frame),
			conf.NoteCount)
	}
	data := make([]float64, len(frame))
	for i, cell := range frame {
		data[i] = 2*cell - 1
	}
	return &musicgen.Batch{
		Inputs: []anyvec.Vector{c.MakeVectorData(c.MakeNumericList(data))},
	}, nil
}

// LoadDir reads every .json song directly under dir.
func LoadDir(dir string) (loaded []*songs.Song, err error) {
	defer essentials.AddCtxTo("load songs from "+dir, &err)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		song, err := songs.ReadSong(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, song)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no songs found")
	}
	return loaded, nil
}
