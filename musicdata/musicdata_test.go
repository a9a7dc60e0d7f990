package musicdata

import (
	"reflect"
	"testing"

	musicgen "github.com/ChakChak1234/MusicGenerator"
	"github.com/ChakChak1234/MusicGenerator/songs"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec/anyvec64"
)

func testConfig() musicgen.Config {
	return musicgen.Config{
		SampleLength: 3,
		BatchSize:    2,
		NoteCount:    songs.NoteCount,
		HiddenSize:   4,
		NumLayers:    1,
		LearningRate: 0.01,
	}
}

// scaleSong builds a song holding one rising pitch per
// frame, which makes window contents easy to predict.
func scaleSong(frames int) *songs.Song {
	song := &songs.Song{Name: "scale"}
	for f := 0; f < frames; f++ {
		song.Notes = append(song.Notes, songs.Note{
			Pitch:    songs.MinNote + f,
			Start:    f,
			Duration: 1,
		})
	}
	return song
}

func TestWindows(t *testing.T) {
	long := scaleSong(10)
	short := scaleSong(2)

	windows := Windows([]*songs.Song{long, short}, 3, 2)

	// Starts 0, 2, 4, 6 fit a 4-frame window in 10 frames;
	// the short song fits none.
	if len(windows) != 4 {
		t.Fatalf("windows: expected 4 got %d", len(windows))
	}
	for i, w := range windows {
		if len(w.Frames) != 4 {
			t.Fatalf("window %d: expected 4 frames got %d", i, len(w.Frames))
		}
		if w.Frames[0][2*i] != 1 {
			t.Errorf("window %d does not start at frame %d", i, 2*i)
		}
	}
}

func TestSampleListShuffle(t *testing.T) {
	var list SampleList
	for i := 0; i < 10; i++ {
		frame := make([]float64, 1)
		frame[0] = float64(i)
		list = append(list, Sample{Frames: [][]float64{frame}})
	}
	anysgd.Shuffle(list)

	seen := map[float64]bool{}
	for _, sample := range list {
		seen[sample.Frames[0][0]] = true
	}
	if len(seen) != 10 {
		t.Errorf("shuffle lost samples: %d left", len(seen))
	}

	sub := list.Slice(2, 5)
	if sub.Len() != 3 {
		t.Errorf("slice: expected 3 got %d", sub.Len())
	}
}

func TestMakeBatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	windows := Windows([]*songs.Song{scaleSong(8)}, conf.SampleLength, 1)
	samples := windows[:conf.BatchSize]

	batch, err := MakeBatch(c, conf, samples)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Inputs) != conf.SampleLength {
		t.Fatalf("inputs: expected %d got %d", conf.SampleLength, len(batch.Inputs))
	}
	if len(batch.Targets) != conf.SampleLength {
		t.Fatalf("targets: expected %d got %d", conf.SampleLength,
			len(batch.Targets))
	}

	for ti, in := range batch.Inputs {
		data := in.Data().([]float64)
		targets := batch.Targets[ti].Data().([]float64)
		if len(data) != conf.BatchSize*conf.NoteCount {
			t.Fatalf("input %d has %d components", ti, len(data))
		}
		for s := 0; s < conf.BatchSize; s++ {
			for j := 0; j < conf.NoteCount; j++ {
				cell := samples[s].Frames[ti][j]
				if data[s*conf.NoteCount+j] != 2*cell-1 {
					t.Fatalf("input %d sample %d cell %d: expected %v got %v",
						ti, s, j, 2*cell-1, data[s*conf.NoteCount+j])
				}
				next := samples[s].Frames[ti+1][j]
				if targets[s*conf.NoteCount+j] != next {
					t.Fatalf("target %d sample %d cell %d: expected %v got %v",
						ti, s, j, next, targets[s*conf.NoteCount+j])
				}
			}
		}
	}
}

func TestMakeBatchErrors(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	windows := Windows([]*songs.Song{scaleSong(8)}, conf.SampleLength, 1)

	if _, err := MakeBatch(c, conf, windows[:1]); err == nil {
		t.Error("expected an error for a short sample list")
	}

	bad := append(SampleList{}, windows[:conf.BatchSize]...)
	bad[1] = Sample{Frames: [][]float64{{1}}}
	if _, err := MakeBatch(c, conf, bad); err == nil {
		t.Error("expected an error for a malformed sample")
	}
}

func TestSeedBatch(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()

	frame := make([]float64, conf.NoteCount)
	frame[5] = 1
	batch, err := SeedBatch(c, conf, frame)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch.Inputs) != 1 || batch.Targets != nil {
		t.Fatal("seed batch should have exactly one input and no targets")
	}
	data := batch.Inputs[0].Data().([]float64)
	if data[5] != 1 || data[0] != -1 {
		t.Errorf("seed not scaled to [-1, 1]: %v %v", data[5], data[0])
	}

	if _, err := SeedBatch(c, conf, frame[:3]); err == nil {
		t.Error("expected an error for a short seed")
	}
}

func TestSyntheticCorpus(t *testing.T) {
	corpus := SyntheticCorpus(4, 32, 1337)
	if len(corpus) != 4 {
		t.Fatalf("songs: expected 4 got %d", len(corpus))
	}
	for _, song := range corpus {
		if len(song.Notes) == 0 {
			t.Fatalf("song %s is empty", song.Name)
		}
		for _, note := range song.Notes {
			if note.Pitch < songs.MinNote || note.Pitch > songs.MaxNote {
				t.Errorf("song %s: pitch %d out of range", song.Name, note.Pitch)
			}
		}
	}
	if !reflect.DeepEqual(corpus, SyntheticCorpus(4, 32, 1337)) {
		t.Error("corpus is not deterministic for a fixed seed")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	for _, song := range SyntheticCorpus(3, 16, 42) {
		if err := song.WriteFile(dir + "/" + song.Name + ".json"); err != nil {
			t.Fatal(err)
		}
	}
	loaded, err := LoadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 3 {
		t.Fatalf("songs: expected 3 got %d", len(loaded))
	}

	if _, err := LoadDir(t.TempDir()); err == nil {
		t.Error("expected an error for an empty directory")
	}
}
