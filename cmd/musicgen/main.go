// Command musicgen trains the note sequence model and
// composes new pieces with it.
//
// Train on a directory of song files, checkpointing as it
// goes:
//
//	musicgen train -corpus songs -out model.bin
//
// Then turn the checkpoint into a new piece:
//
//	musicgen generate -model model.bin -out song.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	musicgen "github.com/ChakChak1234/MusicGenerator"
	"github.com/ChakChak1234/MusicGenerator/composer"
	"github.com/ChakChak1234/MusicGenerator/musicdata"
	"github.com/ChakChak1234/MusicGenerator/runlog"
	"github.com/ChakChak1234/MusicGenerator/songs"
	"github.com/ChakChak1234/MusicGenerator/training"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: musicgen <train | generate> [flags]")
		os.Exit(1)
	}
	switch os.Args[1] {
	case "train":
		train(os.Args[2:])
	case "generate":
		generate(os.Args[2:])
	default:
		essentials.Die("unknown sub-command:", os.Args[1])
	}
}

func train(args []string) {
	conf := musicgen.DefaultConfig()
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "", "JSON model configuration file")
	corpus := fs.String("corpus", "", "directory of song files")
	synth := fs.Int("synth", 0,
		"train on this many synthetic songs instead of a corpus")
	synthFrames := fs.Int("synth-frames", 128, "frames per synthetic song")
	seed := fs.Int64("seed", 1, "synthetic corpus seed")
	outPath := fs.String("out", "model.bin", "checkpoint file")
	epochs := fs.Int("epochs", 10, "passes over the corpus")
	stride := fs.Int("stride", 0,
		"frames between windows (0 means the sample length)")
	saveEvery := fs.Int("save-every", 100, "steps between checkpoints")
	sampleEvery := fs.Int("sample-every", 0,
		"steps between journaled sample pieces (0 disables sampling)")
	logStore := fs.String("log-store", "memory",
		"loss journal backend (memory or sqlite)")
	logDB := fs.String("log-db", "runlog.db",
		"database file for the sqlite backend")
	runName := fs.String("run", "default", "journal run name")
	sampleLength := fs.Int("sample-length", 0, "timesteps per training window")
	batchSize := fs.Int("batch", 0, "sequences per training step")
	hiddenSize := fs.Int("hidden", 0, "LSTM layer size")
	numLayers := fs.Int("layers", 0, "stacked LSTM layers")
	stepSize := fs.Float64("step-size", 0, "Adam step size")
	fs.Parse(args)

	if *cfgPath != "" {
		data, err := os.ReadFile(*cfgPath)
		if err != nil {
			essentials.Die("load config:", err)
		}
		if err := json.Unmarshal(data, &conf); err != nil {
			essentials.Die("load config:", err)
		}
	}
	applyOverrides(&conf, *sampleLength, *batchSize, *hiddenSize, *numLayers,
		*stepSize)
	if err := conf.Validate(); err != nil {
		essentials.Die("invalid configuration:", err)
	}

	log := logrus.New()

	var list []*songs.Song
	var err error
	if *synth > 0 {
		list = musicdata.SyntheticCorpus(*synth, *synthFrames, *seed)
	} else if *corpus != "" {
		list, err = musicdata.LoadDir(*corpus)
		if err != nil {
			essentials.Die(err)
		}
	} else {
		essentials.Die("need -corpus or -synth (see -help)")
	}

	// The model is resolved before the corpus is windowed
	// so that a resumed checkpoint's sample length sizes
	// the windows; the size flags only matter for a fresh
	// model.
	model := resumeOrNew(*outPath, conf, log)
	samples := windowCorpus(list, model, *stride)

	store, err := runlog.NewStore(*logStore, *logDB)
	if err != nil {
		essentials.Die(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt,
		syscall.SIGTERM)
	defer stop()

	if err := store.Init(ctx); err != nil {
		essentials.Die(err)
	}
	defer runlog.CloseIfSupported(store)

	trainer := &training.Trainer{
		Model:          model,
		Samples:        samples,
		Epochs:         *epochs,
		CheckpointPath: *outPath,
		SaveEvery:      *saveEvery,
		RunName:        *runName,
		Store:          store,
		SampleEvery:    *sampleEvery,
		Log:            log,
	}
	log.WithFields(logrus.Fields{
		"songs":   len(list),
		"windows": samples.Len(),
		"epochs":  *epochs,
	}).Info("starting training")
	if err := trainer.Run(ctx); err != nil {
		essentials.Die(err)
	}
}

// resumeOrNew loads the checkpoint at path and rebuilds it
// for training, falling back to a fresh model when no
// checkpoint loads. A resumed model keeps its own
// dimensions; conf only shapes new models.
func resumeOrNew(path string, conf musicgen.Config,
	log *logrus.Logger) *musicgen.Model {
	var model *musicgen.Model
	if err := serializer.LoadAny(path, &model); err == nil {
		log.WithField("path", path).Info("resuming from checkpoint")
		return model.InMode(musicgen.Train)
	}
	return musicgen.NewModel(anyvec32.CurrentCreator(), conf, musicgen.Train)
}

// windowCorpus cuts the corpus into training windows sized
// by the model, which may carry checkpoint dimensions
// rather than flag values. A non-positive stride advances
// one sample length per window.
func windowCorpus(list []*songs.Song, model *musicgen.Model,
	stride int) musicdata.SampleList {
	if stride <= 0 {
		stride = model.Config.SampleLength
	}
	return musicdata.Windows(list, model.Config.SampleLength, stride)
}

// applyOverrides copies flag values over the
// configuration, treating zero as "keep the config value".
func applyOverrides(conf *musicgen.Config, sampleLength, batchSize, hiddenSize,
	numLayers int, stepSize float64) {
	if sampleLength > 0 {
		conf.SampleLength = sampleLength
	}
	if batchSize > 0 {
		conf.BatchSize = batchSize
	}
	if hiddenSize > 0 {
		conf.HiddenSize = hiddenSize
	}
	if numLayers > 0 {
		conf.NumLayers = numLayers
	}
	if stepSize > 0 {
		conf.LearningRate = stepSize
	}
}

func generate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	modelPath := fs.String("model", "model.bin", "checkpoint file")
	outPath := fs.String("out", "song.json", "output song file")
	frames := fs.Int("frames", 256, "length of the piece in frames")
	threshold := fs.Float64("threshold", 0,
		"note probability cutoff (0 means 0.5)")
	name := fs.String("name", "",
		"song name (defaults to the output base name)")
	seedSong := fs.String("seed-song", "",
		"song whose first frame starts the piece")
	logStore := fs.String("log-store", "",
		"journal backend to record the piece in (memory or sqlite)")
	logDB := fs.String("log-db", "runlog.db",
		"database file for the sqlite backend")
	runName := fs.String("run", "default", "journal run name")
	fs.Parse(args)

	var model *musicgen.Model
	if err := serializer.LoadAny(*modelPath, &model); err != nil {
		essentials.Die("load model:", err)
	}

	var seed []float64
	if *seedSong != "" {
		song, err := songs.ReadSong(*seedSong)
		if err != nil {
			essentials.Die(err)
		}
		if roll := song.Roll(); len(roll) > 0 {
			seed = roll[0]
		}
	}
	if *name == "" {
		base := filepath.Base(*outPath)
		*name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	comp := &composer.Composer{Model: model, Threshold: *threshold}
	roll, err := comp.ComposeRoll(seed, *frames)
	if err != nil {
		essentials.Die(err)
	}
	song := songs.FromRoll(*name, roll)
	if err := song.WriteFile(*outPath); err != nil {
		essentials.Die(err)
	}
	logrus.WithFields(logrus.Fields{
		"path":  *outPath,
		"notes": len(song.Notes),
	}).Info("wrote song")

	if *logStore != "" {
		journalPiece(*logStore, *logDB, *runName, roll)
	}
}

// journalPiece records a generated roll alongside the
// training journal so runs and their output stay in one
// place.
func journalPiece(kind, db, run string, roll [][]float64) {
	store, err := runlog.NewStore(kind, db)
	if err != nil {
		essentials.Die(err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		essentials.Die(err)
	}
	defer runlog.CloseIfSupported(store)

	encoded, err := songs.EncodeRoll(roll)
	if err != nil {
		essentials.Die(err)
	}
	piece := runlog.Piece{Roll: encoded, At: time.Now()}
	if err := store.AddPiece(ctx, run, piece); err != nil {
		essentials.Die(err)
	}
}
