// Package training drives the optimization loop for the
// music model.
package training

import (
	"context"
	"fmt"
	"time"

	musicgen "github.com/ChakChak1234/MusicGenerator"
	"github.com/ChakChak1234/MusicGenerator/composer"
	"github.com/ChakChak1234/MusicGenerator/musicdata"
	"github.com/ChakChak1234/MusicGenerator/runlog"
	"github.com/ChakChak1234/MusicGenerator/songs"
	"github.com/sirupsen/logrus"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// A Trainer owns one training run: it shuffles windows
// into batches, steps the model, journals losses and
// periodically writes checkpoints.
type Trainer struct {
	// Model must be built in musicgen.Train mode.
	Model *musicgen.Model

	// Samples is the training corpus, windowed to the
	// model's sample length.
	Samples musicdata.SampleList

	// Epochs is the number of passes over the corpus.
	Epochs int

	// CheckpointPath, when non-empty, receives the
	// serialized model every SaveEvery steps and once
	// more when the run finishes.
	CheckpointPath string
	SaveEvery      int

	// RunName and Store, when Store is non-nil, journal
	// the loss after every step.
	RunName string
	Store   runlog.Store

	// SampleEvery, when positive and Store is non-nil,
	// generates a short piece every that many steps and
	// journals its roll, so a run's progress can be heard
	// rather than just plotted.
	SampleEvery int

	// SampleFrames is the length of journaled pieces.
	// Zero means four sample lengths.
	SampleFrames int

	// Log receives progress messages. Nil disables
	// logging.
	Log *logrus.Logger
}

// Run trains until every epoch completes or the context
// is canceled.
//
// Each epoch reshuffles the corpus; windows that do not
// fill the last batch are dropped for that epoch.
func (t *Trainer) Run(ctx context.Context) (err error) {
	defer essentials.AddCtxTo("train model", &err)

	if t.Model.Mode != musicgen.Train {
		return fmt.Errorf("model is in %v mode", t.Model.Mode)
	}
	conf := t.Model.Config
	if t.Samples.Len() < conf.BatchSize {
		return fmt.Errorf("corpus has %d windows, need at least %d",
			t.Samples.Len(), conf.BatchSize)
	}

	creator := t.Model.Creator()
	step := 0
	for epoch := 0; epoch < t.Epochs; epoch++ {
		anysgd.Shuffle(t.Samples)
		for start := 0; start+conf.BatchSize <= t.Samples.Len(); start += conf.BatchSize {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			batch, err := musicdata.MakeBatch(creator, conf,
				t.Samples[start:start+conf.BatchSize])
			if err != nil {
				return err
			}
			handles, feed := t.Model.Step(batch)
			loss, err := handles.Train.Run(feed)
			if err != nil {
				return err
			}
			step++

			if t.Log != nil {
				t.Log.WithFields(logrus.Fields{
					"epoch": epoch,
					"step":  step,
					"loss":  loss,
				}).Info("training step")
			}
			if t.Store != nil {
				point := runlog.LossPoint{Step: step, Loss: loss, At: time.Now()}
				if err := t.Store.AddLoss(ctx, t.RunName, point); err != nil {
					return err
				}
			}
			if t.Store != nil && t.SampleEvery > 0 && step%t.SampleEvery == 0 {
				if err := t.samplePiece(ctx, step); err != nil {
					return err
				}
			}
			if t.CheckpointPath != "" && t.SaveEvery > 0 && step%t.SaveEvery == 0 {
				if err := t.checkpoint(); err != nil {
					return err
				}
			}
		}
	}
	if t.CheckpointPath != "" {
		return t.checkpoint()
	}
	return nil
}

func (t *Trainer) samplePiece(ctx context.Context, step int) error {
	frames := t.SampleFrames
	if frames <= 0 {
		frames = 4 * t.Model.Config.SampleLength
	}
	comp := &composer.Composer{Model: t.Model}
	roll, err := comp.ComposeRoll(nil, frames)
	if err != nil {
		return err
	}
	encoded, err := songs.EncodeRoll(roll)
	if err != nil {
		return err
	}
	piece := runlog.Piece{Step: step, Roll: encoded, At: time.Now()}
	return t.Store.AddPiece(ctx, t.RunName, piece)
}

func (t *Trainer) checkpoint() error {
	if t.Log != nil {
		t.Log.WithField("path", t.CheckpointPath).Info("saving checkpoint")
	}
	return serializer.SaveAny(t.CheckpointPath, t.Model)
}
