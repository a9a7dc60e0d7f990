package musicgen

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func randomSeed(c anyvec.Creator, conf Config) anyvec.Vector {
	seed := c.MakeVector(conf.NoteCount)
	anyvec.Rand(seed, anyvec.Normal, nil)
	return seed
}

func TestGenerateMatchesManual(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	m := NewModel(c, conf, Generate)
	seed := randomSeed(c, conf)

	handles, feed := m.Step(&Batch{Inputs: []anyvec.Vector{seed}})
	gen, err := handles.Outputs.Run(feed)
	if err != nil {
		t.Fatal(err)
	}
	if len(gen.Outputs) != conf.SampleLength {
		t.Fatalf("outputs: expected %d got %d", conf.SampleLength, len(gen.Outputs))
	}

	// Drive the block by hand and expect identical
	// projections at every timestep.
	state := m.Block.Start(1)
	in := seed
	for i := 0; i < conf.SampleLength; i++ {
		res := m.Block.Step(state, in)
		state = res.State()
		projected := m.Proj.Apply(anydiff.NewConst(res.Output()), 1).Output()

		diff := projected.Copy()
		diff.Sub(gen.Outputs[i])
		if d := anyvec.AbsMax(diff).(float64); d > 1e-4 {
			t.Errorf("output mismatch: time %d: expected %v got %v", i,
				projected.Data(), gen.Outputs[i].Data())
		}
		in = NextInput(projected)
	}
}

func TestGenerateChaining(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	m := NewModel(c, conf, Generate)
	seed := randomSeed(c, conf)

	handles, feed := m.Step(&Batch{Inputs: []anyvec.Vector{seed}})
	first, err := handles.Outputs.Run(feed)
	if err != nil {
		t.Fatal(err)
	}

	nextSeed := NextInput(first.Outputs[conf.SampleLength-1])
	_, feed2 := m.Step(&Batch{Inputs: []anyvec.Vector{nextSeed}})
	second, err := handles.Outputs.RunFrom(feed2, first.FinalState)
	if err != nil {
		t.Fatal(err)
	}

	// One continuous run of twice the length must match
	// the two chained runs step for step.
	state := m.Block.Start(1)
	in := seed
	for i := 0; i < 2*conf.SampleLength; i++ {
		res := m.Block.Step(state, in)
		state = res.State()
		projected := m.Proj.Apply(anydiff.NewConst(res.Output()), 1).Output()

		var actual anyvec.Vector
		if i < conf.SampleLength {
			actual = first.Outputs[i]
		} else {
			actual = second.Outputs[i-conf.SampleLength]
		}
		diff := projected.Copy()
		diff.Sub(actual)
		if d := anyvec.AbsMax(diff).(float64); d > 1e-4 {
			t.Errorf("output mismatch: time %d: expected %v got %v", i,
				projected.Data(), actual.Data())
		}
		in = NextInput(projected)
	}
}

func TestGenerateLeavesParameters(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	m := NewModel(c, conf, Generate)
	seed := randomSeed(c, conf)

	snapshot := paramSnapshot(m)
	handles, feed := m.Step(&Batch{Inputs: []anyvec.Vector{seed}})
	if _, err := handles.Outputs.Run(feed); err != nil {
		t.Fatal(err)
	}
	if maxParamDiff(m, snapshot) != 0 {
		t.Error("generation moved the parameters")
	}
}

func TestGenerateBindingErrors(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	conf := testConfig()
	m := NewModel(c, conf, Generate)

	t.Run("Missing", func(t *testing.T) {
		handles, feed := m.Step(&Batch{Inputs: []anyvec.Vector{randomSeed(c, conf)}})
		delete(feed, m.Inputs()[0])
		if _, err := handles.Outputs.Run(feed); err == nil {
			t.Error("expected an error for a missing binding")
		}
	})

	t.Run("BadShape", func(t *testing.T) {
		handles, feed := m.Step(&Batch{Inputs: []anyvec.Vector{randomSeed(c, conf)}})
		feed[m.Inputs()[0]] = c.MakeVector(conf.NoteCount + 1)
		if _, err := handles.Outputs.Run(feed); err == nil {
			t.Error("expected an error for a mis-sized binding")
		}
	})
}

func TestNextInputRange(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	vec := c.MakeVector(16)
	anyvec.Rand(vec, anyvec.Normal, nil)
	vec.Scale(c.MakeNumeric(10))

	next := NextInput(vec)
	raw := vec.Data().([]float64)
	for i, x := range next.Data().([]float64) {
		if x < -1 || x > 1 {
			t.Errorf("component %d out of range: %v", i, x)
		}
		expected := 2/(1+math.Exp(-raw[i])) - 1
		if math.Abs(x-expected) > 1e-4 {
			t.Errorf("component %d: expected %v got %v", i, expected, x)
		}
	}
}
