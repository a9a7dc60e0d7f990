package musicgen

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A GenerateOp runs the autoregressive decoder.
//
// Run consumes the seed frame bound to the first input
// slot and produces one projected activation vector per
// timestep. After the first step, each input is derived
// from the previous projection with NextInput, so the
// model listens to itself rather than to bound data.
//
// Generation never touches gradients or parameters.
type GenerateOp struct {
	m       *Model
	creator anyvec.Creator
}

func newGenerateOp(c anyvec.Creator, m *Model) *GenerateOp {
	return &GenerateOp{m: m, creator: c}
}

// A Generation holds the outputs of one decoder run.
type Generation struct {
	// Outputs holds one projected activation vector per
	// timestep. The values are raw pre-sigmoid
	// activations.
	Outputs []anyvec.Vector

	// FinalState is the recurrent state after the last
	// timestep; RunFrom accepts it to continue the piece.
	FinalState anyrnn.State
}

// Run executes the decoder from the model's start state.
func (g *GenerateOp) Run(f Feed) (*Generation, error) {
	return g.RunFrom(f, nil)
}

// RunFrom executes the decoder from a previous final
// state, so that fixed-length runs can chain into one
// long piece. A nil state means the model's start state.
func (g *GenerateOp) RunFrom(f Feed, state anyrnn.State) (gen *Generation,
	err error) {
	defer essentials.AddCtxTo("run generation", &err)

	seed, err := boundVectors(f, g.m.inputs[:1])
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = g.m.Block.Start(1)
	}

	in := seed[0]
	outs := make([]anyvec.Vector, 0, g.m.Config.SampleLength)
	for t := 0; t < g.m.Config.SampleLength; t++ {
		res := g.m.Block.Step(state, in)
		state = res.State()
		projected := g.m.Proj.Apply(anydiff.NewConst(res.Output()), 1)
		outs = append(outs, projected.Output())
		if t+1 < g.m.Config.SampleLength {
			in = NextInput(projected.Output())
		}
	}
	return &Generation{Outputs: outs, FinalState: state}, nil
}

// NextInput turns a projected activation vector into the
// decoder input for the following timestep, 2*sigmoid(x)-1.
// The result is in [-1, 1], the same range training
// inputs use.
func NextInput(projected anyvec.Vector) anyvec.Vector {
	sig := anynet.Sigmoid.Apply(anydiff.NewConst(projected), 1).Output()
	c := sig.Creator()
	sig.Scale(c.MakeNumeric(2))
	sig.AddScalar(c.MakeNumeric(-1))
	return sig
}
