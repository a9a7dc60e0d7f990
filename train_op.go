package musicgen

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A TrainOp runs teacher-forced training steps.
//
// Each Run unrolls the recurrent stack over the bound
// inputs, measures the sequence loss against the bound
// targets, and applies one Adam update to the model
// parameters. The optimizer's moment estimates live on
// the op and persist across runs.
type TrainOp struct {
	m       *Model
	creator anyvec.Creator
	cost    anynet.Cost
	params  []*anydiff.Var
	adam    *anysgd.Adam
}

func newTrainOp(c anyvec.Creator, m *Model) *TrainOp {
	return &TrainOp{
		m:       m,
		creator: c,
		cost:    anynet.SigmoidCE{},
		params:  m.Parameters(),
		adam: &anysgd.Adam{
			DecayRate1: 0.9,
			DecayRate2: 0.999,
			Damping:    1e-8,
		},
	}
}

// Run executes one training step with the vectors bound
// in f and returns the average per-step loss.
//
// Missing or mis-sized bindings are reported as errors
// before any parameter is touched.
func (t *TrainOp) Run(f Feed) (loss float64, err error) {
	defer essentials.AddCtxTo("run training step", &err)

	ins, err := boundVectors(f, t.m.inputs)
	if err != nil {
		return 0, err
	}
	targets, err := boundVectors(f, t.m.targets)
	if err != nil {
		return 0, err
	}

	total, reses, pools := t.forward(ins, targets)
	loss = scalarValue(total.Output())
	t.backward(total, reses, pools)
	return loss, nil
}

// forward unrolls the block over the inputs and
// accumulates the sequence loss, summed per timestep and
// divided by timesteps times batch size.
//
// Each timestep's raw output is wrapped in a pool
// variable so that propagating through the loss fills the
// pool gradients without re-running the block.
func (t *TrainOp) forward(ins, targets []anyvec.Vector) (total anydiff.Res,
	reses []anyrnn.Res, pools []*anydiff.Var) {
	n := t.m.batchRows()
	state := t.m.Block.Start(n)
	for i, in := range ins {
		res := t.m.Block.Step(state, in)
		state = res.State()
		reses = append(reses, res)

		pool := anydiff.NewVar(res.Output())
		pools = append(pools, pool)

		outs := t.m.Proj.Apply(pool, n)
		stepCost := t.cost.Cost(anydiff.NewConst(targets[i]), outs, n)
		if total == nil {
			total = anydiff.Sum(stepCost)
		} else {
			total = anydiff.Add(total, anydiff.Sum(stepCost))
		}
	}
	total = anydiff.Scale(total, t.creator.MakeNumeric(1/float64(len(ins)*n)))
	return
}

// backward back-propagates through the loss, then through
// time, and applies the optimizer update.
func (t *TrainOp) backward(total anydiff.Res, reses []anyrnn.Res,
	pools []*anydiff.Var) {
	grad := anydiff.NewGrad(t.params...)
	for _, pool := range pools {
		grad[pool] = t.creator.MakeVector(pool.Vector.Len())
	}

	one := t.creator.MakeVectorData(t.creator.MakeNumericList([]float64{1}))
	total.Propagate(one, grad)

	var nextGrad anyrnn.StateGrad
	for j := len(reses) - 1; j >= 0; j-- {
		res := reses[j]
		pool := pools[j]
		_, nextGrad = res.Propagate(grad[pool], nextGrad, grad)
		delete(grad, pool)
	}
	t.m.Block.PropagateStart(nextGrad, grad)

	grad = t.adam.Transform(grad)
	grad.Scale(t.creator.MakeNumeric(-t.m.Config.LearningRate))
	grad.AddToVars()
}

// scalarValue reads a single-component vector as a
// float64, whatever numeric type the creator uses.
func scalarValue(v anyvec.Vector) float64 {
	switch data := v.Data().(type) {
	case []float32:
		return float64(data[0])
	case []float64:
		return data[0]
	}
	panic(fmt.Sprintf("unsupported numeric list: %T", v.Data()))
}
