package musicgen

import (
	"errors"
	"fmt"
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A Batch carries the data for one call to Model.Step.
//
// Inputs holds one packed batch of note vectors per
// timestep and Targets the expected next frame for each
// timestep. Generate mode consumes only Inputs[0] and
// ignores Targets.
type Batch struct {
	Inputs  []anyvec.Vector
	Targets []anyvec.Vector
}

// Handles lists the operations produced by Step.
// Exactly one field is non-nil, matching the mode the
// model was built in.
type Handles struct {
	// Train runs one optimizer update.
	Train *TrainOp

	// Outputs produces the projected output sequence.
	Outputs *GenerateOp
}

// Model is a fixed-length recurrent model over note
// vectors.
//
// A Model is built for exactly one Mode. NewModel creates
// the recurrent stack, the shared projection, one input
// slot per timestep (plus target slots in Train mode) and
// the single operation that Step later hands back, so
// after construction no further structure is ever
// created.
type Model struct {
	Config Config
	Mode   Mode

	// Block is the stack of recurrent layers.
	Block anyrnn.Stack

	// Proj maps recurrent outputs to note activations.
	// Every timestep shares it.
	Proj *anynet.FC

	inputs  []*Slot
	targets []*Slot

	trainOp    *TrainOp
	generateOp *GenerateOp
}

// NewModel creates a model with freshly initialized
// parameters and builds the computation for the given
// mode.
//
// NewModel panics if the configuration is invalid or the
// mode is unknown.
func NewModel(c anyvec.Creator, conf Config, mode Mode) *Model {
	if err := conf.Validate(); err != nil {
		panic("invalid model configuration: " + err.Error())
	}
	if mode != Train && mode != Generate {
		panic(fmt.Sprintf("unknown mode: %v", mode))
	}
	block := make(anyrnn.Stack, 0, conf.NumLayers)
	inCount := conf.NoteCount
	for i := 0; i < conf.NumLayers; i++ {
		block = append(block, anyrnn.NewLSTM(c, inCount, conf.HiddenSize))
		inCount = conf.HiddenSize
	}
	proj := anynet.NewFC(c, conf.HiddenSize, conf.NoteCount)

	// NewFC zeroes the biases; draw them from the same
	// small-variance distribution as the weights.
	anyvec.Rand(proj.Biases.Vector, anyvec.Normal, nil)
	proj.Biases.Vector.Scale(c.MakeNumeric(1 / math.Sqrt(float64(conf.HiddenSize))))

	m := &Model{
		Config: conf,
		Mode:   mode,
		Block:  block,
		Proj:   proj,
	}
	m.build(c)
	return m
}

// DeserializeModel deserializes a Model and rebuilds the
// operation for the mode it was saved in.
func DeserializeModel(d []byte) (*Model, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 9 {
		return nil, errors.New("invalid Model slice")
	}
	var dims [5]serializer.Int
	for i := range dims {
		x, ok := slice[i].(serializer.Int)
		if !ok {
			return nil, errors.New("invalid Model slice")
		}
		dims[i] = x
	}
	rate, ok1 := slice[5].(serializer.Float64)
	mode, ok2 := slice[6].(serializer.Int)
	block, ok3 := slice[7].(anyrnn.Stack)
	proj, ok4 := slice[8].(*anynet.FC)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errors.New("invalid Model slice")
	}
	m := &Model{
		Config: Config{
			SampleLength: int(dims[0]),
			BatchSize:    int(dims[1]),
			NoteCount:    int(dims[2]),
			HiddenSize:   int(dims[3]),
			NumLayers:    int(dims[4]),
			LearningRate: float64(rate),
		},
		Mode:  Mode(mode),
		Block: block,
		Proj:  proj,
	}
	if err := m.Config.Validate(); err != nil {
		return nil, errors.New("invalid Model slice: " + err.Error())
	}
	m.build(m.Creator())
	return m, nil
}

// Creator returns the anyvec.Creator the parameters live
// on.
func (m *Model) Creator() anyvec.Creator {
	return m.Proj.Weights.Vector.Creator()
}

// Inputs returns the input slots, one per timestep.
// Callers bind vectors to these slots, normally through
// Step.
func (m *Model) Inputs() []*Slot {
	return m.inputs
}

// Targets returns the target slots in Train mode and nil
// in Generate mode.
func (m *Model) Targets() []*Slot {
	return m.targets
}

// Parameters returns every learnable variable: the
// recurrent stack's followed by the projection's.
func (m *Model) Parameters() []*anydiff.Var {
	return anynet.AllParameters(m.Block, m.Proj)
}

// Step prepares one run of the model on a batch.
//
// In Train mode the returned feed binds every input and
// target slot and the handles carry the optimizer update.
// In Generate mode the feed binds only the first input
// slot, taken from batch.Inputs[0], and the handles carry
// the output sequence operation.
//
// Step never executes anything; the caller decides when
// to run the returned operation with the returned feed.
//
// Step panics if the batch lacks a vector for a slot that
// must be bound.
func (m *Model) Step(batch *Batch) (*Handles, Feed) {
	feed := Feed{}
	if m.Mode == Train {
		if len(batch.Inputs) != len(m.inputs) || len(batch.Targets) != len(m.targets) {
			panic(fmt.Sprintf("batch has %d inputs and %d targets, expected %d and %d",
				len(batch.Inputs), len(batch.Targets), len(m.inputs), len(m.targets)))
		}
		for i, s := range m.inputs {
			feed[s] = batch.Inputs[i]
		}
		for i, s := range m.targets {
			feed[s] = batch.Targets[i]
		}
		return &Handles{Train: m.trainOp}, feed
	}
	if len(batch.Inputs) == 0 {
		panic("batch has no seed input")
	}
	feed[m.inputs[0]] = batch.Inputs[0]
	return &Handles{Outputs: m.generateOp}, feed
}

// InMode returns a model sharing the receiver's
// parameters whose computation is built for the given
// mode.
// If the mode already matches, the receiver itself is
// returned. Optimizer state is never shared.
func (m *Model) InMode(mode Mode) *Model {
	if mode == m.Mode {
		return m
	}
	res := &Model{
		Config: m.Config,
		Mode:   mode,
		Block:  m.Block,
		Proj:   m.Proj,
	}
	res.build(m.Creator())
	return res
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/ChakChak1234/MusicGenerator.Model"
}

// Serialize serializes the model's configuration, mode
// and parameters.
// Optimizer state is not persisted; a restored Train
// model starts with a fresh optimizer.
func (m *Model) Serialize() ([]byte, error) {
	return serializer.SerializeSlice([]serializer.Serializer{
		serializer.Int(m.Config.SampleLength),
		serializer.Int(m.Config.BatchSize),
		serializer.Int(m.Config.NoteCount),
		serializer.Int(m.Config.HiddenSize),
		serializer.Int(m.Config.NumLayers),
		serializer.Float64(m.Config.LearningRate),
		serializer.Int(int(m.Mode)),
		m.Block,
		m.Proj,
	})
}

// build creates the slots and the operation for the
// model's mode.
func (m *Model) build(c anyvec.Creator) {
	rows := m.batchRows()
	m.inputs = make([]*Slot, m.Config.SampleLength)
	for i := range m.inputs {
		m.inputs[i] = &Slot{
			Name: fmt.Sprintf("input%d", i),
			Rows: rows,
			Cols: m.Config.NoteCount,
		}
	}
	if m.Mode == Train {
		m.targets = make([]*Slot, m.Config.SampleLength)
		for i := range m.targets {
			m.targets[i] = &Slot{
				Name: fmt.Sprintf("target%d", i),
				Rows: rows,
				Cols: m.Config.NoteCount,
			}
		}
		m.trainOp = newTrainOp(c, m)
	} else {
		m.generateOp = newGenerateOp(c, m)
	}
}

// batchRows returns the number of sequences one run
// processes: the configured batch size in Train mode and
// one in Generate mode.
func (m *Model) batchRows() int {
	if m.Mode == Generate {
		return 1
	}
	return m.Config.BatchSize
}
