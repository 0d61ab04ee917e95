package qnet

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"math"

	"github.com/rmera/boo"
	"github.com/rmera/boo/utils"
)

// NumActions is the size of the discrete action space: buy, sell, hold.
const NumActions = 3

type TrainOptions struct {
	Rounds       int
	LearningRate float64
	MaxDepth     int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       60,
		LearningRate: 0.08,
		MaxDepth:     4,
	}
}

type artifact struct {
	FeatureNames []string `json:"feature_names"`
	ModelText    string   `json:"model_text"`
}

// Model is a gradient-boosted action-value network over the three-way
// action space. ActionValues returns one softmax value per action, so
// downstream code can read both the argmax and its margin.
type Model struct {
	featureNames []string
	boost        *boo.MultiClass
}

// Train fits the model on state vectors labeled with the action that
// maximized reward in hindsight. Labels use the action encoding
// buy=0, sell=1, hold=2.
func Train(states [][]float64, actions []int, featureNames []string, opts TrainOptions) (*Model, error) {
	if len(states) == 0 || len(states) != len(actions) {
		return nil, errors.New("invalid training dataset")
	}
	if len(states[0]) == 0 {
		return nil, errors.New("empty state vectors")
	}
	classSet := make(map[int]struct{}, NumActions)
	for _, a := range actions {
		if a < 0 || a >= NumActions {
			return nil, errors.New("action label out of range")
		}
		classSet[a] = struct{}{}
	}
	if len(classSet) < 2 {
		return nil, errors.New("training requires at least two distinct actions")
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}
	if len(featureNames) != len(states[0]) {
		featureNames = make([]string, len(states[0]))
		for i := range featureNames {
			featureNames[i] = "f"
		}
	}

	o := boo.DefaultXOptions()
	o.Rounds = opts.Rounds
	o.LearningRate = opts.LearningRate
	o.MaxDepth = opts.MaxDepth
	o.Verbose = false
	o.EarlyStop = 0

	data := &utils.DataBunch{
		Data:   states,
		Labels: append([]int(nil), actions...),
		Keys:   featureNames,
	}
	model := boo.NewMultiClass(data, o)
	if model == nil {
		return nil, errors.New("failed to train action-value model")
	}
	return &Model{featureNames: append([]string(nil), featureNames...), boost: model}, nil
}

// ActionValues returns one value per action, indexed by the action
// encoding. A nil model returns a uniform distribution.
func (m *Model) ActionValues(state []float64) []float64 {
	uniform := []float64{1.0 / NumActions, 1.0 / NumActions, 1.0 / NumActions}
	if m == nil || m.boost == nil {
		return uniform
	}
	probs := m.boost.PredictSingle(state)
	labels := m.boost.ClassLabels()

	out := make([]float64, NumActions)
	seen := 0
	for i, label := range labels {
		if label >= 0 && label < NumActions && i < len(probs) {
			out[label] = clamp01(probs[i])
			seen++
		}
	}
	if seen == 0 {
		return uniform
	}
	return out
}

func (m *Model) FeatureNames() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

func (m *Model) MarshalBinary() ([]byte, error) {
	if m == nil || m.boost == nil {
		return nil, errors.New("nil model")
	}
	var buf bytes.Buffer
	if err := boo.JSONMultiClass(m.boost, "softmax", &buf); err != nil {
		return nil, err
	}
	return json.Marshal(artifact{
		FeatureNames: m.featureNames,
		ModelText:    buf.String(),
	})
}

func UnmarshalBinary(blob []byte) (*Model, error) {
	if len(blob) == 0 {
		return nil, errors.New("empty artifact")
	}
	var a artifact
	if err := json.Unmarshal(blob, &a); err != nil {
		return nil, err
	}
	reader := bufio.NewReader(bytes.NewReader([]byte(a.ModelText)))
	model, err := boo.UnJSONMultiClass(reader)
	if err != nil {
		return nil, err
	}
	return &Model{featureNames: append([]string(nil), a.FeatureNames...), boost: model}, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 1.0 / NumActions
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
