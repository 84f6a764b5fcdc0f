package predictor

import (
	"context"
	"errors"
	"fmt"

	"ShrimpCast/internal/domain/models"
)

const (
	AggregateMean = "mean" // random forest
	AggregateSum  = "sum"  // gradient boosting
)

// regressionTree uses parallel node arrays. A node is a leaf when its left
// child is -1; otherwise a row goes left when row[feature] <= threshold.
type regressionTree struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

func (t *regressionTree) validate(width int) error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return errors.New("node arrays differ in length")
	}
	for i := 0; i < n; i++ {
		l, r := t.ChildrenLeft[i], t.ChildrenRight[i]
		if l == -1 {
			if r != -1 {
				return fmt.Errorf("node %d: half leaf", i)
			}
			continue
		}
		// children always come after their parent, so traversal terminates
		if l <= i || l >= n || r <= i || r >= n {
			return fmt.Errorf("node %d: child index out of range", i)
		}
		if f := t.Feature[i]; f < 0 || f >= width {
			return fmt.Errorf("node %d: feature %d out of range", i, f)
		}
	}
	return nil
}

func (t *regressionTree) eval(row []float64) float64 {
	i := 0
	for t.ChildrenLeft[i] != -1 {
		if row[t.Feature[i]] <= t.Threshold[i] {
			i = t.ChildrenLeft[i]
		} else {
			i = t.ChildrenRight[i]
		}
	}
	return t.Value[i]
}

type treeArtifact struct {
	header
	Aggregation  string           `json:"aggregation"`
	LearningRate float64          `json:"learning_rate"`
	BaseScore    float64          `json:"base_score"`
	Trees        []regressionTree `json:"trees"`
}

// TreeEnsemble scores a random forest (mean of trees) or a boosted
// ensemble (base_score + learning_rate * sum of trees).
type TreeEnsemble struct {
	info         models.ModelInfo
	width        int
	aggregation  string
	learningRate float64
	baseScore    float64
	trees        []regressionTree
}

// LoadTreeEnsemble reads a tree ensemble artifact and checks it against columns.
func LoadTreeEnsemble(path, role string, columns []string) (*TreeEnsemble, error) {
	var a treeArtifact
	if err := readArtifact(path, &a); err != nil {
		return nil, err
	}
	return newTreeEnsemble(a, role, columns)
}

func newTreeEnsemble(a treeArtifact, role string, columns []string) (*TreeEnsemble, error) {
	fail := func(err error) error {
		return fmt.Errorf("%w: %s: %v", models.ErrModelUnavailable, role, err)
	}
	if err := a.check(KindTreeEnsemble, columns); err != nil {
		return nil, fail(err)
	}
	if len(a.Trees) == 0 {
		return nil, fail(errors.New("no trees"))
	}
	switch a.Aggregation {
	case "":
		a.Aggregation = AggregateMean
	case AggregateMean:
	case AggregateSum:
		if a.LearningRate == 0 {
			a.LearningRate = 1
		}
	default:
		return nil, fail(fmt.Errorf("unknown aggregation %q", a.Aggregation))
	}
	for i := range a.Trees {
		if err := a.Trees[i].validate(len(columns)); err != nil {
			return nil, fail(fmt.Errorf("tree %d: %w", i, err))
		}
	}

	return &TreeEnsemble{
		info:         models.ModelInfo{Role: role, Kind: KindTreeEnsemble, Name: nameOr(a.Name, role), Features: len(columns), Version: a.Version},
		width:        len(columns),
		aggregation:  a.Aggregation,
		learningRate: a.LearningRate,
		baseScore:    a.BaseScore,
		trees:        a.Trees,
	}, nil
}

func (m *TreeEnsemble) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkWidth(rows, m.width); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		var sum float64
		for t := range m.trees {
			sum += m.trees[t].eval(r)
		}
		if m.aggregation == AggregateSum {
			out[i] = m.baseScore + m.learningRate*sum
		} else {
			out[i] = sum / float64(len(m.trees))
		}
	}
	return out, nil
}

func (m *TreeEnsemble) Info() models.ModelInfo { return m.info }
