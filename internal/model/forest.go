package model

import (
	"context"
	"fmt"

	"github.com/diabetes-risk-server/internal/domain"
)

// leafNode marks a leaf in scikit-learn's flattened tree layout.
const leafNode = -1

// Tree is a single decision tree in scikit-learn's flattened layout.
// Value holds the per-class weights of every node.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

func (t *Tree) validate() error {
	n := len(t.ChildrenLeft)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
		return fmt.Errorf("tree arrays have mismatched lengths")
	}

	for i := 0; i < n; i++ {
		left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
		if left == leafNode {
			if len(t.Value[i]) != 2 {
				return fmt.Errorf("leaf %d has %d class weights, want 2", i, len(t.Value[i]))
			}
			if t.Value[i][0]+t.Value[i][1] <= 0 {
				return fmt.Errorf("leaf %d has no weight", i)
			}
			continue
		}
		// Children always follow their parent in depth-first order, so this
		// also rules out cycles.
		if left <= i || left >= n || right <= i || right >= n {
			return fmt.Errorf("node %d has invalid children %d/%d", i, left, right)
		}
		if f := t.Feature[i]; f < 0 || f >= domain.FeatureCount {
			return fmt.Errorf("node %d splits on invalid feature %d", i, f)
		}
	}
	return nil
}

// leafProba walks the tree and returns the normalised positive-class weight.
func (t *Tree) leafProba(x *domain.FeatureVector) float64 {
	node := 0
	for t.ChildrenLeft[node] != leafNode {
		if x[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	v := t.Value[node]
	return v[1] / (v[0] + v[1])
}

// RandomForest averages the leaf class distributions of its trees,
// like scikit-learn's predict_proba.
type RandomForest struct {
	name  string
	trees []Tree
}

// NewRandomForest validates the trees and builds a forest classifier.
func NewRandomForest(name string, trees []Tree) (*RandomForest, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("random forest needs at least one tree")
	}
	for i := range trees {
		if err := trees[i].validate(); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForest{name: name, trees: trees}, nil
}

// Name returns the model name.
func (f *RandomForest) Name() string {
	return f.name
}

// Trees returns the number of estimators.
func (f *RandomForest) Trees() int {
	return len(f.trees)
}

// PredictProba implements Classifier.
func (f *RandomForest) PredictProba(ctx context.Context, features domain.FeatureVector) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var sum float64
	for i := range f.trees {
		sum += f.trees[i].leafProba(&features)
	}
	return sum / float64(len(f.trees)), nil
}
