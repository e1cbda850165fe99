package predict

import (
	"encoding/json"
	"math"
	"sort"

	xe "github.com/cropbase/cropbase/pkg/xerrors"
)

// Node is one node of a regression tree.
//
// Internal nodes split on Feature < Threshold; rows with NaN at Feature
// follow DefaultLeft. Value is the mean response of the subtree, used
// for path attribution. Leaves carry their (shrinkage-scaled) Weight.
type Node struct {
	Leaf        bool    `json:"leaf"`
	Feature     int     `json:"feature,omitempty"`
	Threshold   float64 `json:"threshold,omitempty"`
	DefaultLeft bool    `json:"defaultLeft,omitempty"`
	Left        int     `json:"left,omitempty"`
	Right       int     `json:"right,omitempty"`
	Weight      float64 `json:"weight"`
	Value       float64 `json:"value"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Artifact is a serialized additive tree ensemble.
//
// A prediction is BaseScore plus the leaf weight of each tree.
type Artifact struct {
	ModelType string  `json:"modelType"`
	BaseScore float64 `json:"baseScore"`
	Trees     []Tree  `json:"trees"`
}

const ModelTypeGBT = "gbt"

func ParseArtifact(raw []byte) (Artifact, error) {
	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return Artifact{}, xe.Wrap(err)
	}
	if a.ModelType != ModelTypeGBT {
		return Artifact{}, xe.Errorf("unsupported model type: %s", a.ModelType)
	}
	for tn, tree := range a.Trees {
		if len(tree.Nodes) == 0 {
			return Artifact{}, xe.Errorf("tree #%d: empty", tn)
		}
		max := len(tree.Nodes)
		for ni, node := range tree.Nodes {
			if node.Leaf {
				continue
			}
			if node.Feature < 0 || len(FeatureNames) <= node.Feature {
				return Artifact{}, xe.Errorf("tree #%d node #%d: feature index out of range", tn, ni)
			}
			// children come after their parent, so descent terminates
			if node.Left <= ni || max <= node.Left || node.Right <= ni || max <= node.Right {
				return Artifact{}, xe.Errorf("tree #%d node #%d: child index out of range", tn, ni)
			}
		}
	}
	return a, nil
}

func (t Tree) descend(node Node, features []float64) (next int) {
	v := features[node.Feature]
	if math.IsNaN(v) {
		if node.DefaultLeft {
			return node.Left
		}
		return node.Right
	}
	if v < node.Threshold {
		return node.Left
	}
	return node.Right
}

// LeafOf finds the leaf a feature vector lands in.
func (t Tree) LeafOf(features []float64) Node {
	node := t.Nodes[0]
	for !node.Leaf {
		node = t.Nodes[t.descend(node, features)]
	}
	return node
}

// Predict scores one assembled feature vector.
func (a Artifact) Predict(features []float64) float64 {
	score := a.BaseScore
	for _, tree := range a.Trees {
		score += tree.LeafOf(features).Weight
	}
	return score
}

// Explain attributes the prediction to features by decision path.
//
// At each split taken, the change of subtree mean value is credited to
// the split feature, accumulated over all trees.
func (a Artifact) Explain(spec FeatureSpec, features []float64) []Contribution {
	byFeature := map[int]float64{}
	for _, tree := range a.Trees {
		node := tree.Nodes[0]
		for !node.Leaf {
			next := tree.Nodes[tree.descend(node, features)]
			byFeature[node.Feature] += next.Value - node.Value
			node = next
		}
	}

	contributions := make([]Contribution, 0, len(byFeature))
	for f, w := range byFeature {
		name := ""
		if f < len(spec.Names) {
			name = spec.Names[f]
		}
		contributions = append(contributions, Contribution{
			Feature: name, Weight: w,
		})
	}
	sort.Slice(contributions, func(i, j int) bool {
		return math.Abs(contributions[j].Weight) < math.Abs(contributions[i].Weight)
	})
	return contributions
}

type Contribution struct {
	Feature string
	Weight  float64
}

// TopContributions keeps the n largest contributions by magnitude and
// normalizes their weights so the magnitudes sum to 1.
func TopContributions(contributions []Contribution, n int) []Contribution {
	if n < len(contributions) {
		contributions = contributions[:n]
	}
	total := 0.0
	for _, c := range contributions {
		total += math.Abs(c.Weight)
	}
	if total == 0 {
		return contributions
	}
	normalized := make([]Contribution, len(contributions))
	for i, c := range contributions {
		normalized[i] = Contribution{Feature: c.Feature, Weight: c.Weight / total}
	}
	return normalized
}
