package train

import (
	"math"
	"sort"

	"github.com/cropbase/cropbase/pkg/domain/predict"
)

// treeBuilder grows one regression tree on residuals with exact greedy
// splits. Rows with NaN at the split feature follow the default
// direction, chosen to maximize gain.
type treeBuilder struct {
	features [][]float64
	targets  []float64
	maxDepth int
	minLeaf  int
	shrink   float64

	nodes []predict.Node
}

func (b *treeBuilder) mean(rows []int) float64 {
	total := 0.0
	for _, r := range rows {
		total += b.targets[r]
	}
	return total / float64(len(rows))
}

type split struct {
	feature     int
	threshold   float64
	defaultLeft bool
	left, right []int
	gain        float64
}

// bestSplit searches all features for the split maximizing the sum of
// squared errors reduction. ok is false when no valid split exists.
func (b *treeBuilder) bestSplit(rows []int) (split, bool) {
	best := split{gain: 0}
	found := false

	nFeatures := len(b.features[rows[0]])
	for f := 0; f < nFeatures; f += 1 {
		known := make([]int, 0, len(rows))
		missing := []int{}
		for _, r := range rows {
			if math.IsNaN(b.features[r][f]) {
				missing = append(missing, r)
			} else {
				known = append(known, r)
			}
		}
		if len(known) < 2 {
			continue
		}
		sort.Slice(known, func(i, j int) bool {
			return b.features[known[i]][f] < b.features[known[j]][f]
		})

		missSum := 0.0
		for _, r := range missing {
			missSum += b.targets[r]
		}
		totalSum := missSum
		for _, r := range known {
			totalSum += b.targets[r]
		}
		totalN := len(known) + len(missing)
		parentScore := totalSum * totalSum / float64(totalN)

		leftSum := 0.0
		for i := 0; i < len(known)-1; i += 1 {
			r := known[i]
			leftSum += b.targets[r]

			v, next := b.features[r][f], b.features[known[i+1]][f]
			if v == next {
				continue
			}
			threshold := v + (next-v)/2

			// try routing missing rows to each side
			for _, defaultLeft := range []bool{true, false} {
				ls, ln := leftSum, i+1
				if defaultLeft {
					ls += missSum
					ln += len(missing)
				}
				rn := totalN - ln
				if ln < b.minLeaf || rn < b.minLeaf {
					continue
				}
				rs := totalSum - ls
				gain := ls*ls/float64(ln) + rs*rs/float64(rn) - parentScore
				if found && gain <= best.gain {
					continue
				}

				left := make([]int, 0, ln)
				right := make([]int, 0, rn)
				left = append(left, known[:i+1]...)
				right = append(right, known[i+1:]...)
				if defaultLeft {
					left = append(left, missing...)
				} else {
					right = append(right, missing...)
				}
				best = split{
					feature: f, threshold: threshold, defaultLeft: defaultLeft,
					left: left, right: right, gain: gain,
				}
				found = true
			}
		}
	}
	return best, found
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	value := b.mean(rows) * b.shrink

	if depth <= 0 || len(rows) < 2*b.minLeaf {
		b.nodes = append(b.nodes, predict.Node{Leaf: true, Weight: value, Value: value})
		return len(b.nodes) - 1
	}
	sp, ok := b.bestSplit(rows)
	if !ok || sp.gain <= 0 {
		b.nodes = append(b.nodes, predict.Node{Leaf: true, Weight: value, Value: value})
		return len(b.nodes) - 1
	}

	me := len(b.nodes)
	b.nodes = append(b.nodes, predict.Node{
		Feature: sp.feature, Threshold: sp.threshold,
		DefaultLeft: sp.defaultLeft, Value: value,
	})
	b.nodes[me].Left = b.grow(sp.left, depth-1)
	b.nodes[me].Right = b.grow(sp.right, depth-1)
	return me
}

func buildTree(
	features [][]float64, residuals []float64,
	maxDepth int, minLeaf int, shrink float64,
) predict.Tree {
	b := &treeBuilder{
		features: features, targets: residuals,
		maxDepth: maxDepth, minLeaf: minLeaf, shrink: shrink,
	}
	rows := make([]int, len(residuals))
	for i := range rows {
		rows[i] = i
	}
	b.grow(rows, maxDepth)
	return predict.Tree{Nodes: b.nodes}
}
