// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

const mushroomThreshold = -9.53674316e-07

// mushroomBuilder returns a builder holding the first two trees of an XGBoost
// model trained on the agaricus (mushroom) dataset.
func mushroomBuilder(t testing.TB) *ModelBuilder {
	b, err := NewModelBuilder(BuilderConfig{
		NumFeature:    127,
		PredTransform: "sigmoid",
		Logger:        NoopLogger{},
	})
	require.NoError(t, err)

	type split struct{ key, feature, left, right int }
	type leaf struct {
		key   int
		value float64
	}
	addTree := func(splits []split, leaves []leaf) {
		tree := NewTree()
		for _, s := range splits {
			require.NoError(t, tree.SetNumericalTestNode(s.key, NumericalTest{
				Feature: s.feature, Op: OpLT, Threshold: mushroomThreshold,
				DefaultLeft: true, Left: s.left, Right: s.right,
			}))
		}
		for _, l := range leaves {
			require.NoError(t, tree.SetLeafNode(l.key, l.value))
		}
		require.NoError(t, tree.SetRoot(0))
		b.Append(tree)
	}
	addTree(
		[]split{{0, 29, 1, 2}, {1, 56, 3, 4}, {3, 60, 7, 8}, {4, 21, 9, 10}, {2, 109, 5, 6}, {5, 67, 11, 12}},
		[]leaf{{7, 1.89899647}, {8, -1.94736838}, {9, 1.78378379}, {10, -1.98135197},
			{11, -1.9854598}, {12, 0.938775539}, {6, 1.87096775}},
	)
	addTree(
		[]split{{0, 29, 1, 2}, {1, 21, 3, 4}, {4, 36, 7, 8}, {2, 109, 5, 6}, {5, 39, 9, 10}},
		[]leaf{{3, 1.14607906}, {7, -6.87994671}, {8, -0.10659159}, {9, -0.0930657759},
			{10, -1.15261209}, {6, 1.00423074}},
	)
	return b
}

func mushroomModel(t testing.TB) *Model {
	m, err := mushroomBuilder(t).Commit()
	require.NoError(t, err)
	return m
}

// insertDeleteModel builds a one-tree model through a sequence of node
// insertions and deletions, ending with a categorical root.
func insertDeleteModel(t testing.TB) *Model {
	b, err := NewModelBuilder(BuilderConfig{NumFeature: 3, Logger: NoopLogger{}})
	require.NoError(t, err)
	b.Append(NewTree())
	tree, err := b.Tree(0)
	require.NoError(t, err)

	require.NoError(t, tree.SetRoot(1))
	require.NoError(t, tree.SetNumericalTestNode(1, NumericalTest{
		Feature: 2, Op: OpLT, Threshold: -0.5, DefaultLeft: true, Left: 5, Right: 10,
	}))
	require.NoError(t, tree.SetLeafNode(5, -1))
	require.NoError(t, tree.SetNumericalTestNode(10, NumericalTest{
		Feature: 0, Op: OpLE, Threshold: 0.5, DefaultLeft: false, Left: 7, Right: 8,
	}))
	require.NoError(t, tree.SetLeafNode(7, 0))
	require.NoError(t, tree.SetLeafNode(8, 1))
	require.NoError(t, tree.DeleteNode(1))
	require.NoError(t, tree.DeleteNode(5))
	require.NoError(t, tree.SetCategoricalTestNode(5, CategoricalTest{
		Feature: 1, LeftCategories: []uint32{1, 2, 4}, DefaultLeft: true, Left: 20, Right: 10,
	}))
	require.NoError(t, tree.SetLeafNode(20, 2))
	require.NoError(t, tree.SetRoot(5))

	m, err := b.Commit()
	require.NoError(t, err)
	return m
}

// randomModel builds a model of numTree random trees of at most the given
// depth. Roughly one split in four is categorical, and leaf vectors are used
// when vectorLeaves is set.
func randomModel(
	t testing.TB, rng *rand.Rand, cfg BuilderConfig, numTree, depth int, vectorLeaves bool,
) *Model {
	cfg.Logger = NoopLogger{}
	b, err := NewModelBuilder(cfg)
	require.NoError(t, err)
	numClass := b.Config().NumClass
	for i := 0; i < numTree; i++ {
		tree := NewTree()
		next := 0
		var grow func(d int) int
		grow = func(d int) int {
			key := next
			next += 1 + rng.Intn(3)
			if d == depth || (d > 0 && rng.Intn(4) == 0) {
				if vectorLeaves {
					vec := make([]float64, numClass)
					for c := range vec {
						vec[c] = rng.NormFloat64()
					}
					require.NoError(t, tree.SetLeafVectorNode(key, vec))
				} else {
					require.NoError(t, tree.SetLeafNode(key, rng.NormFloat64()))
				}
				return key
			}
			left := grow(d + 1)
			right := grow(d + 1)
			feature := rng.Intn(cfg.NumFeature)
			if rng.Intn(4) == 0 {
				cats := make([]uint32, 1+rng.Intn(3))
				for c := range cats {
					cats[c] = uint32(rng.Intn(5))
				}
				require.NoError(t, tree.SetCategoricalTestNode(key, CategoricalTest{
					Feature: feature, LeftCategories: cats, DefaultLeft: rng.Intn(2) == 0,
					Left: left, Right: right,
				}))
			} else {
				require.NoError(t, tree.SetNumericalTestNode(key, NumericalTest{
					Feature: feature, Op: Operator(1 + rng.Intn(5)), Threshold: rng.NormFloat64(),
					DefaultLeft: rng.Intn(2) == 0, Left: left, Right: right,
				}))
			}
			return key
		}
		require.NoError(t, tree.SetRoot(grow(0)))
		require.NoError(t, tree.SetWeight(0.5+rng.Float64()))
		b.Append(tree)
	}
	m, err := b.Commit()
	require.NoError(t, err)
	return m
}

// randomRows returns n rows with roughly one value in eight missing. Values
// are drawn so that categorical tests see small integers too.
func randomRows(rng *rand.Rand, n, numFeature int) Rows {
	rows := make(Rows, n)
	for i := range rows {
		rows[i] = make([]float64, numFeature)
		for j := range rows[i] {
			switch rng.Intn(8) {
			case 0:
				rows[i][j] = math.NaN()
			case 1, 2:
				rows[i][j] = float64(rng.Intn(6))
			default:
				rows[i][j] = rng.NormFloat64()
			}
		}
	}
	return rows
}

// naivePredict evaluates a model by walking the builder-side node
// representation, independent of the compiled form used by Predictor.
func naivePredict(m *Model, row []float64) []float64 {
	margin := make([]float64, m.NumClass())
	counts := make([]float64, m.NumClass())
	for i := 0; i < m.NumTree(); i++ {
		tv := m.Tree(i)
		key := tv.Root()
		for {
			n, _ := tv.Node(key)
			if n.IsLeaf() {
				if n.Kind == KindLeafVector {
					for c, v := range n.LeafVector {
						margin[c] += tv.Weight() * v
						counts[c]++
					}
				} else {
					margin[i%m.NumClass()] += tv.Weight() * n.LeafValue
					counts[i%m.NumClass()]++
				}
				break
			}
			v := row[n.Feature]
			var left bool
			switch {
			case math.IsNaN(v):
				left = n.DefaultLeft
			case n.Kind == KindNumericalTest:
				left = n.Op.Compare(v, n.Threshold)
			default:
				left = v >= 0 && v < 1<<32 && n.HasCategory(uint32(v))
			}
			if left {
				key = n.Left
			} else {
				key = n.Right
			}
		}
	}
	for c := range margin {
		if m.AverageTreeOutput() {
			margin[c] /= counts[c]
		}
		margin[c] += m.GlobalBias()
	}
	return margin
}
