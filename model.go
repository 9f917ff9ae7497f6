// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"
	"slices"
	"sort"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// Model is an immutable, validated tree ensemble produced by
// ModelBuilder.Commit or Deserialize. It is safe for concurrent use.
type Model struct {
	numFeature        int
	numClass          int
	averageTreeOutput bool
	transform         *Transform
	globalBias        float64
	params            TransformParams
	// vectorLeaves is set when leaves carry one value per class. Otherwise
	// tree i contributes to class i % numClass.
	vectorLeaves bool
	trees        []compiledTree
	// classTreeCount[c] is the number of trees contributing to class c.
	classTreeCount []int
}

// compiledTree stores the nodes of a tree in ascending key order. Children are
// referenced by position so that prediction never consults a map.
type compiledTree struct {
	weight float64
	root   int32
	keys   []int
	nodes  []compiledNode
}

type compiledNode struct {
	kind        NodeKind
	op          Operator
	defaultLeft bool
	feature     int32
	left, right int32
	// value is the threshold of a numerical test and the output of a scalar
	// leaf.
	value      float64
	categories []uint32
	vector     []float64
}

func compileTree(t *Tree) compiledTree {
	keys := t.reachableKeys()
	index := make(map[int]int32, len(keys))
	for i, k := range keys {
		index[k] = int32(i)
	}
	ct := compiledTree{
		weight: t.weight,
		root:   index[t.root],
		keys:   keys,
		nodes:  make([]compiledNode, len(keys)),
	}
	for i, k := range keys {
		n, _ := t.nodes.Get(k)
		cn := compiledNode{kind: n.Kind}
		switch n.Kind {
		case KindNumericalTest:
			cn.op = n.Op
			cn.value = n.Threshold
		case KindCategoricalTest:
			cn.categories = slices.Clone(n.Categories)
		case KindLeaf:
			cn.value = n.LeafValue
		case KindLeafVector:
			cn.vector = slices.Clone(n.LeafVector)
		}
		if n.Kind.IsTest() {
			cn.feature = int32(n.Feature)
			cn.defaultLeft = n.DefaultLeft
			cn.left = index[n.Left]
			cn.right = index[n.Right]
		}
		ct.nodes[i] = cn
	}
	return ct
}

// compile builds a Model from validated trees, copying everything it keeps.
func compile(cfg *BuilderConfig, transform *Transform, trees []*Tree) *Model {
	m := &Model{
		numFeature:        cfg.NumFeature,
		numClass:          cfg.NumClass,
		averageTreeOutput: cfg.AverageTreeOutput,
		transform:         transform,
		globalBias:        cfg.GlobalBias,
		params:            TransformParams{SigmoidAlpha: cfg.SigmoidAlpha, RatioC: cfg.RatioC},
		trees:             make([]compiledTree, len(trees)),
	}
	for i, t := range trees {
		m.trees[i] = compileTree(t)
		for _, n := range m.trees[i].nodes {
			if n.kind == KindLeafVector {
				m.vectorLeaves = true
			}
		}
	}
	m.classTreeCount = make([]int, m.numClass)
	for i := range m.trees {
		if m.vectorLeaves {
			for c := range m.classTreeCount {
				m.classTreeCount[c]++
			}
		} else {
			m.classTreeCount[i%m.numClass]++
		}
	}
	return m
}

// NumFeature returns the number of features each input row must have.
func (m *Model) NumFeature() int { return m.numFeature }

// NumClass returns the number of output classes; 1 for regression and binary
// classification.
func (m *Model) NumClass() int { return m.numClass }

// NumTree returns the number of trees.
func (m *Model) NumTree() int { return len(m.trees) }

// NumNode returns the total number of nodes across all trees.
func (m *Model) NumNode() int {
	var n int
	for i := range m.trees {
		n += len(m.trees[i].nodes)
	}
	return n
}

// PredTransform returns the name of the prediction transform.
func (m *Model) PredTransform() string { return m.transform.Name }

// Transform returns the prediction transform.
func (m *Model) Transform() *Transform { return m.transform }

// AverageTreeOutput reports whether tree outputs are averaged rather than
// summed.
func (m *Model) AverageTreeOutput() bool { return m.averageTreeOutput }

// GlobalBias returns the value added to every aggregated margin.
func (m *Model) GlobalBias() float64 { return m.globalBias }

// TransformParams returns the constants used by the transform.
func (m *Model) TransformParams() TransformParams { return m.params }

// VectorLeaves reports whether leaves carry one value per class.
func (m *Model) VectorLeaves() bool { return m.vectorLeaves }

// OutputWidth returns the number of values produced per row by Predict.
func (m *Model) OutputWidth() int { return m.transform.OutputWidth(m.numClass) }

// TreeClass returns the class that tree i contributes to, or -1 if the tree
// contributes to every class through vector leaves.
func (m *Model) TreeClass(i int) int {
	if m.vectorLeaves {
		return -1
	}
	return i % m.numClass
}

// Tree returns a read-only view of the i-th tree. It panics if i is out of
// range.
func (m *Model) Tree(i int) TreeView {
	return TreeView{t: &m.trees[i]}
}

// Config returns a BuilderConfig that reproduces m's ensemble settings.
func (m *Model) Config() BuilderConfig {
	return BuilderConfig{
		NumFeature:        m.numFeature,
		NumClass:          m.numClass,
		AverageTreeOutput: m.averageTreeOutput,
		PredTransform:     m.transform.Name,
		GlobalBias:        m.globalBias,
		SigmoidAlpha:      m.params.SigmoidAlpha,
		RatioC:            m.params.RatioC,
	}
}

// Builder returns a new ModelBuilder holding copies of m's trees, so that a
// committed or deserialized model can be edited and committed again.
func (m *Model) Builder(logger Logger) (*ModelBuilder, error) {
	cfg := m.Config()
	cfg.Logger = logger
	b, err := NewModelBuilder(cfg)
	if err != nil {
		return nil, err
	}
	for i := range m.trees {
		b.Append(m.Tree(i).Tree())
	}
	return b, nil
}

// Equal reports whether m and o are observationally identical: same
// ensemble settings and, tree by tree, the same root, weight and nodes.
func (m *Model) Equal(o *Model) bool {
	if m.numFeature != o.numFeature || m.numClass != o.numClass ||
		m.averageTreeOutput != o.averageTreeOutput || m.transform.ID != o.transform.ID ||
		math.Float64bits(m.globalBias) != math.Float64bits(o.globalBias) ||
		m.params != o.params || len(m.trees) != len(o.trees) {
		return false
	}
	for i := range m.trees {
		a, b := m.Tree(i), o.Tree(i)
		if a.Root() != b.Root() || math.Float64bits(a.Weight()) != math.Float64bits(b.Weight()) ||
			!slices.Equal(a.t.keys, b.t.keys) {
			return false
		}
		for _, k := range a.t.keys {
			na, _ := a.Node(k)
			nb, _ := b.Node(k)
			if !na.Equal(nb) {
				return false
			}
		}
	}
	return true
}

// String implements fmt.Stringer.
func (m *Model) String() string {
	return redact.StringWithoutMarkers(m)
}

// SafeFormat implements redact.SafeFormatter.
func (m *Model) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("model: %s trees, %s nodes, %d features, %d classes, transform %s",
		crhumanize.Count(int64(m.NumTree()), crhumanize.Compact), crhumanize.Count(int64(m.NumNode()), crhumanize.Compact),
		m.numFeature, m.numClass, redact.SafeString(m.transform.Name))
	if m.averageTreeOutput {
		w.SafeString(", averaged")
	}
	if m.globalBias != 0 {
		w.Printf(", bias %g", m.globalBias)
	}
}

// TreeView is a read-only view of one tree of a Model.
type TreeView struct {
	t *compiledTree
}

// Root returns the key of the root node.
func (v TreeView) Root() int { return v.t.keys[v.t.root] }

// Weight returns the factor applied to the tree's contribution.
func (v TreeView) Weight() float64 { return v.t.weight }

// NumNode returns the number of nodes in the tree.
func (v TreeView) NumNode() int { return len(v.t.nodes) }

// Keys returns the node keys in ascending order.
func (v TreeView) Keys() []int { return slices.Clone(v.t.keys) }

// Depth returns the number of edges on the longest root-to-leaf path.
func (v TreeView) Depth() int {
	var depth func(i int32) int
	depth = func(i int32) int {
		n := &v.t.nodes[i]
		if !n.kind.IsTest() {
			return 0
		}
		return 1 + max(depth(n.left), depth(n.right))
	}
	return depth(v.t.root)
}

// Node returns a copy of the node at key.
func (v TreeView) Node(key int) (Node, bool) {
	i := sort.SearchInts(v.t.keys, key)
	if i == len(v.t.keys) || v.t.keys[i] != key {
		return Node{}, false
	}
	return v.node(i), true
}

func (v TreeView) node(i int) Node {
	cn := &v.t.nodes[i]
	n := Node{Kind: cn.kind}
	switch cn.kind {
	case KindNumericalTest:
		n.Op = cn.op
		n.Threshold = cn.value
	case KindCategoricalTest:
		n.Categories = slices.Clone(cn.categories)
	case KindLeaf:
		n.LeafValue = cn.value
	case KindLeafVector:
		n.LeafVector = slices.Clone(cn.vector)
	}
	if cn.kind.IsTest() {
		n.Feature = int(cn.feature)
		n.DefaultLeft = cn.defaultLeft
		n.Left = v.t.keys[cn.left]
		n.Right = v.t.keys[cn.right]
	}
	return n
}

// Tree returns a mutable copy of the tree, suitable for a ModelBuilder.
func (v TreeView) Tree() *Tree {
	t := NewTree()
	t.root, t.hasRoot, t.weight = v.Root(), true, v.t.weight
	for i, k := range v.t.keys {
		t.nodes.Put(k, v.node(i))
	}
	return t
}
