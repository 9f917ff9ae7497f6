// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/swiss"
)

// Tree is a mutable decision tree under construction. Nodes are addressed by
// caller-chosen non-negative integer keys, which need not be contiguous, and
// children are referenced by key. Edits are cheap and never validated against
// each other: a child key may be referenced before it is defined, and deleting
// a node that is still referenced leaves a dangling reference that Commit
// reports.
//
// A Tree is not safe for concurrent use.
type Tree struct {
	nodes   swiss.Map[int, Node]
	root    int
	hasRoot bool
	weight  float64
}

// NewTree returns an empty tree with weight 1.
func NewTree() *Tree {
	t := &Tree{weight: 1}
	t.nodes.Init(16)
	return t
}

func checkKey(key int) error {
	if key < 0 {
		return configErrorf("treelite: node key must be non-negative, got %d", key)
	}
	if key > math.MaxInt32 {
		return configErrorf("treelite: node key must be <= %d, got %d", math.MaxInt32, key)
	}
	return nil
}

func checkTest(key, feature, left, right int) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if feature < 0 || feature > math.MaxInt32 {
		return configErrorf("treelite: node %d: feature index must be in [0, %d], got %d",
			key, math.MaxInt32, feature)
	}
	if left < 0 || right < 0 || left > math.MaxInt32 || right > math.MaxInt32 {
		return configErrorf("treelite: node %d: child keys must be in [0, %d], got %d and %d",
			key, math.MaxInt32, left, right)
	}
	return nil
}

// SetNumericalTestNode makes key a numerical test node, replacing whatever
// the key held before.
func (t *Tree) SetNumericalTestNode(key int, test NumericalTest) error {
	if err := checkTest(key, test.Feature, test.Left, test.Right); err != nil {
		return err
	}
	if !test.Op.Valid() {
		return configErrorf("treelite: node %d: invalid comparison operator %d", key, test.Op)
	}
	t.nodes.Put(key, numericalNode(test))
	return nil
}

// SetCategoricalTestNode makes key a categorical test node, replacing
// whatever the key held before. The category set is copied, sorted and
// deduplicated.
func (t *Tree) SetCategoricalTestNode(key int, test CategoricalTest) error {
	if err := checkTest(key, test.Feature, test.Left, test.Right); err != nil {
		return err
	}
	t.nodes.Put(key, categoricalNode(test))
	return nil
}

// SetLeafNode makes key a scalar leaf, replacing whatever the key held
// before.
func (t *Tree) SetLeafNode(key int, value float64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	t.nodes.Put(key, Node{Kind: KindLeaf, LeafValue: value})
	return nil
}

// SetLeafVectorNode makes key a vector leaf, replacing whatever the key held
// before. The slice is copied.
func (t *Tree) SetLeafVectorNode(key int, values []float64) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if len(values) == 0 {
		return configErrorf("treelite: node %d: leaf vector must not be empty", key)
	}
	t.nodes.Put(key, Node{Kind: KindLeafVector, LeafVector: slices.Clone(values)})
	return nil
}

// SetRoot designates key as the root. The key does not need to be defined
// yet.
func (t *Tree) SetRoot(key int) error {
	if err := checkKey(key); err != nil {
		return err
	}
	t.root, t.hasRoot = key, true
	return nil
}

// Root returns the root key, if one has been designated.
func (t *Tree) Root() (int, bool) {
	return t.root, t.hasRoot
}

// SetWeight sets the factor applied to this tree's contribution.
func (t *Tree) SetWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return configErrorf("treelite: tree weight must be finite, got %g", w)
	}
	t.weight = w
	return nil
}

// Weight returns the factor applied to this tree's contribution.
func (t *Tree) Weight() float64 {
	return t.weight
}

// DeleteNode removes key. It fails with ErrNodeNotFound if key is not
// defined. References to key from other nodes are left in place.
func (t *Tree) DeleteNode(key int) error {
	if _, ok := t.nodes.Get(key); !ok {
		return errors.Mark(errors.Newf("treelite: node %d does not exist", key), ErrNodeNotFound)
	}
	t.nodes.Delete(key)
	return nil
}

// HasNode reports whether key is defined.
func (t *Tree) HasNode(key int) bool {
	_, ok := t.nodes.Get(key)
	return ok
}

// Node returns a copy of the node at key. Mutating the returned slices does
// not affect the tree.
func (t *Tree) Node(key int) (Node, bool) {
	n, ok := t.nodes.Get(key)
	if !ok {
		return Node{}, false
	}
	n.Categories = slices.Clone(n.Categories)
	n.LeafVector = slices.Clone(n.LeafVector)
	return n, true
}

// reachableKeys returns the keys reachable from the root, in ascending order.
func (t *Tree) reachableKeys() []int {
	if !t.hasRoot {
		return nil
	}
	seen := make(map[int]struct{}, t.nodes.Len())
	stack := []int{t.root}
	for len(stack) > 0 {
		k := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := seen[k]; ok {
			continue
		}
		n, ok := t.nodes.Get(k)
		if !ok {
			continue
		}
		seen[k] = struct{}{}
		if n.Kind.IsTest() {
			stack = append(stack, n.Left, n.Right)
		}
	}
	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Len returns the number of defined nodes.
func (t *Tree) Len() int {
	return t.nodes.Len()
}

// Keys returns the defined keys in ascending order.
func (t *Tree) Keys() []int {
	keys := make([]int, 0, t.nodes.Len())
	t.nodes.All(func(k int, _ Node) bool {
		keys = append(keys, k)
		return true
	})
	slices.Sort(keys)
	return keys
}

// Clone returns a deep copy of t.
func (t *Tree) Clone() *Tree {
	c := &Tree{root: t.root, hasRoot: t.hasRoot, weight: t.weight}
	c.nodes.Init(t.nodes.Len())
	t.nodes.All(func(k int, n Node) bool {
		n.Categories = slices.Clone(n.Categories)
		n.LeafVector = slices.Clone(n.LeafVector)
		c.nodes.Put(k, n)
		return true
	})
	return c
}
