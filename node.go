// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"
	"slices"

	"github.com/cockroachdb/redact"
)

// Operator is the comparison applied by a numerical test node. The numeric
// values are part of the serialized format and must not change.
type Operator uint8

// The supported comparison operators.
const (
	OpLT Operator = 1 + iota // <
	OpLE                     // <=
	OpEQ                     // ==
	OpGT                     // >
	OpGE                     // >=
)

var operatorNames = [...]string{
	OpLT: "<",
	OpLE: "<=",
	OpEQ: "==",
	OpGT: ">",
	OpGE: ">=",
}

// ParseOperator parses one of "<", "<=", "==", ">", ">=".
func ParseOperator(s string) (Operator, error) {
	for op := OpLT; op <= OpGE; op++ {
		if operatorNames[op] == s {
			return op, nil
		}
	}
	return 0, configErrorf("treelite: unknown comparison operator %q", s)
}

// Valid reports whether op is one of the supported operators.
func (op Operator) Valid() bool {
	return op >= OpLT && op <= OpGE
}

// String implements fmt.Stringer.
func (op Operator) String() string {
	if op.Valid() {
		return operatorNames[op]
	}
	return "?"
}

// Compare evaluates `v op threshold` with IEEE semantics: a NaN on either
// side makes every operator false.
func (op Operator) Compare(v, threshold float64) bool {
	switch op {
	case OpLT:
		return v < threshold
	case OpLE:
		return v <= threshold
	case OpEQ:
		return v == threshold
	case OpGT:
		return v > threshold
	case OpGE:
		return v >= threshold
	default:
		return false
	}
}

// NodeKind identifies which variant a Node holds. The numeric values are part
// of the serialized format and must not change.
type NodeKind uint8

// The node kinds.
const (
	KindNumericalTest NodeKind = 1 + iota
	KindCategoricalTest
	KindLeaf
	KindLeafVector
)

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	switch k {
	case KindNumericalTest:
		return "numerical"
	case KindCategoricalTest:
		return "categorical"
	case KindLeaf:
		return "leaf"
	case KindLeafVector:
		return "leaf-vector"
	default:
		return "invalid"
	}
}

// IsTest reports whether nodes of this kind have two children.
func (k NodeKind) IsTest() bool {
	return k == KindNumericalTest || k == KindCategoricalTest
}

// NumericalTest is the payload of a numerical test node: rows whose value of
// Feature satisfies `value Op Threshold` go to Left, other non-missing rows go
// to Right, and missing (NaN) values follow DefaultLeft.
type NumericalTest struct {
	Feature     int
	Op          Operator
	Threshold   float64
	DefaultLeft bool
	Left        int
	Right       int
}

// CategoricalTest is the payload of a categorical test node: rows whose value
// of Feature, truncated to an integer, is in LeftCategories go to Left, other
// non-missing rows go to Right, and missing (NaN) values follow DefaultLeft.
type CategoricalTest struct {
	Feature        int
	LeftCategories []uint32
	DefaultLeft    bool
	Left           int
	Right          int
}

// Node is a tagged union over the four node kinds. Only the fields belonging
// to Kind are meaningful; the setters on Tree always replace the whole value,
// so no state from a previous kind survives.
type Node struct {
	Kind NodeKind

	// Test nodes.
	Feature     int
	DefaultLeft bool
	Left, Right int

	// KindNumericalTest.
	Op        Operator
	Threshold float64

	// KindCategoricalTest. Sorted ascending, without duplicates.
	Categories []uint32

	// KindLeaf.
	LeafValue float64

	// KindLeafVector.
	LeafVector []float64
}

func numericalNode(t NumericalTest) Node {
	return Node{
		Kind:        KindNumericalTest,
		Feature:     t.Feature,
		Op:          t.Op,
		Threshold:   t.Threshold,
		DefaultLeft: t.DefaultLeft,
		Left:        t.Left,
		Right:       t.Right,
	}
}

func categoricalNode(t CategoricalTest) Node {
	cats := slices.Clone(t.LeftCategories)
	slices.Sort(cats)
	cats = slices.Compact(cats)
	return Node{
		Kind:        KindCategoricalTest,
		Feature:     t.Feature,
		Categories:  cats,
		DefaultLeft: t.DefaultLeft,
		Left:        t.Left,
		Right:       t.Right,
	}
}

// Children returns the child keys of a test node. ok is false for leaves.
func (n Node) Children() (left, right int, ok bool) {
	if !n.Kind.IsTest() {
		return 0, 0, false
	}
	return n.Left, n.Right, true
}

// IsLeaf reports whether n is a scalar or vector leaf.
func (n Node) IsLeaf() bool {
	return n.Kind == KindLeaf || n.Kind == KindLeafVector
}

// HasCategory reports whether the category set of a categorical test node
// contains c.
func (n Node) HasCategory(c uint32) bool {
	_, found := slices.BinarySearch(n.Categories, c)
	return found
}

// Equal reports whether n and o are observationally identical. Floating point
// payloads are compared bit for bit, so NaN leaf values compare equal to
// themselves.
func (n Node) Equal(o Node) bool {
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindNumericalTest:
		return n.Feature == o.Feature && n.Op == o.Op &&
			math.Float64bits(n.Threshold) == math.Float64bits(o.Threshold) &&
			n.DefaultLeft == o.DefaultLeft && n.Left == o.Left && n.Right == o.Right
	case KindCategoricalTest:
		return n.Feature == o.Feature && slices.Equal(n.Categories, o.Categories) &&
			n.DefaultLeft == o.DefaultLeft && n.Left == o.Left && n.Right == o.Right
	case KindLeaf:
		return math.Float64bits(n.LeafValue) == math.Float64bits(o.LeafValue)
	case KindLeafVector:
		return slices.EqualFunc(n.LeafVector, o.LeafVector, func(a, b float64) bool {
			return math.Float64bits(a) == math.Float64bits(b)
		})
	default:
		return true
	}
}

// String implements fmt.Stringer.
func (n Node) String() string {
	return redact.StringWithoutMarkers(n)
}

// SafeFormat implements redact.SafeFormatter.
func (n Node) SafeFormat(w redact.SafePrinter, _ rune) {
	dir := redact.SafeString("right")
	if n.DefaultLeft {
		dir = "left"
	}
	switch n.Kind {
	case KindNumericalTest:
		w.Printf("f%d %s %g ? %d : %d (missing: %s)",
			n.Feature, redact.SafeString(n.Op.String()), n.Threshold, n.Left, n.Right, dir)
	case KindCategoricalTest:
		w.Printf("f%d in %v ? %d : %d (missing: %s)", n.Feature, n.Categories, n.Left, n.Right, dir)
	case KindLeaf:
		w.Printf("leaf %g", n.LeafValue)
	case KindLeafVector:
		w.Printf("leaf %v", n.LeafVector)
	default:
		w.SafeString("invalid")
	}
}
