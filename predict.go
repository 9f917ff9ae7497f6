// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"
	"slices"

	"github.com/adamreeve/treelite/internal/invariants"
	"github.com/adamreeve/treelite/internal/parallel"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
)

// Predictor evaluates a Model against batches of rows. Rows are distributed
// across workers, but each row's margins are always accumulated in tree
// order, so results are bit-identical regardless of the worker count.
//
// A Predictor is safe for concurrent use.
type Predictor struct {
	m         *Model
	opts      *Options
	threads   parallel.ThreadConfig
	transform *Transform
}

// NewPredictor returns a Predictor for m. The model's transform is resolved
// once here; an unknown transform fails with ErrUnsupportedTransform.
func NewPredictor(m *Model, opts *Options) (*Predictor, error) {
	opts = opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	threads, err := opts.threadConfig()
	if err != nil {
		return nil, err
	}
	transform, err := TransformByID(m.transform.ID)
	if err != nil {
		return nil, err
	}
	if !transform.Accepts(m.numClass) {
		return nil, errors.Mark(
			errors.Newf("treelite: transform %s is not defined for %d classes", transform.Name, m.numClass),
			ErrUnsupportedTransform)
	}
	return &Predictor{m: m, opts: opts, threads: threads, transform: transform}, nil
}

// Model returns the model being evaluated.
func (p *Predictor) Model() *Model { return p.m }

// Predict returns the transformed prediction for every row of b.
func (p *Predictor) Predict(b Batch) (*Output, error) {
	return p.predict(b, true)
}

// PredictRaw returns the aggregated margins for every row of b: the per-class
// sums (or averages) plus the global bias, without the transform.
func (p *Predictor) PredictRaw(b Batch) (*Output, error) {
	return p.predict(b, false)
}

// scratch is the per-worker working space of a prediction call.
type scratch struct {
	row    []float64
	margin []float64
}

func (p *Predictor) newScratch() []scratch {
	s := make([]scratch, p.threads.NumWorker)
	for i := range s {
		s[i].row = make([]float64, p.m.numFeature)
		s[i].margin = make([]float64, p.m.numClass)
	}
	return s
}

func (p *Predictor) predict(b Batch, transform bool) (_ *Output, err error) {
	if b == nil {
		return nil, shapeErrorf("treelite: nil batch")
	}
	start := crtime.NowMono()
	defer func() { p.opts.Metrics.record(b.NumRow(), start, err) }()

	m := p.m
	if err := b.check(m.numFeature); err != nil {
		return nil, err
	}
	numCol := m.numClass
	if transform {
		numCol = p.transform.OutputWidth(m.numClass)
	}
	out := &Output{NumRow: b.NumRow(), NumCol: numCol}
	out.Values = make([]float64, out.NumRow*out.NumCol)

	s := p.newScratch()
	err = parallel.For(0, out.NumRow, p.threads, p.opts.Schedule, func(i, worker int) error {
		w := &s[worker]
		row, ok := b.row(i)
		if !ok {
			b.fill(i, w.row)
			row = w.row
		}
		m.margins(row, w.margin)
		dst := out.Values[i*numCol : (i+1)*numCol]
		if transform {
			p.transform.Apply(m.params, w.margin, dst)
		} else {
			copy(dst, w.margin)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PredictLeafKeys returns, for every row of b and every tree, the key of the
// leaf the row reaches.
func (p *Predictor) PredictLeafKeys(b Batch) (_ *LeafKeys, err error) {
	if b == nil {
		return nil, shapeErrorf("treelite: nil batch")
	}
	start := crtime.NowMono()
	defer func() { p.opts.Metrics.record(b.NumRow(), start, err) }()

	m := p.m
	if err := b.check(m.numFeature); err != nil {
		return nil, err
	}
	out := &LeafKeys{NumRow: b.NumRow(), NumTree: len(m.trees)}
	out.Keys = make([]int, out.NumRow*out.NumTree)

	s := p.newScratch()
	err = parallel.For(0, out.NumRow, p.threads, p.opts.Schedule, func(i, worker int) error {
		row, ok := b.row(i)
		if !ok {
			b.fill(i, s[worker].row)
			row = s[worker].row
		}
		keys := out.Row(i)
		for t := range m.trees {
			ct := &m.trees[t]
			keys[t] = ct.keys[ct.leaf(row)]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// margins accumulates the contributions of every tree for one row into
// margin, then averages and adds the global bias.
func (m *Model) margins(row, margin []float64) {
	clear(margin)
	for t := range m.trees {
		ct := &m.trees[t]
		leaf := &ct.nodes[ct.leaf(row)]
		if m.vectorLeaves {
			for c, v := range leaf.vector {
				margin[c] += ct.weight * v
			}
		} else {
			margin[t%m.numClass] += ct.weight * leaf.value
		}
	}
	for c := range margin {
		if m.averageTreeOutput {
			margin[c] /= float64(m.classTreeCount[c])
		}
		margin[c] += m.globalBias
	}
}

// maxCategory bounds the values a categorical test can match.
const maxCategory = 1 << 32

// leaf walks the tree for row and returns the index of the leaf reached.
func (t *compiledTree) leaf(row []float64) int32 {
	i := t.root
	for {
		n := &t.nodes[i]
		var left bool
		switch n.kind {
		case KindLeaf, KindLeafVector:
			return i
		case KindNumericalTest:
			invariants.CheckBounds(n.feature, int32(len(row)))
			v := row[n.feature]
			if math.IsNaN(v) {
				left = n.defaultLeft
			} else {
				left = n.op.Compare(v, n.value)
			}
		case KindCategoricalTest:
			invariants.CheckBounds(n.feature, int32(len(row)))
			v := row[n.feature]
			switch {
			case math.IsNaN(v):
				left = n.defaultLeft
			case v < 0 || v >= maxCategory:
				left = false
			default:
				_, left = slices.BinarySearch(n.categories, uint32(v))
			}
		}
		if left {
			i = n.left
		} else {
			i = n.right
		}
	}
}
