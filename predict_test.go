// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"math"
	"testing"

	"github.com/adamreeve/treelite/internal/parallel"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newPredictor(t testing.TB, m *Model, opts *Options) *Predictor {
	p, err := NewPredictor(m, opts)
	require.NoError(t, err)
	return p
}

func TestPredictMushroom(t *testing.T) {
	m := mushroomModel(t)
	require.Equal(t, 127, m.NumFeature())
	require.Equal(t, 1, m.NumClass())
	require.Equal(t, 2, m.NumTree())

	row := func(set map[int]float64, fill float64) []float64 {
		r := make([]float64, 127)
		for i := range r {
			r[i] = fill
		}
		for k, v := range set {
			r[k] = v
		}
		return r
	}
	testCases := []struct {
		name   string
		row    []float64
		margin float64
	}{
		{"zeros", row(nil, 0), 1.87096775 + 1.00423074},
		{"missing", row(nil, math.NaN()), 1.89899647 + 1.14607906},
		{"negative", row(nil, -1), 1.89899647 + 1.14607906},
		{"mixed", row(map[int]float64{29: -1, 21: -1}, 0), 1.78378379 + 1.14607906},
		{"right-left", row(map[int]float64{109: -1, 67: -1}, 1), -1.9854598 + -1.15261209},
	}
	p := newPredictor(t, m, nil)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := p.PredictRaw(Rows{tc.row})
			require.NoError(t, err)
			require.Equal(t, 1, raw.NumCol)
			require.InDelta(t, tc.margin, raw.At(0, 0), 1e-12)

			out, err := p.Predict(Rows{tc.row})
			require.NoError(t, err)
			require.InDelta(t, 1/(1+math.Exp(-tc.margin)), out.At(0, 0), 1e-12)
		})
	}
}

// The expected value of the insert/delete model for a single row.
func insertDeleteExpected(f0, f1 float64) float64 {
	switch {
	case f1 == 1 || f1 == 2 || f1 == 4 || math.IsNaN(f1):
		return 2
	case f0 <= 0.5 && !math.IsNaN(f0):
		return 0
	default:
		return 1
	}
}

func TestPredictInsertDelete(t *testing.T) {
	m := insertDeleteModel(t)
	require.Equal(t, 3, m.NumFeature())
	require.Equal(t, 1, m.NumTree())
	require.Equal(t, []int{5, 7, 8, 10, 20}, m.Tree(0).Keys())

	nan := math.NaN()
	var rows Rows
	var want []float64
	for _, f0 := range []float64{-0.5, 0.5, 1.5, nan} {
		for _, f1 := range []float64{0, 1, 2, 3, 4, nan} {
			for _, f2 := range []float64{-1, -0.5, 1, nan} {
				rows = append(rows, []float64{f0, f1, f2})
				want = append(want, insertDeleteExpected(f0, f1))
			}
		}
	}
	out, err := newPredictor(t, m, nil).Predict(rows)
	require.NoError(t, err)
	for i := range rows {
		require.Equal(t, want[i], out.At(i, 0), "row %v", rows[i])
	}
}

func TestPredictCategoricalRange(t *testing.T) {
	m := insertDeleteModel(t)
	p := newPredictor(t, m, nil)
	// Categories are truncated; negative and very large values go right to
	// node 10, which sends f0 = 0 left to leaf 7.
	for _, tc := range []struct {
		f1   float64
		want float64
	}{
		{1.9, 2},
		{4.5, 2},
		{-1, 0},
		{-0.5, 0},
		{1 << 32, 0},
		{(1 << 32) + 1, 0},
		{math.Inf(1), 0},
	} {
		out, err := p.Predict(Rows{{0, tc.f1, 0}})
		require.NoError(t, err)
		require.Equal(t, tc.want, out.At(0, 0), "f1=%g", tc.f1)
	}
}

func TestPredictLeafKeys(t *testing.T) {
	m := insertDeleteModel(t)
	keys, err := newPredictor(t, m, nil).PredictLeafKeys(Rows{
		{0, 1, 0},
		{0, 0, 0},
		{1, 0, 0},
		{math.NaN(), 3, 0},
	})
	require.NoError(t, err)
	require.Equal(t, []int{20, 7, 8, 8}, keys.Keys)
	require.Equal(t, []int{7}, keys.Row(1))
}

func TestPredictShape(t *testing.T) {
	p := newPredictor(t, insertDeleteModel(t), nil)
	for _, b := range []Batch{
		Rows{{1, 2, 3}, {1, 2}},
		DenseBatch{Values: make([]float64, 6), NumCol: 2},
		DenseBatch{Values: make([]float64, 7), NumCol: 3},
		SparseBatch{RowPtr: []int{0, 1}, ColIndex: []uint32{3}, Data: []float64{1}, NumCol: 3},
		SparseBatch{RowPtr: []int{0, 2}, ColIndex: []uint32{0}, Data: []float64{1}, NumCol: 3},
	} {
		_, err := p.Predict(b)
		require.True(t, errors.Is(err, ErrShape), "%v", err)
	}

	out, err := p.Predict(Rows{})
	require.NoError(t, err)
	require.Equal(t, 0, out.NumRow)

	_, err = p.Predict(nil)
	require.True(t, errors.Is(err, ErrShape), "%v", err)
	_, err = p.PredictRaw(nil)
	require.True(t, errors.Is(err, ErrShape), "%v", err)
	_, err = p.PredictLeafKeys(nil)
	require.True(t, errors.Is(err, ErrShape), "%v", err)
}

func TestPredictBatchKinds(t *testing.T) {
	m := insertDeleteModel(t)
	p := newPredictor(t, m, nil)
	nan := math.NaN()
	rows := Rows{{0, 1, 0}, {0, 0, 0}, {1, nan, nan}, {1, 3, nan}}
	dense := DenseBatch{NumCol: 3}
	for _, r := range rows {
		dense.Values = append(dense.Values, r...)
	}
	sparse := SparseBatch{
		RowPtr:   []int{0, 3, 6, 7, 9},
		ColIndex: []uint32{0, 1, 2, 0, 1, 2, 0, 0, 1},
		Data:     []float64{0, 1, 0, 0, 0, 0, 1, 1, 3},
		NumCol:   3,
	}
	want := []float64{2, 0, 2, 1}
	for _, b := range []Batch{rows, dense, sparse} {
		out, err := p.Predict(b)
		require.NoError(t, err)
		require.Equal(t, want, out.Values, "%T", b)
	}
}

func TestPredictMultiClass(t *testing.T) {
	build := func(transform string, vector bool) *Model {
		b := newBuilder(t, BuilderConfig{
			NumFeature: 1, NumClass: 3, PredTransform: transform, GlobalBias: 0.5, AverageTreeOutput: true,
		})
		if vector {
			for _, vals := range [][2][]float64{
				{{1, 2, 3}, {3, 2, 1}},
				{{3, 0, 0}, {0, 0, 1}},
			} {
				tree := NewTree()
				split(t, tree, 0, 0, 1, 2)
				require.NoError(t, tree.SetLeafVectorNode(1, vals[0]))
				require.NoError(t, tree.SetLeafVectorNode(2, vals[1]))
				require.NoError(t, tree.SetRoot(0))
				b.Append(tree)
			}
		} else {
			// Six trees: two per class.
			for i := 0; i < 6; i++ {
				tree := NewTree()
				split(t, tree, 0, 0, 1, 2)
				leaf(t, tree, 1, float64(i))
				leaf(t, tree, 2, -float64(i))
				require.NoError(t, tree.SetRoot(0))
				b.Append(tree)
			}
		}
		m, err := b.Commit()
		require.NoError(t, err)
		return m
	}

	// Vector leaves, row goes left in both trees: (1+3)/2, (2+0)/2, (3+0)/2.
	vec := build("identity_multiclass", true)
	require.True(t, vec.VectorLeaves())
	out, err := newPredictor(t, vec, nil).Predict(Rows{{-1}})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumCol)
	require.Equal(t, []float64{2.5, 1.5, 2}, out.Values)

	// Groves: class c gets trees c and c+3, averaged over two trees.
	groves := build("identity_multiclass", false)
	require.Equal(t, -1, vec.TreeClass(1))
	require.Equal(t, 2, groves.TreeClass(5))
	out, err = newPredictor(t, groves, nil).Predict(Rows{{-1}, {1}})
	require.NoError(t, err)
	require.Equal(t, []float64{2, 3, 4, -1, -2, -3}, out.Values)

	soft := build("softmax", false)
	out, err = newPredictor(t, soft, nil).Predict(Rows{{-1}})
	require.NoError(t, err)
	var sum float64
	for c, v := range out.Row(0) {
		sum += v
		if c > 0 {
			require.Greater(t, v, out.Row(0)[c-1])
		}
	}
	require.InDelta(t, 1, sum, 1e-12)
	require.InDelta(t, math.Exp(2)/(math.Exp(2)+math.Exp(3)+math.Exp(4)), out.At(0, 0), 1e-12)

	maxIndex := build("max_index", false)
	require.Equal(t, 1, maxIndex.OutputWidth())
	out, err = newPredictor(t, maxIndex, nil).Predict(Rows{{-1}, {1}})
	require.NoError(t, err)
	require.Equal(t, 1, out.NumCol)
	require.Equal(t, []float64{2, 0}, out.Values)
	raw, err := newPredictor(t, maxIndex, nil).PredictRaw(Rows{{-1}})
	require.NoError(t, err)
	require.Equal(t, 3, raw.NumCol)
}

func TestTransforms(t *testing.T) {
	p := TransformParams{SigmoidAlpha: 2, RatioC: 4}
	apply := func(name string, margin ...float64) []float64 {
		tr, err := LookupTransform(name)
		require.NoError(t, err)
		out := make([]float64, tr.OutputWidth(len(margin)))
		tr.Apply(p, margin, out)
		return out
	}
	require.Equal(t, []float64{-3}, apply("identity", -3))
	require.InDelta(t, 1/(1+math.Exp(-2)), apply("sigmoid", 1)[0], 1e-15)
	require.InDelta(t, math.E, apply("exponential", 1)[0], 1e-15)
	require.Equal(t, []float64{0.5}, apply("exponential_standard_ratio", 4))
	require.InDelta(t, math.Log(2), apply("logarithm_one_plus_exp", 0)[0], 1e-15)
	require.Equal(t, []float64{-9}, apply("signed_square", -3))
	require.Equal(t, []float64{4}, apply("signed_square", 2))
	require.Equal(t, []float64{1, 2}, apply("identity_multiclass", 1, 2))
	require.Equal(t, []float64{0.5, 0.5}, apply("softmax", 1000, 1000))
	require.InDelta(t, 1/(1+math.Exp(2)), apply("multiclass_ova", -1, 0)[0], 1e-15)
	// Ties go to the first maximum.
	require.Equal(t, []float64{1}, apply("max_index", 0, 3, 3))

	_, err := LookupTransform("hinge")
	require.True(t, errors.Is(err, ErrUnsupportedTransform))
	_, err = TransformByID(TransformID(200))
	require.True(t, errors.Is(err, ErrUnsupportedTransform))
	require.Len(t, TransformNames(), 10)
	for i, name := range TransformNames() {
		tr, err := LookupTransform(name)
		require.NoError(t, err)
		require.Equal(t, TransformID(i), tr.ID)
	}
}

// Predictions do not depend on the number of workers or the schedule.
func TestPredictParallelDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(uint64(1)))
	m := randomModel(t, rng, BuilderConfig{NumFeature: 6, NumClass: 3, PredTransform: "softmax"}, 30, 5, false)
	rows := randomRows(rng, 500, 6)

	serial, err := newPredictor(t, m, &Options{Parallelism: 1}).Predict(rows)
	require.NoError(t, err)
	for i, row := range rows {
		naive := naivePredict(m, row)
		got := make([]float64, 3)
		m.Transform().Apply(m.TransformParams(), naive, got)
		require.Equal(t, got, serial.Row(i), "row %d", i)
	}

	for _, sched := range []parallel.Schedule{parallel.Static(), parallel.Dynamic(7), parallel.Guided()} {
		t.Run(sched.String(), func(t *testing.T) {
			out, err := newPredictor(t, m, &Options{Schedule: sched}).Predict(rows)
			require.NoError(t, err)
			for i := range serial.Values {
				require.Equal(t, math.Float64bits(serial.Values[i]), math.Float64bits(out.Values[i]))
			}
		})
	}
}

func TestPredictRandomAgainstNaive(t *testing.T) {
	seed := uint64(rand.Int63())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewSource(seed))
	for i := 0; i < 10; i++ {
		vector := i%2 == 0
		cfg := BuilderConfig{
			NumFeature:        1 + rng.Intn(8),
			NumClass:          1 + rng.Intn(3),
			AverageTreeOutput: rng.Intn(2) == 0,
			GlobalBias:        rng.NormFloat64(),
		}
		if cfg.NumClass > 1 {
			cfg.PredTransform = "identity_multiclass"
		}
		numTree := cfg.NumClass * (1 + rng.Intn(4))
		m := randomModel(t, rng, cfg, numTree, 1+rng.Intn(6), vector)
		rows := randomRows(rng, 50, cfg.NumFeature)
		out, err := newPredictor(t, m, nil).PredictRaw(rows)
		require.NoError(t, err)
		for r, row := range rows {
			require.Equal(t, naivePredict(m, row), out.Row(r), fmt.Sprintf("model %d row %d", i, r))
		}
	}
}

func TestPredictorOptions(t *testing.T) {
	m := insertDeleteModel(t)
	_, err := NewPredictor(m, &Options{Parallelism: parallel.MaxWorkers() + 1})
	require.True(t, errors.Is(err, ErrConfig))
	_, err = NewPredictor(m, &Options{Compression: Compression(9)})
	require.True(t, errors.Is(err, ErrConfig))
}

func TestPredictorMetrics(t *testing.T) {
	metrics := NewPredictorMetrics("treelite")
	p := newPredictor(t, insertDeleteModel(t), &Options{Metrics: metrics})
	_, err := p.Predict(Rows{{0, 0, 0}, {1, 1, 1}})
	require.NoError(t, err)
	_, err = p.PredictLeafKeys(Rows{{0, 0, 0}})
	require.NoError(t, err)
	_, err = p.Predict(Rows{{0}})
	require.Error(t, err)

	require.Equal(t, 3.0, testutil.ToFloat64(metrics.Rows))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Errors))
	metric := &dto.Metric{}
	require.NoError(t, metrics.BatchLatency.Write(metric))
	require.Equal(t, uint64(2), metric.GetHistogram().GetSampleCount())
	require.Len(t, metrics.Collectors(), 3)
}
