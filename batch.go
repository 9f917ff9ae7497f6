// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Batch is a set of feature rows to predict on. Missing values are NaN.
type Batch interface {
	// NumRow returns the number of rows.
	NumRow() int
	// check verifies the batch is well formed for a model with numFeature
	// features.
	check(numFeature int) error
	// fill writes row i into dst, which has room for numFeature values.
	fill(i int, dst []float64)
	// row returns row i without copying when the batch stores it densely.
	row(i int) ([]float64, bool)
}

func shapeErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrShape)
}

// DenseBatch is a row-major matrix of NumCol columns.
type DenseBatch struct {
	Values []float64
	NumCol int
}

var _ Batch = DenseBatch{}

// NumRow implements Batch.
func (b DenseBatch) NumRow() int {
	if b.NumCol <= 0 {
		return 0
	}
	return len(b.Values) / b.NumCol
}

func (b DenseBatch) check(numFeature int) error {
	if b.NumCol != numFeature {
		return shapeErrorf("treelite: batch has %d columns, model has %d features", b.NumCol, numFeature)
	}
	if len(b.Values)%b.NumCol != 0 {
		return shapeErrorf("treelite: batch of %d values is not a multiple of %d columns",
			len(b.Values), b.NumCol)
	}
	return nil
}

func (b DenseBatch) fill(i int, dst []float64) {
	copy(dst, b.Values[i*b.NumCol:(i+1)*b.NumCol])
}

func (b DenseBatch) row(i int) ([]float64, bool) {
	return b.Values[i*b.NumCol : (i+1)*b.NumCol : (i+1)*b.NumCol], true
}

// Rows is a batch with one slice per row.
type Rows [][]float64

var _ Batch = Rows(nil)

// NumRow implements Batch.
func (r Rows) NumRow() int { return len(r) }

func (r Rows) check(numFeature int) error {
	for i, row := range r {
		if len(row) != numFeature {
			return shapeErrorf("treelite: row %d has %d values, model has %d features", i, len(row), numFeature)
		}
	}
	return nil
}

func (r Rows) fill(i int, dst []float64) { copy(dst, r[i]) }

func (r Rows) row(i int) ([]float64, bool) { return r[i], true }

// SparseBatch is a matrix in compressed sparse row form: the entries of row i
// are Data[RowPtr[i]:RowPtr[i+1]], in columns ColIndex[RowPtr[i]:RowPtr[i+1]].
// Entries not present are missing.
type SparseBatch struct {
	Data     []float64
	ColIndex []uint32
	RowPtr   []int
	NumCol   int
}

var _ Batch = SparseBatch{}

// NumRow implements Batch.
func (b SparseBatch) NumRow() int {
	if len(b.RowPtr) == 0 {
		return 0
	}
	return len(b.RowPtr) - 1
}

func (b SparseBatch) check(numFeature int) error {
	if b.NumCol != numFeature {
		return shapeErrorf("treelite: batch has %d columns, model has %d features", b.NumCol, numFeature)
	}
	if len(b.Data) != len(b.ColIndex) {
		return shapeErrorf("treelite: sparse batch has %d values but %d column indexes",
			len(b.Data), len(b.ColIndex))
	}
	for i := 0; i+1 < len(b.RowPtr); i++ {
		lo, hi := b.RowPtr[i], b.RowPtr[i+1]
		if lo < 0 || lo > hi || hi > len(b.Data) {
			return shapeErrorf("treelite: sparse row %d spans [%d, %d) of %d values", i, lo, hi, len(b.Data))
		}
		for _, c := range b.ColIndex[lo:hi] {
			if int(c) >= b.NumCol {
				return shapeErrorf("treelite: sparse row %d has column %d, model has %d features", i, c, b.NumCol)
			}
		}
	}
	return nil
}

func (b SparseBatch) fill(i int, dst []float64) {
	nan := math.NaN()
	for j := range dst {
		dst[j] = nan
	}
	for k := b.RowPtr[i]; k < b.RowPtr[i+1]; k++ {
		dst[b.ColIndex[k]] = b.Data[k]
	}
}

func (b SparseBatch) row(int) ([]float64, bool) { return nil, false }

// Output holds prediction results in row-major order.
type Output struct {
	NumRow int
	NumCol int
	Values []float64
}

// Row returns the values of row i.
func (o *Output) Row(i int) []float64 {
	return o.Values[i*o.NumCol : (i+1)*o.NumCol]
}

// At returns the value at row i, column j.
func (o *Output) At(i, j int) float64 {
	return o.Values[i*o.NumCol+j]
}

// LeafKeys holds, for every row and tree, the key of the leaf reached.
type LeafKeys struct {
	NumRow  int
	NumTree int
	Keys    []int
}

// Row returns the leaf keys reached by row i, one per tree.
func (l *LeafKeys) Row(i int) []int {
	return l.Keys[i*l.NumTree : (i+1)*l.NumTree]
}
