// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// BuilderConfig holds the ensemble-level settings of a ModelBuilder. The zero
// value of every field except NumFeature selects a default.
type BuilderConfig struct {
	// NumFeature is the number of features in every input row. Required.
	NumFeature int
	// NumClass is the number of output classes. Defaults to 1, meaning
	// regression or binary classification.
	NumClass int
	// AverageTreeOutput divides the sum of tree outputs by the number of trees
	// (per class, for grove-per-class models) instead of using the sum.
	AverageTreeOutput bool
	// PredTransform names the function applied to the aggregated margins. It
	// must be one of TransformNames(). Defaults to "identity".
	PredTransform string
	// GlobalBias is added to every aggregated margin before the transform.
	GlobalBias float64
	// SigmoidAlpha scales margins in the sigmoid-based transforms. Defaults
	// to 1.
	SigmoidAlpha float64
	// RatioC is the divisor used by "exponential_standard_ratio". Defaults to
	// 1.
	RatioC float64
	// Logger receives informational messages. Defaults to DefaultLogger.
	Logger Logger
}

// EnsureDefaults fills in default values for zero fields.
func (c *BuilderConfig) EnsureDefaults() {
	if c.NumClass == 0 {
		c.NumClass = 1
	}
	if c.PredTransform == "" {
		c.PredTransform = "identity"
	}
	if c.SigmoidAlpha == 0 {
		c.SigmoidAlpha = 1
	}
	if c.RatioC == 0 {
		c.RatioC = 1
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger{}
	}
}

// Validate checks the configuration, reporting every problem at once. It
// presumes EnsureDefaults has been called.
func (c *BuilderConfig) Validate() error {
	var buf strings.Builder
	if c.NumFeature <= 0 {
		fmt.Fprintf(&buf, "NumFeature (%d) must be > 0\n", c.NumFeature)
	} else if c.NumFeature > math.MaxInt32 {
		fmt.Fprintf(&buf, "NumFeature (%d) must be <= %d\n", c.NumFeature, math.MaxInt32)
	}
	if c.NumClass < 1 {
		fmt.Fprintf(&buf, "NumClass (%d) must be >= 1\n", c.NumClass)
	} else if c.NumClass > math.MaxInt32 {
		fmt.Fprintf(&buf, "NumClass (%d) must be <= %d\n", c.NumClass, math.MaxInt32)
	}
	if _, err := LookupTransform(c.PredTransform); err != nil {
		fmt.Fprintf(&buf, "PredTransform %q is not one of %s\n",
			c.PredTransform, strings.Join(TransformNames(), ", "))
	}
	if !isFinite(c.GlobalBias) {
		fmt.Fprintf(&buf, "GlobalBias (%g) must be finite\n", c.GlobalBias)
	}
	if !(c.SigmoidAlpha > 0) || math.IsInf(c.SigmoidAlpha, 0) {
		fmt.Fprintf(&buf, "SigmoidAlpha (%g) must be finite and > 0\n", c.SigmoidAlpha)
	}
	if !(c.RatioC > 0) || math.IsInf(c.RatioC, 0) {
		fmt.Fprintf(&buf, "RatioC (%g) must be finite and > 0\n", c.RatioC)
	}
	if buf.Len() == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("treelite: invalid builder config:\n%s", buf.String()), ErrConfig)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ModelBuilder is a mutable staging area where trees are assembled before
// being committed into an immutable Model. Committing copies the trees, so
// the builder can keep being edited and committed again without affecting
// models it produced earlier.
//
// A ModelBuilder and the Trees it holds are not safe for concurrent use.
type ModelBuilder struct {
	cfg       BuilderConfig
	transform *Transform
	trees     []*Tree
}

// NewModelBuilder returns an empty builder. It fails with ErrConfig if the
// configuration is invalid.
func NewModelBuilder(cfg BuilderConfig) (*ModelBuilder, error) {
	cfg.EnsureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	transform, err := LookupTransform(cfg.PredTransform)
	if err != nil {
		return nil, errors.Mark(err, ErrConfig)
	}
	return &ModelBuilder{cfg: cfg, transform: transform}, nil
}

// Config returns the builder's configuration, with defaults applied.
func (b *ModelBuilder) Config() BuilderConfig {
	return b.cfg
}

// Append adds t after the existing trees. The builder takes ownership of t;
// later edits through either t or Tree(i) are the same edits.
func (b *ModelBuilder) Append(t *Tree) {
	if t == nil {
		t = NewTree()
	}
	b.trees = append(b.trees, t)
}

// Insert adds t at position i, shifting later trees up. i may equal
// NumTree().
func (b *ModelBuilder) Insert(i int, t *Tree) error {
	if i < 0 || i > len(b.trees) {
		return errors.Mark(errors.Newf("treelite: cannot insert tree at %d, builder has %d trees", i, len(b.trees)), ErrIndex)
	}
	if t == nil {
		t = NewTree()
	}
	b.trees = append(b.trees, nil)
	copy(b.trees[i+1:], b.trees[i:])
	b.trees[i] = t
	return nil
}

// Tree returns the i-th tree for in-place mutation.
func (b *ModelBuilder) Tree(i int) (*Tree, error) {
	if i < 0 || i >= len(b.trees) {
		return nil, errors.Mark(errors.Newf("treelite: tree index %d out of range [0, %d)", i, len(b.trees)), ErrIndex)
	}
	return b.trees[i], nil
}

// DeleteTree removes the i-th tree, shifting later trees down.
func (b *ModelBuilder) DeleteTree(i int) error {
	if i < 0 || i >= len(b.trees) {
		return errors.Mark(errors.Newf("treelite: tree index %d out of range [0, %d)", i, len(b.trees)), ErrIndex)
	}
	b.trees = append(b.trees[:i], b.trees[i+1:]...)
	return nil
}

// NumTree returns the number of trees in the builder.
func (b *ModelBuilder) NumTree() int {
	return len(b.trees)
}

// Commit validates the trees and compiles them into a new immutable Model. If
// validation fails the returned error is a *ValidationError, marked with
// ErrValidation, listing every problem found. Nodes the root cannot reach are
// not an error: they are left out of the Model and logged as warnings.
func (b *ModelBuilder) Commit() (*Model, error) {
	fatal, orphans := splitFindings(validate(&b.cfg, b.transform, b.trees))
	if len(fatal) > 0 {
		return nil, errors.Mark(&ValidationError{Findings: fatal}, ErrValidation)
	}
	for _, f := range orphans {
		b.cfg.Logger.Warningf("treelite: dropping %s", f)
	}
	m := compile(&b.cfg, b.transform, b.trees)
	b.cfg.Logger.Infof("treelite: committed model: %d trees, %d nodes, %d features, %d classes, transform %s",
		m.NumTree(), m.NumNode(), m.numFeature, m.numClass, m.transform.Name)
	return m, nil
}
