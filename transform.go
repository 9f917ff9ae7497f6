// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"math"

	"github.com/cockroachdb/errors"
)

// TransformID identifies a prediction transform. The numeric values are part
// of the serialized format: new transforms get new ids, existing ids are never
// reused.
type TransformID uint8

// The built-in transforms.
const (
	TransformIdentity TransformID = iota
	TransformSigmoid
	TransformExponential
	TransformExponentialStandardRatio
	TransformLogarithmOnePlusExp
	TransformSignedSquare
	TransformIdentityMulticlass
	TransformSoftmax
	TransformMulticlassOVA
	TransformMaxIndex
)

// classArity states which class counts a transform accepts.
type classArity uint8

const (
	singleClass classArity = iota
	multiClass
)

// TransformParams carries the model-level constants some transforms use.
type TransformParams struct {
	// SigmoidAlpha scales the margin before the sigmoid in "sigmoid" and
	// "multiclass_ova".
	SigmoidAlpha float64
	// RatioC is the divisor in "exponential_standard_ratio".
	RatioC float64
}

// Transform is an entry in the transform registry. Apply rewrites the
// aggregated margins of one row into out, which has room for OutputWidth
// values.
type Transform struct {
	ID    TransformID
	Name  string
	arity classArity
	// collapses is set for transforms that reduce a class vector to a single
	// value.
	collapses bool
	apply     func(p TransformParams, margin, out []float64)
}

// OutputWidth returns the number of values Apply writes for a model with
// numClass classes.
func (t *Transform) OutputWidth(numClass int) int {
	if t.collapses {
		return 1
	}
	return numClass
}

// Accepts reports whether the transform is defined for numClass classes.
func (t *Transform) Accepts(numClass int) bool {
	if t.arity == singleClass {
		return numClass == 1
	}
	return numClass > 1
}

// Apply transforms the aggregated margins of one row.
func (t *Transform) Apply(p TransformParams, margin, out []float64) {
	t.apply(p, margin, out)
}

func sigmoid(alpha, x float64) float64 {
	return 1 / (1 + math.Exp(-alpha*x))
}

var transforms = [...]Transform{
	TransformIdentity: {
		Name: "identity", arity: singleClass,
		apply: func(_ TransformParams, m, out []float64) { out[0] = m[0] },
	},
	TransformSigmoid: {
		Name: "sigmoid", arity: singleClass,
		apply: func(p TransformParams, m, out []float64) { out[0] = sigmoid(p.SigmoidAlpha, m[0]) },
	},
	TransformExponential: {
		Name: "exponential", arity: singleClass,
		apply: func(_ TransformParams, m, out []float64) { out[0] = math.Exp(m[0]) },
	},
	TransformExponentialStandardRatio: {
		Name: "exponential_standard_ratio", arity: singleClass,
		apply: func(p TransformParams, m, out []float64) { out[0] = math.Exp2(-m[0] / p.RatioC) },
	},
	TransformLogarithmOnePlusExp: {
		Name: "logarithm_one_plus_exp", arity: singleClass,
		apply: func(_ TransformParams, m, out []float64) { out[0] = math.Log1p(math.Exp(m[0])) },
	},
	TransformSignedSquare: {
		Name: "signed_square", arity: singleClass,
		apply: func(_ TransformParams, m, out []float64) { out[0] = math.Copysign(m[0]*m[0], m[0]) },
	},
	TransformIdentityMulticlass: {
		Name: "identity_multiclass", arity: multiClass,
		apply: func(_ TransformParams, m, out []float64) { copy(out, m) },
	},
	TransformSoftmax: {
		Name: "softmax", arity: multiClass,
		apply: func(_ TransformParams, m, out []float64) {
			maxMargin := m[0]
			for _, v := range m[1:] {
				maxMargin = math.Max(maxMargin, v)
			}
			var norm float64
			for i, v := range m {
				out[i] = math.Exp(v - maxMargin)
				norm += out[i]
			}
			for i := range out[:len(m)] {
				out[i] /= norm
			}
		},
	},
	TransformMulticlassOVA: {
		Name: "multiclass_ova", arity: multiClass,
		apply: func(p TransformParams, m, out []float64) {
			for i, v := range m {
				out[i] = sigmoid(p.SigmoidAlpha, v)
			}
		},
	},
	TransformMaxIndex: {
		Name: "max_index", arity: multiClass, collapses: true,
		apply: func(_ TransformParams, m, out []float64) {
			best := 0
			for i, v := range m {
				if v > m[best] {
					best = i
				}
			}
			out[0] = float64(best)
		},
	},
}

func init() {
	for i := range transforms {
		transforms[i].ID = TransformID(i)
	}
}

// TransformNames returns the names of all registered transforms in id order.
func TransformNames() []string {
	names := make([]string, len(transforms))
	for i := range transforms {
		names[i] = transforms[i].Name
	}
	return names
}

// LookupTransform returns the transform registered under name.
func LookupTransform(name string) (*Transform, error) {
	for i := range transforms {
		if transforms[i].Name == name {
			return &transforms[i], nil
		}
	}
	return nil, errors.Mark(
		errors.Newf("treelite: unknown prediction transform %q", name), ErrUnsupportedTransform)
}

// TransformByID returns the transform with the given id.
func TransformByID(id TransformID) (*Transform, error) {
	if int(id) >= len(transforms) {
		return nil, errors.Mark(
			errors.Newf("treelite: unknown prediction transform id %d", id), ErrUnsupportedTransform)
	}
	return &transforms[id], nil
}
