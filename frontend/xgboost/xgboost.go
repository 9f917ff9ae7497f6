// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package xgboost maps XGBoost training settings onto treelite model
// configuration: the objective selects the prediction transform, and
// base_score, which XGBoost states as a probability or a mean, is converted
// into a margin-space global bias.
package xgboost

import (
	"math"
	"slices"

	"github.com/adamreeve/treelite"
	"github.com/cockroachdb/errors"
)

// ExponentialObjectives lists the objectives whose predictions are exp of
// the margin.
var ExponentialObjectives = []string{
	"count:poisson", "reg:gamma", "reg:tweedie", "survival:cox", "survival:aft",
}

// unsupportedObjectives have no equivalent transform.
var unsupportedObjectives = []string{"binary:hinge"}

// PredTransform returns the name of the prediction transform that reproduces
// XGBoost's output for objective.
func PredTransform(objective string, numClass int) (string, error) {
	switch {
	case objective == "multi:softmax":
		return "max_index", nil
	case objective == "multi:softprob":
		return "softmax", nil
	case objective == "reg:logistic" || objective == "binary:logistic":
		return "sigmoid", nil
	case slices.Contains(ExponentialObjectives, objective):
		return "exponential", nil
	case slices.Contains(unsupportedObjectives, objective):
		return "", errors.Mark(
			errors.Newf("xgboost: objective %q has no prediction transform", objective),
			treelite.ErrUnsupportedTransform)
	case numClass > 1:
		return "identity_multiclass", nil
	default:
		return "identity", nil
	}
}

// SigmoidMargin converts a probability into the margin whose sigmoid it is.
func SigmoidMargin(prob float64) float64 {
	return -math.Log(1/prob - 1)
}

// ExponentialMargin converts a mean into the margin whose exp it is.
func ExponentialMargin(mean float64) float64 {
	return math.Log(mean)
}

// GlobalBiasToMargin converts base_score into the global bias applied before
// the named transform.
func GlobalBiasToMargin(transform string, baseScore float64) (float64, error) {
	var margin float64
	switch transform {
	case "sigmoid":
		if !(baseScore > 0 && baseScore < 1) {
			return 0, errors.Mark(
				errors.Newf("xgboost: base_score %g must be in (0, 1) for a logistic objective", baseScore),
				treelite.ErrConfig)
		}
		margin = SigmoidMargin(baseScore)
	case "exponential":
		if !(baseScore > 0) {
			return 0, errors.Mark(
				errors.Newf("xgboost: base_score %g must be > 0 for an exponential objective", baseScore),
				treelite.ErrConfig)
		}
		margin = ExponentialMargin(baseScore)
	default:
		margin = baseScore
	}
	return margin, nil
}

// Configure sets cfg.PredTransform and cfg.GlobalBias for a model trained
// with objective and base_score. cfg.NumClass must already be set.
func Configure(cfg *treelite.BuilderConfig, objective string, baseScore float64) error {
	numClass := max(cfg.NumClass, 1)
	transform, err := PredTransform(objective, numClass)
	if err != nil {
		return err
	}
	bias, err := GlobalBiasToMargin(transform, baseScore)
	if err != nil {
		return err
	}
	cfg.PredTransform = transform
	cfg.GlobalBias = bias
	return nil
}
