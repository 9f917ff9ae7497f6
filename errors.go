// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/redact"
)

// Error markers. Every error returned by this package carries at least one of
// these; test for them with errors.Is.
var (
	// ErrConfig indicates a bad builder configuration, a bad option value, or an
	// invalid argument to a tree setter.
	ErrConfig = errors.New("treelite: invalid configuration")
	// ErrValidation indicates that Commit found structural problems. The error
	// is a *ValidationError carrying every finding.
	ErrValidation = errors.New("treelite: model validation failed")
	// ErrCorruptFormat indicates a serialized model with a bad header (magic,
	// version, byte order, codec) or a checksum mismatch.
	ErrCorruptFormat = errors.New("treelite: corrupt model format")
	// ErrTruncatedData indicates a serialized model shorter than its header
	// declares.
	ErrTruncatedData = errors.New("treelite: truncated model data")
	// ErrSchema indicates a serialized model whose contents are internally
	// inconsistent.
	ErrSchema = errors.New("treelite: inconsistent model schema")
	// ErrShape indicates a prediction batch whose shape does not match the
	// model.
	ErrShape = errors.New("treelite: batch shape mismatch")
	// ErrUnsupportedTransform indicates an unknown prediction transform.
	ErrUnsupportedTransform = errors.New("treelite: unsupported prediction transform")
	// ErrIO indicates a failed file operation.
	ErrIO = errors.New("treelite: i/o error")
	// ErrIndex indicates an out of range tree index.
	ErrIndex = errors.New("treelite: tree index out of range")
	// ErrNodeNotFound indicates a node key that is not present in a tree.
	ErrNodeNotFound = errors.New("treelite: node not found")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfig)
}

func corruptionErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruptFormat)
}

func truncatedErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrTruncatedData)
}

func schemaErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrSchema)
}

func ioErrorf(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}

// FindingKind classifies a structural problem found by Commit.
type FindingKind uint8

// The kinds of findings reported by ModelBuilder.Commit. All of them reject
// the model except FindingOrphanedNode, which Commit logs as a warning before
// dropping the node.
const (
	FindingEmptyModel FindingKind = iota
	FindingMissingRoot
	FindingRootNotPresent
	FindingDanglingChild
	FindingIdenticalChildren
	FindingMultipleParents
	FindingCycle
	FindingOrphanedNode
	FindingFeatureOutOfRange
	FindingLeafVectorLength
	FindingMixedLeafKinds
	FindingTransformClassMismatch
	FindingTreeClassCount
)

var findingKindNames = [...]string{
	FindingEmptyModel:             "empty model",
	FindingMissingRoot:            "missing root",
	FindingRootNotPresent:         "root not present",
	FindingDanglingChild:          "dangling child",
	FindingIdenticalChildren:      "identical children",
	FindingMultipleParents:        "multiple parents",
	FindingCycle:                  "cycle",
	FindingOrphanedNode:           "orphaned node",
	FindingFeatureOutOfRange:      "feature out of range",
	FindingLeafVectorLength:       "leaf vector length",
	FindingMixedLeafKinds:         "mixed leaf kinds",
	FindingTransformClassMismatch: "transform/class mismatch",
	FindingTreeClassCount:         "tree/class count",
}

// String implements fmt.Stringer.
func (k FindingKind) String() string {
	if int(k) < len(findingKindNames) {
		return findingKindNames[k]
	}
	return "unknown"
}

// SafeFormat implements redact.SafeFormatter.
func (k FindingKind) SafeFormat(w redact.SafePrinter, _ rune) {
	w.SafeString(redact.SafeString(k.String()))
}

// Finding is a single structural problem found by Commit. Tree and Key are -1
// when the finding is not specific to a tree or a node.
type Finding struct {
	Kind   FindingKind
	Tree   int
	Key    int
	Detail string
}

// String implements fmt.Stringer.
func (f Finding) String() string {
	return redact.StringWithoutMarkers(f)
}

// SafeFormat implements redact.SafeFormatter.
func (f Finding) SafeFormat(w redact.SafePrinter, _ rune) {
	switch {
	case f.Tree >= 0 && f.Key >= 0:
		w.Printf("tree %d, node %d: %s", f.Tree, f.Key, f.Kind)
	case f.Tree >= 0:
		w.Printf("tree %d: %s", f.Tree, f.Kind)
	default:
		w.Printf("model: %s", f.Kind)
	}
	if f.Detail != "" {
		w.Printf(": %s", redact.SafeString(f.Detail))
	}
}

// ValidationError is returned (marked with ErrValidation) by Commit. It lists
// every finding in tree order, then node key order.
type ValidationError struct {
	Findings []Finding
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("treelite: model validation failed:")
	for _, f := range e.Findings {
		b.WriteString("\n  ")
		b.WriteString(f.String())
	}
	return b.String()
}

// Has reports whether any finding has the given kind.
func (e *ValidationError) Has(kind FindingKind) bool {
	for _, f := range e.Findings {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
