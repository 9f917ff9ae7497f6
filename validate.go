// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"sort"
)

// validate checks the structure of trees against cfg and returns every
// problem found, ordered by tree, then key, then kind. Model-level findings
// come first.
func validate(cfg *BuilderConfig, transform *Transform, trees []*Tree) []Finding {
	var findings []Finding
	add := func(kind FindingKind, tree, key int, format string, args ...interface{}) {
		findings = append(findings, Finding{
			Kind:   kind,
			Tree:   tree,
			Key:    key,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	if len(trees) == 0 {
		add(FindingEmptyModel, -1, -1, "")
	}
	if !transform.Accepts(cfg.NumClass) {
		if cfg.NumClass == 1 {
			add(FindingTransformClassMismatch, -1, -1, "%s requires num_class > 1", transform.Name)
		} else {
			add(FindingTransformClassMismatch, -1, -1, "%s requires num_class == 1, model has %d",
				transform.Name, cfg.NumClass)
		}
	}

	var scalarLeaves, vectorLeaves int
	for i, t := range trees {
		// Once the root is known, nodes it cannot reach are reported as
		// orphans only; Commit drops them.
		var state map[int]uint8
		root, ok := t.Root()
		switch {
		case !ok:
			add(FindingMissingRoot, i, -1, "")
		case !t.HasNode(root):
			add(FindingRootNotPresent, i, -1, "root key %d is not defined", root)
		default:
			var fs []Finding
			fs, state = checkReachability(i, t, root)
			findings = append(findings, fs...)
		}

		for _, key := range t.Keys() {
			if state != nil && state[key] == nodeUnvisited {
				continue
			}
			n, _ := t.nodes.Get(key)
			switch n.Kind {
			case KindNumericalTest, KindCategoricalTest:
				if n.Feature >= cfg.NumFeature {
					add(FindingFeatureOutOfRange, i, key, "feature %d, model has %d features",
						n.Feature, cfg.NumFeature)
				}
				if n.Left == n.Right {
					add(FindingIdenticalChildren, i, key, "both children are %d", n.Left)
				}
				if !t.HasNode(n.Left) {
					add(FindingDanglingChild, i, key, "left child %d is not defined", n.Left)
				}
				if n.Right != n.Left && !t.HasNode(n.Right) {
					add(FindingDanglingChild, i, key, "right child %d is not defined", n.Right)
				}
			case KindLeaf:
				scalarLeaves++
			case KindLeafVector:
				vectorLeaves++
				if len(n.LeafVector) != cfg.NumClass {
					add(FindingLeafVectorLength, i, key, "length %d, model has %d classes",
						len(n.LeafVector), cfg.NumClass)
				}
			}
		}
	}

	if cfg.NumClass > 1 {
		switch {
		case scalarLeaves > 0 && vectorLeaves > 0:
			add(FindingMixedLeafKinds, -1, -1, "%d scalar and %d vector leaves", scalarLeaves, vectorLeaves)
		case vectorLeaves == 0 && len(trees)%cfg.NumClass != 0:
			add(FindingTreeClassCount, -1, -1,
				"scalar-leaf model with %d classes needs a multiple of %d trees, has %d",
				cfg.NumClass, cfg.NumClass, len(trees))
		}
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Tree != b.Tree {
			return a.Tree < b.Tree
		}
		if a.Key != b.Key {
			return a.Key < b.Key
		}
		return a.Kind < b.Kind
	})
	return findings
}

// splitFindings separates findings that reject a model from orphaned nodes,
// which are dropped on compile.
func splitFindings(findings []Finding) (fatal, orphans []Finding) {
	for _, f := range findings {
		if f.Kind == FindingOrphanedNode {
			orphans = append(orphans, f)
		} else {
			fatal = append(fatal, f)
		}
	}
	return fatal, orphans
}

const (
	nodeUnvisited uint8 = iota
	nodeInProgress
	nodeDone
)

// checkReachability walks tree t from root and reports cycles, nodes with
// more than one parent, and defined nodes the walk never reaches. The returned
// map records the walk state of every visited key.
func checkReachability(treeIndex int, t *Tree, root int) ([]Finding, map[int]uint8) {
	var findings []Finding
	state := make(map[int]uint8, t.Len())

	type frame struct {
		key      int
		children [2]int
		n        int
		next     int
	}
	push := func(stack []frame, key int) []frame {
		state[key] = nodeInProgress
		f := frame{key: key}
		if n, _ := t.nodes.Get(key); n.Kind.IsTest() {
			f.children[0] = n.Left
			f.n = 1
			if n.Right != n.Left {
				f.children[1] = n.Right
				f.n = 2
			}
		}
		return append(stack, f)
	}

	stack := push(nil, root)
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == top.n {
			state[top.key] = nodeDone
			stack = stack[:len(stack)-1]
			continue
		}
		parent, child := top.key, top.children[top.next]
		top.next++
		if !t.HasNode(child) {
			// Reported as a dangling child.
			continue
		}
		switch state[child] {
		case nodeInProgress:
			findings = append(findings, Finding{
				Kind: FindingCycle, Tree: treeIndex, Key: child,
				Detail: fmt.Sprintf("reached again from node %d", parent),
			})
		case nodeDone:
			findings = append(findings, Finding{
				Kind: FindingMultipleParents, Tree: treeIndex, Key: child,
				Detail: fmt.Sprintf("also a child of node %d", parent),
			})
		default:
			stack = push(stack, child)
		}
	}

	for _, key := range t.Keys() {
		if state[key] == nodeUnvisited {
			findings = append(findings, Finding{
				Kind: FindingOrphanedNode, Tree: treeIndex, Key: key,
				Detail: fmt.Sprintf("not reachable from root %d", root),
			})
		}
	}
	return findings, state
}
