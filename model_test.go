// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package treelite

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
)

// parseTrees parses a textual description of trees into b. Each tree starts
// with a "tree" line and continues with one line per node:
//
//	tree [root=<key>] [weight=<w>]
//	<key>: num f<feature> <op> <threshold> [default-left] -> <left> <right>
//	<key>: cat f<feature> {<c>,<c>...} [default-left] -> <left> <right>
//	<key>: leaf <value>
//	<key>: vec <value> <value>...
//	delete <key>
//	root <key>
func parseTrees(b *ModelBuilder, input string) error {
	var tree *Tree
	for _, line := range strings.Split(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch {
		case fields[0] == "tree":
			tree = NewTree()
			b.Append(tree)
			for _, arg := range fields[1:] {
				k, v, _ := strings.Cut(arg, "=")
				switch k {
				case "root":
					if err := tree.SetRoot(atoi(v)); err != nil {
						return err
					}
				case "weight":
					if err := tree.SetWeight(atof(v)); err != nil {
						return err
					}
				default:
					return errors.Newf("unknown tree argument %q", arg)
				}
			}
		case tree == nil:
			return errors.Newf("node before tree: %q", line)
		case fields[0] == "delete":
			if err := tree.DeleteNode(atoi(fields[1])); err != nil {
				return err
			}
		case fields[0] == "root":
			if err := tree.SetRoot(atoi(fields[1])); err != nil {
				return err
			}
		default:
			if err := parseNode(tree, fields); err != nil {
				return errors.Wrapf(err, "%q", line)
			}
		}
	}
	return nil
}

func parseNode(tree *Tree, fields []string) error {
	key := atoi(strings.TrimSuffix(fields[0], ":"))
	switch fields[1] {
	case "leaf":
		return tree.SetLeafNode(key, atof(fields[2]))
	case "vec":
		vals := make([]float64, len(fields)-2)
		for i, f := range fields[2:] {
			vals[i] = atof(f)
		}
		return tree.SetLeafVectorNode(key, vals)
	}

	// Test nodes end with "-> <left> <right>".
	n := len(fields)
	if n < 5 || fields[n-3] != "->" {
		return errors.New("test node must end with -> <left> <right>")
	}
	left, right := atoi(fields[n-2]), atoi(fields[n-1])
	defaultLeft := fields[n-4] == "default-left"
	feature := atoi(strings.TrimPrefix(fields[2], "f"))
	switch fields[1] {
	case "num":
		op, err := ParseOperator(fields[3])
		if err != nil {
			return err
		}
		return tree.SetNumericalTestNode(key, NumericalTest{
			Feature: feature, Op: op, Threshold: atof(fields[4]),
			DefaultLeft: defaultLeft, Left: left, Right: right,
		})
	case "cat":
		var cats []uint32
		for _, c := range strings.Split(strings.Trim(fields[3], "{}"), ",") {
			if c != "" {
				cats = append(cats, uint32(atoi(c)))
			}
		}
		return tree.SetCategoricalTestNode(key, CategoricalTest{
			Feature: feature, LeftCategories: cats,
			DefaultLeft: defaultLeft, Left: left, Right: right,
		})
	default:
		return errors.Newf("unknown node kind %q", fields[1])
	}
}

func atoi(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		panic(err)
	}
	return v
}

func atof(s string) float64 {
	if s == "nan" || s == "?" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(err)
	}
	return v
}

func parseRows(input string) Rows {
	var rows Rows
	for _, line := range strings.Split(input, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			row[i] = atof(f)
		}
		rows = append(rows, row)
	}
	return rows
}

func TestModelDataDriven(t *testing.T) {
	var m *Model
	datadriven.RunTest(t, "testdata/model", func(t *testing.T, d *datadriven.TestData) string {
		switch d.Cmd {
		case "build":
			cfg := BuilderConfig{Logger: NoopLogger{}}
			d.ScanArgs(t, "num-feature", &cfg.NumFeature)
			d.MaybeScanArgs(t, "num-class", &cfg.NumClass)
			d.MaybeScanArgs(t, "transform", &cfg.PredTransform)
			var bias, alpha string
			if d.MaybeScanArgs(t, "bias", &bias) {
				cfg.GlobalBias = atof(bias)
			}
			if d.MaybeScanArgs(t, "alpha", &alpha) {
				cfg.SigmoidAlpha = atof(alpha)
			}
			cfg.AverageTreeOutput = d.HasArg("average")
			b, err := NewModelBuilder(cfg)
			if err != nil {
				return err.Error()
			}
			if err := parseTrees(b, d.Input); err != nil {
				return err.Error()
			}
			built, err := b.Commit()
			if err != nil {
				return err.Error()
			}
			m = built
			return m.String()

		case "predict":
			p, err := NewPredictor(m, &Options{Logger: NoopLogger{}})
			if err != nil {
				return err.Error()
			}
			rows := parseRows(d.Input)
			var buf strings.Builder
			if d.HasArg("leaves") {
				keys, err := p.PredictLeafKeys(rows)
				if err != nil {
					return err.Error()
				}
				for i := 0; i < keys.NumRow; i++ {
					fmt.Fprintln(&buf, strings.Trim(fmt.Sprint(keys.Row(i)), "[]"))
				}
				return buf.String()
			}
			predict := p.Predict
			if d.HasArg("raw") {
				predict = p.PredictRaw
			}
			out, err := predict(rows)
			if err != nil {
				return err.Error()
			}
			for i := 0; i < out.NumRow; i++ {
				for j, v := range out.Row(i) {
					if j > 0 {
						buf.WriteString(" ")
					}
					fmt.Fprintf(&buf, "%.6g", v)
				}
				buf.WriteString("\n")
			}
			return buf.String()

		case "round-trip":
			opts := &Options{Logger: NoopLogger{}}
			if d.HasArg("compression") {
				var name string
				d.ScanArgs(t, "compression", &name)
				c, err := ParseCompression(name)
				if err != nil {
					return err.Error()
				}
				opts.Compression = c
			}
			data, err := Serialize(m, opts)
			if err != nil {
				return err.Error()
			}
			m2, err := Deserialize(data, opts)
			if err != nil {
				return err.Error()
			}
			if !m.Equal(m2) {
				return "models differ"
			}
			m = m2
			return "ok"

		default:
			return fmt.Sprintf("unknown command: %s", d.Cmd)
		}
	})
}
