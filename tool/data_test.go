// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adamreeve/treelite"
	"github.com/cockroachdb/datadriven"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// writeFixtures writes the models and CSV files the tool tests run against.
// small.bin has two trees over two features with a sigmoid transform:
//
//	tree 0: f0 < 0.5 (missing goes left) ? -1 : 1
//	tree 1: f1 in {1,3} ? 0.25 : 0.5
func writeFixtures(t *testing.T, dir string) {
	b, err := treelite.NewModelBuilder(treelite.BuilderConfig{
		NumFeature:    2,
		PredTransform: "sigmoid",
		Logger:        treelite.NoopLogger{},
	})
	require.NoError(t, err)

	t0 := treelite.NewTree()
	require.NoError(t, t0.SetNumericalTestNode(0, treelite.NumericalTest{
		Feature: 0, Op: treelite.OpLT, Threshold: 0.5, DefaultLeft: true, Left: 1, Right: 2,
	}))
	require.NoError(t, t0.SetLeafNode(1, -1))
	require.NoError(t, t0.SetLeafNode(2, 1))
	require.NoError(t, t0.SetRoot(0))
	b.Append(t0)

	t1 := treelite.NewTree()
	require.NoError(t, t1.SetCategoricalTestNode(0, treelite.CategoricalTest{
		Feature: 1, LeftCategories: []uint32{1, 3}, Left: 1, Right: 2,
	}))
	require.NoError(t, t1.SetLeafNode(1, 0.25))
	require.NoError(t, t1.SetLeafNode(2, 0.5))
	require.NoError(t, t1.SetRoot(0))
	b.Append(t1)

	m, err := b.Commit()
	require.NoError(t, err)
	require.NoError(t, treelite.SerializeFile(m, filepath.Join(dir, "small.bin"), &treelite.Options{
		Compression: treelite.SnappyCompression,
		Logger:      treelite.NoopLogger{},
	}))

	for name, contents := range map[string]string{
		"rows.csv":    "0,1\n1,3\n,2\n0.7,\n",
		"header.csv":  "a,b\n0,1\n",
		"short.csv":   "# trailing features are missing\n1\n",
		"wide.csv":    "1,2,3\n",
		"bad.csv":     "1,x\n",
		"garbage.bin": "not a model",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644))
	}
}

// runTool runs the command line with stdout and stderr captured, returning
// the output or the error cobra reports.
func runTool(args []string) string {
	var buf bytes.Buffer
	stdout = &buf
	stderr = &buf
	osExit = func(int) {}

	defer func() {
		stdout = os.Stdout
		stderr = os.Stderr
		osExit = os.Exit
	}()

	c := &cobra.Command{}
	c.AddCommand(New().Commands...)
	c.SetArgs(args)
	c.SetOutput(&buf)
	if err := c.Execute(); err != nil {
		return err.Error()
	}
	return buf.String()
}

func TestToolDataDriven(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)

	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
			args := []string{d.Cmd}
			for _, arg := range d.CmdArgs {
				args = append(args, arg.String())
			}
			args = append(args, strings.Fields(d.Input)...)
			for i := range args {
				args[i] = strings.ReplaceAll(args[i], "$TMP", dir)
			}
			return strings.ReplaceAll(runTool(args), dir, "$TMP")
		})
	})
}

func TestDescribe(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	out := runTool([]string{"model", "describe", filepath.Join(dir, "small.bin")})
	for _, want := range []string{
		filepath.Join(dir, "small.bin") + "\n",
		"  size:  ",
		"  model: 2 trees, 6 nodes, 2 features, 1 classes, transform sigmoid\n",
		"  params: sigmoid_alpha=1 ratio_c=1\n",
		"TREE", "CLASS", "WEIGHT", "NODES", "DEPTH", "ROOT",
	} {
		require.Contains(t, out, want)
	}

	out = runTool([]string{"model", "describe", filepath.Join(dir, "garbage.bin")})
	require.Contains(t, out, "too short")
}

func TestDumpAndConvert(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	src := filepath.Join(dir, "small.bin")
	dst := filepath.Join(dir, "small.zst")

	out := runTool([]string{"model", "dump", src})
	require.Contains(t, out, "# body (snappy, ")
	require.Contains(t, out, "# node 0: numerical test, <\n")
	require.Contains(t, out, "# node 0: categorical test\n")

	out = runTool([]string{"model", "convert", "--compression=zstd", src, dst})
	require.Contains(t, out, "treelite: wrote model to "+dst)

	out = runTool([]string{"model", "dump", dst})
	require.Contains(t, out, "# body (zstd, ")

	rows := filepath.Join(dir, "rows.csv")
	require.Equal(t,
		runTool([]string{"model", "predict", src, rows}),
		runTool([]string{"model", "predict", dst, rows}))
}

func TestBench(t *testing.T) {
	dir := t.TempDir()
	writeFixtures(t, dir)
	out := runTool([]string{
		"model", "bench", "--rows=100", "--iters=3", "--schedule=guided", "--parallelism=1",
		filepath.Join(dir, "small.bin"),
	})
	require.Contains(t, out, "3 calls of 100 rows, schedule guided\n")
	require.Contains(t, out, "latency(ms)  p50 ")
	require.Contains(t, out, " rows/s\n")

	out = runTool([]string{"model", "bench", "--iters=0", filepath.Join(dir, "small.bin")})
	require.Equal(t, "--rows and --iters must be positive\n", out)
}
