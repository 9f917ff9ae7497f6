// Copyright 2026 The Treelite-Go Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/adamreeve/treelite"
	"github.com/adamreeve/treelite/vfs"
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/crlib/crstrings"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/olekukonko/tablewriter"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

// modelT implements model-level tools, including both configuration state and
// the commands themselves.
type modelT struct {
	Root     *cobra.Command
	Describe *cobra.Command
	Dump     *cobra.Command
	Predict  *cobra.Command
	Convert  *cobra.Command
	Bench    *cobra.Command

	opts *treelite.Options

	// Flags.
	compression compressionFlag
	schedule    scheduleFlag
	parallelism int
	header      bool
	leaves      bool
	raw         bool
	benchRows   int
	benchIters  int
	seed        uint64
	missing     float64
}

func newModel(opts *treelite.Options) *modelT {
	m := &modelT{opts: opts}

	m.Root = &cobra.Command{
		Use:   "model",
		Short: "serialized model introspection tools",
	}
	m.Describe = &cobra.Command{
		Use:   "describe <models>",
		Short: "describe serialized models",
		Long: `
Print a summary of each model followed by a table of its trees: the output
class of the tree, its weight, node count, depth and root key.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  m.runDescribe,
	}
	m.Dump = &cobra.Command{
		Use:   "dump <model>",
		Short: "print an annotated hex dump of a serialized model",
		Long: `
Print every field of the serialized model with its offset and decoded value.
The output is best effort: a corrupt file is dumped as far as it can be parsed.
`,
		Args: cobra.ExactArgs(1),
		Run:  m.runDump,
	}
	m.Predict = &cobra.Command{
		Use:   "predict <model> <csv>",
		Short: "predict rows read from a CSV file",
		Long: `
Evaluate the model against every row of the CSV file and print one line of
outputs per row. Empty fields, "nan" and "?" are missing values, as are any
trailing features a row omits.
`,
		Args: cobra.ExactArgs(2),
		Run:  m.runPredict,
	}
	m.Convert = &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "re-serialize a model with different options",
		Args:  cobra.ExactArgs(2),
		Run:   m.runConvert,
	}
	m.Bench = &cobra.Command{
		Use:   "bench <model>",
		Short: "benchmark prediction over random rows",
		Long: `
Repeatedly predict a batch of random rows and report the latency distribution
of the prediction calls and the overall row throughput.
`,
		Args: cobra.ExactArgs(1),
		Run:  m.runBench,
	}

	m.Root.AddCommand(m.Describe, m.Dump, m.Predict, m.Convert, m.Bench)

	for _, cmd := range []*cobra.Command{m.Predict, m.Bench} {
		cmd.Flags().IntVar(
			&m.parallelism, "parallelism", 0, "number of prediction workers (0 for all processors)")
		cmd.Flags().Var(
			&m.schedule, "schedule", "row schedule: static, guided, dynamic or dynamic(<chunk>)")
	}
	m.Predict.Flags().BoolVar(
		&m.header, "header", false, "skip the first line of the CSV file")
	m.Predict.Flags().BoolVar(
		&m.raw, "raw", false, "print margins without the prediction transform")
	m.Predict.Flags().BoolVar(
		&m.leaves, "leaves", false, "print the key of the leaf reached in each tree")
	m.Convert.Flags().Var(
		&m.compression, "compression", "body compression: none, snappy or zstd")
	m.Bench.Flags().IntVar(
		&m.benchRows, "rows", 10000, "rows per prediction call")
	m.Bench.Flags().IntVar(
		&m.benchIters, "iters", 20, "number of prediction calls")
	m.Bench.Flags().Uint64Var(
		&m.seed, "seed", 1, "random seed for the generated rows")
	m.Bench.Flags().Float64Var(
		&m.missing, "missing", 0.1, "fraction of generated values that are missing")
	return m
}

func (m *modelT) load(path string) (*treelite.Model, bool) {
	model, err := treelite.DeserializeFile(path, m.opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return nil, false
	}
	return model, true
}

func (m *modelT) predictorOptions() *treelite.Options {
	opts := *m.opts
	opts.Parallelism = m.parallelism
	opts.Schedule = treelite.Schedule(m.schedule)
	return &opts
}

func (m *modelT) runDescribe(cmd *cobra.Command, args []string) {
	for _, path := range args {
		data, err := vfs.ReadFile(m.opts.FS, path)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			continue
		}
		model, err := treelite.Deserialize(data, m.opts)
		if err != nil {
			fmt.Fprintf(stderr, "%s: %s\n", path, err)
			continue
		}
		fmt.Fprintf(stdout, "%s\n", path)
		fmt.Fprintf(stdout, "  size:  %s\n", crhumanize.Bytes(int64(len(data)), crhumanize.Compact, crhumanize.OmitI))
		fmt.Fprintf(stdout, "  %s\n", model)
		p := model.TransformParams()
		fmt.Fprintf(stdout, "  params: sigmoid_alpha=%g ratio_c=%g%s\n",
			p.SigmoidAlpha, p.RatioC, crstrings.If(model.VectorLeaves(), ", vector leaves"))

		tbl := tablewriter.NewWriter(stdout)
		tbl.SetHeader([]string{"Tree", "Class", "Weight", "Nodes", "Depth", "Root"})
		for i := 0; i < model.NumTree(); i++ {
			tv := model.Tree(i)
			class := "all"
			if c := model.TreeClass(i); c >= 0 {
				class = strconv.Itoa(c)
			}
			tbl.Append([]string{
				strconv.Itoa(i),
				class,
				strconv.FormatFloat(tv.Weight(), 'g', -1, 64),
				strconv.Itoa(tv.NumNode()),
				strconv.Itoa(tv.Depth()),
				strconv.Itoa(tv.Root()),
			})
		}
		tbl.Render()
	}
}

func (m *modelT) runDump(cmd *cobra.Command, args []string) {
	data, err := vfs.ReadFile(m.opts.FS, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	fmt.Fprint(stdout, treelite.FormatBinary(data))
}

func (m *modelT) runPredict(cmd *cobra.Command, args []string) {
	model, ok := m.load(args[0])
	if !ok {
		return
	}
	f, err := m.opts.FS.Open(args[1])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer f.Close()
	rows, err := readCSV(f, model.NumFeature(), m.header)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %s\n", args[1], err)
		return
	}
	p, err := treelite.NewPredictor(model, m.predictorOptions())
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}

	if m.leaves {
		keys, err := p.PredictLeafKeys(rows)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		for i := 0; i < keys.NumRow; i++ {
			for j, k := range keys.Row(i) {
				if j > 0 {
					fmt.Fprint(stdout, " ")
				}
				fmt.Fprint(stdout, k)
			}
			fmt.Fprintln(stdout)
		}
		return
	}

	predict := p.Predict
	if m.raw {
		predict = p.PredictRaw
	}
	out, err := predict(rows)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	for i := 0; i < out.NumRow; i++ {
		for j, v := range out.Row(i) {
			if j > 0 {
				fmt.Fprint(stdout, " ")
			}
			fmt.Fprint(stdout, strconv.FormatFloat(v, 'g', 6, 64))
		}
		fmt.Fprintln(stdout)
	}
}

func (m *modelT) runConvert(cmd *cobra.Command, args []string) {
	model, ok := m.load(args[0])
	if !ok {
		return
	}
	opts := *m.opts
	opts.Compression = treelite.Compression(m.compression)
	if err := treelite.SerializeFile(model, args[1], &opts); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
	}
}

func (m *modelT) runBench(cmd *cobra.Command, args []string) {
	model, ok := m.load(args[0])
	if !ok {
		return
	}
	if m.benchRows < 1 || m.benchIters < 1 {
		fmt.Fprintf(stderr, "--rows and --iters must be positive\n")
		return
	}
	opts := m.predictorOptions()
	opts.Metrics = treelite.NewPredictorMetrics("treelite")
	p, err := treelite.NewPredictor(model, opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}

	rng := rand.New(rand.NewSource(m.seed))
	batch := treelite.DenseBatch{
		Values: make([]float64, m.benchRows*model.NumFeature()),
		NumCol: model.NumFeature(),
	}
	for i := range batch.Values {
		if rng.Float64() < m.missing {
			batch.Values[i] = math.NaN()
		} else {
			batch.Values[i] = rng.NormFloat64()
		}
	}

	hist := hdrhistogram.New(1, int64(time.Minute/time.Microsecond), 3)
	start := crtime.NowMono()
	for i := 0; i < m.benchIters; i++ {
		callStart := crtime.NowMono()
		if _, err := p.Predict(batch); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		if err := hist.RecordValue(max(int64(callStart.Elapsed()/time.Microsecond), 1)); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
	}
	elapsed := start.Elapsed()

	var rows dto.Metric
	if err := opts.Metrics.Rows.Write(&rows); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	total := rows.GetCounter().GetValue()
	ms := func(q float64) float64 {
		return float64(hist.ValueAtQuantile(q)) / 1000
	}
	fmt.Fprintf(stdout, "%s\n", model)
	fmt.Fprintf(stdout, "%d calls of %s rows, schedule %s\n",
		m.benchIters, crhumanize.Count(int64(m.benchRows), crhumanize.Compact),
		treelite.Schedule(m.schedule))
	fmt.Fprintf(stdout, "latency(ms)  p50 %6.2f  p95 %6.2f  p99 %6.2f  max %6.2f\n",
		ms(50), ms(95), ms(99), ms(100))
	fmt.Fprintf(stdout, "throughput   %s rows/s\n",
		crhumanize.Count(int64(total/elapsed.Seconds()), crhumanize.Compact))
}
