// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// lpt_decide builds a graph with one dequantized operation, described by the flags, runs the
// low-precision rewrite on it, and prints the decision and the rewritten graph.
//
// Example:
//
//	lpt_decide -op=Relu -input=u8 -subtract=128 -multiply=0.1,0.2,0.3 -channels=3
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/gomlx/lowprecision/pkg/lpt/rewrite"
	"github.com/gomlx/lowprecision/pkg/lpt/rules"
	"github.com/gomlx/lowprecision/pkg/support/xslices"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagOp       = flag.String("op", "Relu", "Operation fed by the dequantization: Relu, MaxPool or AvgPool.")
	flagInput    = flag.String("input", "u8", "DType of the encoded input: u8, i8, f32, ...")
	flagConvert  = flag.String("convert", "f32", "DType the input is converted to. Empty for no convert.")
	flagSubtract = xslices.Flag("subtract", nil, "Comma-separated zero-points: one value, or one per channel. "+
		"Empty for no subtract.", parseFloat)
	flagMultiply = xslices.Flag("multiply", []float64{0.1}, "Comma-separated scales: one value, or one per channel. "+
		"Empty for no multiply.", parseFloat)
	flagPreset           = flag.String("preset", "u8i8", "Supported precisions: u8i8, i8i8 or u8u8.")
	flagAsymmetric       = flag.Bool("asymmetric", true, "Support asymmetric quantization (zero-points).")
	flagUpdatePrecisions = flag.Bool("update_precisions", true,
		"Let operations run on the encoded type. If false, operations keep their declared floating type.")
	flagChannels = flag.Int("channels", 3, "Number of channels of the NCHW input.")
)

// graphConfig describes the graph built by buildGraph.
type graphConfig struct {
	op                 graph.OpType
	input, convert     dtypes.DType
	subtract, multiply []float64
	channels           int
}

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if flag.NArg() > 0 {
		klog.Errorf("Unexpected arguments %q. See 'lpt_decide -help'.", flag.Args())
		os.Exit(1)
	}

	config := must.M1(configFromFlags())
	p := must.M1(newParams(*flagPreset))
	g := must.M1(buildGraph(config))
	rewritten, report := rewrite.Run(g, rules.DefaultRegistry(), p)

	fmt.Println(titleStyle.Render(fmt.Sprintf("Decision for %s", config.op)))
	table := newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Row("params", p.String())
	for _, d := range report.Diagnostics {
		table.Row("operation", fmt.Sprintf("#%d %s", d.Consumer, d.OpType))
		table.Row("dequantization", d.Descriptor.String())
		table.Row("outcome", d.Outcome.String())
		switch d.Outcome {
		case rewrite.OutcomeRewritten, rewrite.OutcomeUnchanged:
			table.Row("before", d.Decision.DequantizationBefore.String())
			table.Row("precision", shapes.ShortName(d.Decision.PrecisionAfterOperation))
			table.Row("after", d.Decision.DequantizationAfter.String())
		default:
			table.Row("error", fmt.Sprintf("%v", d.Err))
		}
	}
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Graphs"))
	table = newPlainTable(lipgloss.Right, lipgloss.Left)
	table.Headers("", "original", "rewritten")
	table.Row("# nodes", humanize.Comma(int64(g.NumNodes())), humanize.Comma(int64(rewritten.NumNodes())))
	table.Row("operations", opsList(g), opsList(rewritten))
	diff := must.M1(maxAbsDiff(g, rewritten, config))
	table.Row("max |diff|", "", strconv.FormatFloat(diff, 'g', 6, 64))
	fmt.Println(table.Render())
	klog.V(1).Infof("Rewritten graph:\n%s", rewritten)
}

func configFromFlags() (config graphConfig, err error) {
	config.op, err = graph.OpTypeString(*flagOp)
	if err != nil {
		err = errors.Wrapf(err, "invalid -op")
		return
	}
	config.input = shapes.FromShortName(*flagInput)
	if config.input == dtypes.InvalidDType {
		err = errors.Errorf("invalid -input=%q", *flagInput)
		return
	}
	if *flagConvert != "" {
		config.convert = shapes.FromShortName(*flagConvert)
		if config.convert == dtypes.InvalidDType {
			err = errors.Errorf("invalid -convert=%q", *flagConvert)
			return
		}
	}
	config.subtract = *flagSubtract
	config.multiply = *flagMultiply
	config.channels = *flagChannels
	return
}

func newParams(preset string) (*params.Params, error) {
	var config params.Config
	switch preset {
	case "u8i8":
		config = params.U8I8()
	case "i8i8":
		config = params.I8I8()
	case "u8u8":
		config = params.U8U8()
	default:
		return nil, errors.Errorf("unknown -preset=%q", preset)
	}
	return params.New(config.
		WithSupportAsymmetricQuantization(*flagAsymmetric).
		WithUpdatePrecisions(*flagUpdatePrecisions))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// buildGraph builds input -> [Convert] -> [Subtract] -> [Multiply] -> op, with an NCHW input of
// shape [1, channels, 4, 4]. Graph building errors are returned as errors.
func buildGraph(config graphConfig) (g *graph.Graph, err error) {
	if config.channels <= 0 {
		return nil, errors.Errorf("invalid number of channels %d", config.channels)
	}
	err = exceptions.TryCatch[error](func() {
		g = graph.New("lpt_decide")
		x := g.Parameter("x", shapes.Make(config.input, 1, config.channels, 4, 4))
		dtype := config.input
		if config.convert != dtypes.InvalidDType {
			x = g.Convert(x, config.convert)
			dtype = config.convert
		}
		if config.subtract != nil {
			x = g.Subtract(x, g.ConstantOf(dtype, config.subtract, 1, len(config.subtract), 1, 1))
		}
		if config.multiply != nil {
			x = g.Multiply(x, g.ConstantOf(dtype, config.multiply, 1, len(config.multiply), 1, 1))
		}
		switch config.op {
		case graph.OpTypeRelu:
			x = g.Relu(x)
		case graph.OpTypeMaxPool:
			x = g.MaxPool(x, 2)
		case graph.OpTypeAvgPool:
			x = g.AvgPool(x, 2)
		default:
			panic(errors.Errorf("operation %s not supported by lpt_decide", config.op))
		}
		g.SetOutputs(x)
	})
	if err != nil {
		g = nil
	}
	return
}

// opsList returns the operations of g, in topological order, without the constants.
func opsList(g *graph.Graph) string {
	var ops []string
	for _, id := range g.TopologicalOrder() {
		if op := g.Node(id).OpType(); op != graph.OpTypeConstant {
			ops = append(ops, op.String())
		}
	}
	return strings.Join(ops, " -> ")
}

// maxAbsDiff evaluates both graphs on an input sweeping the range of the input dtype, and
// returns the largest absolute difference between their outputs.
func maxAbsDiff(g, rewritten *graph.Graph, config graphConfig) (float64, error) {
	size := config.channels * 4 * 4
	input := make([]float64, size)
	isInteger := config.input.IsInt()
	var lowest, highest float64
	if isInteger {
		lowest, highest = dequantization.IntegerLimits(config.input)
	}
	for ii := range input {
		if isInteger {
			input[ii] = lowest + math.Mod(float64(ii)*37, highest-lowest+1)
		} else {
			input[ii] = float64(ii-size/2) / 4
		}
	}
	feeds := map[string][]float64{"x": input}
	want, err := g.Eval(feeds)
	if err != nil {
		return 0, err
	}
	got, err := rewritten.Eval(feeds)
	if err != nil {
		return 0, err
	}
	var diff float64
	for ii, v := range want[0] {
		diff = max(diff, math.Abs(v-got[0][ii]))
	}
	return diff, nil
}
