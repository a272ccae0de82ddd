// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"math"

	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
)

// Eval evaluates the graph and returns the flat values of each output.
//
// It is a reference evaluator, not a kernel library: values are carried as float64, and
// only rounded to the node dtype on Convert, on parameters and for integer results.
// Parameters are fed by name.
func (g *Graph) Eval(feeds map[string][]float64) ([][]float64, error) {
	values := make(map[NodeID][]float64)
	for _, id := range g.TopologicalOrder() {
		node := g.nodes[id]
		out, err := g.evalNode(node, values, feeds)
		if err != nil {
			return nil, errors.WithMessagef(err, "graph %q: evaluating %s", g.name, node)
		}
		if !node.shape.DType.IsFloat() && node.opType != OpTypeConstant {
			for ii, v := range out {
				out[ii] = dequantization.RoundTo(node.shape.DType, v)
			}
		}
		values[id] = out
	}
	results := make([][]float64, len(g.outputs))
	for ii, output := range g.outputs {
		results[ii] = values[output]
	}
	return results, nil
}

func (g *Graph) evalNode(node *Node, values map[NodeID][]float64, feeds map[string][]float64) ([]float64, error) {
	shape := node.shape
	switch node.opType {
	case OpTypeParameter:
		name := g.ParameterName(node.id)
		feed, found := feeds[name]
		if !found {
			return nil, errors.Errorf("missing value for parameter %q", name)
		}
		if len(feed) != shape.Size() {
			return nil, errors.Errorf("parameter %q fed with %d values, shape %s requires %d",
				name, len(feed), shape, shape.Size())
		}
		out := make([]float64, len(feed))
		for ii, v := range feed {
			out[ii] = dequantization.RoundTo(shape.DType, v)
		}
		return out, nil

	case OpTypeConstant:
		return g.ConstantValues(node.id).Values, nil

	case OpTypeConvert:
		x := values[node.inputs[0]]
		out := make([]float64, len(x))
		for ii, v := range x {
			out[ii] = dequantization.RoundTo(shape.DType, v)
		}
		return out, nil

	case OpTypeSubtract, OpTypeMultiply:
		x, y := values[node.inputs[0]], values[node.inputs[1]]
		yShape := g.nodes[node.inputs[1]].shape
		out := make([]float64, len(x))
		for ii, v := range x {
			operand := y[shape.BroadcastIndex(yShape, ii)]
			if node.opType == OpTypeSubtract {
				out[ii] = v - operand
			} else {
				out[ii] = v * operand
			}
		}
		return out, nil

	case OpTypeRelu:
		x := values[node.inputs[0]]
		out := make([]float64, len(x))
		for ii, v := range x {
			out[ii] = math.Max(v, 0)
		}
		return out, nil

	case OpTypeMaxPool, OpTypeAvgPool:
		inShape := g.nodes[node.inputs[0]].shape
		return evalPool(node.opType, values[node.inputs[0]], inShape, shape, node.data.(*poolData).window), nil

	case OpTypeConcatenate:
		return g.evalConcatenate(node, values), nil
	}
	return nil, errors.Errorf("evaluation of %s not implemented", node.opType)
}

func evalPool(opType OpType, x []float64, inShape, outShape shapes.Shape, window int) []float64 {
	batch, channels := outShape.Dim(0), outShape.Channels()
	inH, inW := inShape.Dim(-2), inShape.Dim(-1)
	outH, outW := outShape.Dim(-2), outShape.Dim(-1)
	out := make([]float64, 0, outShape.Size())
	for n := range batch {
		for c := range channels {
			base := (n*channels + c) * inH * inW
			for oh := range outH {
				for ow := range outW {
					acc := math.Inf(-1)
					if opType == OpTypeAvgPool {
						acc = 0
					}
					for wh := range window {
						for ww := range window {
							v := x[base+(oh*window+wh)*inW+ow*window+ww]
							if opType == OpTypeMaxPool {
								acc = math.Max(acc, v)
							} else {
								acc += v
							}
						}
					}
					if opType == OpTypeAvgPool {
						acc /= float64(window * window)
					}
					out = append(out, acc)
				}
			}
		}
	}
	return out
}

func (g *Graph) evalConcatenate(node *Node, values map[NodeID][]float64) []float64 {
	shape := node.shape
	outer := 1
	for _, dim := range shape.Dimensions[:shapes.ChannelAxis] {
		outer *= dim
	}
	inner := 1
	for _, dim := range shape.Dimensions[shapes.ChannelAxis+1:] {
		inner *= dim
	}
	out := make([]float64, 0, shape.Size())
	for o := range outer {
		for _, input := range node.inputs {
			chunk := g.nodes[input].shape.Dimensions[shapes.ChannelAxis] * inner
			out = append(out, values[input][o*chunk:(o+1)*chunk]...)
		}
	}
	return out
}
