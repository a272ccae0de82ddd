// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/support/xslices"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/x448/float16"
)

// constantData holds the flat values of a constant, as a Go slice of the constant's dtype.
type constantData struct {
	flat any
}

// poolData holds the (square) window of pooling ops. Strides are equal to the window.
type poolData struct {
	window int
}

// Parameter creates an input of the graph, fed by name in Eval.
func (g *Graph) Parameter(name string, shape shapes.Shape) NodeID {
	if !shape.Ok() {
		exceptions.Panicf("Parameter(%q): invalid shape %s", name, shape)
	}
	return g.newNode(OpTypeParameter, shape.Clone(), name)
}

// Constant creates a constant node with the given flat values and dimensions.
// flat must be a slice of one of: uint8, int8, int32, float16.Float16, bfloat16.BFloat16,
// float32 or float64. Its length must match the dimensions.
func (g *Graph) Constant(flat any, dims ...int) NodeID {
	var dtype dtypes.DType
	var length int
	switch values := flat.(type) {
	case []uint8:
		dtype, length = dtypes.Uint8, len(values)
	case []int8:
		dtype, length = dtypes.Int8, len(values)
	case []int32:
		dtype, length = dtypes.Int32, len(values)
	case []float16.Float16:
		dtype, length = dtypes.Float16, len(values)
	case []bfloat16.BFloat16:
		dtype, length = dtypes.BFloat16, len(values)
	case []float32:
		dtype, length = dtypes.Float32, len(values)
	case []float64:
		dtype, length = dtypes.Float64, len(values)
	default:
		exceptions.Panicf("Constant(): unsupported type %T", flat)
	}
	shape := shapes.Make(dtype, dims...)
	if shape.Size() != length {
		exceptions.Panicf("Constant(): %d values given for shape %s", length, shape)
	}
	return g.newNode(OpTypeConstant, shape, &constantData{flat: flat})
}

// ConstantOf creates a constant of the given dtype and dimensions from float64 values,
// rounding them to dtype.
func (g *Graph) ConstantOf(dtype dtypes.DType, values []float64, dims ...int) NodeID {
	var flat any
	switch dtype {
	case dtypes.Uint8:
		flat = xslices.Map(values, func(v float64) uint8 { return uint8(dequantization.RoundTo(dtype, v)) })
	case dtypes.Int8:
		flat = xslices.Map(values, func(v float64) int8 { return int8(dequantization.RoundTo(dtype, v)) })
	case dtypes.Int32:
		flat = xslices.Map(values, func(v float64) int32 { return int32(dequantization.RoundTo(dtype, v)) })
	case dtypes.Float16:
		flat = xslices.Map(values, func(v float64) float16.Float16 { return float16.Fromfloat32(float32(v)) })
	case dtypes.BFloat16:
		flat = xslices.Map(values, func(v float64) bfloat16.BFloat16 { return bfloat16.FromFloat32(float32(v)) })
	case dtypes.Float32:
		flat = xslices.Map(values, func(v float64) float32 { return float32(v) })
	case dtypes.Float64:
		flat = xslices.Map(values, func(v float64) float64 { return v })
	default:
		exceptions.Panicf("ConstantOf(): unsupported dtype %s", dtype)
	}
	return g.Constant(flat, dims...)
}

// IsConstant returns whether the node is a constant.
func (g *Graph) IsConstant(id NodeID) bool {
	return g.Node(id).opType == OpTypeConstant
}

// ConstantValues returns the values of a constant node as float64, along with its dtype.
// It panics if the node is not a constant.
func (g *Graph) ConstantValues(id NodeID) dequantization.Constant {
	node := g.Node(id)
	data, ok := node.data.(*constantData)
	if !ok {
		exceptions.Panicf("ConstantValues(#%d): node is a %s, not a constant", id, node.opType)
	}
	var values []float64
	switch flat := data.flat.(type) {
	case []uint8:
		values = xslices.Map(flat, func(v uint8) float64 { return float64(v) })
	case []int8:
		values = xslices.Map(flat, func(v int8) float64 { return float64(v) })
	case []int32:
		values = xslices.Map(flat, func(v int32) float64 { return float64(v) })
	case []float16.Float16:
		values = xslices.Map(flat, func(v float16.Float16) float64 { return float64(v.Float32()) })
	case []bfloat16.BFloat16:
		values = xslices.Map(flat, func(v bfloat16.BFloat16) float64 { return float64(v.Float32()) })
	case []float32:
		values = xslices.Map(flat, func(v float32) float64 { return float64(v) })
	case []float64:
		values = xslices.Map(flat, func(v float64) float64 { return v })
	}
	return dequantization.Constant{Values: values, DType: node.shape.DType}
}

// Convert x to the given dtype.
func (g *Graph) Convert(x NodeID, dtype dtypes.DType) NodeID {
	return g.newNode(OpTypeConvert, g.Node(x).shape.WithDType(dtype), nil, x)
}

// Subtract returns x - y, where y is broadcast to x's shape.
func (g *Graph) Subtract(x, y NodeID) NodeID {
	return g.binaryOp(OpTypeSubtract, x, y)
}

// Multiply returns x * y, where y is broadcast to x's shape.
func (g *Graph) Multiply(x, y NodeID) NodeID {
	return g.binaryOp(OpTypeMultiply, x, y)
}

func (g *Graph) binaryOp(opType OpType, x, y NodeID) NodeID {
	xShape, yShape := g.Node(x).shape, g.Node(y).shape
	if xShape.DType != yShape.DType {
		exceptions.Panicf("%s(#%d, #%d): dtypes don't match (%s and %s)", opType, x, y, xShape.DType, yShape.DType)
	}
	if err := xShape.CheckBroadcastable(yShape); err != nil {
		exceptions.Panicf("%s(#%d, #%d): %v", opType, x, y, err)
	}
	return g.newNode(opType, xShape.Clone(), nil, x, y)
}

// Relu returns max(x, 0), elementwise.
func (g *Graph) Relu(x NodeID) NodeID {
	return g.newNode(OpTypeRelu, g.Node(x).shape.Clone(), nil, x)
}

// MaxPool takes the maximum over non-overlapping window x window patches of the spatial
// axes of x, which must have rank 4 (NCHW).
func (g *Graph) MaxPool(x NodeID, window int) NodeID {
	return g.pool(OpTypeMaxPool, x, window)
}

// AvgPool is like MaxPool, but takes the mean of the patches.
func (g *Graph) AvgPool(x NodeID, window int) NodeID {
	return g.pool(OpTypeAvgPool, x, window)
}

func (g *Graph) pool(opType OpType, x NodeID, window int) NodeID {
	shape := g.Node(x).shape
	if shape.Rank() != 4 {
		exceptions.Panicf("%s(#%d): requires rank 4 input, got shape %s", opType, x, shape)
	}
	if window < 1 || window > shape.Dimensions[2] || window > shape.Dimensions[3] {
		exceptions.Panicf("%s(#%d): invalid window %d for shape %s", opType, x, window, shape)
	}
	out := shape.Clone()
	out.Dimensions[2] /= window
	out.Dimensions[3] /= window
	return g.newNode(opType, out, &poolData{window: window}, x)
}

// Concatenate inputs along the channel axis. All inputs must have the same dtype, rank
// (>= 2) and dimensions, except on the channel axis.
func (g *Graph) Concatenate(inputs ...NodeID) NodeID {
	if len(inputs) == 0 {
		exceptions.Panicf("Concatenate(): requires at least one input")
	}
	out := g.Node(inputs[0]).shape.Clone()
	if out.Rank() < 2 {
		exceptions.Panicf("Concatenate(): requires rank >= 2 inputs, got %s", out)
	}
	for _, input := range inputs[1:] {
		shape := g.Node(input).shape
		if shape.DType != out.DType || shape.Rank() != out.Rank() {
			exceptions.Panicf("Concatenate(): incompatible input shapes %s and %s", out, shape)
		}
		for axis, dim := range shape.Dimensions {
			if axis != shapes.ChannelAxis && dim != out.Dimensions[axis] {
				exceptions.Panicf("Concatenate(): incompatible input shapes %s and %s", out, shape)
			}
		}
		out.Dimensions[shapes.ChannelAxis] += shape.Dimensions[shapes.ChannelAxis]
	}
	return g.newNode(OpTypeConcatenate, out, nil, inputs...)
}

// CopyOp creates a new node with the same operation as the node id (and its op-specific data),
// but with the given inputs. The output dtype follows the first input.
// Only ops that don't change dtype are supported: Relu, MaxPool, AvgPool and Concatenate.
func (g *Graph) CopyOp(id NodeID, inputs ...NodeID) NodeID {
	node := g.Node(id)
	switch node.opType {
	case OpTypeRelu:
		return g.Relu(inputs[0])
	case OpTypeMaxPool:
		return g.MaxPool(inputs[0], node.data.(*poolData).window)
	case OpTypeAvgPool:
		return g.AvgPool(inputs[0], node.data.(*poolData).window)
	case OpTypeConcatenate:
		return g.Concatenate(inputs...)
	}
	exceptions.Panicf("CopyOp(#%d): op %s not supported", id, node.opType)
	return InvalidNodeID
}
