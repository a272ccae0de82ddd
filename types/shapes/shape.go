// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shapes defines Shape and associated tools for the low-precision graph rewrite.
//
// Shape represents the shape (rank, dimensions and DType) of a node in a computation graph.
// DType is the enumeration defined in github.com/gomlx/gopjrt/dtypes.
//
// ## Glossary
//
//   - Rank: number of axes (dimensions) of a tensor.
//   - Axis: the index of a dimension on a multidimensional tensor.
//   - Dimension: the size of a multi-dimensions tensor in one of its axes.
//   - Channel axis: the axis along which per-channel quantization constants vary. Tensors
//     follow the NCHW layout, so it is axis 1 for tensors of rank >= 2.
//   - Scalar: a shape with no axes, only a single value of the associated DType.
//
// Example: a tensor with shape `(Uint8)[1 3 16 16]` has rank 4, 3 channels and
// 768 elements. It could be created with `shapes.Make(dtypes.Uint8, 1, 3, 16, 16)`.
package shapes

import (
	"fmt"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// ChannelAxis is the axis holding the channels of a tensor of rank >= 2 (NCHW layout).
const ChannelAxis = 1

// Shape represents the shape of the value produced by a computation node.
//
// Use Make to create a new shape.
type Shape struct {
	DType      dtypes.DType
	Dimensions []int
}

// Make returns a Shape structure filled with the values given.
func Make(dtype dtypes.DType, dimensions ...int) Shape {
	s := Shape{Dimensions: slices.Clone(dimensions), DType: dtype}
	for _, dim := range dimensions {
		if dim <= 0 {
			exceptions.Panicf("shapes.Make(%s): cannot create a shape with an axis with dimension <= 0", s)
		}
	}
	return s
}

// Ok returns whether this is a valid Shape. A "zero" shape, that is just instantiating it with Shape{} will be invalid.
func (s Shape) Ok() bool { return s.DType != dtypes.InvalidDType }

// Rank of the shape, that is, the number of dimensions.
func (s Shape) Rank() int { return len(s.Dimensions) }

// IsScalar returns whether the shape represents a scalar, that is there are no dimensions (rank==0).
func (s Shape) IsScalar() bool { return s.Ok() && s.Rank() == 0 }

// Dim returns the dimension of the given axis. axis can take negative numbers, in which
// case it counts as starting from the end -- so axis=-1 refers to the last axis.
// Like with a slice indexing, it panics for an out-of-bound axis.
func (s Shape) Dim(axis int) int {
	adjustedAxis := axis
	if adjustedAxis < 0 {
		adjustedAxis += s.Rank()
	}
	if adjustedAxis < 0 || adjustedAxis >= s.Rank() {
		exceptions.Panicf("Shape.Dim(%d) out-of-bounds for rank %d (shape=%s)", axis, s.Rank(), s)
	}
	return s.Dimensions[adjustedAxis]
}

// Channels returns the number of channels of the shape: the dimension of ChannelAxis
// for rank >= 2, the only dimension for rank 1, and 1 for scalars.
func (s Shape) Channels() int {
	switch {
	case s.Rank() == 0:
		return 1
	case s.Rank() == 1:
		return s.Dim(0)
	default:
		return s.Dim(ChannelAxis)
	}
}

// ChannelOf returns the channel of the element at the flat (row-major) position flatIdx.
func (s Shape) ChannelOf(flatIdx int) int {
	switch s.Rank() {
	case 0:
		return 0
	case 1:
		return flatIdx
	}
	stride := 1
	for _, dim := range s.Dimensions[ChannelAxis+1:] {
		stride *= dim
	}
	return (flatIdx / stride) % s.Dimensions[ChannelAxis]
}

// PerChannel returns the shape of a constant that holds numChannels values and broadcasts
// along every other axis of s: all dimensions are 1 except the channel axis.
// If numChannels is 1, the constant broadcasts to every element.
func (s Shape) PerChannel(dtype dtypes.DType, numChannels int) Shape {
	dims := make([]int, s.Rank())
	for axis := range dims {
		dims[axis] = 1
	}
	if numChannels > 1 {
		switch s.Rank() {
		case 0:
			exceptions.Panicf("Shape.PerChannel(%d): scalar shape %s has no channel axis", numChannels, s)
		case 1:
			dims[0] = numChannels
		default:
			dims[ChannelAxis] = numChannels
		}
	}
	return Make(dtype, dims...)
}

// String implements stringer, pretty-prints the shape.
func (s Shape) String() string {
	if s.Rank() == 0 {
		return fmt.Sprintf("(%s)", s.DType)
	}
	return fmt.Sprintf("(%s)%v", s.DType, s.Dimensions)
}

// Size returns the number of elements of DType are needed for this shape. It's the product of all dimensions.
func (s Shape) Size() (size int) {
	size = 1
	for _, d := range s.Dimensions {
		size *= d
	}
	return
}

// Equal compares two shapes for equality: dtype and dimensions are compared.
func (s Shape) Equal(s2 Shape) bool {
	return s.DType == s2.DType && s.EqualDimensions(s2)
}

// EqualDimensions compares two shapes for equality of dimensions. Dtypes can be different.
func (s Shape) EqualDimensions(s2 Shape) bool {
	if s.Rank() != s2.Rank() {
		return false
	}
	return slices.Equal(s.Dimensions, s2.Dimensions)
}

// Clone returns a new deep copy of the shape.
func (s Shape) Clone() (s2 Shape) {
	s2.DType = s.DType
	s2.Dimensions = slices.Clone(s.Dimensions)
	return
}

// WithDType returns a copy of the shape with the DType replaced.
func (s Shape) WithDType(dtype dtypes.DType) Shape {
	s2 := s.Clone()
	s2.DType = dtype
	return s2
}

// CheckBroadcastable returns an error if a value of shape operand cannot be broadcast
// to s in an elementwise operation: operand must have the same rank, and each of its
// dimensions must be either 1 or equal to the one in s. Scalars broadcast to anything.
func (s Shape) CheckBroadcastable(operand Shape) error {
	if operand.IsScalar() {
		return nil
	}
	if operand.Rank() != s.Rank() {
		return errors.Errorf("shape %s cannot be broadcast to %s: incompatible rank", operand, s)
	}
	for axis, dim := range operand.Dimensions {
		if dim != 1 && dim != s.Dimensions[axis] {
			return errors.Errorf("shape %s cannot be broadcast to %s: axis %d has dimension %d",
				operand, s, axis, dim)
		}
	}
	return nil
}

// BroadcastIndex maps the flat position flatIdx of a tensor of shape s to the flat position
// of the same element in operand, which must be broadcastable to s (see CheckBroadcastable).
func (s Shape) BroadcastIndex(operand Shape, flatIdx int) int {
	if operand.Size() == 1 {
		return 0
	}
	operandIdx := 0
	operandStride := 1
	for axis := s.Rank() - 1; axis >= 0; axis-- {
		dim := s.Dimensions[axis]
		pos := flatIdx % dim
		flatIdx /= dim
		if operand.Dimensions[axis] != 1 {
			operandIdx += pos * operandStride
		}
		operandStride *= operand.Dimensions[axis]
	}
	return operandIdx
}
