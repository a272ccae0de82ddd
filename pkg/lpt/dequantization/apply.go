// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dequantization

import (
	"math"
	"reflect"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// RoundTo returns v as it would be stored in dtype: floating types round to their
// precision, integer types round to the nearest integer and saturate to their range.
// Other dtypes return v unchanged.
func RoundTo(dtype dtypes.DType, v float64) float64 {
	switch dtype {
	case dtypes.Float64:
		return v
	case dtypes.Float32:
		return float64(float32(v))
	case dtypes.Float16:
		return float64(float16.Fromfloat32(float32(v)).Float32())
	case dtypes.BFloat16:
		return float64(bfloat16.FromFloat32(float32(v)).Float32())
	}
	if dtype.IsInt() {
		lowest, highest := IntegerLimits(dtype)
		return math.Min(math.Max(math.RoundToEven(v), lowest), highest)
	}
	return v
}

var float64Type = reflect.TypeOf(float64(0))

// IntegerLimits returns dtype.LowestValue() and dtype.HighestValue() as float64.
// dtype must be an integer type.
func IntegerLimits(dtype dtypes.DType) (lowest, highest float64) {
	lowest = reflect.ValueOf(dtype.LowestValue()).Convert(float64Type).Float()
	highest = reflect.ValueOf(dtype.HighestValue()).Convert(float64Type).Float()
	return
}

// Apply evaluates the dequantization on the encoded values of a tensor with the given shape,
// and returns the dequantized values. Constants broadcast along the channel axis of shape.
//
// It is the reference semantics of the Descriptor, used to verify that rewritten graphs
// compute the same values as the original.
func (d Descriptor) Apply(values []float64, shape shapes.Shape) ([]float64, error) {
	if len(values) != shape.Size() {
		return nil, errors.Errorf("dequantization.Apply: %d values given for shape %s", len(values), shape)
	}
	if err := d.Validate(shape.DType); err != nil {
		return nil, err
	}
	if err := d.CheckChannels(shape.Channels()); err != nil {
		return nil, err
	}
	target := d.TargetDType(shape.DType)
	out := make([]float64, len(values))
	for ii, v := range values {
		channel := shape.ChannelOf(ii)
		if d.Convert != nil {
			v = RoundTo(d.Convert.DType, v)
		}
		if d.Subtract != nil {
			zeroPoint := d.Subtract.Constant.At(channel)
			if !d.Subtract.InTargetDomain {
				zeroPoint = RoundTo(target, zeroPoint)
			}
			v -= zeroPoint
		}
		if d.Multiply != nil {
			v *= d.Multiply.Constant.At(channel)
		}
		out[ii] = v
	}
	return out, nil
}
