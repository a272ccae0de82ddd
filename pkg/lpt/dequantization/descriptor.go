// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dequantization describes the affine correction attached to a low-bit tensor:
// an optional convert to a floating type, an optional zero-point subtraction and an
// optional scale multiplication, always applied in that order.
//
// A Descriptor is a read-only view: the low-precision rules in package rules build new
// descriptors from it, they never mutate it.
package dequantization

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
)

// Convert widens the encoded integer tensor to a floating type.
type Convert struct {
	DType dtypes.DType
}

// Subtract is the zero-point correction.
type Subtract struct {
	Constant Constant

	// InTargetDomain is true if the zero-point is already stored in the floating target
	// type. If false it is stored with its own (usually the encoded integer) type, and it
	// is converted to the target type before being subtracted.
	InTargetDomain bool
}

// Multiply is the scale correction.
type Multiply struct {
	Constant Constant
}

// Descriptor of a dequantization: each step is optional (nil), and an all-nil
// Descriptor is the identity.
type Descriptor struct {
	Convert  *Convert
	Subtract *Subtract
	Multiply *Multiply
}

// New creates a Descriptor that converts to target, subtracts zeroPoints and multiplies by scales.
//
// target == dtypes.InvalidDType leaves convert empty, and nil zeroPoints or scales leave the
// corresponding step empty. Constants are stored in the target type (Float32 if no target
// is given), so the zero-point is in the target domain.
func New(target dtypes.DType, zeroPoints, scales []float64) Descriptor {
	var d Descriptor
	constDType := target
	if target != dtypes.InvalidDType {
		d.Convert = &Convert{DType: target}
	} else {
		constDType = dtypes.Float32
	}
	if zeroPoints != nil {
		d.Subtract = &Subtract{Constant: NewConstant(constDType, zeroPoints...), InTargetDomain: true}
	}
	if scales != nil {
		d.Multiply = &Multiply{Constant: NewConstant(constDType, scales...)}
	}
	return d
}

// IsEmpty returns true iff convert, subtract and multiply are all absent.
func (d Descriptor) IsEmpty() bool {
	return d.Convert == nil && d.Subtract == nil && d.Multiply == nil
}

// AllMultiplyValuesStrictlyPositive returns true iff multiply is absent or all its values are > 0.
func (d Descriptor) AllMultiplyValuesStrictlyPositive() bool {
	return d.Multiply == nil || d.Multiply.Constant.AllStrictlyPositive()
}

// HasNonzeroSubtract returns true iff subtract is present and at least one of its values is not 0.
//
// An all-zero subtract commutes like an absent one.
func (d Descriptor) HasNonzeroSubtract() bool {
	return d.Subtract != nil && d.Subtract.Constant.AnyNonZero()
}

// TargetDType returns the floating type the dequantization produces for a tensor of
// type inputDType: the convert target if present, inputDType itself if it is already
// floating, and Float32 otherwise.
func (d Descriptor) TargetDType(inputDType dtypes.DType) dtypes.DType {
	if d.Convert != nil {
		return d.Convert.DType
	}
	if inputDType.IsFloat() {
		return inputDType
	}
	return dtypes.Float32
}

// Channels returns the number of channels the constants are specialized for: the length
// of the per-channel constants, or 1 if all present constants are scalars.
func (d Descriptor) Channels() int {
	channels := 1
	if d.Subtract != nil && d.Subtract.Constant.Len() > channels {
		channels = d.Subtract.Constant.Len()
	}
	if d.Multiply != nil && d.Multiply.Constant.Len() > channels {
		channels = d.Multiply.Constant.Len()
	}
	return channels
}

// Clone returns a deep copy of the Descriptor.
func (d Descriptor) Clone() Descriptor {
	var d2 Descriptor
	if d.Convert != nil {
		d2.Convert = &Convert{DType: d.Convert.DType}
	}
	if d.Subtract != nil {
		d2.Subtract = &Subtract{Constant: d.Subtract.Constant.Clone(), InTargetDomain: d.Subtract.InTargetDomain}
	}
	if d.Multiply != nil {
		d2.Multiply = &Multiply{Constant: d.Multiply.Constant.Clone()}
	}
	return d2
}

// Equal returns whether both descriptors have the same steps with bit-for-bit equal constants.
func (d Descriptor) Equal(other Descriptor) bool {
	if (d.Convert == nil) != (other.Convert == nil) ||
		(d.Subtract == nil) != (other.Subtract == nil) ||
		(d.Multiply == nil) != (other.Multiply == nil) {
		return false
	}
	if d.Convert != nil && d.Convert.DType != other.Convert.DType {
		return false
	}
	if d.Subtract != nil && (d.Subtract.InTargetDomain != other.Subtract.InTargetDomain ||
		!d.Subtract.Constant.Equal(other.Subtract.Constant)) {
		return false
	}
	if d.Multiply != nil && !d.Multiply.Constant.Equal(other.Multiply.Constant) {
		return false
	}
	return true
}

// String implements fmt.Stringer, e.g.: "{convert:f32, subtract:[128], multiply:[0.1]}".
func (d Descriptor) String() string {
	parts := make([]string, 0, 3)
	if d.Convert != nil {
		parts = append(parts, "convert:"+shapes.ShortName(d.Convert.DType))
	}
	if d.Subtract != nil {
		s := "subtract:" + d.Subtract.Constant.String()
		if !d.Subtract.InTargetDomain {
			s += fmt.Sprintf("(%s)", shapes.ShortName(d.Subtract.Constant.DType))
		}
		parts = append(parts, s)
	}
	if d.Multiply != nil {
		parts = append(parts, "multiply:"+d.Multiply.Constant.String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Validate checks the structure of the Descriptor for a tensor of type inputDType.
// It returns an error wrapping ErrMalformedDescriptor if:
//
//   - subtract or multiply is present without a convert, and inputDType is not floating;
//   - convert targets a non-floating type;
//   - a constant is empty;
//   - a zero-point flagged as in the target domain is not stored with a floating type;
//   - subtract and multiply are both per-channel, but with different lengths.
func (d Descriptor) Validate(inputDType dtypes.DType) error {
	if d.Convert != nil && !d.Convert.DType.IsFloat() {
		return errors.Wrapf(ErrMalformedDescriptor, "convert to non-floating type %s", d.Convert.DType)
	}
	if d.Convert == nil && (d.Subtract != nil || d.Multiply != nil) && !inputDType.IsFloat() {
		return errors.Wrapf(ErrMalformedDescriptor,
			"%s applies a floating point correction to encoded %s values without a convert", d, inputDType)
	}
	if d.Subtract != nil {
		if d.Subtract.Constant.Len() == 0 {
			return errors.Wrapf(ErrMalformedDescriptor, "empty subtract constant")
		}
		if d.Subtract.InTargetDomain && !d.Subtract.Constant.DType.IsFloat() {
			return errors.Wrapf(ErrMalformedDescriptor,
				"subtract constant in target domain stored as non-floating %s", d.Subtract.Constant.DType)
		}
	}
	if d.Multiply != nil && d.Multiply.Constant.Len() == 0 {
		return errors.Wrapf(ErrMalformedDescriptor, "empty multiply constant")
	}
	if d.Subtract != nil && d.Multiply != nil {
		subLen, mulLen := d.Subtract.Constant.Len(), d.Multiply.Constant.Len()
		if subLen != 1 && mulLen != 1 && subLen != mulLen {
			return errors.Wrapf(ErrMalformedDescriptor,
				"subtract has %d channels but multiply has %d", subLen, mulLen)
		}
	}
	return nil
}

// CheckChannels returns an error wrapping ErrShapeMismatch if a per-channel constant
// length differs from the number of channels of the tensor it corrects.
func (d Descriptor) CheckChannels(channels int) error {
	check := func(step string, c Constant) error {
		if c.Len() != 1 && c.Len() != channels {
			return errors.Wrapf(ErrShapeMismatch, "%s constant has %d values, tensor has %d channels",
				step, c.Len(), channels)
		}
		return nil
	}
	if d.Subtract != nil {
		if err := check("subtract", d.Subtract.Constant); err != nil {
			return err
		}
	}
	if d.Multiply != nil {
		if err := check("multiply", d.Multiply.Constant); err != nil {
			return err
		}
	}
	return nil
}
