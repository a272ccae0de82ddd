// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
)

// Decision is the output of a Rule: how to split a dequantization around an operation.
type Decision struct {
	// DequantizationBefore is kept (or inserted) between the producer and the operation.
	DequantizationBefore dequantization.Descriptor

	// PrecisionAfterOperation is the element type the operation consumes and produces.
	PrecisionAfterOperation dtypes.DType

	// DequantizationAfter is inserted after the operation, and feeds all of its original users.
	DequantizationAfter dequantization.Descriptor
}

// keepBefore is the decision of not moving anything: the whole dequantization stays in
// front of the operation, which then runs in the floating target type.
func keepBefore(d dequantization.Descriptor, inputDType dtypes.DType) Decision {
	return Decision{
		DequantizationBefore:    d.Clone(),
		PrecisionAfterOperation: d.TargetDType(inputDType),
	}
}

// hoistAll is the decision of moving the whole dequantization after the operation,
// which then runs natively on the encoded values.
func hoistAll(d dequantization.Descriptor, inputDType dtypes.DType) Decision {
	return Decision{
		PrecisionAfterOperation: inputDType,
		DequantizationAfter:     d.Clone(),
	}
}

// IsUnchanged returns whether the decision leaves the dequantization where it was:
// nothing after the operation.
func (dec Decision) IsUnchanged() bool {
	return dec.DequantizationAfter.IsEmpty()
}

// Equal compares two decisions, with bit-for-bit comparison of the constants.
func (dec Decision) Equal(other Decision) bool {
	return dec.PrecisionAfterOperation == other.PrecisionAfterOperation &&
		dec.DequantizationBefore.Equal(other.DequantizationBefore) &&
		dec.DequantizationAfter.Equal(other.DequantizationAfter)
}

// String implements fmt.Stringer.
func (dec Decision) String() string {
	return fmt.Sprintf("before=%s precision=%s after=%s",
		dec.DequantizationBefore, shapes.ShortName(dec.PrecisionAfterOperation), dec.DequantizationAfter)
}

// Check verifies that the decision is a valid split of the original dequantization d for
// an input of type inputDType:
//
//   - each step of d is either before or after the operation, never in both or missing,
//     and with unchanged constants;
//   - the order convert, subtract, multiply is preserved across the operation;
//   - PrecisionAfterOperation is inputDType if nothing is before the operation,
//     and the floating target type otherwise.
func (dec Decision) Check(d dequantization.Descriptor, inputDType dtypes.DType) error {
	before, after := dec.DequantizationBefore, dec.DequantizationAfter

	// Recomposition of each step.
	if (before.Convert != nil) == (after.Convert != nil) && d.Convert != nil {
		return errors.Errorf("decision %s: convert must be exactly on one side of the operation", dec)
	}
	if (before.Subtract != nil) == (after.Subtract != nil) && d.Subtract != nil {
		return errors.Errorf("decision %s: subtract must be exactly on one side of the operation", dec)
	}
	if (before.Multiply != nil) == (after.Multiply != nil) && d.Multiply != nil {
		return errors.Errorf("decision %s: multiply must be exactly on one side of the operation", dec)
	}
	recomposed := dequantization.Descriptor{
		Convert:  firstNonNil(before.Convert, after.Convert),
		Subtract: firstNonNil(before.Subtract, after.Subtract),
		Multiply: firstNonNil(before.Multiply, after.Multiply),
	}
	if !recomposed.Equal(d) {
		return errors.Errorf("decision %s does not recompose the original dequantization %s", dec, d)
	}

	// Order: nothing before the operation can come later than something after it.
	lastBefore, firstAfter := -1, 3
	for step, present := range []bool{before.Convert != nil, before.Subtract != nil, before.Multiply != nil} {
		if present {
			lastBefore = step
		}
	}
	for step, present := range []bool{after.Convert != nil, after.Subtract != nil, after.Multiply != nil} {
		if present {
			firstAfter = min(firstAfter, step)
		}
	}
	if lastBefore > firstAfter {
		return errors.Errorf("decision %s breaks the convert, subtract, multiply order", dec)
	}

	// Precision of the operation.
	wantPrecision := inputDType
	if !before.IsEmpty() {
		wantPrecision = before.TargetDType(inputDType)
	}
	if dec.PrecisionAfterOperation != wantPrecision {
		return errors.Errorf("decision %s: operation precision should be %s", dec, shapes.ShortName(wantPrecision))
	}
	return nil
}

func firstNonNil[T any](a, b *T) *T {
	if a != nil {
		return a
	}
	return b
}
