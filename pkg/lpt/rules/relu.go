// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/pkg/errors"
)

// ReluRule decides how a dequantization commutes with Relu, max(x, 0).
//
// For a scale s > 0, relu(s*x) == s*relu(x), so a scale-only dequantization moves after
// the operation, and Relu runs on the encoded values. A zero-point shifts which encoded
// value maps to the threshold 0, so it has to be applied first: with asymmetric
// quantization supported, only the scale is moved after the operation. A scale <= 0
// (including exactly 0) doesn't commute, and everything stays before the operation.
type ReluRule struct{}

var _ Rule = ReluRule{}

// Name implements Rule.
func (ReluRule) Name() string { return "Relu" }

// OutputDType implements Rule: Relu preserves the precision of its input.
func (ReluRule) OutputDType(inputDType dtypes.DType) dtypes.DType { return inputDType }

// IsApplicable implements Rule.
func (ReluRule) IsApplicable(pair params.PrecisionPair, p *params.Params) bool {
	return p.Supports(pair)
}

// Decide implements Rule.
func (ReluRule) Decide(d dequantization.Descriptor, p *params.Params, inputDType dtypes.DType) (Decision, error) {
	if err := d.Validate(inputDType); err != nil {
		return Decision{}, errors.WithMessage(err, "Relu")
	}
	switch {
	case d.IsEmpty():
		return Decision{PrecisionAfterOperation: inputDType}, nil

	case !d.AllMultiplyValuesStrictlyPositive():
		return keepBefore(d, inputDType), nil

	case !d.HasNonzeroSubtract():
		return hoistAll(d, inputDType), nil

	case !p.SupportAsymmetricQuantization():
		return keepBefore(d, inputDType), nil
	}

	// Split: zero-point before, scale after.
	before := d.Clone()
	before.Multiply = nil
	after := dequantization.Descriptor{}
	if d.Multiply != nil {
		after.Multiply = &dequantization.Multiply{Constant: d.Multiply.Constant.Clone()}
	}
	return Decision{
		DequantizationBefore:    before,
		PrecisionAfterOperation: before.TargetDType(inputDType),
		DequantizationAfter:     after,
	}, nil
}
