// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/pkg/errors"
)

// MaxPoolRule decides how a dequantization commutes with max pooling.
//
// Pooling windows never cross channels, and max is monotonic: for a per-channel zero-point z
// and scale s > 0, max((x-z)*s) == (max(x)-z)*s. So with strictly positive scales the whole
// dequantization moves after the pooling, zero-point included. A scale <= 0 turns the max
// into a min, and everything stays before the operation.
//
// Average pooling is not covered: it doesn't preserve the encoded integer domain.
type MaxPoolRule struct{}

var _ Rule = MaxPoolRule{}

// Name implements Rule.
func (MaxPoolRule) Name() string { return "MaxPool" }

// OutputDType implements Rule: MaxPool preserves the precision of its input.
func (MaxPoolRule) OutputDType(inputDType dtypes.DType) dtypes.DType { return inputDType }

// IsApplicable implements Rule.
func (MaxPoolRule) IsApplicable(pair params.PrecisionPair, p *params.Params) bool {
	return p.Supports(pair)
}

// Decide implements Rule.
func (MaxPoolRule) Decide(d dequantization.Descriptor, _ *params.Params, inputDType dtypes.DType) (Decision, error) {
	if err := d.Validate(inputDType); err != nil {
		return Decision{}, errors.WithMessage(err, "MaxPool")
	}
	switch {
	case d.IsEmpty():
		return Decision{PrecisionAfterOperation: inputDType}, nil
	case !d.AllMultiplyValuesStrictlyPositive():
		return keepBefore(d, inputDType), nil
	}
	return hoistAll(d, inputDType), nil
}
