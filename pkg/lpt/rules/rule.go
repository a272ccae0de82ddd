// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rules decides, for each kind of operation, how a dequantization feeding it can be
// reordered around it so the operation runs on low-precision data.
//
// Each operation kind has a Rule, and rules are dispatched by a Registry keyed by
// graph.OpType. Rules are pure functions of their inputs: they never touch a graph, and the
// same inputs always produce the same Decision. Applying a Decision to a graph is the job
// of package rewrite.
//
// Adding support for a new operation kind is done by registering a new Rule:
//
//	registry := rules.DefaultRegistry()
//	registry.Register(graph.OpTypeConcatenate, myConcatRule{})
package rules

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/pkg/errors"
)

// ErrUnsupportedPrecisionPair is returned when a rule declines an operation because its
// precision pair is not supported by the Params, or because no rule is registered for it.
// It is not a failure: the operation is simply left untouched.
var ErrUnsupportedPrecisionPair = errors.New("unsupported precision pair")

// Rule decides how a dequantization commutes with one kind of operation.
type Rule interface {
	// Name of the rule, used in logs and reports.
	Name() string

	// OutputDType returns the native output precision of the operation for an input of type inputDType.
	OutputDType(inputDType dtypes.DType) dtypes.DType

	// IsApplicable returns whether the rule can make decisions for operations with the
	// given (input, output) precision pair under the given Params.
	IsApplicable(pair params.PrecisionPair, p *params.Params) bool

	// Decide how to split d around the operation, for an input encoded with inputDType.
	// It returns an error wrapping dequantization.ErrMalformedDescriptor if d is not valid.
	Decide(d dequantization.Descriptor, p *params.Params, inputDType dtypes.DType) (Decision, error)
}

// PrecisionPairFor returns the (input, output) precision pair of an operation handled by rule.
func PrecisionPairFor(rule Rule, inputDType dtypes.DType) params.PrecisionPair {
	return params.PrecisionPair{Input: inputDType, Output: rule.OutputDType(inputDType)}
}
