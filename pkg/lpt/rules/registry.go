// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/gomlx/lowprecision/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Registry dispatches operation kinds to their Rule.
//
// Operations without a registered rule are never transformed.
// A Registry is not safe for concurrent registration; register all rules before using it.
type Registry struct {
	rules map[graph.OpType]Rule
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rules: make(map[graph.OpType]Rule)}
}

// DefaultRegistry returns a Registry with the rules for Relu and MaxPool.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(graph.OpTypeRelu, ReluRule{})
	r.Register(graph.OpTypeMaxPool, MaxPoolRule{})
	return r
}

// Register the rule for the given operation kind, replacing any previous one.
func (r *Registry) Register(opType graph.OpType, rule Rule) {
	if rule == nil {
		exceptions.Panicf("Registry.Register(%s): nil rule", opType)
	}
	r.rules[opType] = rule
}

// Lookup returns the rule registered for opType.
func (r *Registry) Lookup(opType graph.OpType) (rule Rule, found bool) {
	rule, found = r.rules[opType]
	return
}

// OpTypes returns the registered operation kinds, sorted.
func (r *Registry) OpTypes() []graph.OpType {
	return xslices.SortedKeys(r.rules)
}

// IsApplicable returns whether there is a rule for opType that accepts the precision pair.
func (r *Registry) IsApplicable(opType graph.OpType, pair params.PrecisionPair, p *params.Params) bool {
	rule, found := r.rules[opType]
	return found && rule.IsApplicable(pair, p)
}

// Decide looks up the rule for opType, checks it is applicable to an input of type inputDType,
// and returns its decision.
//
// It returns an error wrapping ErrUnsupportedPrecisionPair if there is no rule for opType, or
// if it is not applicable. The decision is checked (see Decision.Check) before being returned.
func (r *Registry) Decide(opType graph.OpType, d dequantization.Descriptor, p *params.Params,
	inputDType dtypes.DType) (Decision, error) {
	rule, found := r.rules[opType]
	if !found {
		return Decision{}, errors.Wrapf(ErrUnsupportedPrecisionPair, "no rule registered for %s", opType)
	}
	pair := PrecisionPairFor(rule, inputDType)
	if !rule.IsApplicable(pair, p) {
		return Decision{}, errors.Wrapf(ErrUnsupportedPrecisionPair, "%s with precisions %s", rule.Name(), pair)
	}
	dec, err := rule.Decide(d, p, inputDType)
	if err != nil {
		return Decision{}, err
	}
	if err = dec.Check(d, inputDType); err != nil {
		return Decision{}, errors.WithMessagef(err, "rule %s returned an invalid decision", rule.Name())
	}
	return dec, nil
}
