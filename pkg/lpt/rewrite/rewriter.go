// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package rewrite applies the decisions of the low-precision rules to a graph.
//
// The pass is sequential and deterministic: candidates are processed one at a time, in
// topological order, because a decision may change the dequantization seen by the next
// consumer downstream. Each match is applied atomically: the rewrite is built on a clone of
// the graph, and only replaces the current graph if it fully succeeds.
//
// Failures never abort the pass: they are recorded in the Report and the pass moves on to the
// next match. The rewrite is a best-effort optimization.
package rewrite

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/gomlx/lowprecision/pkg/lpt/rules"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Rewriter applies the rules of a Registry to graphs.
type Rewriter struct {
	registry *rules.Registry
	params   *params.Params
}

// New returns a Rewriter for the given registry and params.
func New(registry *rules.Registry, p *params.Params) *Rewriter {
	return &Rewriter{registry: registry, params: p}
}

// Run is a shortcut to New(registry, p).Run(g).
func Run(g *graph.Graph, registry *rules.Registry, p *params.Params) (*graph.Graph, *Report) {
	return New(registry, p).Run(g)
}

// Run the pass over g and return the rewritten graph, along with the report.
// g itself is not modified, and it is returned as is if nothing was rewritten.
//
// The nodes left dead by the rewrites are removed from the returned graph, so its NodeIDs
// don't match those of g. The NodeIDs in the report refer to g.
func (rw *Rewriter) Run(g *graph.Graph) (*graph.Graph, *Report) {
	report := &Report{}
	current := g
	for _, consumer := range Candidates(g, rw.registry) {
		if !current.IsLive(consumer) {
			continue
		}
		next, diagnostic := rw.apply(current, consumer)
		report.Diagnostics = append(report.Diagnostics, diagnostic)
		switch diagnostic.Outcome {
		case OutcomeRewritten:
			klog.V(1).Infof("lpt %q: %s", g.Name(), diagnostic)
			current = next
		case OutcomeFailed:
			klog.Warningf("lpt %q: %s", g.Name(), diagnostic)
		default:
			klog.V(2).Infof("lpt %q: %s", g.Name(), diagnostic)
		}
	}
	if current != g {
		removed := current.RemoveDead()
		klog.V(2).Infof("lpt %q: removed %d dead nodes", g.Name(), removed)
	}
	return current, report
}

// apply one match: on success, it returns the new graph, a clone of g with the rewrite.
func (rw *Rewriter) apply(g *graph.Graph, consumer graph.NodeID) (*graph.Graph, Diagnostic) {
	consumerNode := g.Node(consumer)
	diagnostic := Diagnostic{Consumer: consumer, OpType: consumerNode.OpType(), Outcome: OutcomeFailed}
	match, err := MatchDequantization(g, consumer)
	if err != nil {
		diagnostic.Err = err
		return nil, diagnostic
	}
	diagnostic.Descriptor = match.Descriptor

	channels := g.Node(consumerNode.Input(0)).Shape().Channels()
	if err = match.Descriptor.CheckChannels(channels); err != nil {
		diagnostic.Err = err
		return nil, diagnostic
	}

	dec, err := rw.registry.Decide(consumerNode.OpType(), match.Descriptor, rw.params, match.InputDType)
	if err != nil {
		if errors.Is(err, rules.ErrUnsupportedPrecisionPair) {
			diagnostic.Outcome = OutcomeDeclined
		}
		diagnostic.Err = err
		return nil, diagnostic
	}
	if !rw.params.UpdatePrecisions() {
		dec = keepDeclaredPrecision(dec, consumerNode.DType())
		if err = dec.Check(match.Descriptor, match.InputDType); err != nil {
			diagnostic.Err = err
			return nil, diagnostic
		}
	}
	diagnostic.Decision = dec
	if dec.IsUnchanged() {
		diagnostic.Outcome = OutcomeUnchanged
		return nil, diagnostic
	}

	var next *graph.Graph
	err = exceptions.TryCatch[error](func() {
		next = g.Clone()
		buildRewrite(next, match, dec)
	})
	if err != nil {
		diagnostic.Err = errors.WithMessagef(err, "failed to rewrite %s", consumerNode)
		return nil, diagnostic
	}
	diagnostic.Outcome = OutcomeRewritten
	return next, diagnostic
}

// keepDeclaredPrecision changes a decision that would make the operation run on encoded
// values into one that keeps the declared (floating) type of the operation: the convert
// stays before the operation, and only the subtract and multiply steps move after it.
func keepDeclaredPrecision(dec rules.Decision, declared dtypes.DType) rules.Decision {
	if dec.PrecisionAfterOperation == declared || dec.DequantizationAfter.Convert == nil {
		return dec
	}
	before := dec.DequantizationBefore.Clone()
	after := dec.DequantizationAfter.Clone()
	before.Convert, after.Convert = after.Convert, nil
	return rules.Decision{
		DequantizationBefore:    before,
		PrecisionAfterOperation: before.Convert.DType,
		DequantizationAfter:     after,
	}
}

// buildRewrite inserts producer -> before -> operation -> after in g, and makes the users of
// the original consumer use the end of the new chain. It panics on failure.
func buildRewrite(g *graph.Graph, match Match, dec rules.Decision) {
	x := materialize(g, match.Producer, dec.DequantizationBefore)
	op := g.CopyOp(match.Consumer, x)
	if got := g.Node(op).DType(); got != dec.PrecisionAfterOperation {
		exceptions.Panicf("operation %s runs in %s, but decision requires %s",
			g.Node(op), got, dec.PrecisionAfterOperation)
	}
	x = materialize(g, op, dec.DequantizationAfter)
	g.ReplaceAllUsesWith(match.Consumer, x)
}

// materialize appends the nodes of the dequantization d to x, and returns the last one.
func materialize(g *graph.Graph, x graph.NodeID, d dequantization.Descriptor) graph.NodeID {
	if d.Convert != nil {
		x = g.Convert(x, d.Convert.DType)
	}
	shape := g.Node(x).Shape()
	target := shape.DType
	if d.Subtract != nil {
		c := d.Subtract.Constant
		dims := shape.PerChannel(target, c.Len()).Dimensions
		var zeroPoint graph.NodeID
		if d.Subtract.InTargetDomain {
			zeroPoint = g.ConstantOf(target, c.Values, dims...)
		} else {
			zeroPoint = g.Convert(g.ConstantOf(c.DType, c.Values, dims...), target)
		}
		x = g.Subtract(x, zeroPoint)
	}
	if d.Multiply != nil {
		c := d.Multiply.Constant
		dims := shape.PerChannel(target, c.Len()).Dimensions
		x = g.Multiply(x, g.ConstantOf(target, c.Values, dims...))
	}
	return x
}
