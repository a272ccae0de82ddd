// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/graph"
	"github.com/gomlx/lowprecision/pkg/lpt/rewrite"
	"github.com/gomlx/lowprecision/pkg/lpt/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	v, err := parseFloat("-0.25")
	require.NoError(t, err)
	assert.Equal(t, -0.25, v)
	_, err = parseFloat("x")
	require.Error(t, err)
	assert.Nil(t, *flagSubtract)
	assert.Equal(t, []float64{0.1}, *flagMultiply)
}

func TestBuildGraphAndRewrite(t *testing.T) {
	p, err := newParams("u8i8")
	require.NoError(t, err)
	_, err = newParams("u4u4")
	require.Error(t, err)

	for _, op := range []graph.OpType{graph.OpTypeRelu, graph.OpTypeMaxPool, graph.OpTypeAvgPool} {
		config := graphConfig{
			op:       op,
			input:    dtypes.Uint8,
			convert:  dtypes.Float32,
			subtract: []float64{128},
			multiply: []float64{0.5, 0.25},
			channels: 2,
		}
		g, err := buildGraph(config)
		require.NoError(t, err)
		rewritten, report := rewrite.Run(g, rules.DefaultRegistry(), p)
		if op == graph.OpTypeAvgPool {
			assert.Zero(t, report.NumMatches())
			assert.Same(t, g, rewritten)
		} else {
			assert.Equal(t, 1, report.Count(rewrite.OutcomeRewritten), report.String())
		}
		diff, err := maxAbsDiff(g, rewritten, config)
		require.NoError(t, err)
		assert.InDelta(t, 0, diff, 1e-5, "op=%s", op)
		assert.Contains(t, opsList(g), op.String())
	}

	// Mismatched channels are a graph building error.
	_, err = buildGraph(graphConfig{op: graph.OpTypeRelu, input: dtypes.Uint8, convert: dtypes.Float32,
		multiply: []float64{1, 2, 3}, channels: 2})
	require.Error(t, err)
	_, err = buildGraph(graphConfig{op: graph.OpTypeConcatenate, input: dtypes.Float32, channels: 2})
	require.Error(t, err)
}
