// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxPerChannel pools all the spatial positions of each channel of a [1, C, H, W] tensor.
func maxPerChannel(values []float64, shape shapes.Shape) ([]float64, shapes.Shape) {
	channels := shape.Channels()
	out := make([]float64, channels)
	for c := range out {
		out[c] = math.Inf(-1)
	}
	for ii, v := range values {
		c := shape.ChannelOf(ii)
		out[c] = math.Max(out[c], v)
	}
	return out, shapes.Make(shape.DType, 1, channels, 1, 1)
}

func TestMaxPoolRule(t *testing.T) {
	p := params.MustNew(params.U8I8().WithSupportAsymmetricQuantization(false))
	rule := MaxPoolRule{}
	assert.True(t, rule.IsApplicable(PrecisionPairFor(rule, u8), p))
	assert.False(t, rule.IsApplicable(PrecisionPairFor(rule, f32), p))

	// Zero-point and scale move after the pooling, regardless of asymmetric support.
	d := deq(f32, []float64{128, 0, 3}, []float64{0.1, 0.2, 0.3})
	dec, err := rule.Decide(d, p, u8)
	require.NoError(t, err)
	assert.True(t, dec.DequantizationBefore.IsEmpty())
	assert.True(t, dec.DequantizationAfter.Equal(d))
	assert.Equal(t, u8, dec.PrecisionAfterOperation)

	d = deq(f32, []float64{128}, []float64{-0.1})
	dec, err = rule.Decide(d, p, u8)
	require.NoError(t, err)
	assert.True(t, dec.DequantizationBefore.Equal(d))
	assert.True(t, dec.DequantizationAfter.IsEmpty())
	assert.Equal(t, f32, dec.PrecisionAfterOperation)

	_, err = rule.Decide(deq(dtypes.InvalidDType, []float64{1}, nil), p, u8)
	require.Error(t, err)
}

func TestMaxPoolRuleEquivalence(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	const channels = 4
	p := params.MustNew(params.U8I8())
	for _, input := range []dtypes.DType{u8, i8} {
		shape := shapes.Make(input, 1, channels, 3, 3)
		for iter := range 200 {
			d := randomDescriptor(rng, channels)
			t.Run(fmt.Sprintf("%s/%d", shapes.ShortName(input), iter), func(t *testing.T) {
				dec, err := MaxPoolRule{}.Decide(d, p, input)
				require.NoError(t, err)
				require.NoError(t, dec.Check(d, input))

				x := randomValues(rng, input, shape.Size())
				full, err := d.Apply(x, shape)
				require.NoError(t, err)
				want, _ := maxPerChannel(full, shape.WithDType(d.TargetDType(input)))
				got := applyAround(t, dec, maxPerChannel, x, shape)
				assert.InDeltaSlice(t, want, got, 1e-5)
			})
		}
	}
}
