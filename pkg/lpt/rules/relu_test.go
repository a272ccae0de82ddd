// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package rules

import (
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/lowprecision/pkg/lpt/dequantization"
	"github.com/gomlx/lowprecision/pkg/lpt/params"
	"github.com/gomlx/lowprecision/types/shapes"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	f32 = dtypes.Float32
	u8  = dtypes.Uint8
	i8  = dtypes.Int8
)

// deq is a shortcut to build descriptors in test tables.
func deq(convert dtypes.DType, zeroPoints, scales []float64) dequantization.Descriptor {
	return dequantization.New(convert, zeroPoints, scales)
}

func TestReluRuleGolden(t *testing.T) {
	type testCase struct {
		name        string
		config      params.Config
		input       dtypes.DType
		d           dequantization.Descriptor
		wantBefore  dequantization.Descriptor
		wantPrec    dtypes.DType
		wantAfter   dequantization.Descriptor
		notSupports bool
	}
	none := dtypes.InvalidDType
	testCases := []testCase{
		{
			name:   "U8: no subtract, scalar scale",
			config: params.U8I8(), input: u8,
			d:          deq(f32, nil, []float64{0.1}),
			wantBefore: dequantization.Descriptor{}, wantPrec: u8,
			wantAfter: deq(f32, nil, []float64{0.1}),
		},
		{
			name:   "U8: no subtract, per-channel scale",
			config: params.U8I8(), input: u8,
			d:          deq(f32, nil, []float64{0.1, 0.2, 0.3}),
			wantBefore: dequantization.Descriptor{}, wantPrec: u8,
			wantAfter: deq(f32, nil, []float64{0.1, 0.2, 0.3}),
		},
		{
			name:   "U8: no subtract, negative scale",
			config: params.U8I8(), input: u8,
			d:          deq(f32, nil, []float64{0.1, -0.2, 0.3}),
			wantBefore: deq(f32, nil, []float64{0.1, -0.2, 0.3}), wantPrec: f32,
			wantAfter: dequantization.Descriptor{},
		},
		{
			name:   "I8: no subtract",
			config: params.I8I8(), input: i8,
			d:          deq(f32, nil, []float64{0.1}),
			wantBefore: dequantization.Descriptor{}, wantPrec: i8,
			wantAfter: deq(f32, nil, []float64{0.1}),
		},
		{
			name:   "U8: with subtract",
			config: params.U8I8(), input: u8,
			d:          deq(f32, []float64{128}, []float64{0.1}),
			wantBefore: deq(f32, []float64{128}, nil), wantPrec: f32,
			wantAfter: deq(none, nil, []float64{0.1}),
		},
		{
			name:   "I8: with subtract, asymmetric supported",
			config: params.I8I8().WithSupportAsymmetricQuantization(true), input: i8,
			d:          deq(f32, []float64{127}, []float64{0.1}),
			wantBefore: deq(f32, []float64{127}, nil), wantPrec: f32,
			wantAfter: deq(none, nil, []float64{0.1}),
		},
		{
			name:   "I8: with subtract, asymmetric not supported",
			config: params.I8I8().WithSupportAsymmetricQuantization(false), input: i8,
			d:          deq(f32, []float64{127}, []float64{0.1}),
			wantBefore: deq(f32, []float64{127}, []float64{0.1}), wantPrec: f32,
			wantAfter: dequantization.Descriptor{},
		},
		{
			name:   "U8: empty",
			config: params.U8I8(), input: u8,
			d:          dequantization.Descriptor{},
			wantBefore: dequantization.Descriptor{}, wantPrec: u8,
			wantAfter: dequantization.Descriptor{},
		},
		{
			name:   "FP32: empty",
			config: params.U8I8(), input: f32,
			d:          dequantization.Descriptor{},
			wantBefore: dequantization.Descriptor{}, wantPrec: f32,
			wantAfter:   dequantization.Descriptor{},
			notSupports: true,
		},
	}

	rule := ReluRule{}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := params.MustNew(tc.config)
			assert.Equal(t, !tc.notSupports, rule.IsApplicable(PrecisionPairFor(rule, tc.input), p))

			original := tc.d.Clone()
			dec, err := rule.Decide(tc.d, p, tc.input)
			require.NoError(t, err)
			assert.True(t, tc.d.Equal(original), "Decide must not modify its input")
			want := Decision{
				DequantizationBefore:    tc.wantBefore,
				PrecisionAfterOperation: tc.wantPrec,
				DequantizationAfter:     tc.wantAfter,
			}
			assert.True(t, want.Equal(dec), "want %s\ngot  %s", want, dec)
			require.NoError(t, dec.Check(tc.d, tc.input))
		})
	}
}

func TestReluRuleMalformed(t *testing.T) {
	p := params.MustNew(params.U8I8())
	_, err := ReluRule{}.Decide(deq(dtypes.InvalidDType, nil, []float64{0.1}), p, u8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dequantization.ErrMalformedDescriptor))
}

func TestReluRuleZeroScaleRejected(t *testing.T) {
	p := params.MustNew(params.U8I8())
	d := deq(f32, nil, []float64{0.1, 0, 0.3})
	dec, err := ReluRule{}.Decide(d, p, u8)
	require.NoError(t, err)
	assert.True(t, dec.DequantizationBefore.Equal(d))
	assert.True(t, dec.DequantizationAfter.IsEmpty())
	assert.Equal(t, f32, dec.PrecisionAfterOperation)
}

func TestReluRuleAllZeroSubtract(t *testing.T) {
	p := params.MustNew(params.U8I8().WithSupportAsymmetricQuantization(false))
	d := deq(f32, []float64{0, 0, 0}, []float64{0.1, 0.2, 0.3})
	dec, err := ReluRule{}.Decide(d, p, u8)
	require.NoError(t, err)
	assert.True(t, dec.DequantizationBefore.IsEmpty())
	assert.True(t, dec.DequantizationAfter.Equal(d), "all-zero subtract commutes like no subtract")
	assert.Equal(t, u8, dec.PrecisionAfterOperation)
}

// randomDescriptor generates descriptors covering every branch of the rules: absent, zero,
// scalar and per-channel constants, and scales of any sign, including 0.
func randomDescriptor(rng *rand.Rand, channels int) dequantization.Descriptor {
	randomConstant := func(fn func() float64) []float64 {
		n := 1
		if rng.IntN(2) == 0 {
			n = channels
		}
		values := make([]float64, n)
		for ii := range values {
			values[ii] = fn()
		}
		return values
	}
	var zeroPoints, scales []float64
	switch rng.IntN(3) {
	case 1:
		zeroPoints = randomConstant(func() float64 { return 0 })
	case 2:
		zeroPoints = randomConstant(func() float64 { return float64(rng.IntN(256) - 128) })
	}
	switch rng.IntN(4) {
	case 1:
		scales = randomConstant(func() float64 { return 0.01 + rng.Float64() })
	case 2:
		scales = randomConstant(func() float64 { return rng.Float64() - 0.5 })
	case 3:
		scales = randomConstant(func() float64 { return float64(rng.IntN(3) - 1) })
	}
	if zeroPoints == nil && scales == nil && rng.IntN(4) == 0 {
		return dequantization.Descriptor{}
	}
	return deq(f32, zeroPoints, scales)
}

func randomValues(rng *rand.Rand, dtype dtypes.DType, size int) []float64 {
	lowest, highest := dequantization.IntegerLimits(dtype)
	values := make([]float64, size)
	for ii := range values {
		values[ii] = lowest + float64(rng.IntN(int(highest-lowest)+1))
	}
	return values
}

func relu(values []float64) []float64 {
	out := make([]float64, len(values))
	for ii, v := range values {
		out[ii] = math.Max(v, 0)
	}
	return out
}

// applyAround evaluates after(op(before(x))), where op runs on dtype dec.PrecisionAfterOperation.
func applyAround(t *testing.T, dec Decision, op func([]float64, shapes.Shape) ([]float64, shapes.Shape),
	x []float64, shape shapes.Shape) []float64 {
	t.Helper()
	values, err := dec.DequantizationBefore.Apply(x, shape)
	require.NoError(t, err)
	values, opShape := op(values, shape.WithDType(dec.PrecisionAfterOperation))
	values, err = dec.DequantizationAfter.Apply(values, opShape)
	require.NoError(t, err)
	return values
}

func TestReluRuleProperties(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 7))
	const channels = 3
	reluOp := func(values []float64, shape shapes.Shape) ([]float64, shapes.Shape) { return relu(values), shape }
	for _, asymmetric := range []bool{true, false} {
		for _, input := range []dtypes.DType{u8, i8} {
			p := params.MustNew(params.U8I8().WithSupportAsymmetricQuantization(asymmetric))
			shape := shapes.Make(input, 1, channels, 2, 2)
			for iter := range 200 {
				d := randomDescriptor(rng, channels)
				t.Run(fmt.Sprintf("asymmetric=%v/%s/%d", asymmetric, shapes.ShortName(input), iter), func(t *testing.T) {
					dec, err := ReluRule{}.Decide(d, p, input)
					require.NoError(t, err)
					require.NoError(t, dec.Check(d, input))

					switch {
					case d.IsEmpty():
						assert.True(t, dec.DequantizationBefore.IsEmpty() && dec.DequantizationAfter.IsEmpty())
						assert.Equal(t, input, dec.PrecisionAfterOperation)
					case !d.AllMultiplyValuesStrictlyPositive():
						assert.True(t, dec.DequantizationBefore.Equal(d))
						assert.True(t, dec.DequantizationAfter.IsEmpty())
						assert.Equal(t, f32, dec.PrecisionAfterOperation)
					case !d.HasNonzeroSubtract():
						assert.True(t, dec.DequantizationBefore.IsEmpty())
						assert.True(t, dec.DequantizationAfter.Equal(d))
						assert.Equal(t, input, dec.PrecisionAfterOperation)
					case asymmetric:
						assert.Nil(t, dec.DequantizationBefore.Multiply)
						assert.True(t, dec.DequantizationBefore.Subtract.Constant.Equal(d.Subtract.Constant))
						assert.Nil(t, dec.DequantizationAfter.Convert)
						assert.Nil(t, dec.DequantizationAfter.Subtract)
						if d.Multiply != nil {
							assert.True(t, dec.DequantizationAfter.Multiply.Constant.Equal(d.Multiply.Constant))
						}
						assert.Equal(t, f32, dec.PrecisionAfterOperation)
					default:
						assert.True(t, dec.DequantizationBefore.Equal(d))
						assert.True(t, dec.DequantizationAfter.IsEmpty())
						assert.Equal(t, f32, dec.PrecisionAfterOperation)
					}

					// Numerical equivalence with the fully dequantized operation.
					x := randomValues(rng, input, shape.Size())
					full, err := d.Apply(x, shape)
					require.NoError(t, err)
					want := relu(full)
					got := applyAround(t, dec, reluOp, x, shape)
					assert.InDeltaSlice(t, want, got, 1e-5)
				})
			}
		}
	}
}

func TestReluRuleDeterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	p := params.MustNew(params.U8I8())
	for range 50 {
		d := randomDescriptor(rng, 4)
		dec1, err1 := ReluRule{}.Decide(d, p, u8)
		dec2, err2 := ReluRule{}.Decide(d, p, u8)
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.True(t, dec1.Equal(dec2))
	}
}
