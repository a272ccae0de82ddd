// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package params

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p, err := New(U8I8())
	require.NoError(t, err)
	assert.True(t, p.Supports(PrecisionPair{dtypes.Uint8, dtypes.Uint8}))
	assert.True(t, p.Supports(PrecisionPair{dtypes.Int8, dtypes.Int8}))
	assert.False(t, p.Supports(PrecisionPair{dtypes.Float32, dtypes.Float32}))
	assert.True(t, p.SupportAsymmetricQuantization())
	assert.True(t, p.UpdatePrecisions())
	assert.Equal(t, "Params{pairs=[i8->i8 u8->u8], asymmetric=true, updatePrecisions=true}", p.String())

	_, err = New(Config{})
	require.Error(t, err)
	_, err = New(Config{PrecisionPairs: []PrecisionPair{{dtypes.Uint8, dtypes.InvalidDType}}})
	require.Error(t, err)
	assert.Panics(t, func() { _ = MustNew(Config{}) })
}

func TestConfigModifiers(t *testing.T) {
	base := I8I8()
	modified := base.WithSupportAsymmetricQuantization(false).WithUpdatePrecisions(false)
	assert.True(t, base.SupportAsymmetricQuantization, "modifiers must return copies")
	assert.True(t, base.UpdatePrecisions)

	p := MustNew(modified)
	assert.False(t, p.SupportAsymmetricQuantization())
	assert.False(t, p.UpdatePrecisions())
	assert.Equal(t, []PrecisionPair{{dtypes.Int8, dtypes.Int8}}, p.PrecisionPairs())

	pairs := []PrecisionPair{{dtypes.Uint8, dtypes.Uint8}}
	c := U8U8().WithPrecisionPairs(pairs...)
	pairs[0].Input = dtypes.Int8
	assert.Equal(t, dtypes.Uint8, c.PrecisionPairs[0].Input)
}

func TestParamsImmutable(t *testing.T) {
	config := U8U8()
	p := MustNew(config)
	config.PrecisionPairs[0] = PrecisionPair{dtypes.Int8, dtypes.Int8}
	assert.True(t, p.Supports(PrecisionPair{dtypes.Uint8, dtypes.Uint8}))
	assert.False(t, p.Supports(PrecisionPair{dtypes.Int8, dtypes.Int8}))

	pairs := p.PrecisionPairs()
	pairs[0].Input = dtypes.Float32
	assert.Equal(t, dtypes.Uint8, p.PrecisionPairs()[0].Input)
}
