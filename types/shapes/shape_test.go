// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	s := Make(dtypes.Uint8, 1, 3, 16, 16)
	assert.True(t, s.Ok())
	assert.Equal(t, 4, s.Rank())
	assert.Equal(t, 3, s.Channels())
	assert.Equal(t, 768, s.Size())
	assert.Equal(t, 16, s.Dim(-1))
	assert.False(t, Shape{}.Ok())
	assert.Panics(t, func() { _ = Make(dtypes.Float32, 2, 0) })
	assert.Panics(t, func() { _ = s.Dim(4) })

	s2 := s.WithDType(dtypes.Float32)
	assert.True(t, s.EqualDimensions(s2))
	assert.False(t, s.Equal(s2))
	assert.True(t, s2.Equal(s2.Clone()))

	assert.Equal(t, 1, Make(dtypes.Float32).Channels())
	assert.Equal(t, 5, Make(dtypes.Float32, 5).Channels())
}

func TestChannelOf(t *testing.T) {
	s := Make(dtypes.Uint8, 2, 3, 2, 2)
	channels := make([]int, 0, s.Size())
	for ii := range s.Size() {
		channels = append(channels, s.ChannelOf(ii))
	}
	assert.Equal(t, []int{
		0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
	}, channels)
	assert.Equal(t, 4, Make(dtypes.Float32, 7).ChannelOf(4))
}

func TestPerChannelAndBroadcast(t *testing.T) {
	s := Make(dtypes.Uint8, 1, 3, 2, 2)
	perChannel := s.PerChannel(dtypes.Float32, 3)
	assert.Equal(t, []int{1, 3, 1, 1}, perChannel.Dimensions)
	scalar := s.PerChannel(dtypes.Float32, 1)
	assert.Equal(t, []int{1, 1, 1, 1}, scalar.Dimensions)

	require.NoError(t, s.CheckBroadcastable(perChannel))
	require.NoError(t, s.CheckBroadcastable(scalar))
	require.NoError(t, s.CheckBroadcastable(Make(dtypes.Float32)))
	require.Error(t, s.CheckBroadcastable(Make(dtypes.Float32, 3)))
	require.Error(t, s.CheckBroadcastable(Make(dtypes.Float32, 1, 2, 1, 1)))

	for ii := range s.Size() {
		assert.Equal(t, s.ChannelOf(ii), s.BroadcastIndex(perChannel, ii))
		assert.Equal(t, 0, s.BroadcastIndex(scalar, ii))
	}
}

func TestShortName(t *testing.T) {
	for _, dtype := range []dtypes.DType{dtypes.Uint8, dtypes.Int8, dtypes.Float32, dtypes.BFloat16} {
		assert.Equal(t, dtype, FromShortName(ShortName(dtype)))
	}
	assert.Equal(t, "u8", ShortName(dtypes.Uint8))
	assert.Equal(t, dtypes.InvalidDType, FromShortName("q4"))
}
