// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []float64{1, 2, 3}, Map([]int{1, 2, 3}, func(e int) float64 { return float64(e) }))
	assert.Empty(t, Map([]int(nil), strconv.Itoa))
}

func TestSortedKeys(t *testing.T) {
	m := map[int]string{3: "c", 1: "a", 2: "b"}
	assert.Equal(t, []int{1, 2, 3}, SortedKeys(m))
	assert.Len(t, Keys(m), 3)
}

func TestFlag(t *testing.T) {
	parseFloat := func(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
	values := Flag("xslices_test_values", []float64{0.1}, "test flag", parseFloat)
	assert.Equal(t, []float64{0.1}, *values)

	require.NoError(t, flag.Set("xslices_test_values", " 0.5, 2 ,-1"))
	assert.Equal(t, []float64{0.5, 2, -1}, *values)
	assert.Equal(t, "0.5,2,-1", flag.Lookup("xslices_test_values").Value.String())

	require.NoError(t, flag.Set("xslices_test_values", ""))
	assert.Nil(t, *values)

	require.Error(t, flag.Set("xslices_test_values", "1,x"))
	assert.Nil(t, *values, "a failed parse leaves the previous value")
}
