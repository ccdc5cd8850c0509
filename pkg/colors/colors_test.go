package colors

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketFor(t *testing.T) {
	testCases := []struct {
		intensity float64
		expected  Bucket
	}{
		{-0.5, Green},
		{0.0, Green},
		{0.2999, Green},
		{0.3, Yellow},
		{0.5999, Yellow},
		{0.6, Orange},
		{0.7999, Orange},
		{0.8, Red},
		{0.9999, Red},
		{1.0, Purple},
		{1.2, Purple},
		{math.NaN(), Green},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, BucketFor(tc.intensity), "intensity %v", tc.intensity)
	}
}

func TestBucketNames(t *testing.T) {
	assert.Equal(t, "green", Green.String())
	assert.Equal(t, "purple", Purple.String())
	assert.Equal(t, "#ed1c24", Red.Hex())
	assert.Equal(t, "unknown", Bucket(9).String())
	assert.Empty(t, Bucket(-1).Hex())
}

func TestHeatGradient(t *testing.T) {
	assert.Equal(t, map[string]string{
		"0.0": "green",
		"0.3": "yellow",
		"0.6": "orange",
		"0.8": "red",
		"1.0": "purple",
	}, HeatGradient())

	s := Stops()
	assert.Len(t, s, 5)
	for i := 1; i < len(s); i++ {
		assert.Less(t, s[i-1].Offset, s[i].Offset)
		// Every stop opens its own bucket.
		assert.Equal(t, s[i].Bucket, BucketFor(s[i].Offset))
	}
}
