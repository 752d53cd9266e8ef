package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundHalfAwayFromZero(t *testing.T) {
	tests := []struct {
		name   string
		in     float64
		places int32
		want   float64
	}{
		{"positive tie", 2.345, 2, 2.35},
		{"negative tie", -2.345, 2, -2.35},
		{"binary representation trap", 1.005, 2, 1.01},
		{"below half", 2.344, 2, 2.34},
		{"four digits", 33.333333, 4, 33.3333},
		{"four digit tie", 0.00005, 4, 0.0001},
		{"integer", 1200, 2, 1200},
		{"zero", 0, 2, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundHalfAwayFromZero(tt.in, tt.places))
		})
	}
}

func TestRoundHalfAwayFromZero_NonFinite(t *testing.T) {
	assert.Equal(t, 0.0, Round2(math.NaN()))
	assert.Equal(t, 0.0, Round2(math.Inf(1)))
	assert.Equal(t, 0.0, Round4(math.Inf(-1)))
}

func TestDecimalSum_RoundsOnce(t *testing.T) {
	var sum DecimalSum
	for i := 0; i < 3; i++ {
		sum.Add(0.004)
		// each term alone rounds to zero
		assert.Equal(t, 0.0, Round2(0.004))
	}
	sum.Add(math.NaN())

	assert.Equal(t, 0.01, sum.Rounded(2))
	assert.InDelta(t, 0.012, sum.Float64(), 1e-12)
}
