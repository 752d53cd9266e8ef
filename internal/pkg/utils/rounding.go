package utils

import (
	"math"

	"github.com/shopspring/decimal"
)

// RoundHalfAwayFromZero rounds v to the given number of fraction digits,
// with ties going away from zero (2.345 -> 2.35, -2.345 -> -2.35).
// The float is first read as its shortest decimal representation, so 1.005
// rounds to 1.01 rather than to the 1.00 a binary multiply-and-round gives.
// NaN and infinities round to 0.
func RoundHalfAwayFromZero(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Round2 rounds to currency precision.
func Round2(v float64) float64 { return RoundHalfAwayFromZero(v, 2) }

// Round4 rounds to the precision used for per-unit costs.
func Round4(v float64) float64 { return RoundHalfAwayFromZero(v, 4) }

// DecimalSum accumulates floats exactly so that a total can be rounded once.
type DecimalSum struct {
	total decimal.Decimal
}

// Add adds a finite value; NaN and infinities are ignored.
func (s *DecimalSum) Add(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	s.total = s.total.Add(decimal.NewFromFloat(v))
}

// Float64 returns the unrounded total.
func (s DecimalSum) Float64() float64 { return s.total.InexactFloat64() }

// Rounded returns the total rounded half away from zero.
func (s DecimalSum) Rounded(places int32) float64 {
	return s.total.Round(places).InexactFloat64()
}

// Decimal exposes the exact total.
func (s DecimalSum) Decimal() decimal.Decimal { return s.total }
