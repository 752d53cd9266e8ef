package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "$1,200.00", FormatMoney(1200, "USD"))
	assert.Equal(t, "$0.29", FormatMoney(0.29, "usd"))
	assert.Equal(t, "-$200.00", FormatMoney(-200, "USD"))
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+20.00%", FormatPercent(20))
	assert.Equal(t, "-3.33%", FormatPercent(-3.3333))
	assert.Equal(t, "+0.00%", FormatPercent(0))
}
