package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"10000", "$10,000.00"},
		{"1234.567", "$1,234.57"},
		{"0.004", "$0.00"},
		{"-450", "-$450.00"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatMoney(decimal.RequireFromString(tt.input)))
		})
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+5.00%", FormatPercent(decimal.NewFromInt(5)))
	assert.Equal(t, "-20.00%", FormatPercent(decimal.NewFromInt(-20)))
	assert.Equal(t, "0.00%", FormatPercent(decimal.Zero))
	assert.Equal(t, "+33.33%", FormatPercent(decimal.RequireFromString("33.333333")))
}
