package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "only separators and spaces",
			input:    " , ,, ",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "TRADE_EXECUTED",
			expected: []string{"TRADE_EXECUTED"},
		},
		{
			name:     "varied spacing",
			input:    "AAPL,  msft , TSLA",
			expected: []string{"AAPL", "msft", "TSLA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 10, ParseLimit("", 10, 100))
	assert.Equal(t, 10, ParseLimit("abc", 10, 100))
	assert.Equal(t, 10, ParseLimit("-3", 10, 100))
	assert.Equal(t, 25, ParseLimit(" 25 ", 10, 100))
	assert.Equal(t, 100, ParseLimit("1000", 10, 100))
	assert.Equal(t, 1000, ParseLimit("1000", 10, 0))
}
