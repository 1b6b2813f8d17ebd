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
			name:     "single value",
			input:    "AAPL",
			expected: []string{"AAPL"},
		},
		{
			name:     "two values",
			input:    "AAPL, MSFT",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "varied spacing",
			input:    "AAPL,  MSFT , GOOG",
			expected: []string{"AAPL", "MSFT", "GOOG"},
		},
		{
			name:     "trailing comma",
			input:    "AAPL,",
			expected: []string{"AAPL"},
		},
		{
			name:     "leading comma",
			input:    ",MSFT",
			expected: []string{"MSFT"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "comma only",
			input:    ",",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,AAPL,,MSFT,,",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "event type filter",
			input:    "ORDER_FILLED, POSITION_CLOSED",
			expected: []string{"ORDER_FILLED", "POSITION_CLOSED"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCSV(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseCSV_PreservesInput(t *testing.T) {
	input := "AAPL, MSFT"
	originalInput := input

	_ = ParseCSV(input)

	assert.Equal(t, originalInput, input, "input should not be modified")
}
