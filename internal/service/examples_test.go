package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"prompthub.io/prompthub/internal/domain"
)

func TestNormalizeExamples(t *testing.T) {
	raw := []any{
		map[string]any{"input": "a", "output": "b"},
		map[string]any{"userInput": "c", "expectedOutput": "d"},
		map[string]any{"question": "e", "answer": "f"},
		map[string]any{"User Input": "g", "Expected Output": "h"},
		map[string]any{"question": 42, "answer": true},
		map[string]any{"prompt": "ignored"},
		"not an object",
		`{"input":"i"}`,
	}

	require.Equal(t, []domain.Example{
		{UserInput: "a", ExpectedOutput: "b"},
		{UserInput: "c", ExpectedOutput: "d"},
		{UserInput: "e", ExpectedOutput: "f"},
		{UserInput: "g", ExpectedOutput: "h"},
		{UserInput: "42", ExpectedOutput: "true"},
		{},
		{},
		{UserInput: "i"},
	}, NormalizeExamples(raw))
}

func TestNormalizeExamples_Empty(t *testing.T) {
	require.Empty(t, NormalizeExamples(nil))
	require.NotNil(t, NormalizeExamples(nil))
}
