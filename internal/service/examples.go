package service

import (
	"github.com/spf13/cast"

	"prompthub.io/prompthub/internal/domain"
)

// Accepted example keys, canonical name first.
var (
	userInputKeys      = []string{"User Input", "input", "userInput", "question"}
	expectedOutputKeys = []string{"Expected Output", "output", "expectedOutput", "answer"}
)

// NormalizeExamples converts loosely shaped example objects into
// User Input / Expected Output pairs. Entries with no known key, or that
// are not objects at all, become empty pairs.
func NormalizeExamples(raw []any) []domain.Example {
	out := make([]domain.Example, 0, len(raw))
	for _, item := range raw {
		m, err := cast.ToStringMapE(item)
		if err != nil {
			out = append(out, domain.Example{})
			continue
		}
		out = append(out, domain.Example{
			UserInput:      firstString(m, userInputKeys),
			ExpectedOutput: firstString(m, expectedOutputKeys),
		})
	}
	return out
}

func firstString(m map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return cast.ToString(v)
		}
	}
	return ""
}
