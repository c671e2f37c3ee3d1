package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIncrementVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v2.3", "v2.4"},
		{"v1.0", "v1.1"},
		{"v1.9", "v1.10"},
		{"v3.41", "v3.42"},
		{"", "v1.0"},
		{"garbage", "v1.1"},
		{"2.3", "v1.1"},
		{"v2", "v1.1"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, IncrementVersion(tt.in))
		})
	}
}
