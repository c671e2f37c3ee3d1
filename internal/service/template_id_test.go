package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

func TestDecodeTemplateID(t *testing.T) {
	tests := []struct {
		id   string
		want TemplateKey
	}{
		{"HR-ABC-Policy-Doc", TemplateKey{"HR", "ABC", "Policy-Doc"}},
		{"Finance-RC1-Risk-Check-1700000000000", TemplateKey{"Finance", "RC1", "Risk-Check"}},
		{"Finance-RC1-Risk", TemplateKey{"Finance", "RC1", "Risk"}},
		{"Finance-RC1-Plan-2024", TemplateKey{"Finance", "RC1", "Plan"}},
		{"Finance-RC1-v2-Draft", TemplateKey{"Finance", "RC1", "v2-Draft"}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := DecodeTemplateID(tt.id)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeTemplateID_Invalid(t *testing.T) {
	for _, id := range []string{"", "HR", "HR-ABC", "HR-ABC-123", "-ABC-Doc", "HR--Doc"} {
		t.Run(id, func(t *testing.T) {
			_, err := DecodeTemplateID(id)
			appErr, ok := apperrors.IsAppError(err)
			require.True(t, ok)
			require.Equal(t, apperrors.CodeTemplateIDInvalid, appErr.Code)
			require.Equal(t, 400, appErr.HTTPStatus)
		})
	}
}

func TestTemplateID_RoundTrip(t *testing.T) {
	id := EncodeTemplateID("HR", "ABC", "Policy Doc")
	require.Equal(t, "HR-ABC-Policy-Doc", id)

	key, err := DecodeTemplateID(id)
	require.NoError(t, err)
	require.Equal(t, "HR", key.Department)
	require.Equal(t, "ABC", key.AppCode)
	require.Equal(t, "Policy-Doc", key.Stem)
	require.Equal(t, KeyFor("HR", "ABC", "Policy Doc"), key)
}

func TestTemplateKey_Paths(t *testing.T) {
	key := KeyFor("Finance", "RC1", "Risk  Check")
	require.Equal(t, "Risk-Check", key.Stem)
	require.Equal(t, "Finance/RC1", key.Dir())
	require.Equal(t, "Finance/RC1/Risk-Check.json", key.Path())
	require.Equal(t, "/Finance/RC1/Risk-Check.json", key.Link())
}

func TestKeyFromLink(t *testing.T) {
	key, ok := keyFromLink("/Finance/RC1/Risk-Check.json")
	require.True(t, ok)
	require.Equal(t, TemplateKey{"Finance", "RC1", "Risk-Check"}, key)

	_, ok = keyFromLink("/Finance/Risk-Check.json")
	require.False(t, ok)
	_, ok = keyFromLink("")
	require.False(t, ok)
}

func TestIsIndexID(t *testing.T) {
	require.True(t, IsIndexID("6"))
	require.True(t, IsIndexID("0012"))
	require.False(t, IsIndexID(""))
	require.False(t, IsIndexID("HR-ABC-Doc"))
	require.False(t, IsIndexID("6a"))
}
