package openapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load()
	require.NoError(t, err)

	for _, p := range []string{
		"/api/templates",
		"/api/templates/{id}",
		"/api/templates/{id}/history",
		"/api/activities",
		"/api/bitbucket/structure",
		"/api/bitbucket/webhooks",
	} {
		require.NotNil(t, doc.Paths.Find(p), p)
	}
	require.NotEmpty(t, Raw())
}
