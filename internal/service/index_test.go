package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/filestore"
)

func entriesWithIDs(ids ...string) []domain.MetadataEntry {
	out := make([]domain.MetadataEntry, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.MetadataEntry{ID: domain.EntryID(id)})
	}
	return out
}

func TestNextID(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
		want string
	}{
		{"empty", nil, "1"},
		{"single", []string{"5"}, "6"},
		{"unordered", []string{"3", "10", "7"}, "11"},
		{"non numeric ignored", []string{"abc", "2", "HR-ABC-Doc"}, "3"},
		{"all non numeric", []string{"abc", "x1"}, "1"},
		{"zero padded", []string{"009"}, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NextID(entriesWithIDs(tt.ids...)))
		})
	}
}

func TestNextID_IsMaxPlusOne(t *testing.T) {
	for n := 1; n <= 50; n++ {
		ids := make([]string, 0, n)
		for i := n; i >= 1; i-- {
			ids = append(ids, fmt.Sprint(i*3))
		}
		require.Equal(t, fmt.Sprint(n*3+1), NextID(entriesWithIDs(ids...)))
	}
}

func TestLoadIndex_Lenient(t *testing.T) {
	tests := []struct {
		name    string
		content *string
		want    int
	}{
		{"missing file", nil, 0},
		{"not json", ptr("<html>"), 0},
		{"object instead of array", ptr(`{"id":"1"}`), 0},
		{"null", ptr("null"), 0},
		{"numeric ids", ptr(`[{"id":1,"name":"a"},{"id":"2","name":"b"}]`), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := filestore.NewMemoryStore()
			files := map[string]string{"README.md": "x"}
			if tt.content != nil {
				files["metadata.json"] = *tt.content
			}
			store.Seed("main", files)
			svc := NewTemplateService(store, Options{})

			entries, err := svc.loadIndex(context.Background(), "main")
			require.NoError(t, err)
			require.NotNil(t, entries)
			require.Len(t, entries, tt.want)
		})
	}
}

func ptr(s string) *string { return &s }
