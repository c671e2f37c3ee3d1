package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
)

// loadIndex reads the Metadata Index at ref. A missing file or content
// that is not a JSON array of entries reads as an empty index; other store
// failures are returned.
func (s *TemplateService) loadIndex(ctx context.Context, ref string) ([]domain.MetadataEntry, error) {
	data, err := s.store.ReadFile(ctx, ref, s.metadataPath)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []domain.MetadataEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []domain.MetadataEntry
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		logger.Warn("Metadata index unreadable, treating as empty",
			zap.String("path", s.metadataPath),
			zap.String("ref", ref),
			zap.Error(err),
		)
		return []domain.MetadataEntry{}, nil
	}
	return entries, nil
}

// NextID returns max(numeric ids)+1 as a decimal string, or "1" when the
// index holds no numeric id.
func NextID(entries []domain.MetadataEntry) string {
	var highest int64
	for _, e := range entries {
		n, err := strconv.ParseInt(string(e.ID), 10, 64)
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return strconv.FormatInt(highest+1, 10)
}

// findEntryByID returns the position of the entry with id, or -1.
func findEntryByID(entries []domain.MetadataEntry, id string) int {
	for i, e := range entries {
		if string(e.ID) == id {
			return i
		}
	}
	return -1
}

// findEntryByPath returns the position of the entry linking to p, or -1.
func findEntryByPath(entries []domain.MetadataEntry, p string) int {
	for i, e := range entries {
		if sameLink(e.Link, p) {
			return i
		}
	}
	return -1
}

func encodeJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
