package service

import (
	"context"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"prompthub.io/prompthub/internal/domain"
)

const (
	defaultActivityLimit = 20
	maxActivityScan      = 1000
)

// Commit messages written by this service, parsed back into activities.
var (
	createdMessage = regexp.MustCompile(`^Creating new template: (.+) in [^/]+/[^/]+$`)
	updatedMessage = regexp.MustCompile(`^Updating template: (.+) \([^)]*\)$`)
	deletedMessage = regexp.MustCompile(`^Deleting template: (.+) \(ID: [^)]*\)$`)
)

// History lists the versions of a template's document, newest first.
// The oldest commit is v1.0 and each later one bumps the minor version.
func (s *TemplateService) History(ctx context.Context, id string) ([]domain.HistoryEntry, error) {
	loc, err := s.resolve(ctx, s.branch, id)
	if err != nil {
		return nil, err
	}
	commits, err := s.store.History(ctx, s.branch, loc.path, 0)
	if err != nil {
		return nil, s.storeError(err, "read template history")
	}

	out := make([]domain.HistoryEntry, 0, len(commits))
	for i, c := range commits {
		out = append(out, domain.HistoryEntry{
			CommitID:        c.Hash,
			TemplateID:      loc.id,
			Version:         fmt.Sprintf("v1.%d", len(commits)-1-i),
			Message:         firstLine(c.Message),
			UserID:          c.Author,
			UserDisplayName: displayName(c.Author),
			Timestamp:       c.Date.UTC().Format(TimestampLayout),
		})
	}
	return out, nil
}

// Activities returns recent catalogue changes read from the Metadata
// Index history. Commits not written by this service are skipped, so the
// fetch window widens until limit activities are found, history runs out
// or maxActivityScan commits have been read.
func (s *TemplateService) Activities(ctx context.Context, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	for window := limit; ; window = min(window*4, max(maxActivityScan, limit)) {
		commits, err := s.store.History(ctx, s.branch, s.metadataPath, window)
		if err != nil {
			return nil, s.storeError(err, "read activity")
		}
		out := parseActivities(commits, limit)
		if len(out) == limit || len(commits) < window || window >= maxActivityScan {
			return out, nil
		}
	}
}

func parseActivities(commits []domain.Commit, limit int) []domain.Activity {
	out := make([]domain.Activity, 0, min(len(commits), limit))
	for _, c := range commits {
		action, name, ok := parseCommitMessage(firstLine(c.Message))
		if !ok {
			continue
		}
		out = append(out, domain.Activity{
			User:         displayName(c.Author),
			Action:       action,
			TemplateName: name,
			Timestamp:    c.Date.UTC().Format(TimestampLayout),
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

func parseCommitMessage(msg string) (action, name string, ok bool) {
	for _, p := range []struct {
		action string
		re     *regexp.Regexp
	}{
		{"created", createdMessage},
		{"updated", updatedMessage},
		{"deleted", deletedMessage},
	} {
		if m := p.re.FindStringSubmatch(msg); m != nil {
			return p.action, m[1], true
		}
	}
	return "", "", false
}

// displayName strips the address from "Name <email>" authors.
func displayName(author string) string {
	if addr, err := mail.ParseAddress(author); err == nil && addr.Name != "" {
		return addr.Name
	}
	return author
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
