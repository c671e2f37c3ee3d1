// Package filestore abstracts the Remote File Store: a Git-hosted
// repository addressed by path, read at a revision and written through
// multi-file commits.
//
// Backends:
//   - BitbucketStore: Bitbucket Cloud REST 2.0 (production)
//   - GitRepoStore: local repository driven by go-git
//   - MemoryStore: in-process snapshots for tests and development
//
// Import Path: prompthub.io/prompthub/internal/filestore
package filestore

import (
	"context"
	"path"
	"sort"
	"strings"

	"prompthub.io/prompthub/internal/domain"
)

// Entry is one element of a directory listing.
type Entry struct {
	Name  string
	Path  string
	IsDir bool
}

// CommitRequest describes a single atomic commit.
type CommitRequest struct {
	Branch  string
	Message string
	Author  string

	// Files maps repository paths to their new content.
	Files map[string]string

	// Deletes lists repository paths to remove.
	Deletes []string

	// Parents, when set, must equal the current branch head or the
	// commit fails with ErrConflict.
	Parents []string
}

// Paths returns every path touched by the request, sorted.
func (r CommitRequest) Paths() []string {
	paths := make([]string, 0, len(r.Files)+len(r.Deletes))
	for p := range r.Files {
		paths = append(paths, p)
	}
	paths = append(paths, r.Deletes...)
	sort.Strings(paths)
	return paths
}

// CommitResult is the outcome of a successful commit.
type CommitResult struct {
	Revision string
}

// Store is the Remote File Store.
//
// Backends return errors wrapping apperrors.ErrNotFound,
// apperrors.ErrUnauthorized and apperrors.ErrConflict so callers can
// classify failures with errors.Is.
type Store interface {
	// ReadFile returns the content of path at ref (branch or revision).
	ReadFile(ctx context.Context, ref, path string) ([]byte, error)

	// ListDir lists the direct children of dir at ref. An empty dir is the
	// repository root.
	ListDir(ctx context.Context, ref, dir string) ([]Entry, error)

	// Commit writes and deletes files on a branch in one revision.
	Commit(ctx context.Context, req CommitRequest) (CommitResult, error)

	// Head returns the current revision of branch, "" for an empty repository.
	Head(ctx context.Context, branch string) (string, error)

	// History returns the commits touching path reachable from ref, newest
	// first. A limit <= 0 returns the full history.
	History(ctx context.Context, ref, path string, limit int) ([]domain.Commit, error)
}

// PullRequest is a maker-checker review request.
type PullRequest struct {
	Title             string
	Description       string
	SourceBranch      string
	DestinationBranch string
	CloseSourceBranch bool
}

// Reviewer is implemented by backends that support branches and pull
// requests.
type Reviewer interface {
	CreateBranch(ctx context.Context, name, fromRevision string) error
	OpenPullRequest(ctx context.Context, pr PullRequest) (string, error)
}

// Join builds a repository path from segments, without a leading slash.
func Join(elem ...string) string {
	return strings.TrimPrefix(path.Join(elem...), "/")
}

// cleanPath normalises a caller supplied path. The root is "".
func cleanPath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return ""
	}
	return path.Clean(p)
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
}
