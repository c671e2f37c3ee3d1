package filestore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

// RecordedCommit is a commit made against a MemoryStore.
type RecordedCommit struct {
	Revision string
	Parent   string
	Branch   string
	Message  string
	Author   string
	Date     time.Time
	Written  []string
	Deleted  []string
}

// Touches reports whether the commit wrote or deleted p.
func (c RecordedCommit) Touches(p string) bool {
	for _, w := range c.Written {
		if w == p {
			return true
		}
	}
	for _, d := range c.Deleted {
		if d == p {
			return true
		}
	}
	return false
}

type memRevision struct {
	commit RecordedCommit
	files  map[string]string
}

// MemoryStore implements Store and Reviewer in memory.
type MemoryStore struct {
	branches  map[string]string // branch -> revision
	revisions map[string]*memRevision
	commits   []RecordedCommit
	pulls     []PullRequest
	now       func() time.Time
	mu        sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		branches:  make(map[string]string),
		revisions: make(map[string]*memRevision),
		now:       time.Now,
	}
}

// Seed commits files to branch without recording the commit, so tests can
// assert on the writes made after seeding.
func (s *MemoryStore) Seed(branch string, files map[string]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, _ := s.commitLocked(CommitRequest{Branch: branch, Message: "seed", Author: "seed", Files: files})
	s.commits = s.commits[:len(s.commits)-1]
	return rev
}

// Reset clears all branches, revisions and recorded commits.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches = make(map[string]string)
	s.revisions = make(map[string]*memRevision)
	s.commits = nil
	s.pulls = nil
}

// Commits returns the commits recorded since the last Seed or Reset.
func (s *MemoryStore) Commits() []RecordedCommit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RecordedCommit, len(s.commits))
	copy(out, s.commits)
	return out
}

// PullRequests returns the pull requests opened so far.
func (s *MemoryStore) PullRequests() []PullRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PullRequest, len(s.pulls))
	copy(out, s.pulls)
	return out
}

// Snapshot returns a copy of every file at ref.
func (s *MemoryStore) Snapshot(ref string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string)
	if r, ok := s.resolveLocked(ref); ok {
		for k, v := range r.files {
			out[k] = v
		}
	}
	return out
}

// ReadFile returns the content of p at ref, a branch name or revision.
func (s *MemoryStore) ReadFile(ctx context.Context, ref, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolveLocked(ref)
	if !ok {
		return nil, fmt.Errorf("ref %s: %w", ref, apperrors.ErrNotFound)
	}
	content, ok := r.files[cleanPath(p)]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", p, apperrors.ErrNotFound)
	}
	return []byte(content), nil
}

// ListDir lists the direct children of dir at ref.
func (s *MemoryStore) ListDir(ctx context.Context, ref, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolveLocked(ref)
	if !ok {
		return nil, fmt.Errorf("ref %s: %w", ref, apperrors.ErrNotFound)
	}

	dir = cleanPath(dir)
	prefix := ""
	if dir != "" {
		prefix = dir + "/"
	}
	seen := make(map[string]bool)
	var entries []Entry
	for p := range r.files {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		name, rest, isDir := strings.Cut(strings.TrimPrefix(p, prefix), "/")
		if seen[name] {
			continue
		}
		seen[name] = true
		entries = append(entries, Entry{Name: name, Path: prefix + name, IsDir: isDir && rest != ""})
	}
	if len(entries) == 0 && dir != "" {
		return nil, fmt.Errorf("directory %s: %w", dir, apperrors.ErrNotFound)
	}
	sortEntries(entries)
	return entries, nil
}

// Commit records a new revision on req.Branch.
func (s *MemoryStore) Commit(ctx context.Context, req CommitRequest) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(req.Parents) > 0 && s.branches[req.Branch] != req.Parents[0] {
		return CommitResult{}, fmt.Errorf("branch %s moved past %s: %w", req.Branch, req.Parents[0], apperrors.ErrConflict)
	}
	rev, err := s.commitLocked(req)
	if err != nil {
		return CommitResult{}, err
	}
	return CommitResult{Revision: rev}, nil
}

func (s *MemoryStore) commitLocked(req CommitRequest) (string, error) {
	parent := s.branches[req.Branch]
	files := make(map[string]string)
	if prev, ok := s.revisions[parent]; ok {
		for k, v := range prev.files {
			files[k] = v
		}
	}

	rc := RecordedCommit{
		Revision: fmt.Sprintf("%040x", len(s.revisions)+1),
		Parent:   parent,
		Branch:   req.Branch,
		Message:  req.Message,
		Author:   req.Author,
		Date:     s.now(),
	}
	for p, content := range req.Files {
		p = cleanPath(p)
		files[p] = content
		rc.Written = append(rc.Written, p)
	}
	for _, p := range req.Deletes {
		p = cleanPath(p)
		if _, ok := files[p]; !ok {
			return "", fmt.Errorf("delete %s: %w", p, apperrors.ErrNotFound)
		}
		delete(files, p)
		rc.Deleted = append(rc.Deleted, p)
	}
	sort.Strings(rc.Written)
	sort.Strings(rc.Deleted)

	s.revisions[rc.Revision] = &memRevision{commit: rc, files: files}
	s.branches[req.Branch] = rc.Revision
	s.commits = append(s.commits, rc)
	return rc.Revision, nil
}

// Head returns the revision branch points at.
func (s *MemoryStore) Head(ctx context.Context, branch string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.branches[branch], nil
}

// History walks parent links from ref. A limit <= 0 returns every commit.
func (s *MemoryStore) History(ctx context.Context, ref, p string, limit int) ([]domain.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.resolveLocked(ref)
	if !ok {
		return nil, nil
	}

	p = cleanPath(p)
	var out []domain.Commit
	for r != nil {
		if p == "" || r.commit.Touches(p) {
			out = append(out, domain.Commit{
				Hash:    r.commit.Revision,
				Message: r.commit.Message,
				Author:  r.commit.Author,
				Date:    r.commit.Date,
			})
			if limit > 0 && len(out) == limit {
				break
			}
		}
		r = s.revisions[r.commit.Parent]
	}
	return out, nil
}

// CreateBranch points a new branch at fromRevision.
func (s *MemoryStore) CreateBranch(ctx context.Context, name, fromRevision string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.branches[name]; exists {
		return fmt.Errorf("branch %s: %w", name, apperrors.ErrConflict)
	}
	if _, ok := s.revisions[fromRevision]; !ok {
		return fmt.Errorf("revision %s: %w", fromRevision, apperrors.ErrNotFound)
	}
	s.branches[name] = fromRevision
	return nil
}

// OpenPullRequest records pr and returns a memory:// URL for it.
func (s *MemoryStore) OpenPullRequest(ctx context.Context, pr PullRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.branches[pr.SourceBranch]; !ok {
		return "", fmt.Errorf("branch %s: %w", pr.SourceBranch, apperrors.ErrNotFound)
	}
	s.pulls = append(s.pulls, pr)
	return fmt.Sprintf("memory://pull-requests/%d", len(s.pulls)), nil
}

// resolveLocked accepts a branch name or a revision.
func (s *MemoryStore) resolveLocked(ref string) (*memRevision, bool) {
	if rev, ok := s.branches[ref]; ok {
		r, ok := s.revisions[rev]
		return r, ok
	}
	r, ok := s.revisions[ref]
	return r, ok
}
