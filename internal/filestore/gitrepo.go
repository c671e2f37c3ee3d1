package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sync"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
)

// GitRepoOptions configures a GitRepoStore.
type GitRepoOptions struct {
	Dir           string
	DefaultBranch string
	AuthorName    string
	AuthorEmail   string
}

// GitRepoStore implements Store on a local repository using go-git.
// Commits go through the working tree, one branch at a time.
type GitRepoStore struct {
	dir          string
	defaultName  string
	defaultEmail string
	repo         *gogit.Repository
	mu           sync.Mutex
}

// NewGitRepoStore opens the repository in opts.Dir, initialising it when
// the directory is not a repository yet.
func NewGitRepoStore(opts GitRepoOptions) (*GitRepoStore, error) {
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repo directory: %w", err)
	}

	repo, err := gogit.PlainOpen(opts.Dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		branch := opts.DefaultBranch
		if branch == "" {
			branch = "main"
		}
		repo, err = gogit.PlainInitWithOptions(opts.Dir, &gogit.PlainInitOptions{
			InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName(branch)},
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open git repo %s: %w", opts.Dir, err)
	}

	return &GitRepoStore{
		dir:          opts.Dir,
		defaultName:  opts.AuthorName,
		defaultEmail: opts.AuthorEmail,
		repo:         repo,
	}, nil
}

// ReadFile returns the blob at p in the tree of ref.
func (s *GitRepoStore) ReadFile(ctx context.Context, ref, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := c.File(cleanPath(p))
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, fmt.Errorf("file %s: %w", p, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", p, err)
	}

	reader, err := f.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", p, err)
	}
	defer func() { _ = reader.Close() }()
	return io.ReadAll(reader)
}

// ListDir lists the direct children of dir in the tree of ref.
func (s *GitRepoStore) ListDir(ctx context.Context, ref, dir string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}

	dir = cleanPath(dir)
	if dir != "" {
		tree, err = tree.Tree(dir)
		if errors.Is(err, object.ErrDirectoryNotFound) {
			return nil, fmt.Errorf("directory %s: %w", dir, apperrors.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get tree %s: %w", dir, err)
		}
	}

	entries := make([]Entry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, Entry{
			Name:  e.Name,
			Path:  Join(dir, e.Name),
			IsDir: e.Mode == filemode.Dir,
		})
	}
	sortEntries(entries)
	return entries, nil
}

// Commit writes req through the worktree and commits on req.Branch.
func (s *GitRepoStore) Commit(ctx context.Context, req CommitRequest) (_ CommitResult, err error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	head, err := s.head(req.Branch)
	if err != nil {
		return CommitResult{}, err
	}
	if len(req.Parents) > 0 && head != req.Parents[0] {
		return CommitResult{}, fmt.Errorf("branch %s moved past %s: %w", req.Branch, req.Parents[0], apperrors.ErrConflict)
	}

	w, err := s.repo.Worktree()
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to get worktree: %w", err)
	}
	if err := s.checkout(w, req.Branch, head); err != nil {
		return CommitResult{}, err
	}
	defer func() {
		if err != nil && head != "" {
			s.discard(w, head)
		}
	}()

	for _, p := range req.Paths() {
		content, write := req.Files[p]
		p = cleanPath(p)
		if !write {
			if _, err := w.Remove(p); err != nil {
				return CommitResult{}, fmt.Errorf("failed to remove %s: %w", p, apperrors.ErrNotFound)
			}
			continue
		}
		full := filepath.Join(s.dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return CommitResult{}, fmt.Errorf("failed to create directory for %s: %w", p, err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			return CommitResult{}, fmt.Errorf("failed to write %s: %w", p, err)
		}
		if _, err := w.Add(p); err != nil {
			return CommitResult{}, fmt.Errorf("failed to stage %s: %w", p, err)
		}
	}

	status, err := w.Status()
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to get worktree status: %w", err)
	}
	if status.IsClean() {
		return CommitResult{Revision: head}, nil
	}

	now := time.Now()
	hash, err := w.Commit(req.Message, &gogit.CommitOptions{
		Author: s.signature(req.Author, now),
		Committer: &object.Signature{
			Name:  s.defaultName,
			Email: s.defaultEmail,
			When:  now,
		},
	})
	if err != nil {
		return CommitResult{}, fmt.Errorf("failed to commit: %w", err)
	}
	return CommitResult{Revision: hash.String()}, nil
}

// Head returns the commit hash of branch.
func (s *GitRepoStore) Head(ctx context.Context, branch string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.head(branch)
}

// History walks the log from ref, keeping commits that touch p. A limit
// <= 0 walks the whole log.
func (s *GitRepoStore) History(ctx context.Context, ref, p string, limit int) ([]domain.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := s.resolve(ref)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	opts := &gogit.LogOptions{From: c.Hash}
	if p = cleanPath(p); p != "" {
		opts.FileName = &p
	}
	iter, err := s.repo.Log(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}
	defer iter.Close()

	var commits []domain.Commit
	for limit <= 0 || len(commits) < limit {
		c, err := iter.Next()
		if err != nil {
			break
		}
		commits = append(commits, domain.Commit{
			Hash:    c.Hash.String(),
			Message: c.Message,
			Author:  c.Author.Name,
			Date:    c.Author.When,
		})
	}
	return commits, nil
}

func (s *GitRepoStore) resolve(ref string) (*object.Commit, error) {
	hash, err := s.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, fmt.Errorf("ref %s: %w", ref, apperrors.ErrNotFound)
	}
	c, err := s.repo.CommitObject(*hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, fmt.Errorf("revision %s: %w", ref, apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", ref, err)
	}
	return c, nil
}

func (s *GitRepoStore) head(branch string) (string, error) {
	ref, err := s.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve branch %s: %w", branch, err)
	}
	return ref.Hash().String(), nil
}

// checkout points the working tree at branch. A branch without commits
// becomes the target of HEAD so the next commit creates it.
func (s *GitRepoStore) checkout(w *gogit.Worktree, branch, head string) error {
	name := plumbing.NewBranchReferenceName(branch)
	current, err := s.repo.Storer.Reference(plumbing.HEAD)
	if err == nil && current.Type() == plumbing.SymbolicReference && current.Target() == name {
		return nil
	}
	if head == "" {
		if err := s.repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, name)); err != nil {
			return fmt.Errorf("failed to switch to %s: %w", branch, err)
		}
		return nil
	}
	if err := w.Checkout(&gogit.CheckoutOptions{Branch: name, Force: true}); err != nil {
		return fmt.Errorf("failed to checkout %s: %w", branch, err)
	}
	return nil
}

// discard drops staged and untracked changes after a failed commit.
func (s *GitRepoStore) discard(w *gogit.Worktree, head string) {
	if err := w.Reset(&gogit.ResetOptions{Commit: plumbing.NewHash(head), Mode: gogit.HardReset}); err != nil {
		logger.Warn("Failed to reset worktree", zap.String("dir", s.dir), zap.Error(err))
	}
	if err := w.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		logger.Warn("Failed to clean worktree", zap.String("dir", s.dir), zap.Error(err))
	}
}

// signature parses "Name <email>" authors, falling back to the defaults.
func (s *GitRepoStore) signature(author string, when time.Time) *object.Signature {
	sig := &object.Signature{Name: s.defaultName, Email: s.defaultEmail, When: when}
	if author == "" {
		return sig
	}
	if addr, err := mail.ParseAddress(author); err == nil {
		sig.Email = addr.Address
		if addr.Name != "" {
			sig.Name = addr.Name
		}
		return sig
	}
	sig.Name = author
	return sig
}

var _ Store = (*GitRepoStore)(nil)
