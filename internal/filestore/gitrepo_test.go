package filestore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

func newTestGitRepo(t *testing.T) *GitRepoStore {
	t.Helper()
	s, err := NewGitRepoStore(GitRepoOptions{
		Dir:         t.TempDir(),
		AuthorName:  "prompthub",
		AuthorEmail: "prompthub@localhost",
	})
	require.NoError(t, err)
	return s
}

func TestGitRepoStore_EmptyRepository(t *testing.T) {
	ctx := context.Background()
	s := newTestGitRepo(t)

	head, err := s.Head(ctx, "main")
	require.NoError(t, err)
	require.Empty(t, head)

	_, err = s.ReadFile(ctx, "main", "metadata.json")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	history, err := s.History(ctx, "main", "metadata.json", 0)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestGitRepoStore_CommitReadList(t *testing.T) {
	ctx := context.Background()
	s := newTestGitRepo(t)

	first, err := s.Commit(ctx, CommitRequest{
		Branch:  "main",
		Message: "Creating new template: Risk Check in Finance/RC1",
		Author:  "Alice <alice@example.com>",
		Files: map[string]string{
			"metadata.json":               `[{"id":"1"}]`,
			"Finance/RC1/Risk-Check.json": `{"Template Name":"Risk Check"}`,
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.Revision)

	head, err := s.Head(ctx, "main")
	require.NoError(t, err)
	require.Equal(t, first.Revision, head)

	data, err := s.ReadFile(ctx, "main", "Finance/RC1/Risk-Check.json")
	require.NoError(t, err)
	require.JSONEq(t, `{"Template Name":"Risk Check"}`, string(data))

	root, err := s.ListDir(ctx, "main", "")
	require.NoError(t, err)
	require.Equal(t, []Entry{
		{Name: "Finance", Path: "Finance", IsDir: true},
		{Name: "metadata.json", Path: "metadata.json"},
	}, root)

	files, err := s.ListDir(ctx, first.Revision, "Finance/RC1")
	require.NoError(t, err)
	require.Equal(t, []Entry{{Name: "Risk-Check.json", Path: "Finance/RC1/Risk-Check.json"}}, files)

	_, err = s.ListDir(ctx, "main", "HR")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	second, err := s.Commit(ctx, CommitRequest{
		Branch:  "main",
		Message: "Deleting template: Risk Check (ID: 1)",
		Files:   map[string]string{"metadata.json": `[]`},
		Deletes: []string{"Finance/RC1/Risk-Check.json"},
		Parents: []string{first.Revision},
	})
	require.NoError(t, err)

	_, err = s.ReadFile(ctx, "main", "Finance/RC1/Risk-Check.json")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = s.ReadFile(ctx, first.Revision, "Finance/RC1/Risk-Check.json")
	require.NoError(t, err)

	history, err := s.History(ctx, "main", "metadata.json", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, second.Revision, history[0].Hash)
	require.Equal(t, "prompthub", history[0].Author)
	require.Equal(t, "Alice", history[1].Author)
}

func TestGitRepoStore_HistoryWithoutLimitWalksWholeLog(t *testing.T) {
	ctx := context.Background()
	s := newTestGitRepo(t)

	const total = 120
	for i := 0; i < total; i++ {
		_, err := s.Commit(ctx, CommitRequest{
			Branch:  "main",
			Message: "Updating template: Risk Check (1)",
			Files:   map[string]string{"Finance/RC1/Risk-Check.json": fmt.Sprintf(`{"Version":"v1.%d"}`, i)},
		})
		require.NoError(t, err)
	}

	all, err := s.History(ctx, "main", "Finance/RC1/Risk-Check.json", 0)
	require.NoError(t, err)
	require.Len(t, all, total)

	limited, err := s.History(ctx, "main", "Finance/RC1/Risk-Check.json", 5)
	require.NoError(t, err)
	require.Len(t, limited, 5)
	require.Equal(t, all[0].Hash, limited[0].Hash)
}

func TestGitRepoStore_StaleParentConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestGitRepo(t)

	first, err := s.Commit(ctx, CommitRequest{Branch: "main", Message: "one", Files: map[string]string{"metadata.json": "[]"}})
	require.NoError(t, err)
	_, err = s.Commit(ctx, CommitRequest{Branch: "main", Message: "two", Files: map[string]string{"metadata.json": "[1]"}, Parents: []string{first.Revision}})
	require.NoError(t, err)

	_, err = s.Commit(ctx, CommitRequest{Branch: "main", Message: "three", Files: map[string]string{"metadata.json": "[2]"}, Parents: []string{first.Revision}})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestGitRepoStore_UnchangedContentIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestGitRepo(t)

	first, err := s.Commit(ctx, CommitRequest{Branch: "main", Message: "one", Files: map[string]string{"metadata.json": "[]"}})
	require.NoError(t, err)
	again, err := s.Commit(ctx, CommitRequest{Branch: "main", Message: "again", Files: map[string]string{"metadata.json": "[]"}})
	require.NoError(t, err)
	require.Equal(t, first.Revision, again.Revision)
}

func TestGitRepoStore_Reopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewGitRepoStore(GitRepoOptions{Dir: dir, AuthorName: "a", AuthorEmail: "a@b"})
	require.NoError(t, err)
	_, err = s.Commit(ctx, CommitRequest{Branch: "main", Message: "one", Files: map[string]string{"metadata.json": "[]"}})
	require.NoError(t, err)

	reopened, err := NewGitRepoStore(GitRepoOptions{Dir: dir})
	require.NoError(t, err)
	data, err := reopened.ReadFile(ctx, "main", "metadata.json")
	require.NoError(t, err)
	require.Equal(t, "[]", string(data))
}

func TestGitRepoStore_IsNotAReviewer(t *testing.T) {
	_, ok := AsReviewer(Instrument(newTestGitRepo(t), "gitrepo"))
	require.False(t, ok)

	_, ok = AsReviewer(Instrument(NewMemoryStore(), "memory"))
	require.True(t, ok)
}
