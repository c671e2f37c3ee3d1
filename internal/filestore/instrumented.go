package filestore

import (
	"context"
	"fmt"
	"time"

	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/metrics"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
)

// InstrumentedStore records prometheus metrics around every call of the
// wrapped Store.
type InstrumentedStore struct {
	next    Store
	backend string
}

// Instrument wraps s with metrics labelled by backend.
func Instrument(s Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{next: s, backend: backend}
}

// Unwrap returns the wrapped Store.
func (s *InstrumentedStore) Unwrap() Store { return s.next }

// ReadFile delegates and records the call.
func (s *InstrumentedStore) ReadFile(ctx context.Context, ref, p string) (data []byte, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(s.backend, "read_file", start, err) }(time.Now())
	return s.next.ReadFile(ctx, ref, p)
}

// ListDir delegates and records the call.
func (s *InstrumentedStore) ListDir(ctx context.Context, ref, dir string) (entries []Entry, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(s.backend, "list_dir", start, err) }(time.Now())
	return s.next.ListDir(ctx, ref, dir)
}

// Commit delegates and records the call.
func (s *InstrumentedStore) Commit(ctx context.Context, req CommitRequest) (res CommitResult, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(s.backend, "commit", start, err) }(time.Now())
	return s.next.Commit(ctx, req)
}

// Head delegates and records the call.
func (s *InstrumentedStore) Head(ctx context.Context, branch string) (rev string, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(s.backend, "head", start, err) }(time.Now())
	return s.next.Head(ctx, branch)
}

// History delegates and records the call.
func (s *InstrumentedStore) History(ctx context.Context, ref, p string, limit int) (commits []domain.Commit, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(s.backend, "history", start, err) }(time.Now())
	return s.next.History(ctx, ref, p, limit)
}

// AsReviewer returns the Reviewer behind s, if its backend supports review.
func AsReviewer(s Store) (Reviewer, bool) {
	if w, ok := s.(interface{ Reviewer() (Reviewer, error) }); ok {
		r, err := w.Reviewer()
		return r, err == nil
	}
	r, ok := s.(Reviewer)
	return r, ok
}

// instrumentedReviewer adds metrics to a Reviewer found behind a wrapper.
type instrumentedReviewer struct {
	next    Reviewer
	backend string
}

// Reviewer returns the metrics-wrapped Reviewer behind s, or an error
// wrapping ErrUnsupported when the backend has no review support.
func (s *InstrumentedStore) Reviewer() (Reviewer, error) {
	r, ok := AsReviewer(s.next)
	if !ok {
		return nil, fmt.Errorf("%s backend: %w", s.backend, apperrors.ErrUnsupported)
	}
	return &instrumentedReviewer{next: r, backend: s.backend}, nil
}

func (r *instrumentedReviewer) CreateBranch(ctx context.Context, name, fromRevision string) (err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(r.backend, "create_branch", start, err) }(time.Now())
	return r.next.CreateBranch(ctx, name, fromRevision)
}

func (r *instrumentedReviewer) OpenPullRequest(ctx context.Context, pr PullRequest) (url string, err error) {
	defer func(start time.Time) { metrics.RecordStoreCall(r.backend, "open_pull_request", start, err) }(time.Now())
	return r.next.OpenPullRequest(ctx, pr)
}

var _ Store = (*InstrumentedStore)(nil)
