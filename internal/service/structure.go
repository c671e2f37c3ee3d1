package service

import (
	"context"
	"errors"
	"sort"
	"sync"

	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
	"prompthub.io/prompthub/internal/pkg/worker"
)

// Structure discovers departments (root directories) and their app codes
// (second level directories). Files at either level are ignored.
func (s *TemplateService) Structure(ctx context.Context) (*domain.Structure, error) {
	out := &domain.Structure{
		Departments: []string{},
		AppCodes:    []domain.AppCodeRef{},
	}

	root, err := s.store.ListDir(ctx, s.branch, "")
	if errors.Is(err, apperrors.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return nil, s.storeError(err, "list departments")
	}
	for _, e := range root {
		if e.IsDir {
			out.Departments = append(out.Departments, e.Name)
		}
	}
	sort.Strings(out.Departments)

	appCodes := make([][]domain.AppCodeRef, len(out.Departments))
	var (
		firstErr error
		errMu    sync.Mutex
	)
	tasks := make([]worker.Task, 0, len(out.Departments))
	for i, dept := range out.Departments {
		tasks = append(tasks, func(ctx context.Context) {
			entries, err := s.store.ListDir(ctx, s.branch, dept)
			if err != nil {
				if errors.Is(err, apperrors.ErrNotFound) {
					return
				}
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
				return
			}
			for _, e := range entries {
				if e.IsDir {
					appCodes[i] = append(appCodes[i], domain.AppCodeRef{Department: dept, AppCode: e.Name})
				}
			}
		})
	}

	if err := s.runAll(ctx, tasks); err != nil {
		return nil, s.storeError(err, "discover app codes")
	}
	if firstErr != nil {
		return nil, s.storeError(firstErr, "list app codes")
	}

	for _, refs := range appCodes {
		sort.Slice(refs, func(a, b int) bool { return refs[a].AppCode < refs[b].AppCode })
		out.AppCodes = append(out.AppCodes, refs...)
	}
	logger.Debug("Structure discovered",
		zap.Int("departments", len(out.Departments)),
		zap.Int("app_codes", len(out.AppCodes)),
	)
	return out, nil
}

// runAll runs tasks on the pool, or inline when no pool is configured.
func (s *TemplateService) runAll(ctx context.Context, tasks []worker.Task) error {
	if s.pool != nil {
		return s.pool.Run(ctx, tasks)
	}
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		task(ctx)
	}
	return nil
}
