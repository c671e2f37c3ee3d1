// Package service implements the template catalogue on top of the Remote
// File Store: the Metadata Index, the Composite Identifier codec and the
// Template Record Store operations.
//
// Import Path: prompthub.io/prompthub/internal/service
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"prompthub.io/prompthub/internal/domain"
	"prompthub.io/prompthub/internal/filestore"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
	"prompthub.io/prompthub/internal/pkg/worker"
)

// TimestampLayout is the format of every timestamp written to the store.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// ListContentPlaceholder replaces the body in template listings.
const ListContentPlaceholder = "..."

// Options configures a TemplateService.
type Options struct {
	Branch       string
	MetadataPath string

	// DefaultActor is recorded when a request carries no user.
	DefaultActor string

	// TimestampOffset is added to UTC before formatting timestamps.
	TimestampOffset time.Duration

	// OptimisticConcurrency pins every write to the head revision it read.
	OptimisticConcurrency bool

	// DeleteRequireApproval routes deletions through a pull request.
	DeleteRequireApproval bool

	// Pool bounds the structure discovery fan-out; nil runs it inline.
	Pool *worker.Pool

	Dispatcher *domain.EventDispatcher

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// TemplateService manages Template Documents and the Metadata Index.
type TemplateService struct {
	store        filestore.Store
	branch       string
	metadataPath string
	defaultActor string
	offset       time.Duration
	optimistic   bool
	approval     bool
	pool         *worker.Pool
	dispatcher   *domain.EventDispatcher
	now          func() time.Time

	// writeMu serialises read-modify-write cycles on the index.
	writeMu sync.Mutex
}

// TemplateInput is the body of create and update requests.
type TemplateInput struct {
	Name         string
	Content      string
	Department   string
	AppCode      string
	Instructions string
	Examples     []any
}

// CreateResult is returned by Create.
type CreateResult struct {
	FilePath string
	Template *domain.Template
}

// NewTemplateService creates a new TemplateService.
func NewTemplateService(store filestore.Store, opts Options) *TemplateService {
	s := &TemplateService{
		store:        store,
		branch:       opts.Branch,
		metadataPath: opts.MetadataPath,
		defaultActor: opts.DefaultActor,
		offset:       opts.TimestampOffset,
		optimistic:   opts.OptimisticConcurrency,
		approval:     opts.DeleteRequireApproval,
		pool:         opts.Pool,
		dispatcher:   opts.Dispatcher,
		now:          opts.Now,
	}
	if s.branch == "" {
		s.branch = "main"
	}
	if s.metadataPath == "" {
		s.metadataPath = "metadata.json"
	}
	if s.defaultActor == "" {
		s.defaultActor = "System"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Create writes a new Template Document and its Metadata Entry in one commit.
func (s *TemplateService) Create(ctx context.Context, actor string, in TemplateInput) (*CreateResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	actor = s.actor(actor)
	examples := NormalizeExamples(in.Examples)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ref, parents, err := s.writeBase(ctx)
	if err != nil {
		return nil, s.storeError(err, "resolve branch head")
	}
	entries, err := s.loadIndex(ctx, ref)
	if err != nil {
		return nil, s.storeError(err, "load metadata index")
	}

	id := NextID(entries)
	key := KeyFor(in.Department, in.AppCode, in.Name)
	now := s.timestamp()

	doc := domain.TemplateDocument{
		TemplateName:           in.Name,
		Department:             in.Department,
		AppCode:                in.AppCode,
		Version:                InitialVersion,
		MainPromptContent:      in.Content,
		AdditionalInstructions: in.Instructions,
		Examples:               examples,
		CreatedAt:              now,
		UpdatedAt:              now,
		CreatedBy:              actor,
		UpdatedBy:              actor,
	}
	entries = append(entries, domain.MetadataEntry{
		ID:         domain.EntryID(id),
		Department: in.Department,
		AppCode:    in.AppCode,
		Name:       in.Name,
		Link:       key.Link(),
		Version:    InitialVersion,
		CreatedAt:  now,
		CreatedBy:  actor,
	})

	files, err := s.encodeFiles(key.Path(), doc, entries)
	if err != nil {
		return nil, err
	}
	res, err := s.store.Commit(ctx, filestore.CommitRequest{
		Branch:  s.branch,
		Message: fmt.Sprintf("Creating new template: %s in %s/%s", in.Name, in.Department, in.AppCode),
		Author:  actor,
		Files:   files,
		Parents: parents,
	})
	if err != nil {
		return nil, s.storeError(err, "commit new template")
	}

	logger.Info("Template created",
		zap.String("template_id", id),
		zap.String("path", key.Path()),
		zap.String("revision", res.Revision),
	)
	s.emit(ctx, domain.EventTemplateCreated, id, in.Name, key.Path(), res.Revision, actor)

	return &CreateResult{
		FilePath: key.Path(),
		Template: s.toTemplate(id, key, doc),
	}, nil
}

// FetchByID resolves a Composite Identifier or a numeric index id and
// returns the Template Document it points at.
func (s *TemplateService) FetchByID(ctx context.Context, id string) (*domain.Template, error) {
	loc, err := s.resolve(ctx, s.branch, id)
	if err != nil {
		return nil, err
	}
	doc, err := s.readDocument(ctx, s.branch, loc.path, id)
	if err != nil {
		return nil, err
	}
	return s.toTemplate(loc.id, loc.key, doc), nil
}

// Update writes the template at the path derived from its new name,
// department and app code, bumps the minor version and rewrites its index
// entry. A document whose path changes is left at its old path.
func (s *TemplateService) Update(ctx context.Context, actor, id string, in TemplateInput) (*domain.Template, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	actor = s.actor(actor)
	examples := NormalizeExamples(in.Examples)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ref, parents, err := s.writeBase(ctx)
	if err != nil {
		return nil, s.storeError(err, "resolve branch head")
	}
	loc, err := s.resolve(ctx, ref, id)
	if err != nil {
		return nil, err
	}
	orig, err := s.readDocument(ctx, ref, loc.path, id)
	if err != nil {
		return nil, err
	}
	current := s.toTemplate(loc.id, loc.key, orig)

	now := s.timestamp()
	version := IncrementVersion(current.Version)
	key := KeyFor(in.Department, in.AppCode, in.Name)
	doc := domain.TemplateDocument{
		TemplateName:           in.Name,
		Department:             in.Department,
		AppCode:                in.AppCode,
		Version:                version,
		MainPromptContent:      in.Content,
		AdditionalInstructions: in.Instructions,
		Examples:               examples,
		CreatedAt:              current.CreatedAt,
		CreatedBy:              current.CreatedBy,
		UpdatedAt:              now,
		UpdatedBy:              actor,
	}

	var entries []domain.MetadataEntry
	if loc.entry >= 0 {
		entries = loc.entries
		e := &entries[loc.entry]
		e.Name = in.Name
		e.Department = in.Department
		e.AppCode = in.AppCode
		e.Link = key.Link()
		e.Version = version
		e.UpdatedAt = now
		e.UpdatedBy = actor
	}

	files, err := s.encodeFiles(key.Path(), doc, entries)
	if err != nil {
		return nil, err
	}
	res, err := s.store.Commit(ctx, filestore.CommitRequest{
		Branch:  s.branch,
		Message: fmt.Sprintf("Updating template: %s (%s)", in.Name, loc.id),
		Author:  actor,
		Files:   files,
		Parents: parents,
	})
	if err != nil {
		return nil, s.storeError(err, "commit template update")
	}

	if key.Path() != loc.path {
		logger.Warn("Template moved, previous document left in place",
			zap.String("template_id", loc.id),
			zap.String("old_path", loc.path),
			zap.String("new_path", key.Path()),
		)
	}
	logger.Info("Template updated",
		zap.String("template_id", loc.id),
		zap.String("version", version),
		zap.String("revision", res.Revision),
	)
	s.emit(ctx, domain.EventTemplateUpdated, loc.id, in.Name, key.Path(), res.Revision, actor)

	return s.toTemplate(loc.id, key, doc), nil
}

// Delete removes a template document and its index entry. When approval
// is required the removal is committed to a new branch and a pull request
// is opened instead.
func (s *TemplateService) Delete(ctx context.Context, actor, id, comment string) (*domain.DeleteResult, error) {
	actor = s.actor(actor)

	var reviewer filestore.Reviewer
	if s.approval {
		r, ok := filestore.AsReviewer(s.store)
		if !ok {
			return nil, apperrors.NotImplemented(apperrors.CodeNotSupported,
				"the configured store does not support delete approval")
		}
		reviewer = r
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	head, err := s.store.Head(ctx, s.branch)
	if err != nil {
		return nil, s.storeError(err, "resolve branch head")
	}
	ref := head
	if ref == "" {
		ref = s.branch
	}

	loc, err := s.resolve(ctx, ref, id)
	if err != nil {
		return nil, err
	}
	name := loc.key.Stem
	req := filestore.CommitRequest{Author: actor}

	switch doc, err := s.readDocument(ctx, ref, loc.path, id); {
	case err == nil:
		if doc.TemplateName != "" {
			name = doc.TemplateName
		}
		req.Deletes = []string{loc.path}
	case loc.entry < 0:
		return nil, err
	default:
		// Index entry without a document: drop the entry only.
		logger.Warn("Deleting index entry whose document is missing",
			zap.String("template_id", loc.id),
			zap.String("path", loc.path),
		)
	}

	if loc.entry >= 0 {
		entries := loc.entries
		if name == loc.key.Stem && entries[loc.entry].Name != "" {
			name = entries[loc.entry].Name
		}
		entries = append(entries[:loc.entry], entries[loc.entry+1:]...)
		index, err := encodeJSON(entries)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStoreError, "encode metadata index", http.StatusInternalServerError)
		}
		req.Files = map[string]string{s.metadataPath: index}
	}
	req.Message = fmt.Sprintf("Deleting template: %s (ID: %s)", name, loc.id)
	if s.optimistic && head != "" {
		req.Parents = []string{head}
	}

	if reviewer == nil {
		req.Branch = s.branch
		res, err := s.store.Commit(ctx, req)
		if err != nil {
			return nil, s.storeError(err, "commit template deletion")
		}
		logger.Info("Template deleted",
			zap.String("template_id", loc.id),
			zap.String("revision", res.Revision),
		)
		s.emit(ctx, domain.EventTemplateDeleted, loc.id, name, loc.path, res.Revision, actor)
		return &domain.DeleteResult{
			Status:    domain.DeleteStatusDeleted,
			DeletedID: loc.id,
			Message:   "Template deleted",
		}, nil
	}

	if head == "" {
		return nil, apperrors.ErrTemplateNotFound(id)
	}
	branch := fmt.Sprintf("delete-template-%s-%d", loc.id, s.now().UnixMilli())
	if err := reviewer.CreateBranch(ctx, branch, head); err != nil {
		return nil, s.storeError(err, "create deletion branch")
	}
	req.Branch = branch
	req.Parents = []string{head}
	res, err := s.store.Commit(ctx, req)
	if err != nil {
		return nil, s.storeError(err, "commit template deletion")
	}

	description := comment
	if description == "" {
		description = fmt.Sprintf("Deletion of template %q requested by %s.", name, actor)
	}
	url, err := reviewer.OpenPullRequest(ctx, filestore.PullRequest{
		Title:             "Delete template: " + name,
		Description:       description,
		SourceBranch:      branch,
		DestinationBranch: s.branch,
		CloseSourceBranch: true,
	})
	if err != nil {
		return nil, s.storeError(err, "open deletion pull request")
	}

	logger.Info("Template deletion submitted for approval",
		zap.String("template_id", loc.id),
		zap.String("branch", branch),
		zap.String("pull_request", url),
	)
	s.emit(ctx, domain.EventTemplateDeletionRequested, loc.id, name, loc.path, res.Revision, actor)
	return &domain.DeleteResult{
		Status:         domain.DeleteStatusPendingApproval,
		PullRequestURL: url,
		Message:        "Deletion request submitted for approval",
	}, nil
}

// List returns every Metadata Entry as a summary with placeholder content.
func (s *TemplateService) List(ctx context.Context) ([]domain.TemplateSummary, error) {
	entries, err := s.loadIndex(ctx, s.branch)
	if err != nil {
		return nil, s.storeError(err, "load metadata index")
	}
	out := make([]domain.TemplateSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, domain.TemplateSummary{
			ID:         string(e.ID),
			Name:       e.Name,
			Department: e.Department,
			AppCode:    e.AppCode,
			Content:    ListContentPlaceholder,
			Version:    e.Version,
			CreatedAt:  e.CreatedAt,
			CreatedBy:  e.CreatedBy,
			UpdatedAt:  e.UpdatedAt,
			UpdatedBy:  e.UpdatedBy,
		})
	}
	return out, nil
}

// location is a resolved template address.
type location struct {
	id    string // public id: the index id when known, else the request id
	key   TemplateKey
	path  string // document path as found in the store
	entry int    // index position, -1 when the index has no entry

	// entries is the index read at the same ref, owned by the caller.
	entries []domain.MetadataEntry
}

// resolve maps a numeric index id or a Composite Identifier to a document
// location at ref.
func (s *TemplateService) resolve(ctx context.Context, ref, id string) (*location, error) {
	entries, err := s.loadIndex(ctx, ref)
	if err != nil {
		return nil, s.storeError(err, "load metadata index")
	}

	if IsIndexID(id) {
		i := findEntryByID(entries, id)
		if i < 0 {
			return nil, apperrors.ErrTemplateNotFound(id)
		}
		e := entries[i]
		key, ok := keyFromLink(e.Link)
		if !ok {
			key = KeyFor(e.Department, e.AppCode, e.Name)
		}
		return &location{id: id, key: key, path: key.Path(), entry: i, entries: entries}, nil
	}

	key, err := DecodeTemplateID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.locate(ctx, ref, key, id)
	if err != nil {
		return nil, err
	}
	loc := &location{id: id, key: key, path: p, entry: findEntryByPath(entries, p), entries: entries}
	if loc.entry >= 0 {
		loc.id = string(entries[loc.entry].ID)
	}
	return loc, nil
}

// locate walks department, app code and file listings to find the
// document whose stem matches key.Stem case-insensitively. The first match
// in listing order wins.
func (s *TemplateService) locate(ctx context.Context, ref string, key TemplateKey, id string) (string, error) {
	root, err := s.store.ListDir(ctx, ref, "")
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "", s.storeError(err, "list departments")
	}
	if !hasDir(root, key.Department) {
		return "", apperrors.ErrDepartmentNotFound(key.Department)
	}

	apps, err := s.store.ListDir(ctx, ref, key.Department)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "", s.storeError(err, "list app codes")
	}
	if !hasDir(apps, key.AppCode) {
		return "", apperrors.ErrAppCodeNotFound(key.Department, key.AppCode)
	}

	files, err := s.store.ListDir(ctx, ref, key.Dir())
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return "", s.storeError(err, "list templates")
	}
	var matches []string
	for _, f := range files {
		if f.IsDir || !strings.EqualFold(path.Ext(f.Name), ".json") {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(f.Name, path.Ext(f.Name)), key.Stem) {
			matches = append(matches, f.Path)
		}
	}
	if len(matches) == 0 {
		return "", apperrors.ErrTemplateNotFound(id)
	}
	if len(matches) > 1 {
		logger.Warn("Template id matches several documents, using the first",
			zap.String("template_id", id),
			zap.Strings("matches", matches),
		)
	}
	return matches[0], nil
}

// rawDocument decodes Examples loosely so hand-edited documents still load.
type rawDocument struct {
	domain.TemplateDocument
	Examples []any `json:"Examples"`
}

func (s *TemplateService) readDocument(ctx context.Context, ref, p, id string) (domain.TemplateDocument, error) {
	data, err := s.store.ReadFile(ctx, ref, p)
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.TemplateDocument{}, apperrors.ErrTemplateNotFound(id)
	}
	if err != nil {
		return domain.TemplateDocument{}, s.storeError(err, "read template")
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.TemplateDocument{}, apperrors.Wrap(err, apperrors.CodeStoreError,
			"template document "+p+" is not valid JSON", http.StatusInternalServerError)
	}
	doc := raw.TemplateDocument
	doc.Examples = NormalizeExamples(raw.Examples)
	return doc, nil
}

// toTemplate reshapes a document into the public shape, filling absent
// fields with defaults.
func (s *TemplateService) toTemplate(id string, key TemplateKey, doc domain.TemplateDocument) *domain.Template {
	now := ""
	stamp := func(v string) string {
		if v != "" {
			return v
		}
		if now == "" {
			now = s.timestamp()
		}
		return now
	}

	t := &domain.Template{
		ID:           id,
		Name:         firstNonEmpty(doc.TemplateName, key.Stem),
		Department:   firstNonEmpty(doc.Department, key.Department),
		AppCode:      firstNonEmpty(doc.AppCode, key.AppCode),
		Content:      doc.MainPromptContent,
		Instructions: doc.AdditionalInstructions,
		Examples:     doc.Examples,
		Version:      firstNonEmpty(doc.Version, InitialVersion),
		CreatedAt:    stamp(doc.CreatedAt),
		CreatedBy:    firstNonEmpty(doc.CreatedBy, s.defaultActor),
		UpdatedAt:    stamp(doc.UpdatedAt),
		UpdatedBy:    firstNonEmpty(doc.UpdatedBy, s.defaultActor),
	}
	if t.Examples == nil {
		t.Examples = []domain.Example{}
	}
	return t
}

// writeBase returns the ref to read from and the commit parents for a
// write. With optimistic concurrency both pin the current branch head.
func (s *TemplateService) writeBase(ctx context.Context) (string, []string, error) {
	if !s.optimistic {
		return s.branch, nil, nil
	}
	head, err := s.store.Head(ctx, s.branch)
	if err != nil {
		return "", nil, err
	}
	if head == "" {
		return s.branch, nil, nil
	}
	return head, []string{head}, nil
}

func (s *TemplateService) encodeFiles(docPath string, doc domain.TemplateDocument, entries []domain.MetadataEntry) (map[string]string, error) {
	docJSON, err := encodeJSON(doc)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStoreError, "encode template document", http.StatusInternalServerError)
	}
	files := map[string]string{docPath: docJSON}
	if entries != nil {
		index, err := encodeJSON(entries)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStoreError, "encode metadata index", http.StatusInternalServerError)
		}
		files[s.metadataPath] = index
	}
	return files, nil
}

// storeError classifies a Remote File Store failure.
func (s *TemplateService) storeError(err error, op string) error {
	if _, ok := apperrors.IsAppError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, apperrors.ErrUnauthorized):
		return apperrors.Wrap(err, apperrors.CodeStoreUnauthorized,
			"remote store rejected or is missing credentials", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrConflict):
		return apperrors.Wrap(err, apperrors.CodeStoreConflict,
			"templates changed concurrently, retry the request", http.StatusConflict)
	case errors.Is(err, apperrors.ErrUnsupported):
		return apperrors.Wrap(err, apperrors.CodeNotSupported, op+" is not supported", http.StatusNotImplemented)
	default:
		return apperrors.Wrap(err, apperrors.CodeStoreError, op+" failed", http.StatusInternalServerError)
	}
}

func (s *TemplateService) emit(ctx context.Context, t domain.EventType, id, name, p, rev, actor string) {
	_ = s.dispatcher.Dispatch(ctx, &domain.DomainEvent{
		EventID:    uuid.NewString(),
		EventType:  t,
		TemplateID: id,
		Name:       name,
		Path:       p,
		Revision:   rev,
		Actor:      actor,
		CreatedAt:  s.now(),
	})
}

func (s *TemplateService) actor(actor string) string {
	if strings.TrimSpace(actor) == "" {
		return s.defaultActor
	}
	return actor
}

func (s *TemplateService) timestamp() string {
	return s.now().UTC().Add(s.offset).Format(TimestampLayout)
}

func validateInput(in TemplateInput) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"content", in.Content},
		{"department", in.Department},
		{"appCode", in.AppCode},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.ErrMissingFields(missing...)
	}

	var invalid []apperrors.FieldError
	if strings.ContainsAny(in.Name, `/\`) {
		invalid = append(invalid, apperrors.FieldError{
			Field: "name", Code: apperrors.CodeFieldInvalid,
			Message: "name must not contain path separators",
		})
	}
	for _, f := range []struct{ name, value string }{
		{"department", in.Department},
		{"appCode", in.AppCode},
	} {
		if !validSegment(f.value) {
			invalid = append(invalid, apperrors.FieldError{
				Field: f.name, Code: apperrors.CodeFieldInvalid,
				Message: f.name + " must be a single directory name",
			})
		}
	}
	if len(invalid) > 0 {
		return apperrors.ErrInvalidFields(invalid)
	}
	return nil
}

// validSegment reports whether v names exactly one directory below its parent.
func validSegment(v string) bool {
	v = strings.TrimSpace(v)
	return v != "." && v != ".." && !strings.ContainsAny(v, `/\`)
}

func hasDir(entries []filestore.Entry, name string) bool {
	for _, e := range entries {
		if e.IsDir && e.Name == name {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
