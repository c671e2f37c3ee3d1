package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/mail"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"prompthub.io/prompthub/internal/domain"
	apperrors "prompthub.io/prompthub/internal/pkg/errors"
	"prompthub.io/prompthub/internal/pkg/logger"
)

const (
	bitbucketPageLen  = 100
	bitbucketMaxPages = 50
	maxErrorBody      = 4 << 10
)

// BitbucketOptions configures a BitbucketStore.
type BitbucketOptions struct {
	APIURL    string
	Workspace string
	RepoSlug  string

	// AccessToken is sent as a bearer token. Username/AppPassword basic
	// auth is used only when no token is set.
	AccessToken string
	Username    string
	AppPassword string

	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int

	// HTTPClient is the base client; tests point it at httptest servers.
	HTTPClient *http.Client
}

// BitbucketStore implements Store and Reviewer over the Bitbucket Cloud
// REST API 2.0.
type BitbucketStore struct {
	client   *http.Client
	limiter  *rate.Limiter
	baseURL  string
	username string
	password string
	hasAuth  bool
}

// NewBitbucketStore creates a BitbucketStore. Missing credentials are not
// an error here; every call then fails with ErrUnauthorized.
func NewBitbucketStore(opts BitbucketOptions) *BitbucketStore {
	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}

	copied := *base
	client := &copied
	if opts.AccessToken != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, &copied)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: opts.AccessToken,
			TokenType:   "Bearer",
		}))
	}
	if opts.Timeout > 0 {
		client.Timeout = opts.Timeout
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.bitbucket.org/2.0"
	}

	s := &BitbucketStore{
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		baseURL: apiURL + "/repositories/" + url.PathEscape(opts.Workspace) + "/" + url.PathEscape(opts.RepoSlug),
	}
	switch {
	case opts.AccessToken != "":
		s.hasAuth = true
	case opts.Username != "" && opts.AppPassword != "":
		s.hasAuth = true
		s.username = opts.Username
		s.password = opts.AppPassword
	}
	if opts.Workspace == "" || opts.RepoSlug == "" {
		s.hasAuth = false
	}
	return s
}

type bitbucketSrcPage struct {
	Values []struct {
		Path string `json:"path"`
		Type string `json:"type"`
	} `json:"values"`
	Next string `json:"next"`
}

type bitbucketCommitPage struct {
	Values []struct {
		Hash    string    `json:"hash"`
		Message string    `json:"message"`
		Date    time.Time `json:"date"`
		Author  struct {
			Raw  string `json:"raw"`
			User *struct {
				DisplayName string `json:"display_name"`
			} `json:"user"`
		} `json:"author"`
	} `json:"values"`
	Next string `json:"next"`
}

type bitbucketBranch struct {
	Name   string `json:"name"`
	Target struct {
		Hash string `json:"hash"`
	} `json:"target"`
}

type bitbucketPullRequest struct {
	Title             string                   `json:"title"`
	Description       string                   `json:"description,omitempty"`
	Source            bitbucketPullRequestSide `json:"source"`
	Destination       bitbucketPullRequestSide `json:"destination"`
	CloseSourceBranch bool                     `json:"close_source_branch"`
	Links             struct {
		HTML struct {
			Href string `json:"href"`
		} `json:"html"`
	} `json:"links"`
}

type bitbucketPullRequestSide struct {
	Branch struct {
		Name string `json:"name"`
	} `json:"branch"`
}

type bitbucketError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ReadFile fetches the raw content of p at ref from /src.
func (s *BitbucketStore) ReadFile(ctx context.Context, ref, p string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, s.srcURL(ref, p), nil, "")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// ListDir follows /src pages for dir at ref.
func (s *BitbucketStore) ListDir(ctx context.Context, ref, dir string) ([]Entry, error) {
	dir = cleanPath(dir)
	next := s.srcURL(ref, dir) + "/?pagelen=" + strconv.Itoa(bitbucketPageLen)

	var entries []Entry
	for page := 0; next != "" && page < bitbucketMaxPages; page++ {
		var body bitbucketSrcPage
		if err := s.getJSON(ctx, next, &body); err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		for _, v := range body.Values {
			p := strings.Trim(v.Path, "/")
			entries = append(entries, Entry{
				Name:  path.Base(p),
				Path:  p,
				IsDir: v.Type == "commit_directory",
			})
		}
		next = body.Next
	}
	sortEntries(entries)
	return entries, nil
}

// Commit posts a multipart form to /src.
func (s *BitbucketStore) Commit(ctx context.Context, req CommitRequest) (CommitResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := [][2]string{{"message", req.Message}, {"branch", req.Branch}}
	// Bitbucket rejects authors not shaped "Name <email>"; others fall
	// back to the token owner.
	if _, err := mail.ParseAddress(req.Author); err == nil {
		fields = append(fields, [2]string{"author", req.Author})
	}
	for _, parent := range req.Parents {
		fields = append(fields, [2]string{"parents", parent})
	}
	for _, p := range req.Deletes {
		fields = append(fields, [2]string{"files", "/" + cleanPath(p)})
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return CommitResult{}, fmt.Errorf("encode commit: %w", err)
		}
	}
	for _, p := range req.Paths() {
		content, ok := req.Files[p]
		if !ok {
			continue
		}
		part, err := mw.CreateFormFile("/"+cleanPath(p), path.Base(p))
		if err != nil {
			return CommitResult{}, fmt.Errorf("encode commit: %w", err)
		}
		if _, err := io.WriteString(part, content); err != nil {
			return CommitResult{}, fmt.Errorf("encode commit: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return CommitResult{}, fmt.Errorf("encode commit: %w", err)
	}

	resp, err := s.do(ctx, http.MethodPost, s.baseURL+"/src", &buf, mw.FormDataContentType())
	if err != nil {
		return CommitResult{}, fmt.Errorf("commit to %s: %w", req.Branch, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	// The new revision is the last segment of the Location header.
	var rev string
	if loc := resp.Header.Get("Location"); loc != "" {
		if u, err := url.Parse(loc); err == nil {
			rev = path.Base(u.Path)
		}
	}
	if rev == "" {
		if rev, err = s.Head(ctx, req.Branch); err != nil {
			logger.Warn("Commit succeeded but head lookup failed",
				zap.String("branch", req.Branch),
				zap.Error(err),
			)
		}
	}
	return CommitResult{Revision: rev}, nil
}

// Head returns the target hash of branch.
func (s *BitbucketStore) Head(ctx context.Context, branch string) (string, error) {
	var body bitbucketBranch
	err := s.getJSON(ctx, s.baseURL+"/refs/branches/"+url.PathEscape(branch), &body)
	if errors.Is(err, apperrors.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve branch %s: %w", branch, err)
	}
	return body.Target.Hash, nil
}

// History pages through /commits/{ref}, following next links until limit
// commits are collected. A limit <= 0 walks every page.
func (s *BitbucketStore) History(ctx context.Context, ref, p string, limit int) ([]domain.Commit, error) {
	pageLen := bitbucketPageLen
	if limit > 0 {
		pageLen = min(limit, bitbucketPageLen)
	}
	q := url.Values{}
	q.Set("pagelen", strconv.Itoa(pageLen))
	if p = cleanPath(p); p != "" {
		q.Set("path", p)
	}
	next := s.baseURL + "/commits/" + url.PathEscape(ref) + "?" + q.Encode()

	var out []domain.Commit
	full := func() bool { return limit > 0 && len(out) >= limit }
	for page := 0; next != "" && !full() && page < bitbucketMaxPages; page++ {
		var body bitbucketCommitPage
		err := s.getJSON(ctx, next, &body)
		if errors.Is(err, apperrors.ErrNotFound) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("history of %s: %w", p, err)
		}
		for _, v := range body.Values {
			author := v.Author.Raw
			if v.Author.User != nil && v.Author.User.DisplayName != "" {
				author = v.Author.User.DisplayName
			}
			out = append(out, domain.Commit{
				Hash:    v.Hash,
				Message: strings.TrimSpace(v.Message),
				Author:  author,
				Date:    v.Date,
			})
			if full() {
				break
			}
		}
		next = body.Next
	}
	if next != "" && !full() {
		logger.Warn("Bitbucket history truncated",
			zap.String("path", p),
			zap.Int("pages", bitbucketMaxPages),
			zap.Int("commits", len(out)),
		)
	}
	return out, nil
}

// CreateBranch creates name at fromRevision.
func (s *BitbucketStore) CreateBranch(ctx context.Context, name, fromRevision string) error {
	var body bitbucketBranch
	body.Name = name
	body.Target.Hash = fromRevision
	if err := s.postJSON(ctx, s.baseURL+"/refs/branches", body, nil); err != nil {
		return fmt.Errorf("create branch %s: %w", name, err)
	}
	return nil
}

// OpenPullRequest opens pr and returns its web URL.
func (s *BitbucketStore) OpenPullRequest(ctx context.Context, pr PullRequest) (string, error) {
	req := bitbucketPullRequest{
		Title:             pr.Title,
		Description:       pr.Description,
		CloseSourceBranch: pr.CloseSourceBranch,
	}
	req.Source.Branch.Name = pr.SourceBranch
	req.Destination.Branch.Name = pr.DestinationBranch

	var created bitbucketPullRequest
	if err := s.postJSON(ctx, s.baseURL+"/pullrequests", req, &created); err != nil {
		return "", fmt.Errorf("open pull request from %s: %w", pr.SourceBranch, err)
	}
	return created.Links.HTML.Href, nil
}

func (s *BitbucketStore) srcURL(ref, p string) string {
	u := s.baseURL + "/src/" + url.PathEscape(ref)
	if p = cleanPath(p); p != "" {
		segments := strings.Split(p, "/")
		for i, seg := range segments {
			segments[i] = url.PathEscape(seg)
		}
		u += "/" + strings.Join(segments, "/")
	}
	return u
}

func (s *BitbucketStore) getJSON(ctx context.Context, u string, out any) error {
	resp, err := s.do(ctx, http.MethodGet, u, nil, "")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (s *BitbucketStore) postJSON(ctx context.Context, u string, in, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPost, u, bytes.NewReader(data), "application/json")
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do sends one request and classifies non-2xx responses. The caller closes
// the body of a successful response.
func (s *BitbucketStore) do(ctx context.Context, method, u string, body io.Reader, contentType string) (*http.Response, error) {
	if !s.hasAuth {
		return nil, fmt.Errorf("bitbucket workspace, repository or credentials not configured: %w", apperrors.ErrUnauthorized)
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr bitbucketError
	if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("bitbucket %s: %w", msg, apperrors.ErrUnauthorized)
	case http.StatusNotFound:
		return nil, fmt.Errorf("bitbucket %s: %w", msg, apperrors.ErrNotFound)
	case http.StatusConflict:
		return nil, fmt.Errorf("bitbucket %s: %w", msg, apperrors.ErrConflict)
	default:
		return nil, fmt.Errorf("bitbucket %s %s: status %d: %s", method, req.URL.Path, resp.StatusCode, msg)
	}
}

var (
	_ Store    = (*BitbucketStore)(nil)
	_ Reviewer = (*BitbucketStore)(nil)
	_ Store    = (*MemoryStore)(nil)
	_ Reviewer = (*MemoryStore)(nil)
)
