// Package publish pushes a page's content to the remote GitHub
// repository through the contents API. Each invocation re-resolves the
// current remote revision, so sequential publishes of the same slug
// never conflict; there is no retry and no local mutation beyond the
// credential cache.
package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/page"
)

// TokenSource resolves the publish credential.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Synchronizer publishes pages to the configured repository.
type Synchronizer struct {
	cfg    *config.Config
	tokens TokenSource
	client *http.Client

	// apiBaseURL overrides the GitHub API endpoint, for tests.
	apiBaseURL string
}

// New creates a Synchronizer.
func New(cfg *config.Config, tokens TokenSource) *Synchronizer {
	return &Synchronizer{
		cfg:        cfg,
		tokens:     tokens,
		client:     &http.Client{Timeout: 30 * time.Second},
		apiBaseURL: "https://api.github.com",
	}
}

// writeRequest is the contents-API PUT body. SHA is present only when
// the existence check found a prior revision; the remote rejects an
// overwrite without it.
type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// Publish pushes the page's content to the repository and returns the
// public URL on success. Aborts before any remote write when the
// credential cannot be resolved.
func (s *Synchronizer) Publish(ctx context.Context, p *page.Page) (string, error) {
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return "", err
	}

	filename := p.Filename()
	url := s.contentsURL(filename)

	sha := s.fileSHA(ctx, url, token)

	body := writeRequest{
		Message: fmt.Sprintf("Update %s via StaticForge CMS", filename),
		Content: base64.StdEncoding.EncodeToString([]byte(p.Content)),
		Branch:  s.cfg.RepoBranch,
		SHA:     sha,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	s.setHeaders(req, token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.NewPublishFailed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var remote struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&remote)
		return "", errors.NewPublishFailed(remote.Message)
	}

	return s.cfg.BaseURL + "/" + filename, nil
}

// fileSHA queries the target path for an existing file and returns its
// revision marker, or "" when absent. A 404 means "no existing file";
// any other failure is also treated as absent rather than aborting,
// preserving the documented source behavior (the subsequent write may
// then be rejected by the remote conflict check).
func (s *Synchronizer) fileSHA(ctx context.Context, url, token string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	s.setHeaders(req, token)

	resp, err := s.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var file struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return ""
	}
	return file.SHA
}

func (s *Synchronizer) contentsURL(filename string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s/%s",
		s.apiBaseURL, s.cfg.RepoOwner, s.cfg.RepoName, s.cfg.RepoFolder, filename)
}

func (s *Synchronizer) setHeaders(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
