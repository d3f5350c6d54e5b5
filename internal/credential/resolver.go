// Package credential resolves the short-lived publish token from the
// remote secret store, with a time-boxed cache persisted in the kv
// store so the token survives restarts within its TTL.
package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/kv"
)

// tokenField is the JSON field holding the token in the secret-store
// response body.
const tokenField = "github_token"

// cacheEntry is the persisted credential cache format.
type cacheEntry struct {
	Token     string `json:"token"`
	Timestamp int64  `json:"timestamp"` // epoch ms at time of caching
}

// Resolver fetches and caches the publish token. Construct once per
// process and inject into the publish synchronizer.
type Resolver struct {
	db     *sql.DB
	cfg    *config.Config
	client *http.Client
	now    func() time.Time

	// baseURL overrides the secret-store endpoint, for tests.
	baseURL string
}

// New creates a Resolver.
func New(db *sql.DB, cfg *config.Config) *Resolver {
	return &Resolver{
		db:      db,
		cfg:     cfg,
		client:  http.DefaultClient,
		now:     time.Now,
		baseURL: "https://api.jsonbin.io/v3",
	}
}

// Token returns a cached token if present and not expired, otherwise
// fetches a fresh one from the secret store and caches it. No retry is
// performed; the caller decides whether to retry.
func (r *Resolver) Token(ctx context.Context) (string, error) {
	if tok := r.cached(); tok != "" {
		return tok, nil
	}

	url := fmt.Sprintf("%s/b/%s/latest", r.baseURL, r.cfg.SecretBinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	req.Header.Set("X-Access-Key", r.cfg.AccessKey())
	req.Header.Set("X-Bin-Meta", "false")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", errors.NewCredentialUnavailable(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewCredentialUnavailable(fmt.Sprintf("secret store returned %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.NewCredentialUnavailable(err.Error())
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", errors.NewCredentialUnavailable("secret store response is not JSON")
	}

	token, _ := fields[tokenField].(string)
	if token == "" {
		return "", errors.NewCredentialUnavailable(fmt.Sprintf("%s not found in secret store response", tokenField))
	}

	r.cache(token)
	return token, nil
}

// cached returns the cached token when fresh. An expired entry is
// removed immediately so later reads don't pay for decoding it again.
func (r *Resolver) cached() string {
	raw, err := kv.Get(r.db, kv.KeyTokenCache)
	if err != nil {
		return ""
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		_ = kv.Delete(r.db, kv.KeyTokenCache)
		return ""
	}

	age := r.now().UnixMilli() - entry.Timestamp
	if age > r.ttl().Milliseconds() {
		_ = kv.Delete(r.db, kv.KeyTokenCache)
		return ""
	}

	return entry.Token
}

// cache stores the token with the current timestamp. Best-effort: a
// cache write failure only costs a refetch next time.
func (r *Resolver) cache(token string) {
	data, err := json.Marshal(cacheEntry{Token: token, Timestamp: r.now().UnixMilli()})
	if err != nil {
		return
	}
	if err := kv.Set(r.db, kv.KeyTokenCache, string(data)); err != nil {
		log.Printf("credential: failed to cache token: %v", err)
	}
}

func (r *Resolver) ttl() time.Duration {
	minutes := r.cfg.TokenCacheTTLMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}
