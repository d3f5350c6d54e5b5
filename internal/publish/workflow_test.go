package publish

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/credential"
	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/kv"
	"github.com/tehewdev/staticforge/internal/page"
	"github.com/tehewdev/staticforge/internal/store"
)

// TestFullWorkflow exercises the complete page lifecycle against a fake
// remote repository: create → save → publish (new file) → publish again
// (existing file, revision carried) → delete → find (not found).
// The credential comes from a pre-seeded cache entry, so the real
// resolver path runs without a secret-store round trip.
func TestFullWorkflow(t *testing.T) {
	db, err := kv.Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	cfg := config.DefaultConfig()
	st := store.New(db)

	// 1. Create
	p, err := page.New("Test Page")
	require.NoError(t, err)
	p, err = st.Save(p)
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.NotZero(t, p.CreatedAt)

	// 2. Save with a slug that needs normalization
	p.Slug = page.NormalizeSlug("Test Page")
	p.Content = "<html><body>v1</body></html>"
	p, err = st.Save(p)
	require.NoError(t, err)
	require.Equal(t, "test-page", p.Slug)
	require.Equal(t, "test-page.html", p.Filename())

	// Seed the credential cache so Token resolves locally
	entry, err := json.Marshal(map[string]any{
		"token":     "workflow-token",
		"timestamp": time.Now().UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, kv.Set(db, kv.KeyTokenCache, string(entry)))

	// Fake remote repository: the file exists after the first write
	var writes []map[string]any
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer workflow-token", r.Header.Get("Authorization"))

		switch r.Method {
		case http.MethodGet:
			if len(writes) == 0 {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprintf(w, `{"sha":"rev-%d"}`, len(writes))
		case http.MethodPut:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			writes = append(writes, body)
			w.WriteHeader(http.StatusCreated)
		}
	}))
	defer remote.Close()

	syn := New(cfg, credential.New(db, cfg))
	syn.apiBaseURL = remote.URL

	// 3. First publish: no prior revision, no sha in the write
	url, err := syn.Publish(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, cfg.BaseURL+"/test-page.html", url)
	require.Len(t, writes, 1)
	_, hasSHA := writes[0]["sha"]
	require.False(t, hasSHA)

	content, err := base64.StdEncoding.DecodeString(writes[0]["content"].(string))
	require.NoError(t, err)
	require.Equal(t, "<html><body>v1</body></html>", string(content))

	// 4. Second publish: existing file, revision carried into the write
	p.Content = "<html><body>v2</body></html>"
	p, err = st.Save(p)
	require.NoError(t, err)

	url, err = syn.Publish(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, cfg.BaseURL+"/test-page.html", url)
	require.Len(t, writes, 2)
	require.Equal(t, "rev-1", writes[1]["sha"])

	// 5. Delete, then find: not found
	require.NoError(t, st.Delete(p.ID))
	_, err = st.FindByID(p.ID)
	require.Error(t, err)
	var forgeErr *errors.ForgeError
	require.ErrorAs(t, err, &forgeErr)
	require.Equal(t, errors.ErrNotFound, forgeErr.Code)
}
