package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tehewdev/staticforge/internal/kv"
	"github.com/tehewdev/staticforge/internal/page"
	"github.com/tehewdev/staticforge/internal/store"
)

type fakePublisher struct {
	url string
	err error
}

func (f *fakePublisher) Publish(ctx context.Context, p *page.Page) (string, error) {
	return f.url, f.err
}

type fakeGenerator struct {
	html string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, instruction string) (string, error) {
	return f.html, f.err
}

func (f *fakeGenerator) Refine(ctx context.Context, currentHTML, instruction string) (string, error) {
	return f.html, f.err
}

// testSetup creates a temporary database and handlers for testing.
func testSetup(t *testing.T) (*Handlers, *sql.DB, string) {
	t.Helper()

	baseDir := t.TempDir()
	db, err := kv.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	pub := &fakePublisher{url: "https://tehew.space/testeHTML/test.html"}
	gen := &fakeGenerator{html: "<html>generated</html>"}
	h := NewHandlers(st, pub, gen, filepath.Join(baseDir, "exports"))
	return h, db, baseDir
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// resultJSON decodes the text payload of a tool result.
func resultJSON(t *testing.T, res *mcp.CallToolResult) map[string]any {
	t.Helper()

	if len(res.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	return out
}

// errorCode extracts the error code from an error result.
func errorCode(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	if !res.IsError {
		t.Fatal("expected an error result")
	}
	payload := resultJSON(t, res)
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("error payload missing: %v", payload)
	}
	code, _ := errObj["code"].(string)
	return code
}

func createTestPage(t *testing.T, h *Handlers, title string) string {
	t.Helper()

	res, err := h.HandleCreate(context.Background(), makeRequest(map[string]any{"title": title}))
	if err != nil {
		t.Fatalf("HandleCreate returned transport error: %v", err)
	}
	if res.IsError {
		t.Fatalf("HandleCreate failed: %v", resultJSON(t, res))
	}
	id, _ := resultJSON(t, res)["id"].(string)
	if id == "" {
		t.Fatal("created page has no id")
	}
	return id
}

func TestHandleCreateAndGet(t *testing.T) {
	h, _, _ := testSetup(t)

	id := createTestPage(t, h, "My First Page")

	res, err := h.HandleGet(context.Background(), makeRequest(map[string]any{"id": id}))
	if err != nil {
		t.Fatalf("HandleGet returned transport error: %v", err)
	}
	got := resultJSON(t, res)
	if got["title"] != "My First Page" {
		t.Errorf("title = %v, want %q", got["title"], "My First Page")
	}
	if got["content"] == "" {
		t.Error("new page should carry the starter template")
	}
}

func TestHandleGet_NotFound(t *testing.T) {
	h, _, _ := testSetup(t)

	res, _ := h.HandleGet(context.Background(), makeRequest(map[string]any{"id": "missing"}))
	if code := errorCode(t, res); code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", code)
	}
}

func TestHandleSave_NormalizesSlug(t *testing.T) {
	h, _, _ := testSetup(t)
	id := createTestPage(t, h, "Test")

	res, _ := h.HandleSave(context.Background(), makeRequest(map[string]any{
		"id":      id,
		"slug":    "My Page!",
		"content": "<p>updated</p>",
	}))
	if res.IsError {
		t.Fatalf("save failed: %v", resultJSON(t, res))
	}

	got := resultJSON(t, res)
	if got["slug"] != "my-page-" {
		t.Errorf("slug = %v, want %q", got["slug"], "my-page-")
	}
	if got["content"] != "<p>updated</p>" {
		t.Errorf("content = %v", got["content"])
	}
	if got["title"] != "Test" {
		t.Error("omitted title must stay unchanged")
	}
}

func TestHandleList_FilterAndOrder(t *testing.T) {
	h, _, _ := testSetup(t)
	createTestPage(t, h, "About Us")
	createTestPage(t, h, "Contact")

	res, _ := h.HandleList(context.Background(), makeRequest(map[string]any{"q": "about"}))
	got := resultJSON(t, res)
	if got["count"] != float64(1) {
		t.Fatalf("count = %v, want 1", got["count"])
	}

	pages := got["pages"].([]any)
	first := pages[0].(map[string]any)
	if first["title"] != "About Us" {
		t.Errorf("filtered title = %v", first["title"])
	}
	if _, hasContent := first["content"]; hasContent {
		t.Error("listing must omit page content")
	}
}

func TestHandleDelete(t *testing.T) {
	h, _, _ := testSetup(t)
	id := createTestPage(t, h, "Doomed")

	res, _ := h.HandleDelete(context.Background(), makeRequest(map[string]any{"id": id}))
	if res.IsError {
		t.Fatalf("delete failed: %v", resultJSON(t, res))
	}

	res, _ = h.HandleGet(context.Background(), makeRequest(map[string]any{"id": id}))
	if code := errorCode(t, res); code != "NOT_FOUND" {
		t.Errorf("code after delete = %q, want NOT_FOUND", code)
	}

	// Deleting again is a no-op, not an error.
	res, _ = h.HandleDelete(context.Background(), makeRequest(map[string]any{"id": id}))
	if res.IsError {
		t.Error("deleting a missing page should succeed")
	}
}

func TestHandleExport(t *testing.T) {
	h, _, baseDir := testSetup(t)
	id := createTestPage(t, h, "Exported")

	h.HandleSave(context.Background(), makeRequest(map[string]any{
		"id": id, "slug": "exported", "content": "<html>out</html>",
	}))

	res, _ := h.HandleExport(context.Background(), makeRequest(map[string]any{"id": id}))
	if res.IsError {
		t.Fatalf("export failed: %v", resultJSON(t, res))
	}

	got := resultJSON(t, res)
	wantPath := filepath.Join(baseDir, "exports", "exported.html")
	if got["path"] != wantPath {
		t.Errorf("path = %v, want %q", got["path"], wantPath)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if string(data) != "<html>out</html>" {
		t.Errorf("export content = %q", data)
	}
}

func TestHandleGenerate(t *testing.T) {
	h, _, _ := testSetup(t)
	id := createTestPage(t, h, "Gen")

	res, _ := h.HandleGenerate(context.Background(), makeRequest(map[string]any{
		"id": id, "instruction": "a landing page",
	}))
	if res.IsError {
		t.Fatalf("generate failed: %v", resultJSON(t, res))
	}
	if got := resultJSON(t, res); got["content"] != "<html>generated</html>" {
		t.Errorf("content = %v", got["content"])
	}
}

func TestHandleGenerate_FailureLeavesContentUntouched(t *testing.T) {
	h, db, _ := testSetup(t)
	id := createTestPage(t, h, "Gen")

	h.generator.(*fakeGenerator).err = context.DeadlineExceeded

	res, _ := h.HandleGenerate(context.Background(), makeRequest(map[string]any{
		"id": id, "instruction": "x",
	}))
	if !res.IsError {
		t.Fatal("expected an error result")
	}

	p, err := store.New(db).FindByID(id)
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if p.Content != page.DefaultTemplate {
		t.Error("failed generation must not touch existing content")
	}
}

func TestHandleGenerate_MissingInstruction(t *testing.T) {
	h, _, _ := testSetup(t)
	id := createTestPage(t, h, "Gen")

	res, _ := h.HandleGenerate(context.Background(), makeRequest(map[string]any{"id": id}))
	if code := errorCode(t, res); code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", code)
	}
}

func TestHandlePublish(t *testing.T) {
	h, _, _ := testSetup(t)
	id := createTestPage(t, h, "Pub")
	h.HandleSave(context.Background(), makeRequest(map[string]any{"id": id, "slug": "pub"}))

	res, _ := h.HandlePublish(context.Background(), makeRequest(map[string]any{"id": id}))
	if res.IsError {
		t.Fatalf("publish failed: %v", resultJSON(t, res))
	}

	got := resultJSON(t, res)
	if got["url"] != "https://tehew.space/testeHTML/test.html" {
		t.Errorf("url = %v", got["url"])
	}
	if got["filename"] != "pub.html" {
		t.Errorf("filename = %v", got["filename"])
	}
}

func TestValidateDisabledTools(t *testing.T) {
	unknown := ValidateDisabledTools([]string{"page_create", "page_frobnicate"})
	if len(unknown) != 1 || unknown[0] != "page_frobnicate" {
		t.Errorf("unknown = %v, want [page_frobnicate]", unknown)
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != len(toolRegistry) {
		t.Fatalf("got %d names, want %d", len(names), len(toolRegistry))
	}

	seen := make(map[string]bool)
	for _, n := range names {
		seen[n] = true
	}
	for _, want := range []string{"page_create", "page_publish", "page_refine"} {
		if !seen[want] {
			t.Errorf("missing tool %q", want)
		}
	}
}
