package main

import (
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/kv"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	baseDir := t.TempDir()
	database, err := kv.Init(baseDir)
	if err != nil {
		t.Fatalf("failed to init test db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database, baseDir
}

// runApp runs a CLI command and captures stdout.
func runApp(t *testing.T, db *sql.DB, baseDir string, args ...string) (string, error) {
	t.Helper()

	app := newCLIApp(db, config.DefaultConfig(), baseDir)

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := app.Run(append([]string{"staticforge"}, args...))

	w.Close()
	os.Stdout = oldStdout

	out, _ := io.ReadAll(r)
	return string(out), err
}

// decodeOutput unmarshals the command's JSON output.
func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var v map[string]any
	if err := json.Unmarshal([]byte(out), &v); err != nil {
		t.Fatalf("output is not JSON: %v\noutput: %s", err, out)
	}
	return v
}

// TestParseTags tests the parseTags helper function.
func TestParseTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single tag",
			input:    "foo",
			expected: []string{"foo"},
		},
		{
			name:     "multiple tags",
			input:    "foo,bar,baz",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "tags with spaces",
			input:    " foo , bar , baz ",
			expected: []string{"foo", "bar", "baz"},
		},
		{
			name:     "empty tags filtered",
			input:    "foo,,bar,",
			expected: []string{"foo", "bar"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseTags(tt.input)
			if len(result) != len(tt.expected) {
				t.Errorf("expected %d tags, got %d", len(tt.expected), len(result))
				return
			}
			for i, tag := range result {
				if tag != tt.expected[i] {
					t.Errorf("expected tag[%d]=%q, got %q", i, tt.expected[i], tag)
				}
			}
		})
	}
}

// TestCLICreate tests the create command.
func TestCLICreate(t *testing.T) {
	db, baseDir := setupTestDB(t)

	out, err := runApp(t, db, baseDir, "create", "--title=Landing", "--slug=My Landing!", "--tags=draft,home")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got := decodeOutput(t, out)
	if got["title"] != "Landing" {
		t.Errorf("title = %v", got["title"])
	}
	if got["slug"] != "my-landing-" {
		t.Errorf("slug = %v, want normalized %q", got["slug"], "my-landing-")
	}
	if got["id"] == "" {
		t.Error("created page has no id")
	}
	if got["created_at"] == float64(0) {
		t.Error("created_at should be set on first save")
	}
}

// TestCLIShowAndList tests the show and list commands.
func TestCLIShowAndList(t *testing.T) {
	db, baseDir := setupTestDB(t)

	out, err := runApp(t, db, baseDir, "create", "--title=About Us")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := decodeOutput(t, out)["id"].(string)

	out, err = runApp(t, db, baseDir, "show", id)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	got := decodeOutput(t, out)
	if got["title"] != "About Us" {
		t.Errorf("title = %v", got["title"])
	}
	if got["content"] == "" {
		t.Error("show should include full content")
	}

	out, err = runApp(t, db, baseDir, "list", "--search=about")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	listOut := decodeOutput(t, out)
	if listOut["count"] != float64(1) {
		t.Errorf("count = %v, want 1", listOut["count"])
	}
	if strings.Contains(out, `"content"`) {
		t.Error("listing must omit page content")
	}
}

// TestCLIShow_NotFound tests show with an unknown id.
func TestCLIShow_NotFound(t *testing.T) {
	db, baseDir := setupTestDB(t)

	_, err := runApp(t, db, baseDir, "show", "missing")
	if err == nil {
		t.Fatal("expected an error for unknown id")
	}
	if !strings.Contains(err.Error(), "NOT_FOUND") {
		t.Errorf("error = %v, want NOT_FOUND code", err)
	}
}

// TestCLIUpdate tests the update command with content piped via stdin.
func TestCLIUpdate(t *testing.T) {
	db, baseDir := setupTestDB(t)

	out, err := runApp(t, db, baseDir, "create", "--title=Draft")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := decodeOutput(t, out)["id"].(string)

	// Pipe new content via stdin
	oldStdin := os.Stdin
	stdinR, stdinW, _ := os.Pipe()
	os.Stdin = stdinR
	go func() {
		_, _ = stdinW.WriteString("<html>new content</html>")
		stdinW.Close()
	}()

	out, err = runApp(t, db, baseDir, "update", id, "--title=Final", "--slug=final")
	os.Stdin = oldStdin
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got := decodeOutput(t, out)
	if got["title"] != "Final" {
		t.Errorf("title = %v", got["title"])
	}
	if got["slug"] != "final" {
		t.Errorf("slug = %v", got["slug"])
	}
	if got["content"] != "<html>new content</html>" {
		t.Errorf("content = %v", got["content"])
	}
}

// TestCLIDelete tests the delete command.
func TestCLIDelete(t *testing.T) {
	db, baseDir := setupTestDB(t)

	out, err := runApp(t, db, baseDir, "create", "--title=Doomed")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := decodeOutput(t, out)["id"].(string)

	out, err = runApp(t, db, baseDir, "delete", id)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got := decodeOutput(t, out); got["deleted"] != true {
		t.Errorf("deleted = %v", got["deleted"])
	}

	// Deleting again is a no-op, not an error
	if _, err := runApp(t, db, baseDir, "delete", id); err != nil {
		t.Errorf("deleting a missing page should succeed: %v", err)
	}
}

// TestCLIExport tests the export command.
func TestCLIExport(t *testing.T) {
	db, baseDir := setupTestDB(t)

	out, err := runApp(t, db, baseDir, "create", "--title=Exported", "--slug=exported")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	id := decodeOutput(t, out)["id"].(string)

	outDir := t.TempDir()
	out, err = runApp(t, db, baseDir, "export", id, "--dir", outDir)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	got := decodeOutput(t, out)
	wantPath := filepath.Join(outDir, "exported.html")
	if got["path"] != wantPath {
		t.Errorf("path = %v, want %q", got["path"], wantPath)
	}
	if _, err := os.Stat(wantPath); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}

// TestCLIImport tests the import command with a markdown file.
func TestCLIImport(t *testing.T) {
	db, baseDir := setupTestDB(t)

	mdPath := filepath.Join(t.TempDir(), "release-notes.md")
	if err := os.WriteFile(mdPath, []byte("# Release\n\nShipped *everything*.\n"), 0600); err != nil {
		t.Fatalf("failed to write markdown file: %v", err)
	}

	out, err := runApp(t, db, baseDir, "import", "--path", mdPath, "--slug=release-notes")
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}

	got := decodeOutput(t, out)
	if got["title"] != "release-notes" {
		t.Errorf("title = %v, want file name", got["title"])
	}
	content := got["content"].(string)
	if !strings.Contains(content, "<h1") || !strings.Contains(content, "<em>everything</em>") {
		t.Errorf("content not converted from markdown: %q", content)
	}
	if !strings.Contains(content, "<!DOCTYPE html>") {
		t.Error("imported draft should be wrapped in a full document")
	}
}

// TestIsCLIMode tests command dispatch.
func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"no args", []string{"staticforge"}, false},
		{"known command", []string{"staticforge", "list"}, true},
		{"serve command", []string{"staticforge", "serve"}, true},
		{"help flag", []string{"staticforge", "--help"}, true},
		{"version flag", []string{"staticforge", "-v"}, true},
		{"unknown arg", []string{"staticforge", "bogus"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			if got := isCLIMode(); got != tt.want {
				t.Errorf("isCLIMode() = %v, want %v", got, tt.want)
			}
		})
	}
}
