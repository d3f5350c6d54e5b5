package page

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tehewdev/staticforge/internal/errors"
)

// ExportFile writes the page's raw content to dir/<slug>.html with no
// transformation. The write goes to a temp file first and is renamed
// into place, so a failure mid-write preserves any existing export.
// Returns the full path of the written file.
func ExportFile(p *Page, dir string) (string, error) {
	if p.Content == "" {
		return "", errors.NewInvalidRequest("page has no content to export")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	exportPath := filepath.Join(dir, p.Filename())

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"

	if err := os.WriteFile(tempPath, []byte(p.Content), 0600); err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to write export file: %w", err))
	}

	if err := os.Rename(tempPath, exportPath); err != nil {
		os.Remove(tempPath)
		return "", errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	return exportPath, nil
}
