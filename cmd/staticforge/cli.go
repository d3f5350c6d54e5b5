package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/credential"
	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/generate"
	"github.com/tehewdev/staticforge/internal/page"
	"github.com/tehewdev/staticforge/internal/publish"
	"github.com/tehewdev/staticforge/internal/store"
	"github.com/tehewdev/staticforge/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "staticforge",
		Usage:   "Local-first static page CMS",
		Version: Version,
		Commands: []*cli.Command{
			createCmd(db),
			listCmd(db),
			showCmd(db),
			updateCmd(db),
			deleteCmd(db),
			exportCmd(db, baseDir),
			importCmd(db),
			generateCmd(db, cfg),
			refineCmd(db, cfg),
			publishCmd(db, cfg),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// pageSummary is a page without its content, for listings.
type pageSummary struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	Tags      []string `json:"tags,omitempty"`
}

// createCmd creates the create command.
func createCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new page pre-filled with the starter template",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title"},
			&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "Page slug (normalized before saving)"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			p, err := page.New(c.String("title"))
			if err != nil {
				return outputError(err)
			}

			if slug := c.String("slug"); slug != "" {
				p.Slug = page.NormalizeSlug(slug)
			}
			if tags := c.String("tags"); tags != "" {
				p.Tags = parseTags(tags)
			}

			saved, err := store.New(db).Save(p)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(saved)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List pages, most recently updated first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by title or slug"},
		},
		Action: func(c *cli.Context) error {
			pages := store.New(db).List()

			if search := c.String("search"); search != "" {
				needle := strings.ToLower(search)
				filtered := pages[:0]
				for _, p := range pages {
					if strings.Contains(strings.ToLower(p.Title), needle) ||
						strings.Contains(strings.ToLower(p.Slug), needle) {
						filtered = append(filtered, p)
					}
				}
				pages = filtered
			}

			sort.Slice(pages, func(i, j int) bool {
				return pages[i].UpdatedAt > pages[j].UpdatedAt
			})

			summaries := make([]pageSummary, len(pages))
			for i, p := range pages {
				summaries[i] = pageSummary{
					ID:        p.ID,
					Slug:      p.Slug,
					Title:     p.Title,
					CreatedAt: p.CreatedAt,
					UpdatedAt: p.UpdatedAt,
					Tags:      p.Tags,
				}
			}

			return outputJSON(map[string]any{
				"pages": summaries,
				"count": len(summaries),
			})
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a page including its full HTML content",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("page id is required"))
			}

			p, err := store.New(db).FindByID(c.Args().First())
			if err != nil {
				return outputError(err)
			}

			return outputJSON(p)
		},
	}
}

// updateCmd creates the update command.
func updateCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Update a page's fields (optionally reads content from stdin)",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
			&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "New slug (normalized before saving)"},
			&cli.StringFlag{Name: "tags", Usage: "New comma-separated tags"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("page id is required"))
			}

			st := store.New(db)
			p, err := st.FindByID(c.Args().First())
			if err != nil {
				return outputError(err)
			}

			if title := c.String("title"); title != "" {
				p.Title = title
			}
			if slug := c.String("slug"); slug != "" {
				p.Slug = page.NormalizeSlug(slug)
			}
			if c.IsSet("tags") {
				p.Tags = parseTags(c.String("tags"))
			}

			// Read content from stdin if piped
			if stdinHasData() {
				content, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if content != "" {
					p.Content = content
				}
			}

			saved, err := st.Save(p)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(saved)
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a page permanently",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("page id is required"))
			}
			id := c.Args().First()

			if err := store.New(db).Delete(id); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"deleted": true, "id": id})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a page's raw HTML to <slug>.html on disk",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: ~/.staticforge/exports)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("page id is required"))
			}

			p, err := store.New(db).FindByID(c.Args().First())
			if err != nil {
				return outputError(err)
			}

			dir := c.String("dir")
			if dir == "" {
				dir = filepath.Join(baseDir, "exports")
			}

			path, err := page.ExportFile(p, dir)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"path": path, "filename": p.Filename()})
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create a page from a markdown file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Markdown file path"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Page title (defaults to the file name)"},
			&cli.StringFlag{Name: "slug", Aliases: []string{"s"}, Usage: "Page slug (normalized before saving)"},
		},
		Action: func(c *cli.Context) error {
			path := c.String("path")
			data, err := os.ReadFile(path)
			if err != nil {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("could not read %s: %v", path, err)))
			}

			title := c.String("title")
			if title == "" {
				base := filepath.Base(path)
				title = strings.TrimSuffix(base, filepath.Ext(base))
			}

			doc, err := page.FromMarkdown(title, string(data))
			if err != nil {
				return outputError(err)
			}

			p, err := page.New(title)
			if err != nil {
				return outputError(err)
			}
			p.Content = doc
			if slug := c.String("slug"); slug != "" {
				p.Slug = page.NormalizeSlug(slug)
			}

			saved, err := store.New(db).Save(p)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(saved)
		},
	}
}

// generateCmd creates the generate command.
func generateCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Usage:     "Replace a page's content with generated HTML",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instruction", Aliases: []string{"i"}, Usage: "What to generate (or pipe via stdin)"},
		},
		Action: func(c *cli.Context) error {
			return runGeneration(c, db, func(gen *generate.Client, p *page.Page, instruction string) (string, error) {
				return gen.Generate(c.Context, instruction)
			}, cfg)
		},
	}
}

// refineCmd creates the refine command.
func refineCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "refine",
		Usage:     "Transform a page's current HTML per an instruction",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "instruction", Aliases: []string{"i"}, Usage: "What to change (or pipe via stdin)"},
		},
		Action: func(c *cli.Context) error {
			return runGeneration(c, db, func(gen *generate.Client, p *page.Page, instruction string) (string, error) {
				return gen.Refine(c.Context, p.Content, instruction)
			}, cfg)
		},
	}
}

// runGeneration is the shared generate/refine action. On failure the
// page's existing content is left untouched.
func runGeneration(c *cli.Context, db *sql.DB, produce func(*generate.Client, *page.Page, string) (string, error), cfg *config.Config) error {
	if c.NArg() < 1 {
		return outputError(errors.NewInvalidRequest("page id is required"))
	}

	instruction := c.String("instruction")
	if instruction == "" && stdinHasData() {
		text, err := readStdin()
		if err != nil {
			return outputError(errors.NewInternal(err))
		}
		instruction = text
	}
	if instruction == "" {
		return outputError(errors.NewInvalidRequest("instruction is required (use --instruction or pipe via stdin)"))
	}

	st := store.New(db)
	p, err := st.FindByID(c.Args().First())
	if err != nil {
		return outputError(err)
	}

	html, err := produce(generate.New(cfg), p, instruction)
	if err != nil {
		return outputError(err)
	}

	p.Content = html
	saved, err := st.Save(p)
	if err != nil {
		return outputError(err)
	}

	return outputJSON(saved)
}

// publishCmd creates the publish command.
func publishCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish a page as <slug>.html to the configured repository",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("page id is required"))
			}

			p, err := store.New(db).FindByID(c.Args().First())
			if err != nil {
				return outputError(err)
			}

			syn := publish.New(cfg, credential.New(db, cfg))
			url, err := syn.Publish(c.Context, p)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{"url": url, "filename": p.Filename()})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the editor and dashboard web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Usage: "Port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			bind := cfg.Bind
			if c.IsSet("bind") {
				bind = c.String("bind")
			}
			port := cfg.Port
			if c.IsSet("port") {
				port = c.Int("port")
			}

			st := store.New(db)
			syn := publish.New(cfg, credential.New(db, cfg))
			gen := generate.New(cfg)

			srv := web.NewServer(st, syn, gen, cfg, Version, bind, port)
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if forgeErr, ok := err.(*errors.ForgeError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", forgeErr.Code, forgeErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
