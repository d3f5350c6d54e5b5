package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/tehewdev/staticforge/internal/errors"
	"github.com/tehewdev/staticforge/internal/page"
	"github.com/tehewdev/staticforge/internal/store"
)

// Publisher pushes a page to the remote repository and returns its
// public URL.
type Publisher interface {
	Publish(ctx context.Context, p *page.Page) (string, error)
}

// Generator produces or transforms page content from an instruction.
type Generator interface {
	Generate(ctx context.Context, instruction string) (string, error)
	Refine(ctx context.Context, currentHTML, instruction string) (string, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store     *store.Store
	publisher Publisher
	generator Generator
	exportDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, pub Publisher, gen Generator, exportDir string) *Handlers {
	return &Handlers{store: st, publisher: pub, generator: gen, exportDir: exportDir}
}

// Request types for each tool

// CreateRequest represents the arguments for page_create.
type CreateRequest struct {
	Title string `json:"title,omitempty"`
}

// GetRequest represents the arguments for page_get.
type GetRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for page_list.
type ListRequest struct {
	Query string `json:"q,omitempty"`
}

// SaveRequest represents the arguments for page_save. Pointer fields
// distinguish "not provided" from "set to empty".
type SaveRequest struct {
	ID      string    `json:"id"`
	Title   *string   `json:"title,omitempty"`
	Slug    *string   `json:"slug,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// DeleteRequest represents the arguments for page_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for page_export.
type ExportRequest struct {
	ID string `json:"id"`
}

// GenerateRequest represents the arguments for page_generate and
// page_refine.
type GenerateRequest struct {
	ID          string `json:"id"`
	Instruction string `json:"instruction"`
}

// PublishRequest represents the arguments for page_publish.
type PublishRequest struct {
	ID string `json:"id"`
}

// listItem is a page without its content, for listings.
type listItem struct {
	ID        string   `json:"id"`
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	CreatedAt int64    `json:"created_at"`
	UpdatedAt int64    `json:"updated_at"`
	Tags      []string `json:"tags,omitempty"`
}

// Handler implementations

// HandleCreate handles the page_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := page.New(input.Title)
	if err != nil {
		return errorResult(err), nil
	}

	saved, err := h.store.Save(p)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(saved)
}

// HandleGet handles the page_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.store.FindByID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(p)
}

// HandleList handles the page_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	pages := h.store.List()
	if input.Query != "" {
		needle := strings.ToLower(input.Query)
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

	items := make([]listItem, len(pages))
	for i, p := range pages {
		items[i] = listItem{
			ID:        p.ID,
			Slug:      p.Slug,
			Title:     p.Title,
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
			Tags:      p.Tags,
		}
	}

	return successResult(map[string]any{
		"pages": items,
		"count": len(items),
	})
}

// HandleSave handles the page_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.store.FindByID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	if input.Title != nil {
		p.Title = *input.Title
	}
	if input.Slug != nil {
		p.Slug = page.NormalizeSlug(*input.Slug)
	}
	if input.Content != nil {
		p.Content = *input.Content
	}
	if input.Tags != nil {
		p.Tags = *input.Tags
	}

	saved, err := h.store.Save(p)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(saved)
}

// HandleDelete handles the page_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := h.store.Delete(input.ID); err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"deleted": true,
		"id":      input.ID,
	})
}

// HandleExport handles the page_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.store.FindByID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	path, err := page.ExportFile(p, h.exportDir)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"path":     path,
		"filename": p.Filename(),
	})
}

// HandleGenerate handles the page_generate tool call. On failure the
// page's existing content is left untouched.
func (h *Handlers) HandleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.generateInto(ctx, req, func(ctx context.Context, p *page.Page, instruction string) (string, error) {
		return h.generator.Generate(ctx, instruction)
	})
}

// HandleRefine handles the page_refine tool call.
func (h *Handlers) HandleRefine(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.generateInto(ctx, req, func(ctx context.Context, p *page.Page, instruction string) (string, error) {
		return h.generator.Refine(ctx, p.Content, instruction)
	})
}

func (h *Handlers) generateInto(ctx context.Context, req mcp.CallToolRequest, produce func(context.Context, *page.Page, string) (string, error)) (*mcp.CallToolResult, error) {
	input, err := decode[GenerateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Instruction == "" {
		return errorResult(errors.NewInvalidRequest("instruction is required")), nil
	}

	p, err := h.store.FindByID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	html, err := produce(ctx, p, input.Instruction)
	if err != nil {
		return errorResult(err), nil
	}

	p.Content = html
	saved, err := h.store.Save(p)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(saved)
}

// HandlePublish handles the page_publish tool call.
func (h *Handlers) HandlePublish(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PublishRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	p, err := h.store.FindByID(input.ID)
	if err != nil {
		return errorResult(err), nil
	}

	url, err := h.publisher.Publish(ctx, p)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(map[string]any{
		"url":      url,
		"filename": p.Filename(),
	})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if forgeErr, ok := err.(*errors.ForgeError); ok {
		errorObj := map[string]any{
			"code":    forgeErr.Code,
			"message": forgeErr.Message,
			"status":  forgeErr.Status,
		}
		if forgeErr.Code != errors.ErrInternal && forgeErr.Details != nil {
			errorObj["details"] = forgeErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
