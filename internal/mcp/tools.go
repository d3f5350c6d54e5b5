package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var createToolDef = mcp.NewTool("page_create",
	mcp.WithDescription("Create a new page pre-filled with the starter template and return it."),
	mcp.WithString("title",
		mcp.Description("Display title for the page. Defaults to 'New Page'."),
	),
)

var getToolDef = mcp.NewTool("page_get",
	mcp.WithDescription("Fetch a single page by its id, including full HTML content."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page."),
	),
)

var listToolDef = mcp.NewTool("page_list",
	mcp.WithDescription("List all pages, most recently updated first. Content is omitted."),
	mcp.WithString("q",
		mcp.Description("Case-insensitive filter matched against title and slug."),
	),
)

var saveToolDef = mcp.NewTool("page_save",
	mcp.WithDescription("Update a page's fields. Only provided fields change; the slug is normalized to lowercase letters, digits, and hyphens."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to update."),
	),
	mcp.WithString("title",
		mcp.Description("New display title."),
	),
	mcp.WithString("slug",
		mcp.Description("New slug. Normalized before saving; an empty slug becomes 'untitled-page'."),
	),
	mcp.WithString("content",
		mcp.Description("New HTML document. Stored verbatim."),
	),
	mcp.WithArray("tags",
		mcp.Description("Replacement tag list."),
		mcp.Items(map[string]any{"type": "string"}),
	),
)

var deleteToolDef = mcp.NewTool("page_delete",
	mcp.WithDescription("Delete a page permanently. Deleting a missing page is not an error."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to delete."),
	),
)

var exportToolDef = mcp.NewTool("page_export",
	mcp.WithDescription("Write the page's raw HTML to <slug>.html in the exports directory and return the path."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to export."),
	),
)

var generateToolDef = mcp.NewTool("page_generate",
	mcp.WithDescription("Replace the page's content with a complete HTML document generated from the instruction."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to write into."),
	),
	mcp.WithString("instruction",
		mcp.Required(),
		mcp.Description("Natural-language description of the page to generate."),
	),
)

var refineToolDef = mcp.NewTool("page_refine",
	mcp.WithDescription("Transform the page's current HTML according to the instruction and save the result."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to refine."),
	),
	mcp.WithString("instruction",
		mcp.Required(),
		mcp.Description("Natural-language description of the change to make."),
	),
)

var publishToolDef = mcp.NewTool("page_publish",
	mcp.WithDescription("Publish the page as <slug>.html to the configured repository and return its public URL."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("ULID of the page to publish."),
	),
)
