package page

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"

	"github.com/tehewdev/staticforge/internal/errors"
)

// FromMarkdown converts a markdown draft into a full self-contained
// HTML document wrapped in the standard page shell, so imported drafts
// publish and export like any other page.
func FromMarkdown(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &body); err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("could not convert markdown: %v", err))
	}

	doc := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <script src="https://cdn.tailwindcss.com"></script>
</head>
<body class="bg-white text-gray-900 p-10">
    <div class="max-w-3xl mx-auto prose">
%s    </div>
</body>
</html>`, html.EscapeString(title), body.String())

	return doc, nil
}
