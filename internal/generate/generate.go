// Package generate wraps the text-to-HTML generation service. Each
// call is a single stateless request/response exchange; no retries,
// no streaming.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tehewdev/staticforge/internal/config"
	"github.com/tehewdev/staticforge/internal/errors"
)

// systemInstruction constrains the service to emit one self-contained
// HTML5 document.
const systemInstruction = `You are an expert Frontend Engineer and UI Designer.
Your task is to generate a single, complete, self-contained HTML5 file based on the user's request.

Rules:
1. Use Tailwind CSS via CDN for styling (<script src="https://cdn.tailwindcss.com"></script>).
2. Ensure the design is responsive, modern, and accessible.
3. Do NOT use Markdown code blocks. Return ONLY the raw HTML string.
4. Include meaningful placeholder content and images (use https://picsum.photos/width/height) if necessary.
5. The output must be valid HTML5.`

// Client calls the generation service.
type Client struct {
	cfg    *config.Config
	client *http.Client

	// baseURL overrides the service endpoint, for tests.
	baseURL string
}

// New creates a Client.
func New(cfg *config.Config) *Client {
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 2 * time.Minute},
		baseURL: "https://generativelanguage.googleapis.com",
	}
}

// Request/response shapes for the generateContent call.

type generateRequest struct {
	SystemInstruction *content         `json:"system_instruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ThinkingConfig thinkingConfig `json:"thinkingConfig"`
}

// thinkingConfig disables the service's extended reasoning latency.
type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate produces a fresh HTML document from a natural-language
// instruction.
func (c *Client) Generate(ctx context.Context, instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", errors.NewInvalidRequest("instruction is required")
	}
	return c.call(ctx, systemInstruction, instruction)
}

// Refine returns a modified full document: the current content is sent
// along with the instruction so the service edits rather than starts
// over.
func (c *Client) Refine(ctx context.Context, currentHTML, instruction string) (string, error) {
	if strings.TrimSpace(instruction) == "" {
		return "", errors.NewInvalidRequest("instruction is required")
	}

	prompt := fmt.Sprintf(`Current HTML:
%s

Instruction:
%s

Return the fully updated HTML file only. No markdown.`, currentHTML, instruction)

	return c.call(ctx, "", prompt)
}

func (c *Client) call(ctx context.Context, system, prompt string) (string, error) {
	apiKey := c.cfg.APIKey()
	if apiKey == "" {
		return "", errors.NewGenerationFailed(fmt.Sprintf("API key is missing; set %s", config.EnvAPIKey))
	}

	reqBody := generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{ThinkingConfig: thinkingConfig{ThinkingBudget: 0}},
	}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", errors.NewInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.NewGenerationFailed(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewGenerationFailed(fmt.Sprintf("service returned %s", resp.Status))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", errors.NewGenerationFailed("service response is not JSON")
	}

	var text strings.Builder
	if len(genResp.Candidates) > 0 {
		for _, p := range genResp.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return "", errors.NewGenerationFailed("service returned no content")
	}

	return StripFences(text.String()), nil
}

// StripFences removes a markdown code-fence wrapper the model may have
// added despite instructions, and trims surrounding whitespace.
func StripFences(text string) string {
	text = strings.TrimSpace(text)

	lower := strings.ToLower(text)
	if strings.HasPrefix(lower, "```html") {
		text = strings.TrimLeft(text[len("```html"):], " \t\r\n")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimLeft(text[len("```"):], " \t\r\n")
	}

	text = strings.TrimSuffix(strings.TrimSpace(text), "```")

	return strings.TrimSpace(text)
}
