package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiParser implements MenuParser using Google's Gemini models.
type GeminiParser struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiParser initializes a new Gemini client.
// apiKey should be provided from environment variables.
func NewGeminiParser(ctx context.Context, apiKey string) (*GeminiParser, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Gemini 2.0 Flash for low latency and cost efficiency.
	model := client.GenerativeModel("gemini-2.0-flash")

	// Force JSON response for structured parsing.
	model.ResponseMIMEType = "application/json"

	// Extraction should be literal, keep temperature low.
	model.SetTemperature(0.2)

	return &GeminiParser{client: client, model: model}, nil
}

// Close cleans up the Gemini client resources.
func (p *GeminiParser) Close() {
	p.client.Close()
}

// ParseMenuText extracts structured menu items from pasted menu text.
func (p *GeminiParser) ParseMenuText(ctx context.Context, rawText string) (*MenuParseResult, error) {
	fullPrompt := fmt.Sprintf("%s\n\nMenu Text:\n%s", menuSystemPrompt, rawText)

	resp, err := p.model.GenerateContent(ctx, genai.Text(fullPrompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response candidates from Gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			responseText.WriteString(string(txt))
		}
	}

	// Strip markdown fences if the model wrapped the JSON anyway.
	cleanJSON := cleanJSONString(responseText.String())

	var result MenuParseResult
	if err := json.Unmarshal([]byte(cleanJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w. Raw: %s", err, cleanJSON)
	}
	if err := ValidateResult(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateResult rejects parses that would corrupt the menu: no items, blank
// names, or non-positive prices. Callers import all items or none.
func ValidateResult(result *MenuParseResult) error {
	if len(result.Items) == 0 {
		return fmt.Errorf("no menu items recognized in text")
	}
	for i, item := range result.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("items[%d]: empty name", i)
		}
		if !item.Price.IsPositive() {
			return fmt.Errorf("items[%d] (%s): price must be positive, got %s", i, item.Name, item.Price)
		}
	}
	return nil
}

const menuSystemPrompt = `Role: You are a data-entry assistant for a restaurant point-of-sale system.
Task: Extract every dish from the pasted menu text into structured items.

RULES:
1. One output item per dish. Never invent dishes that are not in the text.
2. "price" is the numeric price only, no currency symbols. If a dish lists
   multiple sizes/prices, emit one item per size with the size appended to the
   name (e.g. "Masala Dosa (Large)").
3. "category" is the nearest section heading above the dish (e.g. "Starters",
   "Main Course", "Beverages"). Use "Uncategorized" when there is none.
4. "description" is the dish's own descriptive line if present, else omit it.
5. Skip decorative lines, addresses, phone numbers, and prices without a dish.
6. If the text contains no recognizable dishes, return {"items": []}.

Output JSON Schema:
{
  "items": [
    {
      "name": "string",
      "price": number,
      "category": "string",
      "description": "string (optional)"
    }
  ]
}
`

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
