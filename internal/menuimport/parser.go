// Package menuimport parses plain-text menus deterministically. It backs the
// menu importer when no AI key is configured and serves as the offline
// fallback for the same import flow.
package menuimport

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/qrbites/api/internal/ai"
	"github.com/shopspring/decimal"
)

// ParsedMenu is the result of parsing a pasted text menu.
type ParsedMenu struct {
	Items    []ai.ParsedMenuItem
	Warnings []string // Lines that failed to parse
}

// Currency markers stripped from price tokens.
var pricePrefixes = []string{"₹", "rs.", "rs", "inr"}

// ParseMenu parses a pasted menu into structured items.
//
// Lines without a trailing price are treated as category headings (an
// optional trailing ":" is dropped). Item lines are "<name> <price>" with an
// optional "-" separator and optional currency marker, e.g.:
//
//	Starters:
//	Paneer Tikka - 250
//	Veg Spring Roll ₹180
func ParseMenu(text string) (*ParsedMenu, error) {
	lines := strings.Split(text, "\n")

	category := "Uncategorized"
	var items []ai.ParsedMenuItem
	var warnings []string

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if name, price, ok := parseItemLine(line); ok {
			items = append(items, ai.ParsedMenuItem{
				Name:     name,
				Price:    price,
				Category: category,
			})
			continue
		}

		if heading, ok := parseHeadingLine(line); ok {
			category = heading
			continue
		}

		warnings = append(warnings, fmt.Sprintf("skipped: %s", line))
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no menu items found in text")
	}

	return &ParsedMenu{Items: items, Warnings: warnings}, nil
}

// parseHeadingLine accepts a line with no digits as a category heading.
func parseHeadingLine(line string) (string, bool) {
	if strings.ContainsFunc(line, unicode.IsDigit) {
		return "", false
	}
	heading := strings.TrimSuffix(strings.TrimSpace(line), ":")
	heading = strings.TrimSpace(heading)
	if heading == "" {
		return "", false
	}
	return heading, true
}

// parseItemLine splits "<name> [-] <price>" where price is the last field.
func parseItemLine(line string) (string, decimal.Decimal, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", decimal.Zero, false
	}

	price, ok := parsePrice(fields[len(fields)-1])
	if !ok {
		return "", decimal.Zero, false
	}

	name := strings.Join(fields[:len(fields)-1], " ")
	name = strings.TrimSuffix(strings.TrimSpace(name), "-")
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return "", decimal.Zero, false
	}
	return name, price, true
}

func parsePrice(token string) (decimal.Decimal, bool) {
	token = strings.ToLower(strings.TrimSpace(token))
	for _, prefix := range pricePrefixes {
		token = strings.TrimPrefix(token, prefix)
	}
	token = strings.TrimSuffix(token, "/-")
	if token == "" {
		return decimal.Zero, false
	}
	price, err := decimal.NewFromString(token)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	return price, true
}

// Parser adapts ParseMenu to the ai.MenuParser interface so the import flow
// is identical with or without an AI provider.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseMenuText(_ context.Context, rawText string) (*ai.MenuParseResult, error) {
	parsed, err := ParseMenu(rawText)
	if err != nil {
		return nil, err
	}
	result := &ai.MenuParseResult{Items: parsed.Items}
	if err := ai.ValidateResult(result); err != nil {
		return nil, err
	}
	return result, nil
}
