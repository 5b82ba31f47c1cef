package ai

import "github.com/shopspring/decimal"

// MenuParseResult is the structured output of a menu text parse.
type MenuParseResult struct {
	Items []ParsedMenuItem `json:"items"`
}

// ParsedMenuItem is one menu entry extracted from the raw text.
type ParsedMenuItem struct {
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
}
