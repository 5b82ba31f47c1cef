package menuimport

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMenu_HeadingsAndItems(t *testing.T) {
	text := `Starters:
Paneer Tikka - 250
Veg Spring Roll 180

Main Course
Masala Dosa - 160`

	parsed, err := ParseMenu(text)
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(parsed.Items) != 3 {
		t.Fatalf("items: got %d, want 3", len(parsed.Items))
	}
	if len(parsed.Warnings) != 0 {
		t.Errorf("warnings: got %v, want none", parsed.Warnings)
	}

	tests := []struct {
		name, category, price string
	}{
		{"Paneer Tikka", "Starters", "250"},
		{"Veg Spring Roll", "Starters", "180"},
		{"Masala Dosa", "Main Course", "160"},
	}
	for i, want := range tests {
		item := parsed.Items[i]
		if item.Name != want.name {
			t.Errorf("item %d name: got %q, want %q", i, item.Name, want.name)
		}
		if item.Category != want.category {
			t.Errorf("item %d category: got %q, want %q", i, item.Category, want.category)
		}
		if !item.Price.Equal(decimal.RequireFromString(want.price)) {
			t.Errorf("item %d price: got %v, want %s", i, item.Price, want.price)
		}
	}
}

func TestParseMenu_CurrencyMarkers(t *testing.T) {
	tests := []struct {
		line  string
		name  string
		price string
	}{
		{"Veg Spring Roll ₹180", "Veg Spring Roll", "180"},
		{"Masala Chai Rs. 40", "Masala Chai", "40"},
		{"Fresh Lime Soda rs 80", "Fresh Lime Soda", "80"},
		{"Butter Naan - 50/-", "Butter Naan", "50"},
		{"Dal Tadka INR 210.50", "Dal Tadka", "210.50"},
	}

	for _, tc := range tests {
		t.Run(tc.line, func(t *testing.T) {
			parsed, err := ParseMenu(tc.line)
			if err != nil {
				t.Fatalf("ParseMenu: %v", err)
			}
			if len(parsed.Items) != 1 {
				t.Fatalf("items: got %d, want 1", len(parsed.Items))
			}
			item := parsed.Items[0]
			if item.Name != tc.name {
				t.Errorf("name: got %q, want %q", item.Name, tc.name)
			}
			if !item.Price.Equal(decimal.RequireFromString(tc.price)) {
				t.Errorf("price: got %v, want %s", item.Price, tc.price)
			}
		})
	}
}

func TestParseMenu_DefaultCategory(t *testing.T) {
	parsed, err := ParseMenu("Paneer Tikka - 250")
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if parsed.Items[0].Category != "Uncategorized" {
		t.Errorf("category: got %q, want Uncategorized", parsed.Items[0].Category)
	}
}

func TestParseMenu_UnparseableLinesBecomeWarnings(t *testing.T) {
	text := `Starters
Paneer Tikka - 250
- 180
Serves 2 people`

	parsed, err := ParseMenu(text)
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Fatalf("items: got %d, want 1", len(parsed.Items))
	}
	if len(parsed.Warnings) != 2 {
		t.Fatalf("warnings: got %v, want 2", parsed.Warnings)
	}
	for _, w := range parsed.Warnings {
		if !strings.HasPrefix(w, "skipped: ") {
			t.Errorf("warning %q missing skipped prefix", w)
		}
	}
}

func TestParseMenu_NoItems(t *testing.T) {
	for _, text := range []string{"", "Starters:\nBeverages", "   \n\n"} {
		if _, err := ParseMenu(text); err == nil {
			t.Errorf("ParseMenu(%q): expected error, got nil", text)
		}
	}
}

func TestParseMenu_NegativeAndZeroPricesRejected(t *testing.T) {
	parsed, err := ParseMenu("Good Item 100\nBad Item 0\nWorse Item -50")
	if err != nil {
		t.Fatalf("ParseMenu: %v", err)
	}
	if len(parsed.Items) != 1 || parsed.Items[0].Name != "Good Item" {
		t.Errorf("items: got %+v, want only Good Item", parsed.Items)
	}
	if len(parsed.Warnings) != 2 {
		t.Errorf("warnings: got %v, want 2", parsed.Warnings)
	}
}

func TestParser_ImplementsMenuParser(t *testing.T) {
	p := NewParser()
	result, err := p.ParseMenuText(context.Background(), "Chai - 40")
	if err != nil {
		t.Fatalf("ParseMenuText: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "Chai" {
		t.Errorf("result: got %+v, want one Chai item", result.Items)
	}
}

func TestParser_NoItemsError(t *testing.T) {
	p := NewParser()
	if _, err := p.ParseMenuText(context.Background(), "nothing priced here"); err == nil {
		t.Fatal("expected error for menu with no items")
	}
}
