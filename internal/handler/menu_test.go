package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/qrbites/api/internal/database"
	"github.com/qrbites/api/internal/handler"
)

// mockMenuStore implements handler.MenuStore backed by a map.
type mockMenuStore struct {
	items map[uuid.UUID]database.MenuItem
}

func newMockMenuStore() *mockMenuStore {
	return &mockMenuStore{items: make(map[uuid.UUID]database.MenuItem)}
}

func (m *mockMenuStore) CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error) {
	item := database.MenuItem{
		ID:          uuid.New(),
		Name:        arg.Name,
		Category:    arg.Category,
		Description: arg.Description,
		Price:       arg.Price,
		Image:       arg.Image,
		Available:   arg.Available,
		ShowImage:   arg.ShowImage,
	}
	m.items[item.ID] = item
	return item, nil
}

func (m *mockMenuStore) GetMenuItem(ctx context.Context, id uuid.UUID) (database.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	return item, nil
}

func (m *mockMenuStore) ListMenuItems(ctx context.Context, arg database.ListMenuItemsParams) ([]database.MenuItem, error) {
	var out []database.MenuItem
	for _, item := range m.items {
		if arg.AvailableOnly && !item.Available {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (m *mockMenuStore) UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error) {
	item, ok := m.items[arg.ID]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	item.Name = arg.Name
	item.Category = arg.Category
	item.Description = arg.Description
	item.Price = arg.Price
	item.Image = arg.Image
	item.Available = arg.Available
	item.ShowImage = arg.ShowImage
	m.items[arg.ID] = item
	return item, nil
}

func (m *mockMenuStore) SetMenuItemAvailability(ctx context.Context, id uuid.UUID, available bool) (database.MenuItem, error) {
	item, ok := m.items[id]
	if !ok {
		return database.MenuItem{}, pgx.ErrNoRows
	}
	item.Available = available
	m.items[id] = item
	return item, nil
}

func (m *mockMenuStore) DeleteMenuItem(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.items[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func setupMenuRouter(store handler.MenuStore) chi.Router {
	r := chi.NewRouter()
	h := handler.NewMenuHandler(store)
	h.RegisterPublicRoutes(r)
	h.RegisterStaffRoutes(r)
	return r
}

type menuItemBody struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     string    `json:"price"`
	Available bool      `json:"available"`
	ShowImage bool      `json:"show_image"`
}

type menuListBody struct {
	Items []menuItemBody `json:"items"`
}

func TestCreateMenuItem(t *testing.T) {
	store := newMockMenuStore()
	router := setupMenuRouter(store)

	rec := doRequest(t, router, http.MethodPost, "/menu", map[string]interface{}{
		"name":     "Paneer Tikka",
		"category": "Starters",
		"price":    "250",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201, body: %s", rec.Code, rec.Body.String())
	}

	var resp menuItemBody
	decodeBody(t, rec, &resp)
	if resp.Name != "Paneer Tikka" || resp.Category != "Starters" {
		t.Errorf("item: got %+v", resp)
	}
	if resp.Price != "250.00" {
		t.Errorf("price: got %s, want 250.00", resp.Price)
	}
	if !resp.Available || !resp.ShowImage {
		t.Error("defaults: new items should be available with image shown")
	}
}

func TestCreateMenuItem_Validation(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing name", map[string]interface{}{"price": "100"}},
		{"missing price", map[string]interface{}{"name": "Chai"}},
		{"zero price", map[string]interface{}{"name": "Chai", "price": "0"}},
		{"negative price", map[string]interface{}{"name": "Chai", "price": "-5"}},
		{"malformed price", map[string]interface{}{"name": "Chai", "price": "forty"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/menu", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", rec.Code)
			}
		})
	}
}

func TestCreateMenuItem_DefaultCategory(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())

	rec := doRequest(t, router, http.MethodPost, "/menu", map[string]interface{}{
		"name":  "Chai",
		"price": "40",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want 201", rec.Code)
	}
	var resp menuItemBody
	decodeBody(t, rec, &resp)
	if resp.Category != "Uncategorized" {
		t.Errorf("category: got %s, want Uncategorized", resp.Category)
	}
}

func TestListMenu_CustomerSeesAvailableOnly(t *testing.T) {
	store := newMockMenuStore()
	available := database.MenuItem{ID: uuid.New(), Name: "Dosa", Category: "Mains", Price: makeNumeric("160.00"), Available: true}
	hidden := database.MenuItem{ID: uuid.New(), Name: "Off Item", Category: "Mains", Price: makeNumeric("100.00"), Available: false}
	store.items[available.ID] = available
	store.items[hidden.ID] = hidden
	router := setupMenuRouter(store)

	t.Run("public menu", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/menu", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rec.Code)
		}
		var resp menuListBody
		decodeBody(t, rec, &resp)
		if len(resp.Items) != 1 || resp.Items[0].Name != "Dosa" {
			t.Errorf("items: got %+v, want only Dosa", resp.Items)
		}
	})

	t.Run("staff menu", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/menu/all", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status: got %d, want 200", rec.Code)
		}
		var resp menuListBody
		decodeBody(t, rec, &resp)
		if len(resp.Items) != 2 {
			t.Errorf("items: got %d, want 2", len(resp.Items))
		}
	})
}

func TestSetMenuItemAvailability(t *testing.T) {
	store := newMockMenuStore()
	item := database.MenuItem{ID: uuid.New(), Name: "Dosa", Category: "Mains", Price: makeNumeric("160.00"), Available: true}
	store.items[item.ID] = item
	router := setupMenuRouter(store)

	rec := doRequest(t, router, http.MethodPatch, "/menu/"+item.ID.String()+"/availability", map[string]bool{
		"available": false,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}
	var resp menuItemBody
	decodeBody(t, rec, &resp)
	if resp.Available {
		t.Error("item still available after 86")
	}
}

func TestUpdateMenuItem(t *testing.T) {
	store := newMockMenuStore()
	item := database.MenuItem{ID: uuid.New(), Name: "Dosa", Category: "Mains", Price: makeNumeric("160.00"), Available: true}
	store.items[item.ID] = item
	router := setupMenuRouter(store)

	rec := doRequest(t, router, http.MethodPut, "/menu/"+item.ID.String(), map[string]interface{}{
		"name":     "Masala Dosa",
		"category": "Mains",
		"price":    "180",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200, body: %s", rec.Code, rec.Body.String())
	}
	var resp menuItemBody
	decodeBody(t, rec, &resp)
	if resp.Name != "Masala Dosa" || resp.Price != "180.00" {
		t.Errorf("item: got %+v", resp)
	}
}

func TestMenuItemNotFound(t *testing.T) {
	router := setupMenuRouter(newMockMenuStore())
	missing := uuid.New().String()

	paths := []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/menu/" + missing, nil},
		{http.MethodPut, "/menu/" + missing, map[string]interface{}{"name": "X", "price": "10"}},
		{http.MethodPatch, "/menu/" + missing + "/availability", map[string]bool{"available": true}},
		{http.MethodDelete, "/menu/" + missing, nil},
	}
	for _, tc := range paths {
		rec := doRequest(t, router, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status: got %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

func TestDeleteMenuItem(t *testing.T) {
	store := newMockMenuStore()
	item := database.MenuItem{ID: uuid.New(), Name: "Dosa", Category: "Mains", Price: makeNumeric("160.00")}
	store.items[item.ID] = item
	router := setupMenuRouter(store)

	rec := doRequest(t, router, http.MethodDelete, "/menu/"+item.ID.String(), nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", rec.Code)
	}
	if _, ok := store.items[item.ID]; ok {
		t.Error("item still present after delete")
	}
}
