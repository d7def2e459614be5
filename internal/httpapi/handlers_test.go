package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"venuepos/backend/internal/cache"
	"venuepos/backend/internal/service"
	"venuepos/backend/internal/store/memory"
)

// newTestHandler builds the full API on top of an empty in-memory store so
// handler tests exercise the complete request path.
func newTestHandler() http.Handler {
	repo := memory.New()
	svc := service.New(repo, cache.NoopReceiptCache{}, decimal.Zero, time.Minute)
	return New(svc, "*").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func createItem(t *testing.T, handler http.Handler, name string, price float64, stock int) map[string]any {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/items", map[string]any{
		"name":  name,
		"price": price,
		"stock": stock,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create item: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var item map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&item); err != nil {
		t.Fatalf("decode item: %v", err)
	}
	return item
}

func TestRoot(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] == "" {
		t.Fatalf("expected liveness message, got %v", body)
	}
}

func TestDiagnostics(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodGet, "/test", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["backend"] != "running" {
		t.Fatalf("expected backend running, got %v", body["backend"])
	}
}

func TestItemLifecycle(t *testing.T) {
	handler := newTestHandler()

	item := createItem(t, handler, "Coffee", 3.00, 10)
	id, _ := item["id"].(string)
	if id == "" {
		t.Fatalf("expected server-assigned id, got %v", item)
	}
	if item["is_active"] != true {
		t.Fatalf("expected active default true, got %v", item["is_active"])
	}

	rec := doJSON(t, handler, http.MethodPut, "/api/items/"+id, map[string]any{"price": 3.50})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var updated map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&updated); err != nil {
		t.Fatalf("decode updated item: %v", err)
	}
	if updated["name"] != "Coffee" {
		t.Fatalf("partial update must keep name, got %v", updated["name"])
	}
	if updated["price"] != 3.5 {
		t.Fatalf("expected updated price 3.5, got %v", updated["price"])
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/items/not-a-uuid", map[string]any{"price": 1})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/items/11111111-2222-3333-4444-555555555555", map[string]any{"price": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/items/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/items/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: expected 404, got %d", rec.Code)
	}
}

func TestListItemsActiveFilterOptIn(t *testing.T) {
	handler := newTestHandler()

	item := createItem(t, handler, "Seasonal Special", 9.90, 5)
	id, _ := item["id"].(string)

	rec := doJSON(t, handler, http.MethodPut, "/api/items/"+id, map[string]any{"is_active": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/items", nil)
	var all []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&all); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("inactive items must appear in unfiltered listings, got %d items", len(all))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/items?active=true", nil)
	var filtered []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&filtered); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if len(filtered) != 0 {
		t.Fatalf("active=true must hide inactive items, got %d", len(filtered))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/items?active=banana", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid active filter: expected 400, got %d", rec.Code)
	}
}

func TestCreateSaleFlow(t *testing.T) {
	handler := newTestHandler()

	item := createItem(t, handler, "Coffee", 3.00, 10)
	id, _ := item["id"].(string)

	rec := doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
		"items": []map[string]any{{"item_id": id, "quantity": 2}},
		"paid":  10.00,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create sale: expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var sale map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&sale); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if sale["subtotal"] != 6.0 || sale["tax"] != 0.0 || sale["total"] != 6.0 || sale["change"] != 4.0 {
		t.Fatalf("unexpected totals: %v", sale)
	}
	receiptNo, _ := sale["receipt_no"].(string)
	if receiptNo == "" {
		t.Fatalf("expected receipt number, got %v", sale)
	}

	first := doJSON(t, handler, http.MethodGet, "/api/receipt/"+receiptNo, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("receipt lookup: expected 200, got %d", first.Code)
	}
	second := doJSON(t, handler, http.MethodGet, "/api/receipt/"+receiptNo, nil)
	if !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
		t.Fatalf("receipt lookups must be byte-identical:\n%s\n%s", first.Body.String(), second.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/receipt/R00000000000000-0000", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown receipt: expected 404, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/items", nil)
	var items []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if items[0]["stock"] != 8.0 {
		t.Fatalf("expected stock 8 after sale, got %v", items[0]["stock"])
	}
}

func TestCreateSaleRejections(t *testing.T) {
	handler := newTestHandler()

	item := createItem(t, handler, "Coffee", 3.00, 1)
	id, _ := item["id"].(string)

	cases := []struct {
		name    string
		payload map[string]any
	}{
		{"empty items", map[string]any{"items": []map[string]any{}, "paid": 10.0}},
		{"insufficient stock", map[string]any{"items": []map[string]any{{"item_id": id, "quantity": 2}}, "paid": 10.0}},
		{"insufficient payment", map[string]any{"items": []map[string]any{{"item_id": id, "quantity": 1}}, "paid": 0.5}},
		{"malformed item id", map[string]any{"items": []map[string]any{{"item_id": "nope", "quantity": 1}}, "paid": 10.0}},
	}

	for _, tc := range cases {
		rec := doJSON(t, handler, http.MethodPost, "/api/sales", tc.payload)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d (body: %s)", tc.name, rec.Code, rec.Body.String())
		}
		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode error body: %v", tc.name, err)
		}
		if detail, _ := body["detail"].(string); detail == "" {
			t.Fatalf("%s: expected detail message, got %v", tc.name, body)
		}
	}

	// Nothing was persisted and no stock moved.
	rec := doJSON(t, handler, http.MethodGet, "/api/sales", nil)
	var sales []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&sales); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("rejected sales must not be persisted, got %d", len(sales))
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/items", nil)
	var items []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if items[0]["stock"] != 1.0 {
		t.Fatalf("stock must be unchanged, got %v", items[0]["stock"])
	}
}

func TestListSalesAndStats(t *testing.T) {
	handler := newTestHandler()

	rec := doJSON(t, handler, http.MethodGet, "/api/stats/top", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", rec.Code)
	}
	var empty map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&empty); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if empty["most_selling"] != nil || empty["least_selling"] != nil {
		t.Fatalf("expected null sellers with no sales, got %v", empty)
	}

	item := createItem(t, handler, "Coffee", 3.00, 100)
	id, _ := item["id"].(string)
	for i := 0; i < 2; i++ {
		rec = doJSON(t, handler, http.MethodPost, "/api/sales", map[string]any{
			"items": []map[string]any{{"item_id": id, "quantity": 1}},
			"paid":  5.0,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("sale %d: expected 201, got %d", i, rec.Code)
		}
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sales?limit=1", nil)
	var sales []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&sales); err != nil {
		t.Fatalf("decode sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected limit=1 to return one sale, got %d", len(sales))
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/sales?start=not-a-time", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid start: expected 400, got %d", rec.Code)
	}

	end := time.Now().UTC().Add(time.Minute).Format(time.RFC3339)
	rec = doJSON(t, handler, http.MethodGet, fmt.Sprintf("/api/stats/top?end=%s", end), nil)
	var stats map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	most, _ := stats["most_selling"].(map[string]any)
	if most == nil || most["item_id"] != id || most["quantity"] != 2.0 {
		t.Fatalf("unexpected most selling: %v", stats)
	}
}
