package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venuepos/backend/internal/domain"
	"venuepos/backend/internal/store"
)

// Store is an in-memory Repository used for development and tests. A single
// mutex serializes every operation, so the stock-sufficiency check and the
// decrement inside CreateSale are atomic, matching the conditional-update
// guarantee of the postgres store.
type Store struct {
	mu             sync.Mutex
	items          map[string]domain.Item
	salesByID      map[string]domain.Sale
	salesByReceipt map[string]domain.Sale
	receiptSeq     int64
}

func New() *Store {
	return &Store{
		items:          make(map[string]domain.Item),
		salesByID:      make(map[string]domain.Sale),
		salesByReceipt: make(map[string]domain.Sale),
	}
}

// NewSeeded returns a store preloaded with a small venue menu for dev/demo mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seed := []domain.Item{
		{Name: "Coffee", Price: decimal.NewFromFloat(3.00), SKU: "BEV-COFFEE", Stock: 120, Category: "beverage", Active: true},
		{Name: "Croissant", Price: decimal.NewFromFloat(2.50), SKU: "BKY-CROIS", Stock: 40, Category: "bakery", Active: true},
		{Name: "Club Sandwich", Price: decimal.NewFromFloat(7.80), SKU: "FOOD-CLUB", Stock: 25, Category: "food", Active: true},
		{Name: "Sparkling Water", Price: decimal.NewFromFloat(2.20), SKU: "BEV-SPARK", Stock: 80, Category: "beverage", Active: true},
		{Name: "Cheesecake Slice", Price: decimal.NewFromFloat(4.60), SKU: "BKY-CHEESE", Stock: 18, Category: "bakery", Active: true},
		{Name: "Seasonal Special", Price: decimal.NewFromFloat(9.90), SKU: "FOOD-SPEC", Stock: 10, Category: "food", Active: false},
	}
	for _, item := range seed {
		item.ID = uuid.NewString()
		item.CreatedAt = now
		item.UpdatedAt = now
		s.items[item.ID] = item
	}
	return s
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) ListItems(_ context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(filter.Name))
	items := make([]domain.Item, 0, len(s.items))
	for _, item := range s.items {
		if needle != "" && !strings.Contains(strings.ToLower(item.Name), needle) {
			continue
		}
		if filter.Active != nil && item.Active != *filter.Active {
			continue
		}
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	if item.ID == "" || item.Name == "" || item.Price.IsNegative() || item.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) GetItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

func (s *Store) UpdateItem(_ context.Context, id string, patch domain.ItemUpdateRequest) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, store.ErrInvalidInput
		}
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		if patch.Price.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		item.Price = *patch.Price
	}
	if patch.SKU != nil {
		item.SKU = *patch.SKU
	}
	if patch.Stock != nil {
		if *patch.Stock < 0 {
			return nil, store.ErrInvalidInput
		}
		item.Stock = *patch.Stock
	}
	if patch.Category != nil {
		item.Category = *patch.Category
	}
	if patch.Active != nil {
		item.Active = *patch.Active
	}
	item.UpdatedAt = time.Now().UTC()

	s.items[id] = item
	updated := item
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *Store) GetActiveItem(_ context.Context, id string) (*domain.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || !item.Active {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

func (s *Store) NextReceiptSeq(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.receiptSeq++
	return s.receiptSeq, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.ReceiptNo == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.salesByReceipt[sale.ReceiptNo]; exists {
		return nil, store.ErrInvalidInput
	}

	// Re-check sufficiency before touching anything so a failed line leaves
	// no partial decrements.
	for _, line := range sale.Items {
		item, ok := s.items[line.ItemID]
		if !ok {
			return nil, store.ErrItemUnavailable
		}
		if item.Stock < line.Quantity {
			return nil, store.ErrInsufficientStock
		}
	}

	now := time.Now().UTC()
	for _, line := range sale.Items {
		item := s.items[line.ItemID]
		item.Stock -= line.Quantity
		item.UpdatedAt = now
		s.items[line.ItemID] = item
	}

	sale.Items = append([]domain.SaleLine(nil), sale.Items...)
	s.salesByID[sale.ID] = sale
	s.salesByReceipt[sale.ReceiptNo] = sale

	created := sale
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, from *time.Time, to *time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sales := make([]domain.Sale, 0, len(s.salesByID))
	for _, sale := range s.salesByID {
		if !saleInRange(sale, from, to) {
			continue
		}
		sales = append(sales, sale)
	}

	sort.Slice(sales, func(i, j int) bool { return sales[i].CreatedAt.After(sales[j].CreatedAt) })
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) GetSaleByReceipt(_ context.Context, receiptNo string) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.salesByReceipt[receiptNo]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := sale
	return &found, nil
}

func (s *Store) SellerTotals(_ context.Context, from *time.Time, to *time.Time) ([]domain.SellerStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[string]int64)
	for _, sale := range s.salesByID {
		if !saleInRange(sale, from, to) {
			continue
		}
		for _, line := range sale.Items {
			totals[line.ItemID] += int64(line.Quantity)
		}
	}

	stats := make([]domain.SellerStat, 0, len(totals))
	for itemID, qty := range totals {
		stat := domain.SellerStat{ItemID: itemID, Quantity: qty}
		if item, ok := s.items[itemID]; ok {
			stat.Name = item.Name
			stat.Price = item.Price
			stat.Category = item.Category
		}
		stats = append(stats, stat)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Quantity != stats[j].Quantity {
			return stats[i].Quantity > stats[j].Quantity
		}
		return stats[i].ItemID < stats[j].ItemID
	})
	return stats, nil
}

func saleInRange(sale domain.Sale, from *time.Time, to *time.Time) bool {
	if from != nil && sale.CreatedAt.Before(*from) {
		return false
	}
	if to != nil && sale.CreatedAt.After(*to) {
		return false
	}
	return true
}
