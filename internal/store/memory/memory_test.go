package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"venuepos/backend/internal/domain"
	"venuepos/backend/internal/store"
)

func seedItem(t *testing.T, s *Store, name string, stock int) domain.Item {
	t.Helper()

	now := time.Now().UTC()
	item := domain.Item{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     decimal.NewFromFloat(2.50),
		Stock:     stock,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.CreateItem(context.Background(), item); err != nil {
		t.Fatalf("seed item %s: %v", name, err)
	}
	return item
}

func TestNextReceiptSeqConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	seqs := make([]int64, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seq, err := s.NextReceiptSeq(ctx)
			if err != nil {
				t.Errorf("next seq: %v", err)
				return
			}
			seqs[i] = seq
		}(i)
	}
	wg.Wait()

	seen := make(map[int64]bool, n)
	var max int64
	for _, seq := range seqs {
		if seq < 1 {
			t.Fatalf("sequence must start at 1, got %d", seq)
		}
		if seen[seq] {
			t.Fatalf("duplicate sequence value %d", seq)
		}
		seen[seq] = true
		if seq > max {
			max = seq
		}
	}
	if max != n {
		t.Fatalf("expected max sequence %d, got %d", n, max)
	}
}

func TestCreateSaleLeavesNoPartialDecrements(t *testing.T) {
	s := New()
	ctx := context.Background()

	plenty := seedItem(t, s, "Coffee", 10)
	scarce := seedItem(t, s, "Cheesecake Slice", 1)

	sale := domain.Sale{
		ID:        uuid.NewString(),
		ReceiptNo: "R20260101000000-0001",
		Items: []domain.SaleLine{
			{ItemID: plenty.ID, Name: plenty.Name, Price: plenty.Price, Quantity: 2, LineTotal: decimal.NewFromInt(5)},
			{ItemID: scarce.ID, Name: scarce.Name, Price: scarce.Price, Quantity: 3, LineTotal: decimal.NewFromFloat(7.5)},
		},
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.CreateSale(ctx, sale)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	first, err := s.GetItem(ctx, plenty.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if first.Stock != 10 {
		t.Fatalf("first line must not be decremented on failure, got stock %d", first.Stock)
	}

	if _, err := s.GetSaleByReceipt(ctx, sale.ReceiptNo); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("failed sale must not be persisted, got %v", err)
	}
}

func TestCreateSaleRejectsDuplicateReceipt(t *testing.T) {
	s := New()
	ctx := context.Background()

	item := seedItem(t, s, "Coffee", 10)
	line := domain.SaleLine{ItemID: item.ID, Name: item.Name, Price: item.Price, Quantity: 1, LineTotal: item.Price}

	first := domain.Sale{ID: uuid.NewString(), ReceiptNo: "R20260101000000-0007", Items: []domain.SaleLine{line}, CreatedAt: time.Now().UTC()}
	if _, err := s.CreateSale(ctx, first); err != nil {
		t.Fatalf("first sale failed: %v", err)
	}

	dup := domain.Sale{ID: uuid.NewString(), ReceiptNo: first.ReceiptNo, Items: []domain.SaleLine{line}, CreatedAt: time.Now().UTC()}
	if _, err := s.CreateSale(ctx, dup); err == nil {
		t.Fatalf("expected duplicate receipt number to be rejected")
	}
}

func TestListItemsFilter(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	all, err := s.ListItems(ctx, domain.ItemFilter{})
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	if len(all) == 0 {
		t.Fatalf("seeded store should have items")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Name > all[i].Name {
			t.Fatalf("items must be ordered by name ascending")
		}
	}

	// Inactive items appear in unfiltered listings.
	inactiveSeen := false
	for _, item := range all {
		if !item.Active {
			inactiveSeen = true
		}
	}
	if !inactiveSeen {
		t.Fatalf("seeded store should include an inactive item in listings")
	}

	active := true
	filtered, err := s.ListItems(ctx, domain.ItemFilter{Name: "coffee", Active: &active})
	if err != nil {
		t.Fatalf("list items filtered: %v", err)
	}
	for _, item := range filtered {
		if !item.Active {
			t.Fatalf("active filter leaked inactive item %s", item.Name)
		}
	}
	if len(filtered) != 1 || filtered[0].Name != "Coffee" {
		t.Fatalf("expected case-insensitive name match for Coffee, got %+v", filtered)
	}
}
