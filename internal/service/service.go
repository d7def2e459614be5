package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"venuepos/backend/internal/cache"
	"venuepos/backend/internal/domain"
	"venuepos/backend/internal/store"
)

const (
	defaultSalesLimit = 50
	maxSalesLimit     = 500
)

type Service struct {
	repo       store.Repository
	receipts   cache.ReceiptCache
	taxRate    decimal.Decimal
	receiptTTL time.Duration
}

func New(repo store.Repository, receipts cache.ReceiptCache, taxRate decimal.Decimal, receiptTTL time.Duration) *Service {
	if receipts == nil {
		receipts = cache.NoopReceiptCache{}
	}
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}

	return &Service{
		repo:       repo,
		receipts:   receipts,
		taxRate:    taxRate,
		receiptTTL: receiptTTL,
	}
}

func (s *Service) PingStore(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	return s.repo.ListItems(ctx, filter)
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Item{}, fmt.Errorf("%w: name is required", store.ErrInvalidInput)
	}
	if req.Price.IsNegative() {
		return domain.Item{}, fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	}
	if req.Stock < 0 {
		return domain.Item{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalidInput)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := time.Now().UTC()
	item := domain.Item{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Price:     req.Price,
		SKU:       strings.TrimSpace(req.SKU),
		Stock:     req.Stock,
		Category:  strings.TrimSpace(req.Category),
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.Item{}, fmt.Errorf("%w: name must not be empty", store.ErrInvalidInput)
	}
	if req.Price != nil && req.Price.IsNegative() {
		return domain.Item{}, fmt.Errorf("%w: price must not be negative", store.ErrInvalidInput)
	}
	if req.Stock != nil && *req.Stock < 0 {
		return domain.Item{}, fmt.Errorf("%w: stock must not be negative", store.ErrInvalidInput)
	}

	updated, err := s.repo.UpdateItem(ctx, id, req)
	if err != nil {
		return domain.Item{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	return s.repo.DeleteItem(ctx, id)
}

// CreateSale validates the request against current inventory, computes the
// financial totals, allocates a receipt number and persists the sale with
// its stock decrements in one store call. Stock sufficiency is checked here
// first for a friendly error, but the store's conditional decrement is what
// actually prevents overselling under concurrency.
func (s *Service) CreateSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Sale, error) {
	if len(req.Items) == 0 {
		return domain.Sale{}, fmt.Errorf("%w: no items in sale", store.ErrInvalidInput)
	}

	lines := make([]domain.SaleLine, 0, len(req.Items))
	subtotal := decimal.Zero
	for _, line := range req.Items {
		if line.Quantity < 1 {
			return domain.Sale{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrInvalidInput)
		}

		item, err := s.repo.GetActiveItem(ctx, line.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.Sale{}, fmt.Errorf("%w: %s", store.ErrItemUnavailable, line.ItemID)
			}
			return domain.Sale{}, err
		}
		if item.Stock < line.Quantity {
			return domain.Sale{}, fmt.Errorf("%w for %s", store.ErrInsufficientStock, item.Name)
		}

		lineTotal := item.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		lines = append(lines, domain.SaleLine{
			ItemID:    item.ID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
	}

	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(s.taxRate).Round(2)
	total := subtotal.Add(tax).Round(2)
	if req.Paid.LessThan(total) {
		return domain.Sale{}, store.ErrInsufficientPayment
	}
	change := req.Paid.Sub(total).Round(2)

	receiptNo, err := s.nextReceiptNumber(ctx)
	if err != nil {
		return domain.Sale{}, err
	}

	sale := domain.Sale{
		ID:        uuid.NewString(),
		Items:     lines,
		Cashier:   strings.TrimSpace(req.Cashier),
		Note:      strings.TrimSpace(req.Note),
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     total,
		Paid:      req.Paid,
		Change:    change,
		ReceiptNo: receiptNo,
		CreatedAt: time.Now().UTC(),
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return domain.Sale{}, err
	}

	log.Info().
		Str("receipt_no", created.ReceiptNo).
		Str("total", created.Total.String()).
		Int("lines", len(created.Items)).
		Msg("sale recorded")

	return *created, nil
}

// nextReceiptNumber combines a UTC timestamp with the shared sequence
// counter. The timestamp is informational only; uniqueness rests on the
// atomic increment of the counter.
func (s *Service) nextReceiptNumber(ctx context.Context) (string, error) {
	seq, err := s.repo.NextReceiptSeq(ctx)
	if err != nil {
		return "", err
	}
	ts := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("R%s-%04d", ts, seq), nil
}

func (s *Service) ListSales(ctx context.Context, from *time.Time, to *time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = defaultSalesLimit
	}
	if limit > maxSalesLimit {
		limit = maxSalesLimit
	}
	return s.repo.ListSales(ctx, from, to, limit)
}

func (s *Service) GetSaleByReceipt(ctx context.Context, receiptNo string) (domain.Sale, error) {
	receiptNo = strings.TrimSpace(receiptNo)
	if receiptNo == "" {
		return domain.Sale{}, fmt.Errorf("%w: receipt number is required", store.ErrInvalidInput)
	}

	if cached, ok, err := s.receipts.Get(ctx, receiptNo); err != nil {
		log.Warn().Err(err).Str("receipt_no", receiptNo).Msg("receipt cache get failed")
	} else if ok {
		return *cached, nil
	}

	sale, err := s.repo.GetSaleByReceipt(ctx, receiptNo)
	if err != nil {
		return domain.Sale{}, err
	}

	if err := s.receipts.Set(ctx, receiptNo, sale, s.receiptTTL); err != nil {
		log.Warn().Err(err).Str("receipt_no", receiptNo).Msg("receipt cache set failed")
	}

	return *sale, nil
}

func (s *Service) TopSellers(ctx context.Context, from *time.Time, to *time.Time) (domain.TopSellersResponse, error) {
	stats, err := s.repo.SellerTotals(ctx, from, to)
	if err != nil {
		return domain.TopSellersResponse{}, err
	}
	if len(stats) == 0 {
		return domain.TopSellersResponse{}, nil
	}

	most := stats[0]
	least := stats[len(stats)-1]
	return domain.TopSellersResponse{MostSelling: &most, LeastSelling: &least}, nil
}
