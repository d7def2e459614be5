package store

import (
	"context"
	"errors"
	"time"

	"venuepos/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrItemUnavailable     = errors.New("item not available")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInsufficientPayment = errors.New("paid amount is less than total")
)

// Repository is the persistence contract for the POS backend. CreateSale and
// NextReceiptSeq are the two operations with atomicity requirements: the
// receipt sequence is a single read-modify-write against the store, and
// CreateSale commits the sale record together with its conditional stock
// decrements or not at all.
type Repository interface {
	Ping(ctx context.Context) error

	ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	UpdateItem(ctx context.Context, id string, patch domain.ItemUpdateRequest) (*domain.Item, error)
	DeleteItem(ctx context.Context, id string) error
	GetActiveItem(ctx context.Context, id string) (*domain.Item, error)

	NextReceiptSeq(ctx context.Context) (int64, error)
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, from *time.Time, to *time.Time, limit int) ([]domain.Sale, error)
	GetSaleByReceipt(ctx context.Context, receiptNo string) (*domain.Sale, error)
	SellerTotals(ctx context.Context, from *time.Time, to *time.Time) ([]domain.SellerStat, error)
}
