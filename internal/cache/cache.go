package cache

import (
	"context"
	"time"

	"venuepos/backend/internal/domain"
)

// ReceiptCache caches sales by receipt number. Sales are immutable once
// written, so a cached entry can never go stale.
type ReceiptCache interface {
	Get(ctx context.Context, receiptNo string) (*domain.Sale, bool, error)
	Set(ctx context.Context, receiptNo string, sale *domain.Sale, ttl time.Duration) error
}

type NoopReceiptCache struct{}

func (NoopReceiptCache) Get(_ context.Context, _ string) (*domain.Sale, bool, error) {
	return nil, false, nil
}

func (NoopReceiptCache) Set(_ context.Context, _ string, _ *domain.Sale, _ time.Duration) error {
	return nil
}
