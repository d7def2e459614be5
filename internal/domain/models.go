package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Money fields serialize as plain JSON numbers (6.5, not "6.5").
	decimal.MarshalJSONWithoutQuotes = true
}

type Item struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	SKU       string          `json:"sku,omitempty"`
	Stock     int             `json:"stock"`
	Category  string          `json:"category,omitempty"`
	Active    bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ItemCreateRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	SKU      string          `json:"sku,omitempty"`
	Stock    int             `json:"stock"`
	Category string          `json:"category,omitempty"`
	Active   *bool           `json:"is_active,omitempty"`
}

// ItemUpdateRequest is a partial update: nil means "leave unchanged".
// There is no clear-to-null semantic.
type ItemUpdateRequest struct {
	Name     *string          `json:"name,omitempty"`
	Price    *decimal.Decimal `json:"price,omitempty"`
	SKU      *string          `json:"sku,omitempty"`
	Stock    *int             `json:"stock,omitempty"`
	Category *string          `json:"category,omitempty"`
	Active   *bool            `json:"is_active,omitempty"`
}

type ItemFilter struct {
	Name   string
	Active *bool
}

// SaleLine is a value snapshot of the item at the moment of sale.
// It never reflects later changes to the referenced item.
type SaleLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Sale struct {
	ID        string          `json:"id"`
	Items     []SaleLine      `json:"items"`
	Cashier   string          `json:"cashier,omitempty"`
	Note      string          `json:"note,omitempty"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Change    decimal.Decimal `json:"change"`
	ReceiptNo string          `json:"receipt_no"`
	CreatedAt time.Time       `json:"created_at"`
}

type SaleLineRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

type SaleCreateRequest struct {
	Items   []SaleLineRequest `json:"items"`
	Cashier string            `json:"cashier,omitempty"`
	Note    string            `json:"note,omitempty"`
	Paid    decimal.Decimal   `json:"paid"`
}

// SellerStat aggregates the quantity sold of one item across sale lines.
// Name, price and category come from the current item document and are
// zero-valued when the item has since been deleted.
type SellerStat struct {
	ItemID   string          `json:"item_id"`
	Name     string          `json:"name"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
}

type TopSellersResponse struct {
	MostSelling  *SellerStat `json:"most_selling"`
	LeastSelling *SellerStat `json:"least_selling"`
}
