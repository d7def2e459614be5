package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"venuepos/backend/internal/domain"
	"venuepos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price NUMERIC(12,2) NOT NULL DEFAULT 0,
			sku TEXT NOT NULL DEFAULT '',
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			category TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			receipt_no TEXT NOT NULL UNIQUE,
			cashier TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			subtotal NUMERIC(12,2) NOT NULL,
			tax NUMERIC(12,2) NOT NULL,
			total NUMERIC(12,2) NOT NULL,
			paid NUMERIC(12,2) NOT NULL,
			change NUMERIC(12,2) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_created_at ON sales (created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS sale_lines (
			sale_id TEXT NOT NULL REFERENCES sales(id),
			position INTEGER NOT NULL,
			item_id TEXT NOT NULL,
			name TEXT NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			quantity INTEGER NOT NULL CHECK (quantity >= 1),
			line_total NUMERIC(12,2) NOT NULL,
			PRIMARY KEY (sale_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS receipt_counters (
			name TEXT PRIMARY KEY,
			seq BIGINT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ListItems(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, price, sku, stock, category, active, created_at, updated_at
		FROM items
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
			AND ($2::boolean IS NULL OR active = $2)
		ORDER BY name ASC
	`, filter.Name, filter.Active)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if item.ID == "" || item.Name == "" || item.Price.IsNegative() || item.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, price, sku, stock, category, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, item.ID, item.Name, item.Price, item.SKU, item.Stock, item.Category, item.Active, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.getItem(ctx, id, false)
}

func (s *Store) GetActiveItem(ctx context.Context, id string) (*domain.Item, error) {
	return s.getItem(ctx, id, true)
}

func (s *Store) getItem(ctx context.Context, id string, activeOnly bool) (*domain.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, price, sku, stock, category, active, created_at, updated_at
		FROM items
		WHERE id = $1 AND ($2 = false OR active = true)
	`, id, activeOnly)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateItem(ctx context.Context, id string, patch domain.ItemUpdateRequest) (*domain.Item, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, store.ErrInvalidInput
	}
	if patch.Price != nil && patch.Price.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE items
		SET name = COALESCE($2, name),
			price = COALESCE($3::numeric, price),
			sku = COALESCE($4, sku),
			stock = COALESCE($5::integer, stock),
			category = COALESCE($6, category),
			active = COALESCE($7::boolean, active),
			updated_at = now()
		WHERE id = $1
		RETURNING id, name, price, sku, stock, category, active, created_at, updated_at
	`, id, patch.Name, patch.Price, patch.SKU, patch.Stock, patch.Category, patch.Active)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// NextReceiptSeq performs the increment-and-fetch as one statement so
// concurrent callers never observe the same value, in-process or across
// processes.
func (s *Store) NextReceiptSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO receipt_counters (name, seq)
		VALUES ('receipt', 1)
		ON CONFLICT (name)
		DO UPDATE SET seq = receipt_counters.seq + 1
		RETURNING seq
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// CreateSale writes the sale record, its lines, and the per-item stock
// decrements in one transaction. The decrement is conditional
// (stock >= quantity), so when two sales race over the last units exactly
// one commits and the other rolls back with ErrInsufficientStock.
func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.ID == "" || sale.ReceiptNo == "" || len(sale.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (id, receipt_no, cashier, note, subtotal, tax, total, paid, change, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, sale.ID, sale.ReceiptNo, sale.Cashier, sale.Note, sale.Subtotal, sale.Tax, sale.Total, sale.Paid, sale.Change, sale.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for position, line := range sale.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sale_lines (sale_id, position, item_id, name, price, quantity, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, sale.ID, position, line.ItemID, line.Name, line.Price, line.Quantity, line.LineTotal)
		if err != nil {
			return nil, err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE items
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2 AND stock >= $1
		`, line.Quantity, line.ItemID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	created := sale
	return &created, nil
}

func (s *Store) ListSales(ctx context.Context, from *time.Time, to *time.Time, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, receipt_no, cashier, note, subtotal, tax, total, paid, change, created_at
		FROM sales
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
			AND ($2::timestamptz IS NULL OR created_at <= $2)
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
		ids = append(ids, sale.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.saleLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sales {
		sales[i].Items = lines[sales[i].ID]
	}
	return sales, nil
}

func (s *Store) GetSaleByReceipt(ctx context.Context, receiptNo string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, receipt_no, cashier, note, subtotal, tax, total, paid, change, created_at
		FROM sales
		WHERE receipt_no = $1
	`, receiptNo)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	lines, err := s.saleLines(ctx, []string{sale.ID})
	if err != nil {
		return nil, err
	}
	sale.Items = lines[sale.ID]
	return &sale, nil
}

func (s *Store) saleLines(ctx context.Context, saleIDs []string) (map[string][]domain.SaleLine, error) {
	result := make(map[string][]domain.SaleLine, len(saleIDs))
	if len(saleIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sale_id, item_id, name, price, quantity, line_total
		FROM sale_lines
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position
	`, saleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var saleID string
		var line domain.SaleLine
		if err := rows.Scan(&saleID, &line.ItemID, &line.Name, &line.Price, &line.Quantity, &line.LineTotal); err != nil {
			return nil, err
		}
		result[saleID] = append(result[saleID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) SellerTotals(ctx context.Context, from *time.Time, to *time.Time) ([]domain.SellerStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.item_id, COALESCE(i.name, ''), SUM(l.quantity)::bigint,
			COALESCE(i.price, 0), COALESCE(i.category, '')
		FROM sale_lines l
		JOIN sales sa ON sa.id = l.sale_id
		LEFT JOIN items i ON i.id = l.item_id
		WHERE ($1::timestamptz IS NULL OR sa.created_at >= $1)
			AND ($2::timestamptz IS NULL OR sa.created_at <= $2)
		GROUP BY l.item_id, i.name, i.price, i.category
		ORDER BY SUM(l.quantity) DESC, l.item_id ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]domain.SellerStat, 0, 32)
	for rows.Next() {
		var stat domain.SellerStat
		if err := rows.Scan(&stat.ItemID, &stat.Name, &stat.Quantity, &stat.Price, &stat.Category); err != nil {
			return nil, err
		}
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (domain.Item, error) {
	var item domain.Item
	err := row.Scan(&item.ID, &item.Name, &item.Price, &item.SKU, &item.Stock, &item.Category, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return domain.Item{}, err
	}
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}

func scanSale(row rowScanner) (domain.Sale, error) {
	var sale domain.Sale
	err := row.Scan(&sale.ID, &sale.ReceiptNo, &sale.Cashier, &sale.Note, &sale.Subtotal, &sale.Tax, &sale.Total, &sale.Paid, &sale.Change, &sale.CreatedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	return sale, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
