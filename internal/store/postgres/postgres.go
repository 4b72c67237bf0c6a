package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"retailpro/backend/internal/checkout"
	"retailpro/backend/internal/domain"
	"retailpro/backend/internal/store"
	"retailpro/backend/internal/xid"
)

//go:embed schema.sql
var schema string

const productColumns = `id, name, sku, barcode, category, selling_price, cost_price, stock, min_stock, unit,
	gst_rate, manufacturing_date, expiry_date, supplier, batch_no, section, last_updated`

const transactionColumns = `id, invoice_no, subtotal, discount, gst_amount, total, payment_method,
	customer_phone, cashier_id, cashier_name, created_at`

type Store struct {
	db  *sql.DB
	now func() time.Time
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

	return NewWithDB(db), nil
}

// NewWithDB wraps an already opened handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables, the invoice counter and the append-only
// triggers. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var mfg, expiry sql.NullTime
	err := row.Scan(
		&p.ID, &p.Name, &p.SKU, &p.Barcode, &p.Category, &p.SellingPrice, &p.CostPrice,
		&p.Stock, &p.MinStock, &p.Unit, &p.GSTRate, &mfg, &expiry,
		&p.Supplier, &p.BatchNo, &p.Section, &p.LastUpdated,
	)
	if err != nil {
		return domain.Product{}, err
	}
	p.ManufacturingDate = formatDate(mfg)
	p.ExpiryDate = formatDate(expiry)
	p.LastUpdated = p.LastUpdated.UTC()
	return p, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ProductNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return listProducts(ctx, s.db)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listProducts(ctx context.Context, q queryer) ([]domain.Product, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" {
		product.ID = xid.New("P")
	}
	if product.Stock < 0 {
		return nil, store.Validationf("stock must not be negative")
	}

	created, err := scanProduct(s.db.QueryRowContext(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING `+productColumns,
		product.ID, product.Name, product.SKU, product.Barcode, product.Category,
		product.SellingPrice, product.CostPrice, product.Stock, product.MinStock, product.Unit,
		product.GSTRate, nullIfEmpty(product.ManufacturingDate), nullIfEmpty(product.ExpiryDate),
		product.Supplier, product.BatchNo, product.Section, s.now(),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.Validationf("product %s already exists", product.ID)
		}
		return nil, err
	}
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	updated, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, sku = $3, barcode = $4, category = $5, selling_price = $6, cost_price = $7,
			min_stock = $8, unit = $9, gst_rate = $10, manufacturing_date = $11, expiry_date = $12,
			supplier = $13, batch_no = $14, section = $15, last_updated = $16
		WHERE id = $1
		RETURNING `+productColumns,
		product.ID, product.Name, product.SKU, product.Barcode, product.Category,
		product.SellingPrice, product.CostPrice, product.MinStock, product.Unit, product.GSTRate,
		nullIfEmpty(product.ManufacturingDate), nullIfEmpty(product.ExpiryDate),
		product.Supplier, product.BatchNo, product.Section, s.now(),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ProductNotFound(product.ID)
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// AdjustStock applies delta with a single conditional UPDATE, so there is
// no window between reading and writing the stock counter.
func (s *Store) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, last_updated = $3
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productColumns,
		id, delta, s.now(),
	))
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify(err)
	}

	var name string
	var available int
	err = s.db.QueryRowContext(ctx, `SELECT name, stock FROM products WHERE id = $1`, id).Scan(&name, &available)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ProductNotFound(id)
	}
	if err != nil {
		return nil, err
	}
	return nil, &store.InsufficientStockError{ProductID: id, ProductName: name, Available: available, Requested: -delta}
}

// CommitSale locks each product row in id order, validates and prices
// against the locked rows, then decrements stock, takes the next invoice
// sequence from the counter row and writes the ledger rows. Everything
// happens in one SQL transaction; any error rolls it all back.
func (s *Store) CommitSale(ctx context.Context, draft domain.SaleDraft) (*domain.Transaction, error) {
	if len(draft.Lines) == 0 {
		return nil, store.ErrEmptyCart
	}
	if draft.ID == "" {
		draft.ID = xid.New("tx")
	}

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := checkout.ProductIDs(draft.Lines)
	snapshot := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		p, err := scanProduct(pgTx.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, classify(err)
		}
		snapshot[id] = p
	}

	if err := checkout.Validate(draft.Lines, snapshot); err != nil {
		return nil, err
	}
	pricing := checkout.Price(draft.Lines, snapshot, draft.Discount)

	demand := checkout.Demand(draft.Lines)
	now := s.now()
	for _, id := range ids {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, last_updated = $3
			WHERE id = $1 AND stock >= $2
		`, id, demand[id], now)
		if err != nil {
			return nil, classify(err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return nil, err
		} else if n != 1 {
			return nil, fmt.Errorf("stock for %s changed under lock: %w", id, store.ErrConcurrencyConflict)
		}
	}

	var seq int
	if err := pgTx.QueryRowContext(ctx, `
		UPDATE invoice_counters SET last_seq = last_seq + 1 WHERE id = 1 RETURNING last_seq
	`).Scan(&seq); err != nil {
		return nil, classify(err)
	}

	tx := checkout.BuildTransaction(draft, pricing, seq)
	if _, err := pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, seq, invoice_no, subtotal, discount, gst_amount, total, payment_method,
			customer_phone, cashier_id, cashier_name, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, tx.ID, seq, tx.InvoiceNo, tx.Subtotal, tx.Discount, tx.GSTAmount, tx.Total, tx.PaymentMethod,
		tx.CustomerPhone, tx.CashierID, tx.CashierName, tx.CreatedAt); err != nil {
		return nil, classify(err)
	}

	for i, item := range tx.Items {
		if _, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, line_no, product_id, product_name, quantity, unit_price, gst_rate, line_total)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, tx.ID, i+1, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.GSTRate, item.LineTotal); err != nil {
			return nil, classify(err)
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, classify(err)
	}
	return &tx, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.getTransaction(ctx, `WHERE id = $1`, id)
}

func (s *Store) GetTransactionByInvoice(ctx context.Context, invoiceNo string) (*domain.Transaction, error) {
	return s.getTransaction(ctx, `WHERE invoice_no = $1`, invoiceNo)
}

func (s *Store) getTransaction(ctx context.Context, where string, key string) (*domain.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions `+where, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, product_id, product_name, quantity, unit_price, gst_rate, line_total
		FROM transaction_items
		WHERE transaction_id = $1
		ORDER BY line_no
	`, tx.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	tx.Items = items[tx.ID]
	if tx.Items == nil {
		tx.Items = []domain.TransactionItem{}
	}
	return &tx, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return listTransactions(ctx, s.db)
}

func listTransactions(ctx context.Context, q queryer) ([]domain.Transaction, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at, seq`)
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, 256)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	itemRows, err := q.QueryContext(ctx, `
		SELECT transaction_id, product_id, product_name, quantity, unit_price, gst_rate, line_total
		FROM transaction_items
		ORDER BY transaction_id, line_no
	`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	items, err := scanItems(itemRows)
	if err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Items = items[txs[i].ID]
		if txs[i].Items == nil {
			txs[i].Items = []domain.TransactionItem{}
		}
	}
	return txs, nil
}

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var tx domain.Transaction
	err := row.Scan(
		&tx.ID, &tx.InvoiceNo, &tx.Subtotal, &tx.Discount, &tx.GSTAmount, &tx.Total, &tx.PaymentMethod,
		&tx.CustomerPhone, &tx.CashierID, &tx.CashierName, &tx.CreatedAt,
	)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return tx, err
}

func scanItems(rows *sql.Rows) (map[string][]domain.TransactionItem, error) {
	items := make(map[string][]domain.TransactionItem)
	for rows.Next() {
		var txID string
		var item domain.TransactionItem
		if err := rows.Scan(&txID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.GSTRate, &item.LineTotal); err != nil {
			return nil, err
		}
		items[txID] = append(items[txID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) AppendActivity(ctx context.Context, entry domain.ActivityLogEntry) error {
	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO activity_logs (id, actor_id, actor_name, actor_role, action, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.ActorID, entry.ActorName, entry.ActorRole, entry.Action, entry.Details, entry.Timestamp)
	return err
}

func (s *Store) ListActivity(ctx context.Context, limit int) ([]domain.ActivityLogEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_id, actor_name, actor_role, action, details, created_at
		FROM activity_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.ActivityLogEntry, 0, limit)
	for rows.Next() {
		var e domain.ActivityLogEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorName, &e.ActorRole, &e.Action, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Timestamp = e.Timestamp.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Snapshot reads catalog and ledger inside one REPEATABLE READ transaction
// so both lists reflect the same committed state.
func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return store.Snapshot{}, err
	}
	defer func() { _ = pgTx.Rollback() }()

	products, err := listProducts(ctx, pgTx)
	if err != nil {
		return store.Snapshot{}, err
	}
	txs, err := listTransactions(ctx, pgTx)
	if err != nil {
		return store.Snapshot{}, err
	}
	if err := pgTx.Commit(); err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Products: products, Transactions: txs}, nil
}

// classify maps serialization failures, deadlocks and invoice collisions
// onto ErrConcurrencyConflict so the caller can retry the whole sale. An
// out-of-range stock sum becomes a validation error.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%s: %w", pgErr.Message, store.ErrConcurrencyConflict)
		case "23505":
			return fmt.Errorf("%s: %w", pgErr.ConstraintName, store.ErrConcurrencyConflict)
		case "22003":
			return store.Validationf("%s", pgErr.Message)
		}
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func formatDate(val sql.NullTime) string {
	if !val.Valid {
		return ""
	}
	return val.Time.Format(domain.DateLayout)
}
