// Package store persists inventory items and the EAN-13 codes printed for them in SQLite
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mattn/go-sqlite3"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

var (
	// ErrNotFound is returned when no item matches
	ErrNotFound = errors.New("item not found")
	// ErrDuplicate is returned when the name or code is already taken
	ErrDuplicate = errors.New("item name or barcode already exists")
)

// MaxProfitBP caps the markup at 1000%
const MaxProfitBP = 100000

// generateAttempts bounds retries when a random code collides
const generateAttempts = 5

const schema = `
CREATE TABLE IF NOT EXISTS items (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT    NOT NULL UNIQUE,
	code           TEXT    NOT NULL UNIQUE,
	purchase_price INTEGER NOT NULL CHECK (purchase_price > 0),
	profit_bp      INTEGER NOT NULL DEFAULT 0,
	sale_price     INTEGER NOT NULL,
	stock          INTEGER NOT NULL CHECK (stock >= 0),
	brand          TEXT    NOT NULL DEFAULT '',
	created_at     TIMESTAMP NOT NULL,
	printed_at     TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_code ON items(code);
`

// Item is a stored inventory item. Code is always a valid 13-digit EAN-13.
type Item struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Code          ean13.Code `json:"code"`
	PurchasePrice int64      `json:"purchase_price"` // minor units
	ProfitBP      int64      `json:"profit_bp"`      // basis points
	SalePrice     int64      `json:"sale_price"`     // minor units
	Stock         int        `json:"stock"`
	Brand         string     `json:"brand,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PrintedAt     *time.Time `json:"printed_at,omitempty"`
}

// Label converts the item into label input
func (it Item) Label() labelformat.Item {
	return labelformat.Item{
		Name:      it.Name,
		Code:      string(it.Code),
		SalePrice: it.SalePrice,
		Brand:     it.Brand,
		Stock:     it.Stock,
	}
}

// NewItem is the input for Add. An empty Code generates a random one and a
// zero SalePrice is derived from PurchasePrice and ProfitBP.
type NewItem struct {
	Name          string `json:"name"`
	Code          string `json:"code,omitempty"`
	PurchasePrice int64  `json:"purchase_price"`
	ProfitBP      int64  `json:"profit_bp"`
	SalePrice     int64  `json:"sale_price,omitempty"`
	Stock         int    `json:"stock"`
	Brand         string `json:"brand,omitempty"`
}

// Validate applies the inventory rules
func (n *NewItem) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if utf8.RuneCountInString(n.Name) > labelformat.MaxNameLength {
		return fmt.Errorf("item name must be %d characters or less", labelformat.MaxNameLength)
	}
	if n.PurchasePrice <= 0 {
		return fmt.Errorf("purchase price must be greater than zero")
	}
	if n.ProfitBP < 0 || n.ProfitBP > MaxProfitBP {
		return fmt.Errorf("profit must be between 0%% and %d%%", MaxProfitBP/100)
	}
	if n.SalePrice == 0 {
		n.SalePrice = SalePrice(n.PurchasePrice, n.ProfitBP)
	}
	if n.SalePrice < n.PurchasePrice {
		return fmt.Errorf("sale price cannot be less than purchase price")
	}
	if n.Stock <= 0 {
		return fmt.Errorf("stock quantity must be greater than zero")
	}
	return nil
}

// SalePrice applies a markup in basis points, rounding half up
func SalePrice(purchase, profitBP int64) int64 {
	return (purchase*(10000+profitBP) + 5000) / 10000
}

// Store wraps the SQLite database
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open item database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Add stores a new item. The code is canonicalized and completed exactly as the
// label renderer does, so the stored code is the printed code.
func (s *Store) Add(ctx context.Context, n NewItem) (*Item, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	generated := strings.TrimSpace(n.Code) == ""
	for attempt := 0; attempt < generateAttempts; attempt++ {
		var code ean13.Code
		if generated {
			payload, err := randomPayload()
			if err != nil {
				return nil, err
			}
			code = ean13.Complete(payload)
		} else {
			code = ean13.Resolve(n.Code)
		}

		item, err := s.insert(ctx, n, code)
		if errors.Is(err, ErrDuplicate) && generated && !s.nameTaken(ctx, n.Name) {
			continue
		}
		return item, err
	}
	return nil, fmt.Errorf("failed to generate a unique barcode")
}

func (s *Store) nameTaken(ctx context.Context, name string) bool {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE name = ?`, name).Scan(&n)
	return err == nil && n > 0
}

func (s *Store) insert(ctx context.Context, n NewItem, code ean13.Code) (*Item, error) {
	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO items (name, code, purchase_price, profit_bp, sale_price, stock, brand, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Name, string(code), n.PurchasePrice, n.ProfitBP, n.SalePrice, n.Stock, n.Brand, now)
	if err != nil {
		return nil, wrapConstraint(err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read item id: %w", err)
	}

	return &Item{
		ID:            id,
		Name:          n.Name,
		Code:          code,
		PurchasePrice: n.PurchasePrice,
		ProfitBP:      n.ProfitBP,
		SalePrice:     n.SalePrice,
		Stock:         n.Stock,
		Brand:         n.Brand,
		CreatedAt:     now,
	}, nil
}

const selectItem = `SELECT id, name, code, purchase_price, profit_bp, sale_price, stock, brand, created_at, printed_at FROM items`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row scanner) (*Item, error) {
	var (
		it      Item
		code    string
		printed sql.NullTime
	)
	if err := row.Scan(&it.ID, &it.Name, &code, &it.PurchasePrice, &it.ProfitBP, &it.SalePrice, &it.Stock, &it.Brand, &it.CreatedAt, &printed); err != nil {
		return nil, err
	}
	it.Code = ean13.Code(code)
	if printed.Valid {
		t := printed.Time
		it.PrintedAt = &t
	}
	return &it, nil
}

// Get returns the item with the given name
func (s *Store) Get(ctx context.Context, name string) (*Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, selectItem+` WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return it, nil
}

// GetByCode returns the item printed with the given code; any raw form of the code matches
func (s *Store) GetByCode(ctx context.Context, raw string) (*Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx, selectItem+` WHERE code = ?`, string(ean13.Resolve(raw))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	return it, nil
}

// List returns all items ordered by name
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, selectItem+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// Delete removes an item by name
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return expectOne(res)
}

// UpdateStock sets the stock quantity of an item
func (s *Store) UpdateStock(ctx context.Context, name string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock quantity cannot be negative")
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items SET stock = ? WHERE name = ?`, stock, name)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}
	return expectOne(res)
}

// RecordPrinted stores the code a label was printed with and the print time
func (s *Store) RecordPrinted(ctx context.Context, name string, code ean13.Code) error {
	if !code.Valid() {
		return fmt.Errorf("refusing to store invalid code %q", code)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE items SET code = ?, printed_at = ? WHERE name = ?`,
		string(code), time.Now().UTC().Truncate(time.Second), name)
	if err != nil {
		return wrapConstraint(err)
	}
	return expectOne(res)
}

// Migrate rewrites stored codes that are not valid 13-digit EAN-13 codes
// (legacy rows, hand edits) to their resolved form. It returns the number fixed.
// When a resolved code is already taken, by a stored code or an earlier fix,
// the row gets a freshly generated code instead.
func (s *Store) Migrate(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code FROM items ORDER BY id`)
	if err != nil {
		return 0, fmt.Errorf("failed to scan codes: %w", err)
	}

	type fix struct {
		id   int64
		code ean13.Code
	}
	var fixes []fix
	taken := make(map[ean13.Code]bool)
	for rows.Next() {
		var (
			id   int64
			code string
		)
		if err := rows.Scan(&id, &code); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to read code: %w", err)
		}
		if ean13.Code(code).Valid() {
			taken[ean13.Code(code)] = true
		} else {
			fixes = append(fixes, fix{id: id, code: ean13.Resolve(code)})
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(fixes) == 0 {
		return 0, nil
	}

	for i := range fixes {
		if !taken[fixes[i].code] {
			taken[fixes[i].code] = true
			continue
		}
		fresh, err := freeCode(taken)
		if err != nil {
			return 0, err
		}
		log.Printf("⚠️  Item %d: code %s already in use, assigned %s", fixes[i].id, fixes[i].code, fresh)
		fixes[i].code = fresh
		taken[fresh] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for _, f := range fixes {
		if _, err := tx.ExecContext(ctx, `UPDATE items SET code = ? WHERE id = ?`, string(f.code), f.id); err != nil {
			return 0, fmt.Errorf("failed to migrate item %d: %w", f.id, wrapConstraint(err))
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit migration: %w", err)
	}
	return len(fixes), nil
}

// freeCode generates a code not present in taken
func freeCode(taken map[ean13.Code]bool) (ean13.Code, error) {
	for attempt := 0; attempt < generateAttempts; attempt++ {
		payload, err := randomPayload()
		if err != nil {
			return "", err
		}
		if code := ean13.Complete(payload); !taken[code] {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a free barcode")
}

// Totals summarizes inventory value in minor units
type Totals struct {
	Items     int   `json:"items"`
	Units     int64 `json:"units"`
	CostValue int64 `json:"cost_value"`
	SaleValue int64 `json:"sale_value"`
}

// InventoryValue sums stock at purchase and sale prices
func (s *Store) InventoryValue(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(stock), 0),
		COALESCE(SUM(purchase_price * stock), 0), COALESCE(SUM(sale_price * stock), 0) FROM items`).
		Scan(&t.Items, &t.Units, &t.CostValue, &t.SaleValue)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to total inventory: %w", err)
	}
	return t, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read result: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func wrapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicate
	}
	return fmt.Errorf("failed to save item: %w", err)
}

func randomPayload() (ean13.Canonical, error) {
	var b strings.Builder
	for i := 0; i < ean13.PayloadLength; i++ {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate barcode: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return ean13.Canonical(b.String()), nil
}
