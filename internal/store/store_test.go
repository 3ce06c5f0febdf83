package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thereceipt/label-engine/internal/ean13"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "labels.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func validItem(name string) NewItem {
	return NewItem{Name: name, PurchasePrice: 100000, ProfitBP: 2500, Stock: 3}
}

func TestAdd_GeneratesValidCode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	it, err := s.Add(ctx, validItem("Brake Pad"))
	require.NoError(t, err)

	assert.True(t, it.Code.Valid(), "generated code %q must be a valid EAN-13", it.Code)
	assert.Equal(t, int64(125000), it.SalePrice)
	assert.NotZero(t, it.ID)
}

func TestAdd_ResolvesRawCode(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := validItem("Oil Filter")
	n.Code = "907340314386"
	it, err := s.Add(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("9073403143866"), it.Code)

	n = validItem("Spark Plug")
	n.Code = "UPC-907340"
	it, err = s.Add(ctx, n)
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("0000009073401"), it.Code)
}

func TestAdd_Duplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n := validItem("Mirror")
	n.Code = "123"
	_, err := s.Add(ctx, n)
	require.NoError(t, err)

	_, err = s.Add(ctx, n)
	assert.ErrorIs(t, err, ErrDuplicate)

	other := validItem("Mirror Left")
	other.Code = "0000000001236"
	_, err = s.Add(ctx, other)
	assert.ErrorIs(t, err, ErrDuplicate, "same resolved code must collide")

	_, err = s.Add(ctx, validItem("Mirror"))
	assert.ErrorIs(t, err, ErrDuplicate, "taken name with a generated code")
}

func TestNewItem_Validate(t *testing.T) {
	tests := []struct {
		name string
		item NewItem
		ok   bool
	}{
		{"valid", validItem("Horn"), true},
		{"empty name", NewItem{Name: "  ", PurchasePrice: 1, Stock: 1}, false},
		{"long name", NewItem{Name: "abcdefghijabcdefghijabcdefghijX", PurchasePrice: 1, Stock: 1}, false},
		{"zero purchase", NewItem{Name: "x", Stock: 1}, false},
		{"negative profit", NewItem{Name: "x", PurchasePrice: 1, ProfitBP: -1, Stock: 1}, false},
		{"huge profit", NewItem{Name: "x", PurchasePrice: 1, ProfitBP: MaxProfitBP + 1, Stock: 1}, false},
		{"sale below purchase", NewItem{Name: "x", PurchasePrice: 10, SalePrice: 5, Stock: 1}, false},
		{"zero stock", NewItem{Name: "x", PurchasePrice: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.item
			err := n.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSalePrice(t *testing.T) {
	assert.Equal(t, int64(125000), SalePrice(100000, 2500))
	assert.Equal(t, int64(100), SalePrice(100, 0))
	assert.Equal(t, int64(2), SalePrice(1, 5000), "half rounds up")
}

func TestGetListDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Wiper", "Bulb", "Fuse"} {
		_, err := s.Add(ctx, validItem(name))
		require.NoError(t, err)
	}

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Bulb", items[0].Name)

	got, err := s.Get(ctx, "Fuse")
	require.NoError(t, err)
	byCode, err := s.GetByCode(ctx, string(got.Code))
	require.NoError(t, err)
	assert.Equal(t, got.ID, byCode.ID)

	require.NoError(t, s.Delete(ctx, "Fuse"))
	_, err = s.Get(ctx, "Fuse")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "Fuse"), ErrNotFound)
}

func TestUpdateStockAndTotals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, validItem("Belt"))
	require.NoError(t, err)
	require.NoError(t, s.UpdateStock(ctx, "Belt", 10))
	assert.Error(t, s.UpdateStock(ctx, "Belt", -1))
	assert.ErrorIs(t, s.UpdateStock(ctx, "Chain", 1), ErrNotFound)

	totals, err := s.InventoryValue(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Items: 1, Units: 10, CostValue: 1000000, SaleValue: 1250000}, totals)
}

func TestRecordPrinted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, validItem("Jack"))
	require.NoError(t, err)

	require.NoError(t, s.RecordPrinted(ctx, "Jack", "9073403143866"))
	it, err := s.Get(ctx, "Jack")
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("9073403143866"), it.Code)
	assert.NotNil(t, it.PrintedAt)

	assert.Error(t, s.RecordPrinted(ctx, "Jack", "12345"))
}

func TestMigrate_FixesLegacyCodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.Add(ctx, validItem("Clamp"))
	require.NoError(t, err)
	_, err = s.db.ExecContext(ctx, `UPDATE items SET code = ? WHERE name = ?`, "UPC-907340", "Clamp")
	require.NoError(t, err)

	fixed, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	it, err := s.Get(ctx, "Clamp")
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("0000009073401"), it.Code)

	fixed, err = s.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestMigrate_CollidingLegacyCodes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Bolt", "Nut", "Washer", "Spring"} {
		_, err := s.Add(ctx, validItem(name))
		require.NoError(t, err)
	}
	set := func(name, code string) {
		_, err := s.db.ExecContext(ctx, `UPDATE items SET code = ? WHERE name = ?`, code, name)
		require.NoError(t, err)
	}
	// "123" and "0123" both resolve to 0000000001236
	set("Bolt", "123")
	set("Nut", "0123")
	// a stale check digit next to the valid form of the same payload
	set("Washer", "9073403143866")
	set("Spring", "9073403143860")

	fixed, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fixed)

	bolt, err := s.Get(ctx, "Bolt")
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("0000000001236"), bolt.Code)

	washer, err := s.Get(ctx, "Washer")
	require.NoError(t, err)
	assert.Equal(t, ean13.Code("9073403143866"), washer.Code)

	seen := map[ean13.Code]bool{}
	items, err := s.List(ctx)
	require.NoError(t, err)
	for _, it := range items {
		assert.True(t, it.Code.Valid(), it.Name)
		assert.False(t, seen[it.Code], "duplicate code %s", it.Code)
		seen[it.Code] = true
	}

	fixed, err = s.Migrate(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}

func TestItem_Label(t *testing.T) {
	it := Item{Name: "Hose", Code: "9073403143866", SalePrice: 5000, Brand: "ACME", Stock: 2}
	l := it.Label()
	assert.Equal(t, "Hose", l.Name)
	assert.Equal(t, "9073403143866", l.Code)
	assert.Equal(t, int64(5000), l.SalePrice)
	assert.Equal(t, 2, l.Stock)
}
