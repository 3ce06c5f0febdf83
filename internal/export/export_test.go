package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/thereceipt/label-engine/internal/store"
)

func TestWriteItems(t *testing.T) {
	items := []store.Item{
		{Name: "Brake Pad", Code: "0000000001236", PurchasePrice: 100000, ProfitBP: 2500, SalePrice: 125000, Stock: 2, CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
		{Name: "Fuse", Code: "9073403143866", PurchasePrice: 1000, ProfitBP: 5000, SalePrice: 1500, Stock: 10, CreatedAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, items))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, headers, rows[0])
	assert.Equal(t, "0000000001236", rows[1][1], "leading zeros must survive")
	assert.Equal(t, "1250", rows[1][4])
	assert.Equal(t, "2500", rows[1][6])
	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "12", rows[3][5])
	assert.Equal(t, "2650", rows[3][6])
}

func TestWriteItems_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteItems(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "TOTAL", rows[1][0])
}
