// Package export writes the inventory to a spreadsheet
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/thereceipt/label-engine/internal/store"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// SheetName is the worksheet holding the items
const SheetName = "Items"

// ContentType is the MIME type of the written workbook
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var headers = []string{"Name", "Barcode", "Purchase", "Profit %", "Sale", "Stock", "Stock Value", "Created"}

// WriteItems writes one row per item plus a totals row
func WriteItems(w io.Writer, items []store.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}
	// Barcodes are text so leading zeros survive
	text, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := setRow(f, 1, toCells(headers)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	var units int
	var value int64
	for i, it := range items {
		row := i + 2
		stockValue := it.SalePrice * int64(it.Stock)
		units += it.Stock
		value += stockValue

		err := setRow(f, row, []interface{}{
			it.Name,
			string(it.Code),
			labelformat.FormatPrice(it.PurchasePrice),
			float64(it.ProfitBP) / 100,
			labelformat.FormatPrice(it.SalePrice),
			it.Stock,
			labelformat.FormatPrice(stockValue),
			it.CreatedAt.Format("2006-01-02 15:04"),
		})
		if err != nil {
			return err
		}
		cell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(SheetName, cell, cell, text); err != nil {
			return fmt.Errorf("failed to style barcode: %w", err)
		}
	}

	totalRow := len(items) + 2
	if err := setRow(f, totalRow, []interface{}{"TOTAL", "", "", "", "", units, labelformat.FormatPrice(value), ""}); err != nil {
		return err
	}
	first, _ := excelize.CoordinatesToCellName(1, totalRow)
	end, _ := excelize.CoordinatesToCellName(len(headers), totalRow)
	if err := f.SetCellStyle(SheetName, first, end, bold); err != nil {
		return fmt.Errorf("failed to style totals: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "A", 32); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}
	if err := f.SetColWidth(SheetName, "B", "B", 16); err != nil {
		return fmt.Errorf("failed to size columns: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func toCells(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
