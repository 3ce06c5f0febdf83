package renderer

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Sheet is the set of items printed on one canvas
type Sheet []labelformat.Item

// StockSheets builds one sheet per item holding min(slots, stock) copies of it.
// Items without stock are skipped.
func StockSheets(items []labelformat.Item, slots int) []Sheet {
	if slots <= 0 {
		slots = labelformat.MaxSlots
	}

	sheets := make([]Sheet, 0, len(items))
	for _, item := range items {
		n := item.Stock
		if n > slots {
			n = slots
		}
		if n <= 0 {
			continue
		}
		sheet := make(Sheet, n)
		for i := range sheet {
			sheet[i] = item
		}
		sheets = append(sheets, sheet)
	}
	return sheets
}

// ComposeAll composes sheets in parallel on at most workers goroutines.
// Results keep the order of sheets.
func (r *Renderer) ComposeAll(ctx context.Context, sheets []Sheet, spec labelformat.Spec, workers int) ([]*RasterImage, error) {
	if workers <= 0 {
		workers = 1
	}

	out := make([]*RasterImage, len(sheets))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sheet := range sheets {
		i, sheet := i, sheet
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = r.Compose(sheet, spec)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
