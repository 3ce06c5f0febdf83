package labelformat

import (
	"fmt"
	"unicode/utf8"
)

// MaxSlots is the widest layout supported on one canvas
const MaxSlots = 2

// Validate checks that every box of the spec fits inside its label slot and the canvas
func (s Spec) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("spec name is required")
	}
	if s.CanvasWidth <= 0 || s.CanvasHeight <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", s.CanvasWidth, s.CanvasHeight)
	}
	if s.Slots < 1 || s.Slots > MaxSlots {
		return fmt.Errorf("invalid slots: %d (must be 1 or 2)", s.Slots)
	}
	if s.LabelWidth <= 0 || s.LabelWidth*s.Slots > s.CanvasWidth {
		return fmt.Errorf("invalid label_width: %d (%d slots must fit canvas width %d)", s.LabelWidth, s.Slots, s.CanvasWidth)
	}
	if s.Margin < 0 || s.ContentWidth() <= 0 {
		return fmt.Errorf("invalid margin: %d", s.Margin)
	}
	if s.ModuleWidth <= 0 || s.QuietZone < 0 || s.BarHeight <= 0 {
		return fmt.Errorf("invalid barcode modules: width=%d quiet=%d bar_height=%d", s.ModuleWidth, s.QuietZone, s.BarHeight)
	}
	if s.BarcodeWidth <= 0 || s.BarcodeWidth > s.LabelWidth {
		return fmt.Errorf("invalid barcode_width: %d", s.BarcodeWidth)
	}
	if s.DPI <= 0 {
		return fmt.Errorf("invalid dpi: %d", s.DPI)
	}

	rows := []struct {
		name   string
		y      int
		height int
	}{
		{"name", s.NameRowY, s.NameHeight},
		{"barcode", s.BarcodeRowY, s.BarcodeHeight},
		{"price", s.PriceRowY, s.PriceHeight},
		{"footer", s.FooterRowY, s.FooterHeight},
	}
	for _, row := range rows {
		if row.height <= 0 {
			return fmt.Errorf("invalid %s row height: %d", row.name, row.height)
		}
		if row.y < 0 || row.y+row.height > s.CanvasHeight {
			return fmt.Errorf("%s row (y=%d, height=%d) exceeds canvas height %d", row.name, row.y, row.height, s.CanvasHeight)
		}
	}

	if s.TitleSize <= 0 || s.PriceSize <= 0 || s.FooterSize <= 0 {
		return fmt.Errorf("font sizes must be positive")
	}
	return nil
}

// MaxNameLength is the longest item name accepted by the item store
const MaxNameLength = 30

// Validate checks a single label item
func (it Item) Validate() error {
	if it.Name == "" {
		return fmt.Errorf("item name is required")
	}
	if utf8.RuneCountInString(it.Name) > MaxNameLength {
		return fmt.Errorf("item name too long: %d characters (max %d)", utf8.RuneCountInString(it.Name), MaxNameLength)
	}
	if it.SalePrice < 0 {
		return fmt.Errorf("invalid sale_price: %d", it.SalePrice)
	}
	return nil
}

// Validate validates a Job structure
func Validate(j *Job) error {
	if j.Version == "" {
		return fmt.Errorf("version is required")
	}
	if j.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected 1.0)", j.Version)
	}

	spec, err := LookupSpec(j.Spec)
	if err != nil {
		return err
	}

	if len(j.Items) == 0 {
		return fmt.Errorf("at least one item is required")
	}
	if len(j.Items) > spec.Slots {
		return fmt.Errorf("too many items: %d (spec %s holds %d per sheet)", len(j.Items), spec.Name, spec.Slots)
	}
	for i, item := range j.Items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item[%d]: %w", i, err)
		}
	}

	if j.Copies < 0 {
		return fmt.Errorf("invalid copies: %d", j.Copies)
	}
	return nil
}
