// Package labelformat defines the label geometry presets, label items and the .label job file format
package labelformat

// Spec describes the pixel geometry of one print canvas holding up to Slots labels side by side.
// Presets differ only in these values; rendering code never branches on the preset name.
type Spec struct {
	Name string `json:"name" yaml:"name"`

	CanvasWidth  int `json:"canvas_width" yaml:"canvas_width"`
	CanvasHeight int `json:"canvas_height" yaml:"canvas_height"`
	LabelWidth   int `json:"label_width" yaml:"label_width"`
	Margin       int `json:"margin" yaml:"margin"`
	Slots        int `json:"slots" yaml:"slots"`

	BarcodeWidth  int `json:"barcode_width" yaml:"barcode_width"`
	BarcodeHeight int `json:"barcode_height" yaml:"barcode_height"`
	ModuleWidth   int `json:"module_width" yaml:"module_width"`
	QuietZone     int `json:"quiet_zone" yaml:"quiet_zone"`
	BarHeight     int `json:"bar_height" yaml:"bar_height"`

	NameHeight   int `json:"name_height" yaml:"name_height"`
	PriceHeight  int `json:"price_height" yaml:"price_height"`
	FooterHeight int `json:"footer_height" yaml:"footer_height"`

	NameRowY    int `json:"name_row_y" yaml:"name_row_y"`
	BarcodeRowY int `json:"barcode_row_y" yaml:"barcode_row_y"`
	PriceRowY   int `json:"price_row_y" yaml:"price_row_y"`
	FooterRowY  int `json:"footer_row_y" yaml:"footer_row_y"`

	TitleSize  float64 `json:"title_size" yaml:"title_size"`
	PriceSize  float64 `json:"price_size" yaml:"price_size"`
	FooterSize float64 `json:"footer_size" yaml:"footer_size"`

	DPI              int     `json:"dpi" yaml:"dpi"`
	PhysicalWidthMM  float64 `json:"physical_width_mm,omitempty" yaml:"physical_width_mm,omitempty"`
	PhysicalHeightMM float64 `json:"physical_height_mm,omitempty" yaml:"physical_height_mm,omitempty"`
	GapMM            float64 `json:"gap_mm,omitempty" yaml:"gap_mm,omitempty"`
}

// ContentWidth is the usable width of one label slot
func (s Spec) ContentWidth() int {
	return s.LabelWidth - 2*s.Margin
}

// SlotOffset returns the x coordinate of slot i
func (s Spec) SlotOffset(i int) int {
	return i * s.LabelWidth
}

// Item is one label's worth of data
type Item struct {
	Name      string `json:"name"`
	Code      string `json:"code"`       // raw, untrusted product code
	SalePrice int64  `json:"sale_price"` // minor currency units
	Brand     string `json:"brand,omitempty"`
	Stock     int    `json:"stock,omitempty"`
}

// Job represents the root structure of a .label file
type Job struct {
	Version string `json:"version"`
	Spec    string `json:"spec,omitempty"` // preset name, defaults to "standard"
	Copies  int    `json:"copies,omitempty"`
	Items   []Item `json:"items"`
}
