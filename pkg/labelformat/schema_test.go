package labelformat

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate_ValidJob(t *testing.T) {
	job := &Job{
		Version: "1.0",
		Spec:    "standard",
		Items: []Item{
			{Name: "Brake Pad", Code: "907340314386", SalePrice: 125000},
			{Name: "Oil Filter", Code: "123", SalePrice: 45000},
		},
	}

	if err := Validate(job); err != nil {
		t.Errorf("Expected valid job, got error: %v", err)
	}
}

func TestValidate_MissingVersion(t *testing.T) {
	job := &Job{
		Items: []Item{{Name: "Brake Pad"}},
	}

	if err := Validate(job); err == nil {
		t.Error("Expected error for missing version")
	}
}

func TestValidate_UnknownSpec(t *testing.T) {
	job := &Job{
		Version: "1.0",
		Spec:    "a4",
		Items:   []Item{{Name: "Brake Pad"}},
	}

	if err := Validate(job); err == nil {
		t.Error("Expected error for unknown spec")
	}
}

func TestValidate_NoItems(t *testing.T) {
	job := &Job{
		Version: "1.0",
		Items:   []Item{},
	}

	if err := Validate(job); err == nil {
		t.Error("Expected error for no items")
	}
}

func TestValidate_TooManyItems(t *testing.T) {
	job := &Job{
		Version: "1.0",
		Items:   []Item{{Name: "A"}, {Name: "B"}, {Name: "C"}},
	}

	if err := Validate(job); err == nil {
		t.Error("Expected error for three items on a two-slot spec")
	}
}

func TestValidate_ItemRules(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{"valid", Item{Name: "Spark Plug", SalePrice: 100}, false},
		{"missing name", Item{SalePrice: 100}, true},
		{"name too long", Item{Name: "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDE"}, true},
		{"name at limit", Item{Name: "ABCDEFGHIJKLMNOPQRSTUVWXYZABCD"}, false},
		{"negative price", Item{Name: "X", SalePrice: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBuiltinSpecsAreValid(t *testing.T) {
	for _, spec := range []Spec{Standard, Compact} {
		if err := spec.Validate(); err != nil {
			t.Errorf("Expected preset %s to be valid, got %v", spec.Name, err)
		}
	}
}

func TestSpec_Validate_Geometry(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
	}{
		{"slots overflow canvas", func(s *Spec) { s.LabelWidth = 450 }},
		{"barcode wider than label", func(s *Spec) { s.BarcodeWidth = 500 }},
		{"footer below canvas", func(s *Spec) { s.FooterRowY = 190 }},
		{"zero module width", func(s *Spec) { s.ModuleWidth = 0 }},
		{"three slots", func(s *Spec) { s.Slots = 3 }},
		{"margin eats label", func(s *Spec) { s.Margin = 200 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := Standard
			tt.mutate(&spec)
			if err := spec.Validate(); err == nil {
				t.Errorf("Expected geometry error for %s", tt.name)
			}
		})
	}
}

func TestLookupSpec(t *testing.T) {
	spec, err := LookupSpec("")
	if err != nil {
		t.Fatalf("Expected default spec, got error: %v", err)
	}
	if spec.Name != "standard" {
		t.Errorf("Expected standard, got %s", spec.Name)
	}

	compact, err := LookupSpec("compact")
	if err != nil {
		t.Fatalf("Expected compact spec, got error: %v", err)
	}
	if compact.CanvasWidth != 607 || compact.LabelWidth != 303 {
		t.Errorf("Expected 607/303 compact geometry, got %d/%d", compact.CanvasWidth, compact.LabelWidth)
	}
	if compact.ContentWidth() != 283 {
		t.Errorf("Expected content width 283, got %d", compact.ContentWidth())
	}
}

func TestParsePresets_WithBase(t *testing.T) {
	data := []byte(`
presets:
  - name: wide-test
    base: standard
    barcode_width: 300
  - name: single-test
    base: compact
    slots: 1
    canvas_width: 303
`)

	loaded, err := ParsePresets(data)
	if err != nil {
		t.Fatalf("Expected presets to load, got error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 presets, got %d", len(loaded))
	}

	wide, err := LookupSpec("wide-test")
	if err != nil {
		t.Fatalf("Expected wide-test to be registered: %v", err)
	}
	if wide.BarcodeWidth != 300 {
		t.Errorf("Expected overridden barcode width 300, got %d", wide.BarcodeWidth)
	}
	if wide.CanvasWidth != Standard.CanvasWidth {
		t.Errorf("Expected canvas width inherited from standard, got %d", wide.CanvasWidth)
	}

	single, _ := LookupSpec("single-test")
	if single.Slots != 1 || single.LabelWidth != Compact.LabelWidth {
		t.Errorf("Expected single slot compact geometry, got slots=%d label=%d", single.Slots, single.LabelWidth)
	}
}

func TestParsePresets_Invalid(t *testing.T) {
	data := []byte(`
presets:
  - name: broken-test
    base: standard
    barcode_width: 900
`)

	if _, err := ParsePresets(data); err == nil {
		t.Error("Expected error for preset with oversized barcode")
	}
	if _, err := LookupSpec("broken-test"); err == nil {
		t.Error("Expected invalid preset not to be registered")
	}
}

func TestParse_Defaults(t *testing.T) {
	job, err := Parse([]byte(`{"version":"1.0","items":[{"name":"Clutch","code":"UPC-907340","sale_price":99900}]}`))
	if err != nil {
		t.Fatalf("Expected job to parse, got error: %v", err)
	}
	if job.Spec != "standard" {
		t.Errorf("Expected default spec, got %s", job.Spec)
	}
	if job.Copies != 1 {
		t.Errorf("Expected default copies 1, got %d", job.Copies)
	}
}

func TestParse_InvalidJSON(t *testing.T) {
	if _, err := Parse([]byte(`{"version":`)); err == nil {
		t.Error("Expected error for truncated JSON")
	}
}

func TestSaveAndParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.label")
	job := &Job{
		Version: "1.0",
		Spec:    "compact",
		Copies:  3,
		Items:   []Item{{Name: "Wiper", Code: "123", SalePrice: 2500, Brand: "AUTO GEEK"}},
	}

	if err := job.SaveToFile(path); err != nil {
		t.Fatalf("Failed to save job: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected file to exist: %v", err)
	}

	loaded, err := ParseFile(path)
	if err != nil {
		t.Fatalf("Failed to parse saved job: %v", err)
	}
	if loaded.Copies != 3 || loaded.Items[0].Brand != "AUTO GEEK" {
		t.Errorf("Expected saved fields to survive, got %+v", loaded)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		minor int64
		want  string
	}{
		{125000, "1250"},
		{125050, "1250.50"},
		{5, "0.05"},
		{0, "0"},
		{-250, "-2.50"},
	}

	for _, tt := range tests {
		if got := FormatPrice(tt.minor); got != tt.want {
			t.Errorf("FormatPrice(%d): expected %s, got %s", tt.minor, tt.want, got)
		}
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"1250", 125000, false},
		{"1250.5", 125050, false},
		{"1250.50", 125050, false},
		{".25", 25, false},
		{" 25 ", 2500, false},
		{"", 0, true},
		{"abc", 0, true},
		{"1.234", 0, true},
		{"1.", 0, true},
		{"-5", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAmount(%q): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}
