package labelformat

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Standard is the 2-up 40x25mm preset on an 800 pixel wide 203 DPI canvas
var Standard = Spec{
	Name:             "standard",
	CanvasWidth:      800,
	CanvasHeight:     200,
	LabelWidth:       400,
	Margin:           12,
	Slots:            2,
	BarcodeWidth:     260,
	BarcodeHeight:    60,
	ModuleWidth:      2,
	QuietZone:        10,
	BarHeight:        42,
	NameHeight:       28,
	PriceHeight:      24,
	FooterHeight:     18,
	NameRowY:         18,
	BarcodeRowY:      62,
	PriceRowY:        138,
	FooterRowY:       172,
	TitleSize:        16,
	PriceSize:        14,
	FooterSize:       10,
	DPI:              203,
	PhysicalWidthMM:  40,
	PhysicalHeightMM: 25,
	GapMM:            2,
}

// Compact is the 2-up 38x25mm preset for 76mm wide label stock
var Compact = Spec{
	Name:             "compact",
	CanvasWidth:      607,
	CanvasHeight:     200,
	LabelWidth:       303,
	Margin:           10,
	Slots:            2,
	BarcodeWidth:     200,
	BarcodeHeight:    50,
	ModuleWidth:      2,
	QuietZone:        10,
	BarHeight:        32,
	NameHeight:       24,
	PriceHeight:      20,
	FooterHeight:     16,
	NameRowY:         18,
	BarcodeRowY:      62,
	PriceRowY:        138,
	FooterRowY:       172,
	TitleSize:        16,
	PriceSize:        14,
	FooterSize:       10,
	DPI:              203,
	PhysicalWidthMM:  38,
	PhysicalHeightMM: 25,
	GapMM:            2,
}

// DefaultSpecName is used when a job does not name a preset
const DefaultSpecName = "standard"

var (
	presetsMu sync.RWMutex
	presets   = map[string]Spec{
		Standard.Name: Standard,
		Compact.Name:  Compact,
	}
)

// LookupSpec returns the preset registered under name
func LookupSpec(name string) (Spec, error) {
	if name == "" {
		name = DefaultSpecName
	}

	presetsMu.RLock()
	defer presetsMu.RUnlock()

	spec, ok := presets[name]
	if !ok {
		return Spec{}, fmt.Errorf("unknown label spec: %s", name)
	}
	return spec, nil
}

// SpecNames returns the registered preset names in sorted order
func SpecNames() []string {
	presetsMu.RLock()
	defer presetsMu.RUnlock()

	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns every registered preset, sorted by name
func Specs() []Spec {
	names := SpecNames()
	specs := make([]Spec, 0, len(names))
	for _, name := range names {
		spec, _ := LookupSpec(name)
		specs = append(specs, spec)
	}
	return specs
}

// RegisterSpec adds or replaces a preset after validating it
func RegisterSpec(spec Spec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	presetsMu.Lock()
	presets[spec.Name] = spec
	presetsMu.Unlock()
	return nil
}

// LoadPresets reads additional presets from a YAML file and registers them.
// A preset may set "base" to start from an existing preset and override fields.
func LoadPresets(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read presets file: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes and registers presets from YAML bytes
func ParsePresets(data []byte) ([]Spec, error) {
	var raw struct {
		Presets []yaml.Node `yaml:"presets"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse presets: %w", err)
	}

	loaded := make([]Spec, 0, len(raw.Presets))
	for i, node := range raw.Presets {
		var header struct {
			Name string `yaml:"name"`
			Base string `yaml:"base"`
		}
		if err := node.Decode(&header); err != nil {
			return nil, fmt.Errorf("preset[%d]: %w", i, err)
		}

		var spec Spec
		if header.Base != "" {
			base, err := LookupSpec(header.Base)
			if err != nil {
				return nil, fmt.Errorf("preset[%d] '%s': %w", i, header.Name, err)
			}
			spec = base
		}
		if err := node.Decode(&spec); err != nil {
			return nil, fmt.Errorf("preset[%d]: %w", i, err)
		}

		if err := RegisterSpec(spec); err != nil {
			return nil, fmt.Errorf("preset[%d] '%s': %w", i, spec.Name, err)
		}
		loaded = append(loaded, spec)
	}
	return loaded, nil
}
