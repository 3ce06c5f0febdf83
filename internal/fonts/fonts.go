// Package fonts loads the TrueType/OpenType fonts used for label text
package fonts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
)

// SystemFonts are the bold sans faces tried by Discover, most legible first
var SystemFonts = []string{
	"/System/Library/Fonts/Supplemental/Arial Bold.ttf",
	"/System/Library/Fonts/Helvetica.ttc",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"C:\\Windows\\Fonts\\arialbd.ttf",
	"C:\\Windows\\Fonts\\arial.ttf",
}

// Handle is a parsed font. It is safe for concurrent use: every call to Face
// returns a fresh face, and faces must not be shared between goroutines.
type Handle struct {
	name string
	font *opentype.Font
}

// Name returns the file or family name the handle was loaded from
func (h *Handle) Name() string {
	return h.name
}

// Face builds a face of the given pixel size
func (h *Handle) Face(size float64) (font.Face, error) {
	if h == nil || h.font == nil {
		return nil, fmt.Errorf("no font loaded")
	}
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size: %v", size)
	}

	face, err := opentype.NewFace(h.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	return face, nil
}

// FromBytes parses a .ttf/.otf file, or the first font of a .ttc collection
func FromBytes(name string, data []byte) (*Handle, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		collection, cerr := opentype.ParseCollection(data)
		if cerr != nil {
			return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
		}
		if collection.NumFonts() == 0 {
			return nil, fmt.Errorf("font collection %s is empty", name)
		}
		f, err = collection.Font(0)
		if err != nil {
			return nil, fmt.Errorf("failed to read font %s from collection: %w", name, err)
		}
	}
	return &Handle{name: name, font: f}, nil
}

// Load reads a font file from disk
func Load(path string) (*Handle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	return FromBytes(filepath.Base(path), data)
}

// Default returns the embedded Go Bold face, which is always available
func Default() *Handle {
	h, err := FromBytes("Go Bold", gobold.TTF)
	if err != nil {
		// gobold.TTF is compiled in; failing to parse it is a build defect.
		panic(err)
	}
	return h
}

// Discover returns the first loadable font from preferred, then SystemFonts,
// then the embedded default.
func Discover(preferred ...string) *Handle {
	candidates := make([]string, 0, len(preferred)+len(SystemFonts))
	for _, p := range preferred {
		if strings.TrimSpace(p) != "" {
			candidates = append(candidates, p)
		}
	}
	candidates = append(candidates, SystemFonts...)

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if h, err := Load(path); err == nil {
			return h
		}
	}
	return Default()
}
