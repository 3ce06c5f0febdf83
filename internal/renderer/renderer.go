// Package renderer composes EAN-13 shelf labels into 1-bit rasters for 203 DPI thermal printers
package renderer

import (
	"log"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/internal/fonts"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

const (
	// MaxNameRunes is how much of an item name fits the title row
	MaxNameRunes = 20
	// PricePrefix precedes the formatted sale price
	PricePrefix = "SALE PRICE: "
	// DefaultBrand is printed when an item has no brand of its own
	DefaultBrand = "AUTO GEEK"

	footerInset = 8
)

// SlotInfo describes what was drawn into one label slot
type SlotInfo struct {
	Index int        `json:"index"`
	Name  string     `json:"name"`
	Code  ean13.Code `json:"code"`
	Tier  Tier       `json:"tier"`
}

// RasterImage is one composed canvas
type RasterImage struct {
	Spec          string
	Width         int
	Height        int
	Pixels        *Bitmap
	ResolvedCodes []ean13.Code
	Slots         []SlotInfo
}

// Renderer converts label items to canvases. It holds no per-call state and
// is safe for concurrent use.
type Renderer struct {
	text         *TextRenderer
	chain        *Chain
	logger       *log.Logger
	observer     Observer
	defaultBrand string
	fontHandle   *fonts.Handle
	supersample  int
}

// Option configures a Renderer
type Option func(*Renderer)

// WithFont sets the font used for all label text
func WithFont(h *fonts.Handle) Option {
	return func(r *Renderer) { r.fontHandle = h }
}

// WithLogger sets the logger for fallback diagnostics
func WithLogger(l *log.Logger) Option {
	return func(r *Renderer) { r.logger = l }
}

// WithObserver receives tier and compose events
func WithObserver(o Observer) Option {
	return func(r *Renderer) { r.observer = o }
}

// WithDefaultBrand sets the footer brand for items without one
func WithDefaultBrand(brand string) Option {
	return func(r *Renderer) { r.defaultBrand = brand }
}

// WithChain replaces the barcode fallback chain
func WithChain(c *Chain) Option {
	return func(r *Renderer) { r.chain = c }
}

// WithSupersample sets the text supersampling factor
func WithSupersample(n int) Option {
	return func(r *Renderer) { r.supersample = n }
}

// New creates a renderer. Without WithFont the embedded Go Bold face is used.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		logger:       log.Default(),
		observer:     nopObserver{},
		defaultBrand: DefaultBrand,
		supersample:  DefaultSupersample,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fontHandle == nil {
		r.fontHandle = fonts.Default()
	}
	if r.chain == nil {
		r.chain = NewChain(WithChainLogger(r.logger), WithChainObserver(r.observer))
	}
	r.text = NewTextRenderer(r.fontHandle, r.supersample, r.logger)
	return r
}

// Compose draws up to spec.Slots items side by side on one canvas of exactly
// spec.CanvasWidth x spec.CanvasHeight. Unused slots stay white and extra items
// are dropped. The footer digits of each slot are the code its bars encode.
func (r *Renderer) Compose(items []labelformat.Item, spec labelformat.Spec) *RasterImage {
	start := time.Now()

	slots := spec.Slots
	if slots <= 0 {
		slots = labelformat.MaxSlots
	}
	if len(items) > slots {
		r.logger.Printf("⚠️  %d items for %d slots on %s, extra items skipped", len(items), slots, spec.Name)
		items = items[:slots]
	}

	canvas := NewBitmap(spec.CanvasWidth, spec.CanvasHeight)
	out := &RasterImage{
		Spec:          spec.Name,
		Width:         canvas.Width(),
		Height:        canvas.Height(),
		Pixels:        canvas,
		ResolvedCodes: make([]ean13.Code, 0, len(items)),
		Slots:         make([]SlotInfo, 0, len(items)),
	}

	for i, item := range items {
		info := r.composeSlot(canvas, i, item, spec)
		out.ResolvedCodes = append(out.ResolvedCodes, info.Code)
		out.Slots = append(out.Slots, info)
	}

	r.observer.Composed(spec.Name, len(items), time.Since(start))
	return out
}

func (r *Renderer) composeSlot(canvas *Bitmap, i int, item labelformat.Item, spec labelformat.Spec) SlotInfo {
	x := spec.SlotOffset(i)
	content := spec.ContentWidth()

	name := DisplayName(item.Name)
	canvas.Draw(r.text.Render(name, spec.TitleSize, content, spec.NameHeight, AlignCenter), x+spec.Margin, spec.NameRowY)

	bars, code, tier := r.chain.Generate(item.Code, spec)
	canvas.Draw(bars, x+(spec.LabelWidth-spec.BarcodeWidth)/2, spec.BarcodeRowY)

	price := PricePrefix + labelformat.FormatPrice(item.SalePrice)
	canvas.Draw(r.text.Render(price, spec.PriceSize, content, spec.PriceHeight, AlignCenter), x+spec.Margin, spec.PriceRowY)

	inset := spec.Margin + footerInset
	codeWidth := content/2 + 10
	canvas.Draw(r.text.Render(string(code), spec.FooterSize, codeWidth, spec.FooterHeight, AlignLeft), x+inset, spec.FooterRowY)

	brand := item.Brand
	if brand == "" {
		brand = r.defaultBrand
	}
	brandWidth := content/2 - 10
	canvas.Draw(r.text.Render(brand, spec.FooterSize, brandWidth, spec.FooterHeight, AlignRight), x+spec.LabelWidth-inset-brandWidth, spec.FooterRowY)

	return SlotInfo{Index: i, Name: name, Code: code, Tier: tier}
}

// DisplayName is the title row text: upper-cased, then cut to 20 characters.
// Upper-casing can lengthen a name ("ß" becomes "SS"), so it runs first.
func DisplayName(name string) string {
	runes := []rune(cases.Upper(language.Und).String(name))
	if len(runes) > MaxNameRunes {
		runes = runes[:MaxNameRunes]
	}
	return string(runes)
}
