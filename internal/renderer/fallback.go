package renderer

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Tier identifies which barcode renderer produced a slot's bars
type Tier int

const (
	// TierPrimary is the scannable EAN-13 symbol
	TierPrimary Tier = iota + 1
	// TierSecondary is the digit-driven bar drawing
	TierSecondary
	// TierPlaceholder is the bordered "ERROR" box
	TierPlaceholder
)

func (t Tier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierPlaceholder:
		return "placeholder"
	default:
		return fmt.Sprintf("tier%d", int(t))
	}
}

// TierFunc renders the barcode box for an already resolved code
type TierFunc func(code ean13.Code, spec labelformat.Spec) (*Bitmap, error)

// TierRenderer pairs a tier with its render function
type TierRenderer struct {
	Tier   Tier
	Render TierFunc
}

// DefaultTiers are the primary and secondary renderers, in order
func DefaultTiers() []TierRenderer {
	return []TierRenderer{
		{Tier: TierPrimary, Render: renderPrimary},
		{Tier: TierSecondary, Render: renderSimplified},
	}
}

// Chain tries each tier in order and falls back to the placeholder box, which
// always succeeds. The code is resolved once and every tier draws that same code.
type Chain struct {
	tiers    []TierRenderer
	logger   *log.Logger
	observer Observer
}

// ChainOption configures a Chain
type ChainOption func(*Chain)

// WithTiers replaces the tiers tried before the placeholder
func WithTiers(tiers ...TierRenderer) ChainOption {
	return func(c *Chain) {
		c.tiers = tiers
	}
}

// WithChainLogger sets the logger used for tier failures
func WithChainLogger(logger *log.Logger) ChainOption {
	return func(c *Chain) {
		c.logger = logger
	}
}

// WithChainObserver reports tier usage and failures
func WithChainObserver(o Observer) ChainOption {
	return func(c *Chain) {
		c.observer = o
	}
}

// NewChain creates a fallback chain with the default tiers
func NewChain(opts ...ChainOption) *Chain {
	c := &Chain{
		tiers:    DefaultTiers(),
		logger:   log.Default(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate resolves raw into an EAN-13 code and renders the barcode box for it.
// It never fails: the returned bitmap is always spec.BarcodeWidth x spec.BarcodeHeight.
func (c *Chain) Generate(raw string, spec labelformat.Spec) (*Bitmap, ean13.Code, Tier) {
	code := ean13.Resolve(raw)

	for _, tr := range c.tiers {
		bm, err := c.try(tr, code, spec)
		if err == nil {
			c.observer.TierUsed(spec.Name, tr.Tier)
			return bm, code, tr.Tier
		}
		c.logger.Printf("⚠️  Barcode %s tier failed for %s: %v", tr.Tier, code, err)
		c.observer.TierFailed(spec.Name, tr.Tier, err)
	}

	c.observer.TierUsed(spec.Name, TierPlaceholder)
	return renderPlaceholder(code, spec), code, TierPlaceholder
}

func (c *Chain) try(tr TierRenderer, code ean13.Code, spec labelformat.Spec) (bm *Bitmap, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Printf("❌ Barcode %s tier panicked: %v\n%s", tr.Tier, r, debug.Stack())
			bm, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	if tr.Render == nil {
		return nil, fmt.Errorf("no renderer")
	}

	bm, err = tr.Render(code, spec)
	if err != nil {
		return nil, err
	}
	if bm == nil {
		return nil, fmt.Errorf("renderer returned no image")
	}
	if bm.Width() != spec.BarcodeWidth || bm.Height() != spec.BarcodeHeight {
		return nil, fmt.Errorf("rendered %dx%d, expected %dx%d", bm.Width(), bm.Height(), spec.BarcodeWidth, spec.BarcodeHeight)
	}
	return bm, nil
}
