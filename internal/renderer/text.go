package renderer

import (
	"image/color"
	"log"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/thereceipt/label-engine/internal/fonts"
)

// Align is the horizontal placement of text inside its box
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
	AlignRight
)

// ParseAlign accepts "left", "center" and "right"; anything else is left
func ParseAlign(s string) Align {
	switch strings.ToLower(s) {
	case "center", "centre":
		return AlignCenter
	case "right":
		return AlignRight
	default:
		return AlignLeft
	}
}

const (
	// DefaultSupersample is the factor text is drawn at before downscaling
	DefaultSupersample = 4
	// MinSupersample and MaxSupersample bound the factor; larger values only cost memory
	MinSupersample = 2
	MaxSupersample = 4
	// DefaultTextThreshold keeps antialiased stroke edges black so small text stays bold
	DefaultTextThreshold = 150
	minFontSize          = 6
)

// TextRenderer draws single lines of text into fixed 1-bit boxes
type TextRenderer struct {
	font        *fonts.Handle
	supersample int
	threshold   uint8
	logger      *log.Logger
}

// NewTextRenderer creates a text renderer. A nil font uses the built-in bitmap face.
// supersample is clamped to [MinSupersample, MaxSupersample]; zero means the default.
func NewTextRenderer(h *fonts.Handle, supersample int, logger *log.Logger) *TextRenderer {
	switch {
	case supersample <= 0:
		supersample = DefaultSupersample
	case supersample < MinSupersample:
		supersample = MinSupersample
	case supersample > MaxSupersample:
		supersample = MaxSupersample
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TextRenderer{
		font:        h,
		supersample: supersample,
		threshold:   DefaultTextThreshold,
		logger:      logger,
	}
}

// Render draws text of the given pixel size into a w x h box, vertically centered.
// Text wider than the box is shrunk until it fits. It never fails: if the font
// cannot be used the built-in 7x13 face is drawn instead.
func (t *TextRenderer) Render(text string, size float64, w, h int, align Align) *Bitmap {
	if w <= 0 || h <= 0 || text == "" {
		return NewBitmap(w, h)
	}

	if t.font != nil {
		bm, err := t.renderFont(text, size, w, h, align)
		if err == nil {
			return bm
		}
		t.logger.Printf("⚠️  Font %s unavailable, using built-in face: %v", t.font.Name(), err)
	}
	return basicText(text, w, h, align)
}

func (t *TextRenderer) renderFont(text string, size float64, w, h int, align Align) (*Bitmap, error) {
	s := t.supersample
	sw, sh := w*s, h*s

	face, err := t.fit(text, size*float64(s), float64(sw))
	if err != nil {
		return nil, err
	}
	defer face.Close()

	dc := gg.NewContext(sw, sh)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	dc.SetFontFace(face)

	var x, ax float64
	switch align {
	case AlignCenter:
		x, ax = float64(sw)/2, 0.5
	case AlignRight:
		x, ax = float64(sw), 1
	default:
		x, ax = 0, 0
	}
	dc.DrawStringAnchored(text, x, float64(sh)/2, ax, 0.5)

	if s == 1 {
		return Threshold(dc.Image(), t.threshold), nil
	}
	small := imaging.Resize(dc.Image(), w, h, imaging.Lanczos)
	return Threshold(small, t.threshold), nil
}

// fit returns the largest face no bigger than size whose advance fits maxWidth
func (t *TextRenderer) fit(text string, size, maxWidth float64) (font.Face, error) {
	floor := float64(minFontSize * t.supersample)
	for {
		face, err := t.font.Face(size)
		if err != nil {
			return nil, err
		}
		width := float64(font.MeasureString(face, text).Ceil())
		if width <= maxWidth || size*0.9 < floor {
			return face, nil
		}
		face.Close()
		size *= 0.9
	}
}
