package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/thereceipt/label-engine/internal/ean13"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// Rasterize draws a module pattern at its native resolution (moduleWidth dots
// per module, quietZone white dots on each side, barHeight tall) and resamples
// it with nearest-neighbor to exactly boxWidth x boxHeight.
func Rasterize(p ean13.Pattern, moduleWidth, barHeight, quietZone, boxWidth, boxHeight int) (*Bitmap, error) {
	if moduleWidth <= 0 || barHeight <= 0 || quietZone < 0 {
		return nil, fmt.Errorf("invalid module geometry: width=%d height=%d quiet=%d", moduleWidth, barHeight, quietZone)
	}
	if boxWidth <= 0 || boxHeight <= 0 {
		return nil, fmt.Errorf("invalid barcode box %dx%d", boxWidth, boxHeight)
	}

	nativeWidth := p.Len()*moduleWidth + 2*quietZone
	native := image.NewGray(image.Rect(0, 0, nativeWidth, barHeight))
	draw.Draw(native, native.Bounds(), image.White, image.Point{}, draw.Src)

	for i, bar := range p {
		if !bar {
			continue
		}
		x0 := quietZone + i*moduleWidth
		draw.Draw(native, image.Rect(x0, 0, x0+moduleWidth, barHeight), image.Black, image.Point{}, draw.Src)
	}

	scaled := imaging.Resize(native, boxWidth, boxHeight, imaging.NearestNeighbor)
	return Threshold(scaled, 128), nil
}

func renderPrimary(code ean13.Code, spec labelformat.Spec) (*Bitmap, error) {
	pattern, err := ean13.Encode(code)
	if err != nil {
		return nil, err
	}
	if pattern.Len() != ean13.Modules {
		return nil, fmt.Errorf("pattern has %d modules, expected %d", pattern.Len(), ean13.Modules)
	}

	bm, err := Rasterize(pattern, spec.ModuleWidth, spec.BarHeight, spec.QuietZone, spec.BarcodeWidth, spec.BarcodeHeight)
	if err != nil {
		return nil, err
	}
	if bm.Width() != spec.BarcodeWidth || bm.Height() != spec.BarcodeHeight {
		return nil, fmt.Errorf("rasterized %dx%d, expected %dx%d", bm.Width(), bm.Height(), spec.BarcodeWidth, spec.BarcodeHeight)
	}
	return bm, nil
}

// renderSimplified draws one bar per digit, 1-3 units wide by digit value,
// between guard bars. It does not touch the symbol tables, so it still produces
// bars when encoding is broken, but it is not a scannable symbol.
func renderSimplified(code ean13.Code, spec labelformat.Spec) (*Bitmap, error) {
	if spec.BarcodeWidth <= 0 || spec.BarcodeHeight <= 0 {
		return nil, fmt.Errorf("invalid barcode box %dx%d", spec.BarcodeWidth, spec.BarcodeHeight)
	}
	if len(code) != ean13.CodeLength {
		return nil, fmt.Errorf("simplified bars need %d digits, got %d", ean13.CodeLength, len(code))
	}

	type run struct {
		units int
		bar   bool
	}
	guard := []run{{1, true}, {1, false}, {1, true}}

	runs := []run{{4, false}}
	runs = append(runs, guard...)
	for i, d := range code.Digits() {
		if d < 0 || d > 9 {
			return nil, fmt.Errorf("invalid digit at %d", i)
		}
		if i == 7 {
			runs = append(runs, run{1, false}, run{1, true}, run{1, false}, run{1, true})
		}
		runs = append(runs, run{2, false}, run{1 + d%3, true})
	}
	runs = append(runs, run{1, false})
	runs = append(runs, guard...)
	runs = append(runs, run{4, false})

	total := 0
	for _, r := range runs {
		total += r.units
	}
	scale := float64(spec.BarcodeWidth) / float64(total)

	bm := NewBitmap(spec.BarcodeWidth, spec.BarcodeHeight)
	pos := 0
	for _, r := range runs {
		x0 := int(math.Round(float64(pos) * scale))
		pos += r.units
		x1 := int(math.Round(float64(pos) * scale))
		if r.bar {
			if x1 == x0 {
				x1++
			}
			bm.FillRect(x0, 0, x1, spec.BarcodeHeight, true)
		}
	}
	return bm, nil
}

// renderPlaceholder draws a bordered box with "ERROR" and the resolved code.
// It cannot fail.
func renderPlaceholder(code ean13.Code, spec labelformat.Spec) *Bitmap {
	w, h := spec.BarcodeWidth, spec.BarcodeHeight
	bm := NewBitmap(w, h)
	if w <= 0 || h <= 0 {
		return bm
	}

	bm.StrokeRect(0, 0, w, h, 2)

	lineHeight := basicfont.Face7x13.Height
	if h >= 2*lineHeight+6 {
		bm.Draw(basicText("ERROR", w-4, lineHeight, AlignCenter), 2, h/2-lineHeight)
		bm.Draw(basicText(string(code), w-4, lineHeight, AlignCenter), 2, h/2)
	} else {
		bm.Draw(basicText("ERROR", w-4, h-4, AlignCenter), 2, 2)
	}
	return bm
}

// basicText draws text with the built-in 7x13 bitmap face, vertically centered
func basicText(text string, w, h int, align Align) *Bitmap {
	if w <= 0 || h <= 0 {
		return NewBitmap(w, h)
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}

	textWidth := d.MeasureString(text).Ceil()
	x := 0
	switch align {
	case AlignCenter:
		x = (w - textWidth) / 2
	case AlignRight:
		x = w - textWidth
	}
	if x < 0 {
		x = 0
	}
	baseline := (h-face.Height)/2 + face.Ascent

	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)

	return Threshold(img, 128)
}
