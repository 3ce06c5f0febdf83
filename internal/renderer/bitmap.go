package renderer

import (
	"image"
	"image/color"
)

// Bitmap is a packed 1-bit image. Rows are Stride bytes, most significant bit
// first, and a set bit is a black dot, which is the layout thermal printers take.
type Bitmap struct {
	width  int
	height int
	stride int
	pix    []byte
}

// NewBitmap returns an all-white bitmap; negative sizes are clamped to zero
func NewBitmap(width, height int) *Bitmap {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	stride := (width + 7) / 8
	return &Bitmap{
		width:  width,
		height: height,
		stride: stride,
		pix:    make([]byte, stride*height),
	}
}

// Width in dots
func (b *Bitmap) Width() int { return b.width }

// Height in dots
func (b *Bitmap) Height() int { return b.height }

// Stride is the number of bytes per row
func (b *Bitmap) Stride() int { return b.stride }

// Pix returns the packed rows. Callers must not modify it.
func (b *Bitmap) Pix() []byte { return b.pix }

// Row returns the packed bytes of row y
func (b *Bitmap) Row(y int) []byte {
	return b.pix[y*b.stride : (y+1)*b.stride]
}

// Black reports whether the dot at (x, y) is set; out of range dots are white
func (b *Bitmap) Black(x, y int) bool {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return false
	}
	return b.pix[y*b.stride+x/8]&(0x80>>uint(x%8)) != 0
}

// Set sets or clears one dot; out of range coordinates are ignored
func (b *Bitmap) Set(x, y int, black bool) {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return
	}
	i := y*b.stride + x/8
	mask := byte(0x80 >> uint(x%8))
	if black {
		b.pix[i] |= mask
	} else {
		b.pix[i] &^= mask
	}
}

// FillRect paints the half-open rectangle [x0,x1)x[y0,y1), clipped to the bitmap
func (b *Bitmap) FillRect(x0, y0, x1, y1 int, black bool) {
	r := image.Rect(x0, y0, x1, y1).Intersect(image.Rect(0, 0, b.width, b.height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			b.Set(x, y, black)
		}
	}
}

// StrokeRect draws a border of the given thickness inside the rectangle
func (b *Bitmap) StrokeRect(x0, y0, x1, y1, thickness int) {
	b.FillRect(x0, y0, x1, y0+thickness, true)
	b.FillRect(x0, y1-thickness, x1, y1, true)
	b.FillRect(x0, y0, x0+thickness, y1, true)
	b.FillRect(x1-thickness, y0, x1, y1, true)
}

// Draw copies the black dots of src onto b with its top-left corner at (x, y).
// White dots of src leave b untouched, so overlapping text boxes do not erase each other.
func (b *Bitmap) Draw(src *Bitmap, x, y int) {
	if src == nil {
		return
	}
	for sy := 0; sy < src.height; sy++ {
		dy := y + sy
		if dy < 0 || dy >= b.height {
			continue
		}
		for sx := 0; sx < src.width; sx++ {
			if src.Black(sx, sy) {
				b.Set(x+sx, dy, true)
			}
		}
	}
}

// Clone returns a deep copy
func (b *Bitmap) Clone() *Bitmap {
	c := *b
	c.pix = append([]byte(nil), b.pix...)
	return &c
}

// Equal reports whether both bitmaps have the same size and dots
func (b *Bitmap) Equal(o *Bitmap) bool {
	if b.width != o.width || b.height != o.height {
		return false
	}
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.Black(x, y) != o.Black(x, y) {
				return false
			}
		}
	}
	return true
}

// CountBlack returns the number of set dots inside r
func (b *Bitmap) CountBlack(r image.Rectangle) int {
	r = r.Intersect(image.Rect(0, 0, b.width, b.height))
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if b.Black(x, y) {
				n++
			}
		}
	}
	return n
}

// ColorModel implements image.Image
func (b *Bitmap) ColorModel() color.Model { return color.GrayModel }

// Bounds implements image.Image
func (b *Bitmap) Bounds() image.Rectangle { return image.Rect(0, 0, b.width, b.height) }

// At implements image.Image
func (b *Bitmap) At(x, y int) color.Color {
	if b.Black(x, y) {
		return color.Gray{Y: 0}
	}
	return color.Gray{Y: 255}
}

// Threshold converts any image to a bitmap: luminance below level becomes black
func Threshold(img image.Image, level uint8) *Bitmap {
	bounds := img.Bounds()
	bm := NewBitmap(bounds.Dx(), bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if gray.Y < level {
				bm.Set(x-bounds.Min.X, y-bounds.Min.Y, true)
			}
		}
	}

	return bm
}
