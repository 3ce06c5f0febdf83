package printer

import (
	"bytes"

	"github.com/thereceipt/label-engine/internal/renderer"
)

// ESC/POS control bytes
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
)

// rasterBand is the number of rows sent per GS v 0 command; some firmwares cap the height field
const rasterBand = 255

// ESCPOSEncoder builds an ESC/POS byte stream for label canvases
type ESCPOSEncoder struct {
	buffer *bytes.Buffer
}

// NewESCPOSEncoder creates a new ESC/POS encoder
func NewESCPOSEncoder() *ESCPOSEncoder {
	return &ESCPOSEncoder{
		buffer: new(bytes.Buffer),
	}
}

// Initialize resets the printer (ESC @)
func (e *ESCPOSEncoder) Initialize() {
	e.buffer.Write([]byte{ESC, '@'})
}

// PrintRaster sends a 1-bit canvas with GS v 0 in bands of at most 255 rows.
// The bitmap's packed rows are already in ESC/POS order: MSB first, set bit prints.
func (e *ESCPOSEncoder) PrintRaster(bm *renderer.Bitmap) {
	stride := bm.Stride()
	for top := 0; top < bm.Height(); top += rasterBand {
		rows := bm.Height() - top
		if rows > rasterBand {
			rows = rasterBand
		}

		e.buffer.Write([]byte{
			GS, 'v', '0', 0,
			byte(stride & 0xFF), byte((stride >> 8) & 0xFF),
			byte(rows & 0xFF), byte((rows >> 8) & 0xFF),
		})
		for y := top; y < top+rows; y++ {
			e.buffer.Write(bm.Row(y))
		}
	}
}

// Feed advances the paper by the given number of lines
func (e *ESCPOSEncoder) Feed(lines int) {
	if lines <= 0 {
		return
	}
	if lines > 255 {
		lines = 255
	}
	e.buffer.Write([]byte{ESC, 'd', byte(lines)})
}

// Cut sends a full cut (GS V 0)
func (e *ESCPOSEncoder) Cut() {
	e.buffer.Write([]byte{GS, 'V', 0})
}

// Bytes returns the generated stream
func (e *ESCPOSEncoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// Reset clears the buffer
func (e *ESCPOSEncoder) Reset() {
	e.buffer.Reset()
}

// EncodeESCPOS renders every canvas copies times, feeding between sheets and cutting at the end
func EncodeESCPOS(images []*renderer.RasterImage, copies int) []byte {
	if copies < 1 {
		copies = 1
	}

	encoder := NewESCPOSEncoder()
	encoder.Initialize()
	for _, img := range images {
		for c := 0; c < copies; c++ {
			encoder.PrintRaster(img.Pixels)
			encoder.Feed(1)
		}
	}
	encoder.Feed(3)
	encoder.Cut()
	return encoder.Bytes()
}
