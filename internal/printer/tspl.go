package printer

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/thereceipt/label-engine/internal/renderer"
	"github.com/thereceipt/label-engine/pkg/labelformat"
)

// TSPLEncoder builds TSPL commands, the language spoken by most 203 DPI label printers
type TSPLEncoder struct {
	buffer *bytes.Buffer
}

// NewTSPLEncoder creates a new TSPL encoder
func NewTSPLEncoder() *TSPLEncoder {
	return &TSPLEncoder{buffer: new(bytes.Buffer)}
}

func (e *TSPLEncoder) command(format string, args ...interface{}) {
	fmt.Fprintf(e.buffer, format, args...)
	e.buffer.WriteString("\r\n")
}

// Setup declares the media size and gap in millimetres and clears the image buffer
func (e *TSPLEncoder) Setup(widthMM, heightMM, gapMM float64) {
	e.command("SIZE %s mm,%s mm", mm(widthMM), mm(heightMM))
	e.command("GAP %s mm,0 mm", mm(gapMM))
	e.command("DIRECTION 1")
	e.command("CLS")
}

// Bitmap places a 1-bit canvas at (x, y). TSPL prints cleared bits, so rows are inverted.
func (e *TSPLEncoder) Bitmap(x, y int, bm *renderer.Bitmap) {
	fmt.Fprintf(e.buffer, "BITMAP %d,%d,%d,%d,0,", x, y, bm.Stride(), bm.Height())
	for row := 0; row < bm.Height(); row++ {
		for _, b := range bm.Row(row) {
			e.buffer.WriteByte(^b)
		}
	}
	e.buffer.WriteString("\r\n")
}

// Print prints the buffered label copies times
func (e *TSPLEncoder) Print(copies int) {
	if copies < 1 {
		copies = 1
	}
	e.command("PRINT 1,%d", copies)
}

// Bytes returns the generated stream
func (e *TSPLEncoder) Bytes() []byte {
	return e.buffer.Bytes()
}

// EncodeTSPL emits one SIZE/CLS/BITMAP/PRINT block per canvas
func EncodeTSPL(images []*renderer.RasterImage, spec labelformat.Spec, copies int) []byte {
	encoder := NewTSPLEncoder()
	widthMM := dotsToMM(spec.CanvasWidth, spec.DPI)
	heightMM := dotsToMM(spec.CanvasHeight, spec.DPI)

	for _, img := range images {
		encoder.Setup(widthMM, heightMM, spec.GapMM)
		encoder.Bitmap(0, 0, img.Pixels)
		encoder.Print(copies)
	}
	return encoder.Bytes()
}

// Encode serializes canvases for the given printer protocol
func Encode(protocol string, images []*renderer.RasterImage, spec labelformat.Spec, copies int) ([]byte, error) {
	switch protocol {
	case "", ProtocolESCPOS:
		return EncodeESCPOS(images, copies), nil
	case ProtocolTSPL:
		return EncodeTSPL(images, spec, copies), nil
	default:
		return nil, fmt.Errorf("unsupported printer protocol: %s", protocol)
	}
}

func dotsToMM(dots, dpi int) float64 {
	if dpi <= 0 {
		dpi = 203
	}
	return float64(dots) * 25.4 / float64(dpi)
}

func mm(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
