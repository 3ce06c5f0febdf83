package renderer

import (
	"fmt"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
)

// Format is an image file format for rendered canvases
type Format string

const (
	FormatPNG Format = "png"
	FormatBMP Format = "bmp"
)

// ParseFormat accepts "png" or "bmp", case-insensitively; empty means png
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case "", FormatPNG:
		return FormatPNG, nil
	case FormatBMP:
		return FormatBMP, nil
	default:
		return "", fmt.Errorf("unsupported image format: %s (must be png or bmp)", s)
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatBMP {
		return "image/bmp"
	}
	return "image/png"
}

// Encode writes the canvas in the given format
func (img *RasterImage) Encode(w io.Writer, format Format) error {
	var err error
	switch format {
	case FormatBMP:
		err = bmp.Encode(w, img.Pixels)
	case FormatPNG, "":
		err = png.Encode(w, img.Pixels)
	default:
		return fmt.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return nil
}
