package renderer

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmap_SetAndBlack(t *testing.T) {
	bm := NewBitmap(10, 3)
	assert.Equal(t, 2, bm.Stride())
	assert.Len(t, bm.Pix(), 6)

	bm.Set(0, 0, true)
	bm.Set(9, 2, true)
	bm.Set(20, 20, true) // ignored

	assert.True(t, bm.Black(0, 0))
	assert.True(t, bm.Black(9, 2))
	assert.False(t, bm.Black(1, 0))
	assert.Equal(t, byte(0x80), bm.Row(0)[0])
	assert.Equal(t, byte(0x40), bm.Row(2)[1])

	bm.Set(0, 0, false)
	assert.False(t, bm.Black(0, 0))
}

func TestBitmap_DrawKeepsExistingBlack(t *testing.T) {
	dst := NewBitmap(8, 1)
	dst.Set(0, 0, true)

	src := NewBitmap(4, 1)
	src.Set(3, 0, true)

	dst.Draw(src, 0, 0)
	assert.True(t, dst.Black(0, 0), "white source dots must not erase")
	assert.True(t, dst.Black(3, 0))

	dst.Draw(src, 6, 0) // clipped
	assert.Equal(t, 2, dst.CountBlack(dst.Bounds()))
}

func TestBitmap_StrokeRect(t *testing.T) {
	bm := NewBitmap(20, 10)
	bm.StrokeRect(0, 0, 20, 10, 2)

	assert.True(t, bm.Black(0, 0))
	assert.True(t, bm.Black(19, 9))
	assert.True(t, bm.Black(1, 5))
	assert.False(t, bm.Black(10, 5))
}

func TestThreshold(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 149})
	img.SetGray(2, 0, color.Gray{Y: 200})

	bm := Threshold(img, 150)
	require.Equal(t, 3, bm.Width())
	assert.True(t, bm.Black(0, 0))
	assert.True(t, bm.Black(1, 0))
	assert.False(t, bm.Black(2, 0))
}

func TestBitmap_ImageInterface(t *testing.T) {
	bm := NewBitmap(2, 2)
	bm.Set(1, 1, true)

	var img image.Image = bm
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, color.Gray{Y: 0}, img.At(1, 1))
	assert.Equal(t, color.Gray{Y: 255}, img.At(0, 0))

	clone := bm.Clone()
	assert.True(t, clone.Equal(bm))
	clone.Set(0, 0, true)
	assert.False(t, clone.Equal(bm))
}
