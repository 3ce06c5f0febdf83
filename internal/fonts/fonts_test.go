package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

func TestDefault(t *testing.T) {
	h := Default()
	require.NotNil(t, h)
	assert.Equal(t, "Go Bold", h.Name())

	face, err := h.Face(16)
	require.NoError(t, err)
	defer face.Close()

	adv, ok := face.GlyphAdvance('A')
	assert.True(t, ok)
	assert.Greater(t, adv.Ceil(), 0)
}

func TestFace_InvalidSize(t *testing.T) {
	_, err := Default().Face(0)
	assert.Error(t, err)
}

func TestFace_NilHandle(t *testing.T) {
	var h *Handle
	_, err := h.Face(12)
	assert.Error(t, err)
}

func TestFromBytes_Invalid(t *testing.T) {
	_, err := FromBytes("junk", []byte("not a font"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0644))

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "regular.ttf", h.Name())

	_, err = Load(filepath.Join(t.TempDir(), "missing.ttf"))
	assert.Error(t, err)
}

func TestDiscover_PrefersGivenPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shelf.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0644))

	h := Discover("", path)
	assert.Equal(t, "shelf.ttf", h.Name())
}

func TestDiscover_NeverNil(t *testing.T) {
	h := Discover(filepath.Join(t.TempDir(), "nope.ttf"))
	require.NotNil(t, h)
	_, err := h.Face(10)
	assert.NoError(t, err)
}
