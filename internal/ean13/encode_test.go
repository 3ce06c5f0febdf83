package ean13

import (
	"image/color"
	"testing"

	"github.com/boombuler/barcode/ean"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_Length(t *testing.T) {
	for first := 0; first <= 9; first++ {
		code := Resolve(string(rune('0'+first)) + "12345678901")
		p, err := Encode(code)
		require.NoError(t, err, "code %s", code)
		assert.Equal(t, Modules, p.Len())
		assert.Len(t, p.String(), Modules)
	}
}

func TestEncode_Guards(t *testing.T) {
	p, err := Encode("9073403143866")
	require.NoError(t, err)

	s := p.String()
	assert.Equal(t, "101", s[:3], "start guard")
	assert.Equal(t, "01010", s[45:50], "center guard")
	assert.Equal(t, "101", s[92:], "end guard")
}

func TestEncode_KnownPattern(t *testing.T) {
	p, err := Encode("0000000001236")
	require.NoError(t, err)

	// First digit 0 selects LLLLLL: six L-encoded zeros on the left.
	want := "101" +
		"000110100011010001101000110100011010001101" +
		"01010" +
		"111001011100101100110110110010000101010000" +
		"101"
	assert.Equal(t, want, p.String())
}

func TestEncode_MatchesBoombuler(t *testing.T) {
	codes := []Code{
		Resolve("907340314386"),
		Resolve("123"),
		Resolve("UPC-907340"),
		Resolve("400638133393"),
		Resolve("590123412345"),
		Resolve("871234567890"),
		Resolve("111111111111"),
		Resolve("222222222222"),
		Resolve("333333333333"),
		Resolve("777777777777"),
	}

	for _, code := range codes {
		t.Run(string(code), func(t *testing.T) {
			p, err := Encode(code)
			require.NoError(t, err)

			ref, err := ean.Encode(string(code))
			require.NoError(t, err)
			require.Equal(t, Modules, ref.Bounds().Dx())

			for x := 0; x < Modules; x++ {
				refBar := color.GrayModel.Convert(ref.At(x, 0)).(color.Gray).Y < 128
				assert.Equal(t, refBar, p[x], "module %d", x)
			}
		})
	}
}

func TestEncode_RejectsMalformed(t *testing.T) {
	for _, bad := range []Code{"", "123", "12345678901234", "90734031438x6"} {
		_, err := Encode(bad)
		assert.Error(t, err, "code %q", bad)
	}
}
