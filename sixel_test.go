package termpix

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSixelEncodeFramesItself(t *testing.T) {
	enc := &SixelEncoder{codec: StdCodec{}}
	out, err := enc.Encode(solidImage(12, 12, color.RGBA{R: 255, A: 255}), Target{Cols: 4, Rows: 2, Width: 24, Height: 24})
	require.NoError(t, err)
	require.False(t, out.Inline())

	// The encoder emits its own DCS framing; nothing wraps it again.
	payload := string(out.Payload)
	assert.Contains(t, payload, "\x1bP")
	assert.Contains(t, payload, "\x1b\\")
	assert.Equal(t, 4, out.Cols)
	assert.Equal(t, 2, out.Rows)
	assert.Zero(t, out.KittyID)
}

func TestSixelEncodeNilImage(t *testing.T) {
	enc := &SixelEncoder{codec: StdCodec{}}
	_, err := enc.Encode(nil, Target{Width: 8, Height: 8})
	assert.ErrorIs(t, err, ErrLoadFailed)
}

func TestQuantizeSixelPalette(t *testing.T) {
	// A gradient collapses to a bounded palette.
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 128, A: 255})
		}
	}

	got := quantizeSixel(img, 16)
	pal, ok := got.(*image.Paletted)
	require.True(t, ok)
	assert.LessOrEqual(t, len(pal.Palette), 16)
	assert.Equal(t, img.Bounds(), pal.Bounds())
}
