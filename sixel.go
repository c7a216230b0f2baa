package termpix

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	"github.com/mattn/go-sixel"
	"github.com/soniakeys/quant/median"
)

// sixelColors is the palette size used for Sixel output. Sixel
// transfers are slow enough that a full 256-color palette is not worth
// the bandwidth on most terminals.
const sixelColors = 100

// SixelEncoder produces a DEC Sixel DCS payload for the resized image.
// The payload carries its own DCS framing; callers write it verbatim.
type SixelEncoder struct {
	codec Codec
}

func (e *SixelEncoder) Protocol() Protocol { return Sixel }

func (e *SixelEncoder) Supported(caps Capabilities) bool { return caps.Sixel }

func (e *SixelEncoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	resized := e.codec.Resize(img, max(t.Width, 1), max(t.Height, 1))
	quantized := quantizeSixel(resized, sixelColors)

	var buf bytes.Buffer
	enc := sixel.NewEncoder(&buf)
	enc.Dither = false // already quantized with error diffusion
	enc.Colors = sixelColors
	if err := enc.Encode(quantized); err != nil {
		return nil, fmt.Errorf("%w: sixel: %v", ErrEncodeFailed, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: sixel encoding produced no output", ErrEncodeFailed)
	}

	return &Output{
		Payload: buf.Bytes(),
		Cols:    t.Cols,
		Rows:    t.Rows,
	}, nil
}

// quantizeSixel reduces the image to an optimized palette with
// Floyd-Steinberg diffusion. Median cut gives a far better palette
// than the encoder's uniform default.
func quantizeSixel(img image.Image, colors int) image.Image {
	quantizer := median.Quantizer(colors)
	pal := quantizer.Palette(img).ColorPalette()
	if len(pal) == 0 {
		return img
	}

	bounds := img.Bounds()
	dst := image.NewPaletted(bounds, pal)
	draw.FloydSteinberg.Draw(dst, bounds, img, image.Point{})
	return dst
}
