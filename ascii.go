package termpix

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// asciiRamp is the classic 70-glyph brightness ramp, densest glyph
// first. Index 0 renders darkest, the trailing space renders blank.
const asciiRamp = "$@B%8&WM#*oahkbdpqwmZO0QLCJUYXzcvunxrjft/\\|()1{}[]?-_+~<>i!lI;:,\"^`'. "

// AsciiEncoder renders character art. It is the terminal fallback: it
// reports itself supported everywhere.
type AsciiEncoder struct {
	codec Codec
	color bool
}

func (e *AsciiEncoder) Protocol() Protocol { return Ascii }

func (e *AsciiEncoder) Supported(Capabilities) bool { return true }

// Encode maps each pixel of the downscaled image to a ramp glyph. The
// sampling grid uses half the requested rows because a glyph is roughly
// twice as tall as it is wide; without the halving the art comes out
// vertically stretched.
func (e *AsciiEncoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	cols := max(t.Cols, 1)
	rows := max(t.Rows/2, 1)
	grid := e.codec.Resize(img, cols, rows)
	bounds := grid.Bounds()

	lines := make([]string, 0, rows)
	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		sb.Reset()
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := rgba8(grid.At(x, y))
			glyph := rampGlyph(r, g, b, a)
			if e.color && glyph != ' ' {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm%c", r, g, b, glyph)
			} else {
				sb.WriteByte(glyph)
			}
		}
		if e.color {
			sb.WriteString("\x1b[0m")
		}
		lines = append(lines, sb.String())
	}

	return &Output{Lines: lines, Cols: cols, Rows: len(lines)}, nil
}

// rampGlyph picks the ramp glyph for a pixel. Lightness is the color
// average weighted toward blank as alpha falls, so an opaque black
// pixel hits the dense end of the ramp and a fully transparent pixel
// renders blank regardless of its color channels.
func rampGlyph(r, g, b, a uint8) byte {
	if int(r)+int(g)+int(b)+int(a) == 0 {
		return asciiRamp[len(asciiRamp)-1]
	}

	v := float64(int(r)+int(g)+int(b)) / 765
	v += (1 - float64(a)/255) * (1 - v)

	idx := int(v * float64(len(asciiRamp)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(asciiRamp) {
		idx = len(asciiRamp) - 1
	}
	return asciiRamp[idx]
}

// rgba8 converts a color to non-premultiplied 8-bit channels.
func rgba8(c color.Color) (uint8, uint8, uint8, uint8) {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return 0, 0, 0, 0
	}
	// Undo alpha premultiplication so transparency does not darken the
	// color channels twice.
	return uint8((r * 0xffff / a) >> 8),
		uint8((g * 0xffff / a) >> 8),
		uint8((b * 0xffff / a) >> 8),
		uint8(a >> 8)
}
