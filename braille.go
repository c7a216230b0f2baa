package termpix

import (
	"fmt"
	"image"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// brailleBase is U+2800, the blank Braille pattern. Dots are added as
// bit offsets following the Unicode dot numbering: dots 1-3 and 7 form
// the left column top-to-bottom, dots 4-6 and 8 the right column.
const brailleBase = 0x2800

// Per-dot bit for a (x, y) position inside the 2x4 cell.
var brailleDots = [4][2]rune{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

// brailleThreshold is the Lab lightness above which a pixel sets its
// dot.
const brailleThreshold = 0.5

// BrailleEncoder renders up to eight pixels per cell as a Braille dot
// pattern, thresholded on perceptual lightness. Needs Unicode; color
// is applied per cell when available.
type BrailleEncoder struct {
	codec Codec
	color bool
}

func (e *BrailleEncoder) Protocol() Protocol { return Braille }

func (e *BrailleEncoder) Supported(caps Capabilities) bool { return caps.Unicode }

func (e *BrailleEncoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	cols := max(t.Cols, 1)
	rows := max(t.Rows, 1)
	grid := e.codec.Resize(img, cols*2, rows*4)

	lines := make([]string, 0, rows)
	var sb strings.Builder
	for row := 0; row < rows; row++ {
		sb.Reset()
		for col := 0; col < cols; col++ {
			cell, cr, cg, cb, lit := brailleCell(grid, col*2, row*4)
			if e.color && lit > 0 {
				fmt.Fprintf(&sb, "\x1b[38;2;%d;%d;%dm%c", cr, cg, cb, cell)
			} else {
				sb.WriteRune(cell)
			}
		}
		if e.color {
			sb.WriteString("\x1b[0m")
		}
		lines = append(lines, sb.String())
	}

	return &Output{Lines: lines, Cols: cols, Rows: len(lines)}, nil
}

// brailleCell computes one Braille rune from the 2x4 pixel block at
// (px, py), plus the average color of the lit pixels.
func brailleCell(grid image.Image, px, py int) (cell rune, r, g, b uint8, lit int) {
	bounds := grid.Bounds()
	cell = brailleBase
	var sumR, sumG, sumB int

	for dy := 0; dy < 4; dy++ {
		for dx := 0; dx < 2; dx++ {
			x, y := bounds.Min.X+px+dx, bounds.Min.Y+py+dy
			if x >= bounds.Max.X || y >= bounds.Max.Y {
				continue
			}
			pr, pg, pb, pa := rgba8(grid.At(x, y))
			if pa == 0 {
				continue
			}
			c, ok := colorful.MakeColor(grid.At(x, y))
			if !ok {
				continue
			}
			l, _, _ := c.Lab()
			if l < brailleThreshold {
				continue
			}
			cell |= brailleDots[dy][dx]
			sumR += int(pr)
			sumG += int(pg)
			sumB += int(pb)
			lit++
		}
	}

	if lit > 0 {
		r = uint8(sumR / lit)
		g = uint8(sumG / lit)
		b = uint8(sumB / lit)
	}
	return cell, r, g, b, lit
}
