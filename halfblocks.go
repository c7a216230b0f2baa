package termpix

import (
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/x/mosaic"
)

// HalfBlocksEncoder renders two vertically stacked pixels per cell as
// the foreground and background of a half-block glyph. Needs Unicode
// for the glyph and truecolor SGR for the two pixel colors.
type HalfBlocksEncoder struct {
	codec Codec
}

func (e *HalfBlocksEncoder) Protocol() Protocol { return HalfBlocks }

func (e *HalfBlocksEncoder) Supported(caps Capabilities) bool {
	return caps.Unicode && caps.Color
}

func (e *HalfBlocksEncoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	cols := max(t.Cols, 1)
	rows := max(t.Rows, 1)

	// Each cell covers one pixel column and two pixel rows; presample
	// to exactly that grid so mosaic does no aspect math of its own.
	grid := e.codec.Resize(img, cols, rows*2)

	m := mosaic.New().Width(cols).Height(rows)
	rendered := m.Render(grid)
	lines := strings.Split(strings.TrimRight(rendered, "\n"), "\n")

	return &Output{Lines: lines, Cols: cols, Rows: len(lines)}, nil
}
