package termpix

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Image is the fluent entry point: load a source, chain constraints,
// then Render or Print. A zero-value Image is not usable; construct via
// New, Open or From.
//
//	termpix.Open("gopher.png").Width(40).Print()
//
// Constructor errors are deferred to Render so chains stay unbroken.
type Image struct {
	src      image.Image
	err      error
	codec    Codec
	detector *Detector
	selector *Selector

	protocol  Protocol
	width     int
	height    int
	maxWidth  int
	maxHeight int
	altText   string
}

// New creates an Image from an already decoded source.
func New(img image.Image) *Image {
	i := &Image{
		src:      img,
		codec:    StdCodec{},
		detector: defaultDetector,
		protocol: Auto,
	}
	if img == nil {
		i.err = fmt.Errorf("%w: nil source image", ErrLoadFailed)
	}
	return i
}

// Open creates an Image from a file path.
func Open(path string) *Image {
	f, err := os.Open(path)
	if err != nil {
		i := New(nil)
		i.err = fmt.Errorf("%w: %v", ErrLoadFailed, err)
		i.altText = path
		return i
	}
	defer f.Close()
	i := From(f)
	if i.altText == "" {
		i.altText = path
	}
	return i
}

// From creates an Image by decoding r.
func From(r io.Reader) *Image {
	codec := StdCodec{}
	img, err := codec.Decode(r)
	i := New(img)
	if err != nil {
		i.err = fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	return i
}

// Width fixes the output width in cells. Zero means auto-fit.
func (i *Image) Width(cells int) *Image {
	i.width = cells
	return i
}

// Height fixes the output height in cells. Zero means auto-fit.
func (i *Image) Height(cells int) *Image {
	i.height = cells
	return i
}

// MaxWidth caps the output width in cells. Zero means the viewport
// width.
func (i *Image) MaxWidth(cells int) *Image {
	i.maxWidth = cells
	return i
}

// MaxHeight caps the output height in cells. Zero means the viewport
// height.
func (i *Image) MaxHeight(cells int) *Image {
	i.maxHeight = cells
	return i
}

// Protocol forces a specific protocol instead of auto-detection. The
// fallback chain still applies if it turns out unsupported.
func (i *Image) Protocol(p Protocol) *Image {
	i.protocol = p
	i.selector = nil
	return i
}

// AltText sets the text shown in the placeholder when rendering fails.
func (i *Image) AltText(text string) *Image {
	i.altText = text
	return i
}

// WithCodec swaps the image codec, e.g. for a caching implementation.
func (i *Image) WithCodec(c Codec) *Image {
	if c != nil {
		i.codec = c
	}
	return i
}

// WithDetector swaps the capability detector, mainly for tests.
func (i *Image) WithDetector(d *Detector) *Image {
	if d != nil {
		i.detector = d
		i.selector = nil
	}
	return i
}

// Source returns the decoded source image, nil if loading failed.
func (i *Image) Source() image.Image { return i.src }

// Err returns the deferred constructor error, if any.
func (i *Image) Err() error { return i.err }

// target negotiates the cell footprint and pixel dimensions for the
// current constraints against the detected terminal geometry.
func (i *Image) target() Target {
	dims := i.detector.Dimensions()
	cellW := max(dims.CellWidth, 1)
	cellH := max(dims.CellHeight, 1)

	maxCols := i.maxWidth
	maxRows := i.maxHeight
	if maxCols <= 0 || maxRows <= 0 {
		cols, rows, _ := terminalSize()
		if maxCols <= 0 {
			maxCols = cols
		}
		if maxRows <= 0 {
			// Leave the prompt line alone when filling the screen.
			maxRows = max(rows-1, 1)
		}
	}

	// Cell aspect ratio differs from pixel aspect ratio because cells
	// are taller than wide; fold the cell geometry into the ratio so
	// the fit happens in cell space.
	ratio := 1.0
	if i.src != nil {
		b := i.src.Bounds()
		if b.Dy() > 0 {
			ratio = (float64(b.Dx()) * float64(cellH)) / (float64(b.Dy()) * float64(cellW))
		}
	}

	cols, rows := Resolve(SizeRequest{
		MaxWidth:    maxCols,
		MaxHeight:   maxRows,
		AspectRatio: ratio,
		Width:       i.width,
		Height:      i.height,
	})

	return Target{
		Cols:   cols,
		Rows:   rows,
		Width:  cols * cellW,
		Height: rows * cellH,
	}
}

func (i *Image) ensureSelector() *Selector {
	if i.selector == nil {
		i.selector = NewSelector(i.protocol, i.detector.Capabilities())
	}
	return i.selector
}

// Render encodes the image for the current terminal and returns the
// string to print at the cursor position. Inline protocols return
// styled text lines; out-of-band protocols return the full escape
// payload (including placement for Kitty), so printing the result
// displays the image either way.
//
// Encoders found unsupported at render time advance the fallback chain
// and the next protocol is tried within the same call. Failures return
// an error; use RenderWithFallback or Print for the placeholder
// behavior.
func (i *Image) Render() (string, error) {
	out, proto, err := i.encode(0)
	if err != nil {
		return "", err
	}
	if out.Inline() {
		return strings.Join(out.Lines, "\n"), nil
	}

	var sb strings.Builder
	sb.Write(out.Payload)
	if proto == Kitty {
		sb.WriteString(kittyPlace(out.KittyID, out.Cols, out.Rows))
		// One-shot print: nothing tracks this placement, so the slot
		// goes straight back to the pool. A later transmit under the
		// reused ID replaces the image terminal-side; only overlay
		// handles keep an ID live across renders.
		defaultIDs.Release(out.KittyID)
	}
	return sb.String(), nil
}

// RenderWithFallback is Render with errors swallowed into the alt-text
// placeholder, sized to the negotiated footprint.
func (i *Image) RenderWithFallback() string {
	s, err := i.Render()
	if err != nil {
		return i.placeholder()
	}
	return s
}

// Print renders to stdout, falling back to the placeholder on failure.
func (i *Image) Print() error {
	s, err := i.Render()
	if err != nil {
		fmt.Println(i.placeholder())
		return err
	}
	fmt.Println(s)
	return nil
}

// Encode runs the protocol selection loop and returns the raw frame,
// for hosts that manage placement themselves (overlays, TUI widgets).
func (i *Image) Encode() (*Output, Protocol, error) {
	return i.encode(0)
}

// encode is Encode with an optional live Kitty ID to retransmit under,
// so an overlay handle's re-renders replace the image in place.
func (i *Image) encode(reuseKittyID uint32) (*Output, Protocol, error) {
	if i.err != nil {
		return nil, Auto, i.err
	}

	caps := i.detector.Capabilities()
	sel := i.ensureSelector()
	t := i.target()

	// Downsample oversized sources once, ahead of the per-protocol exact
	// resize; 2x the target keeps enough detail for any encoder.
	src := i.codec.Thumbnail(i.src, max(t.Width, 1)*2, max(t.Height, 1)*2)

	// Walk the fallback chain until an encoder accepts. The chain is
	// acyclic and ends at Ascii, which always accepts, so this loop
	// terminates.
	for {
		proto := sel.Current()
		enc := NewEncoder(proto, i.codec, caps)
		if enc == nil {
			return nil, proto, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, proto)
		}
		if !enc.Supported(caps) {
			sel.SupportDetected(false)
			continue
		}
		if ke, ok := enc.(*KittyEncoder); ok {
			ke.ReuseID = reuseKittyID
		}
		out, err := enc.Encode(src, t)
		if err != nil {
			return nil, proto, err
		}
		return out, proto, nil
	}
}

var placeholderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Align(lipgloss.Center, lipgloss.Center).
	Faint(true)

// placeholder renders the alt-text box occupying the same footprint the
// image would have.
func (i *Image) placeholder() string {
	t := i.target()
	text := i.altText
	if text == "" {
		text = "image unavailable"
	}
	// Border consumes one cell on each side.
	w := max(t.Cols-2, 1)
	h := max(t.Rows-2, 1)
	return placeholderStyle.Width(w).Height(h).Render(text)
}

// Placeholder returns the alt-text box without attempting a render.
func (i *Image) Placeholder() string { return i.placeholder() }

// PrintFile is a convenience one-liner for CLI use.
func PrintFile(path string) error {
	return Open(path).Print()
}

// RenderBytes decodes and renders raw image bytes.
func RenderBytes(data []byte) (string, error) {
	return From(bytes.NewReader(data)).Render()
}
