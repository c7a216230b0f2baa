package termpix

import (
	"errors"
	"image"
)

// Failure taxonomy. Every render failure is local to one component and
// resolves to an alt-text placeholder; none of these should ever escape
// a component boundary.
var (
	// ErrLoadFailed marks a source fetch or decode failure.
	ErrLoadFailed = errors.New("image load failed")

	// ErrUnsupportedProtocol marks an encoder invoked in a terminal
	// that cannot display it; it drives selector fallback.
	ErrUnsupportedProtocol = errors.New("protocol not supported by terminal")

	// ErrEncodeFailed marks a failure while producing or transferring
	// protocol output.
	ErrEncodeFailed = errors.New("encode failed")
)

// Target describes the negotiated output geometry for one render. Cols
// and Rows are the cell footprint on screen; Width and Height are the
// pixel dimensions bitmap encoders should resize to. Inline encoders
// use only the cell footprint.
type Target struct {
	Cols   int
	Rows   int
	Width  int
	Height int
}

// Output is a single encoded frame: either inline styled text lines or
// an out-of-band escape payload with its on-screen cell footprint.
type Output struct {
	// Lines holds inline text output, one styled line per row. nil for
	// out-of-band protocols.
	Lines []string

	// Payload holds the raw escape bytes for out-of-band protocols.
	Payload []byte

	// Cols and Rows are the cell bounding box the output occupies,
	// recorded for later erasure.
	Cols int
	Rows int

	// KittyID is set only by the Kitty encoder, after the final chunk
	// of the transfer has been produced.
	KittyID uint32
}

// Inline reports whether the output is in-flow text.
func (o *Output) Inline() bool {
	return o != nil && o.Payload == nil
}

// Encoder turns a decoded image into protocol output for one target
// size. Implementations must not write to the terminal themselves;
// positioning and transfer are the overlay manager's job.
type Encoder interface {
	// Protocol returns the protocol this encoder produces.
	Protocol() Protocol

	// Supported reports whether the capability snapshot allows this
	// encoder. Unsupported encoders must be skipped, not invoked.
	Supported(caps Capabilities) bool

	// Encode produces output for the image at the given target size.
	Encode(img image.Image, t Target) (*Output, error)
}

// NewEncoder constructs the encoder for a protocol, sharing the given
// codec and capability snapshot. Auto is not a concrete protocol and
// yields nil.
func NewEncoder(p Protocol, codec Codec, caps Capabilities) Encoder {
	if codec == nil {
		codec = StdCodec{}
	}
	switch p {
	case Ascii:
		return &AsciiEncoder{codec: codec, color: caps.Color}
	case Braille:
		return &BrailleEncoder{codec: codec, color: caps.Color}
	case HalfBlocks:
		return &HalfBlocksEncoder{codec: codec}
	case Sixel:
		return &SixelEncoder{codec: codec}
	case Kitty:
		return &KittyEncoder{codec: codec}
	case ITerm2:
		return &ITerm2Encoder{codec: codec}
	default:
		return nil
	}
}
