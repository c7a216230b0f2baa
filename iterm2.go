package termpix

import (
	"encoding/base64"
	"fmt"
	"image"
	"strings"
)

// ITerm2Encoder emits the iTerm2 inline-image OSC sequence. Unlike
// Kitty, the protocol takes a complete encoded image file in a single
// sequence; there is no separate transfer/placement split.
type ITerm2Encoder struct {
	codec Codec
}

func (e *ITerm2Encoder) Protocol() Protocol { return ITerm2 }

func (e *ITerm2Encoder) Supported(caps Capabilities) bool { return caps.ITerm2 }

func (e *ITerm2Encoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	width := max(t.Width, 1)
	height := max(t.Height, 1)
	resized := e.codec.Resize(img, width, height)
	data, err := e.codec.EncodePNG(resized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	params := []string{
		"inline=1",
		"doNotMoveCursor=1",
		fmt.Sprintf("size=%d", len(data)),
		fmt.Sprintf("width=%dpx", width),
		fmt.Sprintf("height=%dpx", height),
		"preserveAspectRatio=1",
	}

	seq := fmt.Sprintf("\x1b]1337;File=%s:%s\x07",
		strings.Join(params, ";"),
		base64.StdEncoding.EncodeToString(data))

	return &Output{
		Payload: []byte(wrapTmuxPassthrough(seq)),
		Cols:    t.Cols,
		Rows:    t.Rows,
	}, nil
}
