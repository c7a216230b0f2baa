package termpix

import (
	"encoding/base64"
	"fmt"
	"image"
	"strings"
)

const (
	kittyEscStart = "\x1b_G"
	kittyEscEnd   = "\x1b\\"

	// kittyChunkSize is the protocol's maximum payload per APC frame.
	kittyChunkSize = 4096
)

// defaultIDs backs encoders constructed without an explicit allocator.
var defaultIDs = NewIDAllocator()

// KittyEncoder transfers the image to the terminal as chunked PNG data
// using the Kitty graphics protocol. The transfer command only stores
// the image terminal-side; displaying it is a separate placement
// command emitted by the overlay manager.
type KittyEncoder struct {
	codec Codec

	// IDs is the allocator for terminal-side image IDs; nil uses the
	// package default.
	IDs *IDAllocator

	// ReuseID retransmits under an existing ID instead of allocating,
	// used on re-renders so the terminal replaces the image in place.
	ReuseID uint32
}

func (e *KittyEncoder) Protocol() Protocol { return Kitty }

func (e *KittyEncoder) Supported(caps Capabilities) bool { return caps.Kitty }

func (e *KittyEncoder) allocator() *IDAllocator {
	if e.IDs != nil {
		return e.IDs
	}
	return defaultIDs
}

func (e *KittyEncoder) Encode(img image.Image, t Target) (*Output, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: no source image", ErrLoadFailed)
	}

	resized := e.codec.Resize(img, max(t.Width, 1), max(t.Height, 1))
	data, err := e.codec.EncodePNG(resized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	// The ID must exist before the first chunk goes out; a transfer
	// without an ID cannot be referenced or deleted later.
	id := e.ReuseID
	fresh := false
	if id == 0 {
		id, err = e.allocator().Allocate()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
		}
		fresh = true
	}

	payload, err := kittyTransmit(data, id)
	if err != nil {
		if fresh {
			e.allocator().Release(id)
		}
		return nil, err
	}

	return &Output{
		Payload: []byte(payload),
		Cols:    t.Cols,
		Rows:    t.Rows,
		KittyID: id,
	}, nil
}

// kittyTransmit builds the chunked transmission command: a=t stores
// the PNG (f=100) under the given ID without displaying it, q=2
// suppresses status replies, and m flags continuation chunks.
func kittyTransmit(pngData []byte, id uint32) (string, error) {
	if len(pngData) == 0 {
		return "", fmt.Errorf("%w: empty png payload", ErrEncodeFailed)
	}
	encoded := base64.StdEncoding.EncodeToString(pngData)

	var sb strings.Builder
	for i := 0; i < len(encoded); i += kittyChunkSize {
		end := min(i+kittyChunkSize, len(encoded))
		more := 0
		if end < len(encoded) {
			more = 1
		}

		var frame strings.Builder
		frame.WriteString(kittyEscStart)
		if i == 0 {
			fmt.Fprintf(&frame, "a=t,f=100,i=%d,q=2,m=%d;", id, more)
		} else {
			fmt.Fprintf(&frame, "m=%d;", more)
		}
		frame.WriteString(encoded[i:end])
		frame.WriteString(kittyEscEnd)

		// Each APC frame is wrapped individually so tmux forwards
		// every chunk intact.
		sb.WriteString(wrapTmuxPassthrough(frame.String()))
	}

	return sb.String(), nil
}

// kittyPlace builds the placement command displaying a transferred
// image at the cursor, scaled into cols x rows cells. p=1 reuses one
// placement slot per image so repositioning replaces rather than
// accumulates; C=1 asks the terminal not to move the cursor.
func kittyPlace(id uint32, cols, rows int) string {
	seq := fmt.Sprintf("%sa=p,i=%d,p=1,c=%d,r=%d,C=1,q=2;%s",
		kittyEscStart, id, cols, rows, kittyEscEnd)
	return wrapTmuxPassthrough(seq)
}

// kittyDelete builds the teardown command removing the image and all
// its placements from the terminal.
func kittyDelete(id uint32) string {
	seq := fmt.Sprintf("%sa=d,d=i,i=%d,q=2;%s", kittyEscStart, id, kittyEscEnd)
	return wrapTmuxPassthrough(seq)
}
