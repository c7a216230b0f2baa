package termpix

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"

	"github.com/nfnt/resize"
	xdraw "golang.org/x/image/draw"
)

// Codec is the image decode/resize/encode collaborator. Encoders never
// touch pixel formats directly; everything goes through this interface
// so hosts can swap in hardware-accelerated or caching implementations.
type Codec interface {
	// Decode reads and decodes an image from r.
	Decode(r io.Reader) (image.Image, error)

	// Resize scales img to exactly width x height pixels.
	Resize(img image.Image, width, height int) image.Image

	// Thumbnail scales img down to fit within maxWidth x maxHeight
	// while preserving its aspect ratio. Images already within bounds
	// are returned unchanged.
	Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image

	// EncodePNG re-encodes img as a PNG file.
	EncodePNG(img image.Image) ([]byte, error)
}

// StdCodec is the default Codec, backed by the standard image decoders,
// bilinear scaling and Lanczos thumbnailing.
type StdCodec struct{}

var _ Codec = StdCodec{}

func (StdCodec) Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func (StdCodec) Resize(img image.Image, width, height int) image.Image {
	if img == nil || width <= 0 || height <= 0 {
		return img
	}
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func (StdCodec) Thumbnail(img image.Image, maxWidth, maxHeight int) image.Image {
	if img == nil || maxWidth <= 0 || maxHeight <= 0 {
		return img
	}
	return resize.Thumbnail(uint(maxWidth), uint(maxHeight), img, resize.Lanczos3)
}

func (StdCodec) EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
