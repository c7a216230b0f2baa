package termpix

import "math"

// Alignment quantizes resolved dimensions to a device grid, e.g. cell
// boundaries for bitmap protocols.
type Alignment struct {
	Width  int
	Height int
}

// SizeRequest describes the constraints for fitting an image into an
// available region. Width/Height of 0 mean "auto-fit". AspectRatio is
// the source image's width/height ratio.
type SizeRequest struct {
	MaxWidth    int
	MaxHeight   int
	AspectRatio float64
	Width       int
	Height      int
	Align       *Alignment
}

// Resolve computes target dimensions for a size request. It is total:
// any combination of inputs yields positive whole dimensions no larger
// than the maxima.
//
// Explicit values win over aspect ratio: when both Width and Height are
// given they are clamped independently and the ratio is not preserved.
// With one explicit value the other is derived from the aspect ratio and
// re-derived if its own clamp fires. With neither, the image is fitted
// to MaxHeight first, then corrected if the derived width overflows.
func Resolve(req SizeRequest) (width, height int) {
	maxW := req.MaxWidth
	maxH := req.MaxHeight
	if maxW < 1 {
		maxW = 1
	}
	if maxH < 1 {
		maxH = 1
	}
	ratio := req.AspectRatio
	if ratio <= 0 || math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = 1
	}

	switch {
	case req.Width > 0 && req.Height > 0:
		width = min(req.Width, maxW)
		height = min(req.Height, maxH)

	case req.Width > 0:
		width = min(req.Width, maxW)
		height = round(float64(width) / ratio)
		if height > maxH {
			height = maxH
			width = round(float64(height) * ratio)
		}

	case req.Height > 0:
		height = min(req.Height, maxH)
		width = round(float64(height) * ratio)
		if width > maxW {
			width = maxW
			height = round(float64(width) / ratio)
		}

	default:
		height = maxH
		width = round(float64(height) * ratio)
		if width > maxW {
			width = maxW
			height = round(float64(width) / ratio)
		}
		// The width clamp can still leave a rounded height above the
		// maximum; check once more.
		if height > maxH {
			height = maxH
		}
	}

	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	if req.Align != nil {
		width = snap(width, req.Align.Width)
		height = snap(height, req.Align.Height)
	}

	return width, height
}

// snap floors v to a multiple of unit, but never below one unit.
func snap(v, unit int) int {
	if unit <= 1 {
		return v
	}
	if v < unit {
		return unit
	}
	return v - v%unit
}

func round(v float64) int {
	return int(math.Round(v))
}
