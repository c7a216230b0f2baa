package termpix

import (
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Default cell size in pixels, used when the terminal answers none of
// the dimension queries.
const (
	DefaultCellWidth  = 6
	DefaultCellHeight = 12
)

// Capabilities is a snapshot of what the terminal can render. It is
// computed once per Detector and immutable afterwards.
type Capabilities struct {
	Unicode bool
	Color   bool
	Sixel   bool
	Kitty   bool
	ITerm2  bool
}

// Dimensions describes the terminal viewport and cell geometry in
// pixels.
type Dimensions struct {
	ViewportWidth  int
	ViewportHeight int
	CellWidth      int
	CellHeight     int
}

// Detector probes the terminal once and shares the snapshot with every
// caller. Construct one per process and pass it where needed; the probe
// runs lazily on first access and all later calls return the cached
// result, so encoders can safely gate on it from any goroutine.
type Detector struct {
	once sync.Once
	caps Capabilities
	dims Dimensions

	// query is swappable in tests so no real terminal round trip runs.
	query func(string) []byte
}

// NewDetector creates a detector that probes the controlling terminal.
func NewDetector() *Detector {
	return &Detector{query: queryTerminal}
}

// Capabilities returns the capability snapshot, probing the terminal on
// first call. Blocks until probing completes or times out.
func (d *Detector) Capabilities() Capabilities {
	d.detect()
	return d.caps
}

// Dimensions returns the terminal geometry, probing on first call.
func (d *Detector) Dimensions() Dimensions {
	d.detect()
	return d.dims
}

func (d *Detector) detect() {
	d.once.Do(func() {
		d.caps.Unicode = detectUnicode()
		d.caps.Color = detectColor()
		d.caps.Sixel = d.detectSixel()
		d.caps.Kitty = d.detectKitty()
		d.caps.ITerm2 = detectITerm2(d.caps.Sixel)
		d.dims = d.detectDimensions()
	})
}

// detectUnicode checks the locale environment for UTF-8. No terminal
// round trip exists for this; the locale is the best signal available.
func detectUnicode() bool {
	for _, key := range []string{"LC_ALL", "LC_CTYPE", "LANG"} {
		if v := os.Getenv(key); v != "" {
			v = strings.ToUpper(v)
			return strings.Contains(v, "UTF-8") || strings.Contains(v, "UTF8")
		}
	}
	// Terminals that identify themselves via TERM_PROGRAM all speak
	// UTF-8 regardless of locale.
	return os.Getenv("TERM_PROGRAM") != ""
}

// detectColor checks for ANSI color support from the environment.
func detectColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	termName := os.Getenv("TERM")
	if termName == "dumb" {
		return false
	}
	switch os.Getenv("COLORTERM") {
	case "truecolor", "24bit":
		return true
	}
	return strings.Contains(termName, "color") || os.Getenv("TERM_PROGRAM") != ""
}

// detectSixel checks known terminal identities first, then falls back
// to a Primary Device Attributes query scanned for attribute 4.
func (d *Detector) detectSixel() bool {
	termName := os.Getenv("TERM")
	termProgram := os.Getenv("TERM_PROGRAM")

	switch {
	case strings.Contains(termName, "sixel"),
		strings.Contains(termName, "mlterm"),
		strings.Contains(termName, "foot"),
		strings.Contains(termName, "yaft"):
		return true
	case strings.Contains(termName, "xterm") && os.Getenv("XTERM_VERSION") != "":
		// xterm reports Sixel only when started with -ti 340; the DA1
		// query below settles it.
	}

	switch termProgram {
	case "mlterm", "mintty", "WezTerm", "rio", "iTerm.app":
		return true
	case "contour":
		return true
	}
	if os.Getenv("CONTOUR_PROFILE") != "" {
		return true
	}

	return hasDeviceAttribute(string(d.query("\x1b[c")), 4)
}

// detectKitty checks known terminal identities first, then sends the
// Kitty graphics probe and looks for an OK status APC.
func (d *Detector) detectKitty() bool {
	// Contour advertises neither, but inherits Kitty env vars when
	// launched from a Kitty-capable terminal.
	if os.Getenv("CONTOUR_PROFILE") != "" {
		return false
	}

	termProgram := os.Getenv("TERM_PROGRAM")
	switch {
	case os.Getenv("KITTY_WINDOW_ID") != "":
		return true
	case strings.Contains(strings.ToLower(os.Getenv("TERM")), "kitty"):
		return true
	case termProgram == "ghostty" || os.Getenv("GHOSTTY_RESOURCES_DIR") != "":
		return true
	case termProgram == "WezTerm":
		return true
	}
	// Konsole 22.04+ implements the Kitty graphics protocol.
	if v := os.Getenv("KONSOLE_VERSION"); len(v) >= 4 && v[:4] >= "2204" {
		return true
	}

	return parseKittyReply(string(d.query(kittyProbe())))
}

// detectITerm2 applies static environment rules only; iTerm2 has no
// reliable query. The VS Code family gates inline images and Sixel
// together in its xterm.js backend, so it delegates to the Sixel
// result.
func detectITerm2(sixel bool) bool {
	termProgram := os.Getenv("TERM_PROGRAM")
	switch termProgram {
	case "iTerm.app", "WezTerm", "mintty", "rio", "WarpTerminal":
		return true
	case "vscode":
		return sixel
	}
	if strings.Contains(strings.ToLower(os.Getenv("LC_TERMINAL")), "iterm") {
		return true
	}
	return os.Getenv("ITERM_SESSION_ID") != ""
}

// detectDimensions resolves viewport and cell geometry: the cell-size
// query first, then the whole-text-area query divided by the column and
// row counts, then the kernel winsize, then the package defaults.
func (d *Detector) detectDimensions() Dimensions {
	cols, rows, _ := terminalSize()

	if w, h, ok := parseCellSizeReply(string(d.query("\x1b[16t"))); ok {
		return Dimensions{
			ViewportWidth:  w * cols,
			ViewportHeight: h * rows,
			CellWidth:      w,
			CellHeight:     h,
		}
	}

	if pw, ph, ok := parseWindowPixelReply(string(d.query("\x1b[14t"))); ok && cols > 0 && rows > 0 {
		return Dimensions{
			ViewportWidth:  pw,
			ViewportHeight: ph,
			CellWidth:      pw / cols,
			CellHeight:     ph / rows,
		}
	}

	if cw, ch, ok := cellSizeFromWinsize(); ok {
		return Dimensions{
			ViewportWidth:  cw * cols,
			ViewportHeight: ch * rows,
			CellWidth:      cw,
			CellHeight:     ch,
		}
	}

	return Dimensions{
		ViewportWidth:  DefaultCellWidth * cols,
		ViewportHeight: DefaultCellHeight * rows,
		CellWidth:      DefaultCellWidth,
		CellHeight:     DefaultCellHeight,
	}
}

// terminalSize returns the terminal size in cells, defaulting to 80x24.
func terminalSize() (cols, rows int, ok bool) {
	if c, r, err := term.GetSize(int(os.Stdout.Fd())); err == nil && c > 0 && r > 0 {
		return c, r, true
	}
	return 80, 24, false
}

var defaultDetector = NewDetector()

// Detect returns the process-wide capability snapshot, probing the
// terminal on first use.
func Detect() Capabilities {
	return defaultDetector.Capabilities()
}

// DetectDimensions returns the process-wide terminal geometry.
func DetectDimensions() Dimensions {
	return defaultDetector.Dimensions()
}
