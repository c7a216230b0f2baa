package termpix

import (
	"os"
	"sync"
)

// Protocol identifies a terminal image rendering protocol.
type Protocol int

const (
	// Ascii renders glyph-ramp character art. Always available.
	Ascii Protocol = iota
	// Braille renders 2x4 pixel dot patterns per cell. Needs Unicode.
	Braille
	// HalfBlocks renders two pixels per cell using half-block glyphs.
	// Needs Unicode and color.
	HalfBlocks
	// Sixel renders DEC Sixel bitmap sequences.
	Sixel
	// ITerm2 renders iTerm2 inline-image OSC sequences.
	ITerm2
	// Kitty renders Kitty graphics protocol APC frames.
	Kitty
	// Auto selects the best protocol for the detected capabilities.
	Auto Protocol = -1
)

func (p Protocol) String() string {
	switch p {
	case Ascii:
		return "ascii"
	case Braille:
		return "braille"
	case HalfBlocks:
		return "halfblocks"
	case Sixel:
		return "sixel"
	case ITerm2:
		return "iterm2"
	case Kitty:
		return "kitty"
	case Auto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseProtocol maps a protocol name (as used by the TERMPIX_PROTOCOL
// environment override) back to a Protocol. Unknown names map to Auto.
func ParseProtocol(name string) Protocol {
	switch name {
	case "ascii":
		return Ascii
	case "braille":
		return Braille
	case "halfblocks":
		return HalfBlocks
	case "sixel":
		return Sixel
	case "iterm2":
		return ITerm2
	case "kitty":
		return Kitty
	default:
		return Auto
	}
}

// OutOfBand reports whether the protocol bypasses inline text flow and
// writes directly to the terminal (requiring overlay management).
func (p Protocol) OutOfBand() bool {
	return p == Sixel || p == Kitty || p == ITerm2
}

// Supported reports whether the protocol can be used with the given
// capability snapshot.
func (p Protocol) Supported(caps Capabilities) bool {
	switch p {
	case Ascii:
		return true
	case Braille:
		return caps.Unicode
	case HalfBlocks:
		return caps.Unicode && caps.Color
	case Sixel:
		return caps.Sixel
	case ITerm2:
		return caps.ITerm2
	case Kitty:
		return caps.Kitty
	default:
		return false
	}
}

// fallback returns the next protocol to try after p turned out to be
// unsupported at render time. The chain is acyclic and ends at Ascii:
// bitmap protocols drop straight to halfblocks, halfblocks to braille,
// braille to ascii.
func (p Protocol) fallback() Protocol {
	switch p {
	case Kitty, ITerm2, Sixel:
		return HalfBlocks
	case HalfBlocks:
		return Braille
	default:
		return Ascii
	}
}

// DefaultProtocol picks the initial protocol for a capability snapshot.
//
// Order of precedence: the TERMPIX_PROTOCOL environment override,
// terminal-family overrides, then the generic priority
// Kitty > ITerm2 > Sixel > HalfBlocks > Braille > Ascii gated on caps.
func DefaultProtocol(caps Capabilities) Protocol {
	if override := os.Getenv("TERMPIX_PROTOCOL"); override != "" {
		if p := ParseProtocol(override); p != Auto {
			return p
		}
	}

	termProgram := os.Getenv("TERM_PROGRAM")

	// WezTerm and mintty implement both Kitty and iTerm2 protocols, but
	// their iTerm2 support is the mature one.
	if caps.ITerm2 && (termProgram == "WezTerm" || termProgram == "mintty") {
		return ITerm2
	}

	// Konsole and ghostty mishandle overwrites for Sixel/iTerm2; their
	// Kitty implementation replaces placements cleanly.
	if caps.Kitty && (termProgram == "ghostty" || os.Getenv("KONSOLE_VERSION") != "") {
		return Kitty
	}

	for _, p := range []Protocol{Kitty, ITerm2, Sixel, HalfBlocks, Braille} {
		if p.Supported(caps) {
			return p
		}
	}
	return Ascii
}

// Selector is the protocol fallback state machine. It starts at a
// requested or capability-derived protocol and walks the fallback chain
// each time an encoder reports itself unsupported at render time.
type Selector struct {
	mu       sync.Mutex
	current  Protocol
	onChange func(Protocol)
}

// NewSelector creates a selector starting at the given protocol. Auto
// resolves through DefaultProtocol with the given capabilities.
func NewSelector(initial Protocol, caps Capabilities) *Selector {
	if initial == Auto {
		initial = DefaultProtocol(caps)
	}
	return &Selector{current: initial}
}

// OnChange registers a callback invoked (outside the lock) whenever the
// selected protocol changes. Hosts use it to schedule a re-render.
func (s *Selector) OnChange(fn func(Protocol)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Current returns the currently selected protocol.
func (s *Selector) Current() Protocol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// SupportDetected feeds an encoder's runtime support signal into the
// state machine. false advances to the next protocol in the fallback
// chain; true is a no-op. Ascii never falls back.
func (s *Selector) SupportDetected(supported bool) {
	if supported {
		return
	}

	s.mu.Lock()
	if s.current == Ascii {
		s.mu.Unlock()
		return
	}
	s.current = s.current.fallback()
	next, fn := s.current, s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(next)
	}
}

// Request resets the selector to an explicitly requested protocol,
// re-arming fallback from there. Auto resolves through DefaultProtocol.
func (s *Selector) Request(p Protocol, caps Capabilities) {
	if p == Auto {
		p = DefaultProtocol(caps)
	}

	s.mu.Lock()
	changed := s.current != p
	s.current = p
	fn := s.onChange
	s.mu.Unlock()

	if changed && fn != nil {
		fn(p)
	}
}
