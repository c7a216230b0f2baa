package termpix

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// RedrawMsg asks the widget to re-encode, e.g. after the host switched
// protocols on the selector.
type RedrawMsg struct{ Protocol Protocol }

// drawnMsg carries one completed render back to the event loop.
type drawnMsg struct {
	frame string
	cols  int
	rows  int
	err   error
}

// Widget embeds an image into a Bubble Tea model. Inline protocols
// render through View like any other component; out-of-band protocols
// reserve their cell box in View and paint it via the overlay manager
// from a command, so Bubble Tea's own diffing never touches the pixels.
//
// All mutable widget state is owned by the event loop: commands only
// encode and draw through the internally locked overlay, and report
// results as a drawnMsg that Update applies.
type Widget struct {
	img     *Image
	mgr     *Manager
	overlay *Overlay

	frame string
	cols  int
	rows  int
	err   error
}

// NewWidget wraps an Image for TUI use. All widgets of a program
// should share one Manager; nil creates a private one.
func NewWidget(img *Image, mgr *Manager) *Widget {
	if mgr == nil {
		mgr = NewManager(nil, nil)
	}
	img.ensureSelector()
	return &Widget{img: img, mgr: mgr, overlay: mgr.Mount(Anchor{Row: 1, Col: 1})}
}

// SetAnchor positions the widget's cell box. Hosts call this whenever
// their layout moves the widget.
func (w *Widget) SetAnchor(a Anchor) tea.Cmd {
	if err := w.overlay.Move(a); err != nil {
		w.err = err
		return nil
	}
	return w.redraw()
}

// SetImage swaps the source, invalidating any terminal-side resources.
func (w *Widget) SetImage(img *Image) tea.Cmd {
	w.img = img
	w.frame = ""
	img.ensureSelector()
	_ = w.overlay.InvalidateImage()
	return w.redraw()
}

func (w *Widget) Init() tea.Cmd {
	return w.redraw()
}

func (w *Widget) Update(msg tea.Msg) (*Widget, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.frame = ""
		return w, w.redraw()
	case drawnMsg:
		w.err = msg.err
		if msg.err == nil {
			w.frame = msg.frame
			w.cols, w.rows = msg.cols, msg.rows
		}
		return w, nil
	case RedrawMsg:
		w.frame = ""
		return w, w.redraw()
	}
	return w, nil
}

// View returns the widget's in-flow content: the rendered frame for
// inline protocols, or a blank box of the negotiated footprint for
// out-of-band ones.
func (w *Widget) View() string {
	if w.frame == "" && w.err != nil {
		return w.img.Placeholder()
	}
	if w.frame != "" {
		return w.frame
	}
	cols, rows := w.cols, w.rows
	if cols == 0 || rows == 0 {
		t := w.img.target()
		cols, rows = t.Cols, t.Rows
	}
	blank := strings.Repeat(" ", cols)
	lines := make([]string, rows)
	for i := range lines {
		lines[i] = blank
	}
	return strings.Join(lines, "\n")
}

// Unmount tears down out-of-band state. Hosts call it before quitting
// or removing the widget from their layout.
func (w *Widget) Unmount() {
	_ = w.overlay.Unmount()
}

// redraw encodes off the event loop. The closure captures the image
// and overlay, never the widget: results come back as a drawnMsg and
// are applied by Update, so View always sees consistent state.
func (w *Widget) redraw() tea.Cmd {
	img, overlay := w.img, w.overlay
	return func() tea.Msg {
		out, proto, err := img.encode(overlay.KittyID())
		if err != nil {
			return drawnMsg{err: err}
		}
		if out.Inline() {
			return drawnMsg{
				frame: strings.Join(out.Lines, "\n"),
				cols:  out.Cols,
				rows:  out.Rows,
			}
		}
		if err := overlay.Draw(out, proto); err != nil {
			return drawnMsg{err: err}
		}
		return drawnMsg{cols: out.Cols, rows: out.Rows}
	}
}
