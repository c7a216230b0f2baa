// Package termpix renders raster images in terminal emulators.
//
// It probes the terminal for graphics support (Kitty, iTerm2, Sixel)
// and falls back through Unicode half-blocks and Braille down to plain
// ASCII art, so every terminal gets the best rendition it can display.
//
// Quick use:
//
//	termpix.Open("gopher.png").Width(40).Print()
//
// For TUIs, Widget integrates with Bubble Tea and the overlay Manager
// handles positioning, erasure and Kitty resource lifecycles for
// protocols that draw outside the text flow.
package termpix
