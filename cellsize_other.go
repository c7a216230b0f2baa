//go:build !unix

package termpix

func cellSizeFromWinsize() (cellW, cellH int, ok bool) {
	return 0, 0, false
}
