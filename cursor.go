package frankentui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// CursorShape selects the terminal cursor glyph (DECSCUSR).
type CursorShape int

const (
	CursorDefault        CursorShape = 0
	CursorBlockBlink     CursorShape = 1
	CursorBlock          CursorShape = 2
	CursorUnderlineBlink CursorShape = 3
	CursorUnderline      CursorShape = 4
	CursorBarBlink       CursorShape = 5
	CursorBar            CursorShape = 6
)

// sequence returns the DECSCUSR escape for the shape.
func (s CursorShape) sequence() string {
	var b []byte
	b = append(b, "\x1b["...)
	b = appendInt(b, int(s))
	b = append(b, " q"...)
	return string(b)
}

// maxBackspaceRun bounds how many raw BS bytes are considered as a
// candidate; beyond this CUB always wins anyway.
const maxBackspaceRun = 8

// moveSequence returns the cheapest byte sequence that moves the cursor
// from (fromX, fromY) to (x, y). A negative from-coordinate means the
// position is unknown and forces absolute addressing. Candidates are the
// encoded CUP, CHA, CUF, CUB, a short run of BS, CR(+CUF), and CR LF for
// the next row; cost is byte length and CUP is always in the running, so
// the chosen sequence is never longer than CUP for the same move.
func moveSequence(fromX, fromY, x, y int) string {
	cup := ansi.CursorPosition(x+1, y+1)
	if fromX < 0 || fromY < 0 {
		return cup
	}
	if fromX == x && fromY == y {
		return ""
	}
	best := cup
	consider := func(s string) {
		if s != "" && len(s) < len(best) {
			best = s
		}
	}
	switch y {
	case fromY:
		consider(ansi.HorizontalPositionAbsolute(x + 1))
		if dx := x - fromX; dx > 0 {
			consider(ansi.CursorForward(dx))
		} else if dx < 0 {
			consider(ansi.CursorBackward(-dx))
			if -dx <= maxBackspaceRun {
				consider(strings.Repeat("\b", -dx))
			}
		}
		if x == 0 {
			consider("\r")
		} else {
			consider("\r" + ansi.CursorForward(x))
		}
	case fromY + 1:
		// Raw mode leaves OPOST off, so LF is a pure line feed.
		if x == 0 {
			consider("\r\n")
		} else {
			consider("\r\n" + ansi.CursorForward(x))
		}
	}
	return best
}
