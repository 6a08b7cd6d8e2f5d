package frankentui

import (
	"bytes"
	"errors"
	"log/slog"

	"github.com/charmbracelet/x/ansi"
)

// ErrDimensionMismatch reports a back buffer presented against a
// different-size front buffer. It is a caller bug; the operation is
// dropped and a diagnostic queued.
var ErrDimensionMismatch = errors.New("back buffer dimensions do not match presenter")

// FrameStats summarizes one present call.
type FrameStats struct {
	Runs            int
	CellsChanged    int
	BytesEmitted    int
	ModeTransitions int
}

const (
	syncStart = "\x1b[?2026h"
	syncEnd   = "\x1b[?2026l"

	// syncRunThreshold gates sync-output fencing: single-run frames are
	// already atomic enough not to tear.
	syncRunThreshold = 2
)

// PresenterConfig wires a Presenter.
type PresenterConfig struct {
	Writer *TerminalWriter
	Width  int
	Height int
	Caps   Capabilities
	Pool   *GraphemePool
	Links  *LinkRegistry

	// Inline renders with relative movement into a region below the
	// shell cursor instead of absolute alt-screen addressing.
	Inline bool

	// HideCursor hides the cursor for the duration of each frame and
	// restores it at the end. Fixed for the session.
	HideCursor bool

	Logger *slog.Logger
}

// Presenter converts diff runs into a cost-optimized terminal byte
// stream. It owns the front buffer and remembers cursor position, SGR
// state and the open hyperlink so each frame emits only deltas.
type Presenter struct {
	w     *TerminalWriter
	front *Buffer
	pool  *GraphemePool
	links *LinkRegistry
	caps  Capabilities
	log   *slog.Logger

	inline     bool
	hideCursor bool

	buf        bytes.Buffer
	curX, curY int
	style      sgrState
	link       LinkID
	syncDepth  int
	needFull   bool
}

// NewPresenter creates a presenter with a blank front buffer. The
// terminal is assumed cleared (the session erases the screen when it
// enters a mode), so blank is accurate.
func NewPresenter(cfg PresenterConfig) *Presenter {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Pool == nil {
		cfg.Pool = NewGraphemePool()
	}
	if cfg.Links == nil {
		cfg.Links = NewLinkRegistry()
	}
	front := GetBuffer(cfg.Width, cfg.Height)
	front.SetGraphemePool(cfg.Pool)
	return &Presenter{
		w:          cfg.Writer,
		front:      front,
		pool:       cfg.Pool,
		links:      cfg.Links,
		caps:       cfg.Caps,
		log:        cfg.Logger,
		inline:     cfg.Inline,
		hideCursor: cfg.HideCursor,
		curX:       -1,
		curY:       -1,
	}
}

// Dims returns the front buffer dimensions.
func (p *Presenter) Dims() (width, height int) {
	return p.front.Dims()
}

// Pool returns the grapheme pool shared with the buffers.
func (p *Presenter) Pool() *GraphemePool { return p.pool }

// Links returns the link registry consulted for OSC 8 URLs.
func (p *Presenter) Links() *LinkRegistry { return p.links }

// Invalidate discards the presenter's knowledge of the terminal
// contents. The next present diffs the whole back buffer against blank,
// re-emitting every non-blank cell.
func (p *Presenter) Invalidate() {
	p.front.Clear()
	p.needFull = true
	p.curX, p.curY = -1, -1
}

// Resize atomically replaces the front buffer with a blank one of the
// new size and forces a full redraw. The caller resizes the back buffer
// and clears the terminal before the next present.
func (p *Presenter) Resize(width, height int) {
	old := p.front
	p.front = GetBuffer(width, height)
	p.front.SetGraphemePool(p.pool)
	PutBuffer(old)
	p.needFull = true
	p.curX, p.curY = -1, -1
}

// BeginSync opens an explicit sync-output group. Groups nest; only the
// outermost pair reaches the terminal.
func (p *Presenter) BeginSync() {
	if p.caps.SyncOutput && p.syncDepth == 0 {
		p.w.WriteString(syncStart)
	}
	p.syncDepth++
}

// EndSync closes a sync-output group opened with BeginSync.
func (p *Presenter) EndSync() {
	if p.syncDepth == 0 {
		return
	}
	p.syncDepth--
	if p.caps.SyncOutput && p.syncDepth == 0 {
		p.w.WriteString(syncEnd)
	}
}

// Present diffs back against the front buffer, emits the delta, and on a
// successful flush folds the runs into the front buffer and clears the
// back buffer's dirty state. A write failure leaves the front buffer
// untouched and forces a full redraw next frame. Presenting an unchanged
// buffer emits nothing.
func (p *Presenter) Present(back *Buffer) (FrameStats, error) {
	var stats FrameStats
	bw, bh := back.Dims()
	fw, fh := p.front.Dims()
	if bw != fw || bh != fh {
		p.w.Diagnostic("present dropped: back %dx%d vs front %dx%d", bw, bh, fw, fh)
		p.log.Warn("present dropped on dimension mismatch",
			"back_width", bw, "back_height", bh, "front_width", fw, "front_height", fh)
		return stats, ErrDimensionMismatch
	}

	runs := computeDiff(back, p.front, p.needFull)
	stats.Runs = len(runs)
	stats.CellsChanged = countCells(runs)
	if len(runs) == 0 {
		back.ClearDirty()
		p.needFull = false
		return stats, nil
	}

	p.buf.Reset()
	saved := p.snapshot()
	if p.inline {
		p.emitInline(back, &stats)
	} else {
		p.emitRuns(runs, &stats)
	}
	stats.BytesEmitted = p.buf.Len()

	if err := p.w.WriteFrame(p.buf.Bytes()); err != nil {
		p.restore(saved)
		p.needFull = true
		p.curX, p.curY = -1, -1
		return stats, &TransportError{Err: err}
	}

	if p.inline {
		p.front.CopyFrom(back)
	} else {
		applyRuns(p.front, runs)
	}
	back.ClearDirty()
	p.needFull = false
	p.log.Debug("frame presented",
		"runs", stats.Runs, "cells", stats.CellsChanged, "bytes", stats.BytesEmitted)
	return stats, nil
}

type presenterSnapshot struct {
	curX, curY int
	style      sgrState
	link       LinkID
}

func (p *Presenter) snapshot() presenterSnapshot {
	return presenterSnapshot{curX: p.curX, curY: p.curY, style: p.style, link: p.link}
}

func (p *Presenter) restore(s presenterSnapshot) {
	p.curX, p.curY = s.curX, s.curY
	p.style = s.style
	p.link = s.link
}

// emitRuns renders a frame with absolute addressing (alt-screen mode).
func (p *Presenter) emitRuns(runs []Run, stats *FrameStats) {
	if p.hideCursor {
		p.buf.WriteString(ansi.HideCursor)
		stats.ModeTransitions++
	}
	useSync := p.caps.SyncOutput && p.syncDepth == 0 && len(runs) >= syncRunThreshold
	if useSync {
		p.buf.WriteString(syncStart)
		stats.ModeTransitions++
	}

	for _, r := range runs {
		p.emitRunCells(r.Cells, r.X0, r.Y)
	}
	p.closeLink()

	if useSync {
		p.buf.WriteString(syncEnd)
		stats.ModeTransitions++
	}
	if p.hideCursor {
		p.buf.WriteString(ansi.ShowCursor)
		stats.ModeTransitions++
	}
}

// emitRunCells writes one run's cells, repositioning lazily so skipped
// continuation columns self-heal.
func (p *Presenter) emitRunCells(cells []Cell, x0, y int) {
	for i, c := range cells {
		col := x0 + i
		if c.Content.IsContinuation() {
			continue
		}
		if p.curX != col || p.curY != y {
			p.buf.WriteString(moveSequence(p.curX, p.curY, col, y))
			p.curX, p.curY = col, y
		}
		p.emitCell(c)
	}
}

// emitCell writes one cell's style delta, link delta and content, then
// advances the tracked cursor by the content width.
func (p *Presenter) emitCell(c Cell) {
	want := sgrState{fg: c.FG, bg: c.BG, attr: c.Attr & attrKnown}
	if appendSGR(&p.buf, p.style, want, p.caps.TrueColor) {
		p.style = want
	}

	if p.caps.Hyperlinks && c.Link != p.link {
		if p.link != 0 {
			p.buf.WriteString(ansi.ResetHyperlink())
		}
		if c.Link != 0 {
			if url, ok := p.links.URL(c.Link); ok {
				p.buf.WriteString(ansi.SetHyperlink(url))
			} else {
				// Purged or unknown id: stay unlinked.
				c.Link = 0
			}
		}
		p.link = c.Link
	}

	width := 1
	switch {
	case c.Content.IsRune():
		p.buf.WriteRune(c.Content.Rune())
		width = p.front.contentWidth(c.Content)
	case c.Content.IsPooled():
		if cluster, ok := p.pool.Cluster(c.Content.PoolID()); ok {
			p.buf.WriteString(cluster)
			width = p.pool.Width(c.Content.PoolID())
		} else {
			p.buf.WriteByte(' ')
		}
	default:
		p.buf.WriteByte(' ')
	}
	p.curX += width
}

// closeLink terminates an open hyperlink group at the frame boundary.
func (p *Presenter) closeLink() {
	if p.link != 0 {
		p.buf.WriteString(ansi.ResetHyperlink())
		p.link = 0
	}
}

// emitInline redraws the whole inline region with relative movement.
// The cursor parks at the region origin between frames, every line is
// cleared and rewritten, and the cursor climbs back up at the end. The
// region never uses absolute addressing, so it survives scrollback
// motion above it.
func (p *Presenter) emitInline(back *Buffer, stats *FrameStats) {
	w, h := back.Dims()
	if p.hideCursor {
		p.buf.WriteString(ansi.HideCursor)
		stats.ModeTransitions++
	}
	useSync := p.caps.SyncOutput && p.syncDepth == 0 && h > 1
	if useSync {
		p.buf.WriteString(syncStart)
		stats.ModeTransitions++
	}
	for y := 0; y < h; y++ {
		p.buf.WriteString("\r")
		p.buf.WriteString(ansi.EraseLineRight)
		last := lastOccupied(back, y, w)
		for x := 0; x <= last; x++ {
			c := back.CellAt(x, y)
			if c.Content.IsContinuation() {
				continue
			}
			p.emitCell(c)
		}
		if y < h-1 {
			p.buf.WriteString("\n")
		}
	}
	p.closeLink()
	// Reset to default so shell output below the region is untouched.
	if p.style != (sgrState{}) {
		p.buf.WriteString(ansi.ResetStyle)
		p.style = sgrState{}
	}
	if h > 1 {
		p.buf.WriteString(ansi.CursorUp(h - 1))
	}
	p.buf.WriteString("\r")
	p.curX, p.curY = 0, 0
	if useSync {
		p.buf.WriteString(syncEnd)
		stats.ModeTransitions++
	}
	if p.hideCursor {
		p.buf.WriteString(ansi.ShowCursor)
		stats.ModeTransitions++
	}
}

// lastOccupied returns the highest column on row y whose cell is not a
// default-style blank.
func lastOccupied(b *Buffer, y, w int) int {
	for x := w - 1; x >= 0; x-- {
		if b.CellAt(x, y) != (Cell{}) {
			return x
		}
	}
	return -1
}
