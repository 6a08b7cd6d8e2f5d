package frankentui

import (
	"github.com/mattn/go-runewidth"
)

// Span is a half-open interval [X0, X1) of dirty columns on one row.
type Span struct {
	X0, X1 int
}

// maxRowSpans caps per-row span records. Beyond the cap the row degrades
// to overflow and is scanned in full at diff time.
const maxRowSpans = 64

// rowSpans tracks where a row has changed since the last ClearDirty.
// Spans stay sorted by X0, disjoint and non-adjacent; overflow replaces
// the list entirely.
type rowSpans struct {
	overflow bool
	spans    []Span
}

// mark records [x0, x1) as dirty, merging with overlapping or adjacent
// spans.
func (r *rowSpans) mark(x0, x1 int) {
	if r.overflow || x0 >= x1 {
		return
	}
	// Insertion point: spans ending strictly before x0 keep their place.
	lo := 0
	for lo < len(r.spans) && r.spans[lo].X1 < x0 {
		lo++
	}
	hi := lo
	for hi < len(r.spans) && r.spans[hi].X0 <= x1 {
		if r.spans[hi].X0 < x0 {
			x0 = r.spans[hi].X0
		}
		if r.spans[hi].X1 > x1 {
			x1 = r.spans[hi].X1
		}
		hi++
	}
	if lo == hi {
		if len(r.spans) >= maxRowSpans {
			r.overflow = true
			r.spans = r.spans[:0]
			return
		}
		r.spans = append(r.spans, Span{})
		copy(r.spans[lo+1:], r.spans[lo:])
		r.spans[lo] = Span{X0: x0, X1: x1}
		return
	}
	r.spans[lo] = Span{X0: x0, X1: x1}
	r.spans = append(r.spans[:lo+1], r.spans[hi:]...)
}

func (r *rowSpans) reset() {
	r.overflow = false
	r.spans = r.spans[:0]
}

// bitset is a fixed-capacity bit set over row indices.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) set(i int)      { b[i>>6] |= 1 << (uint(i) & 63) }
func (b bitset) get(i int) bool { return b[i>>6]&(1<<(uint(i)&63)) != 0 }

func (b bitset) clear() {
	for i := range b {
		b[i] = 0
	}
}

// Rect is a rectangle in cell coordinates.
type Rect struct {
	X, Y, W, H int
}

// Buffer is a width × height grid of cells with row-level dirty tracking
// and per-row dirty spans. Two same-size buffers form the front/back
// pair the diff engine works over.
type Buffer struct {
	cells  []Cell
	width  int
	height int

	dirty bitset
	rows  []rowSpans

	pool *GraphemePool
}

// NewBuffer creates a blank buffer with the given dimensions. Every
// buffer owns a grapheme pool — the single source of truth for
// multi-byte content — so cells only ever carry ids; front/back pairs
// replace it with a shared one via SetGraphemePool.
func NewBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Buffer{
		cells:  make([]Cell, width*height),
		width:  width,
		height: height,
		dirty:  newBitset(height),
		rows:   make([]rowSpans, height),
		pool:   NewGraphemePool(),
	}
}

// SetGraphemePool attaches the pool used to intern content and resolve
// widths. Buffers in a front/back pair share one pool.
func (b *Buffer) SetGraphemePool(p *GraphemePool) {
	if p == nil {
		return
	}
	b.pool = p
}

// Dims returns the buffer dimensions.
func (b *Buffer) Dims() (width, height int) {
	return b.width, b.height
}

// Width returns the buffer width.
func (b *Buffer) Width() int { return b.width }

// Height returns the buffer height.
func (b *Buffer) Height() int { return b.height }

// InBounds returns true if the given coordinates are within the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Buffer) index(x, y int) int {
	return y*b.width + x
}

// CellAt returns the cell at (x, y), or a blank cell out of bounds.
func (b *Buffer) CellAt(x, y int) Cell {
	if !b.InBounds(x, y) {
		return BlankCell()
	}
	return b.cells[b.index(x, y)]
}

// contentWidth returns the display width of a cell's content in columns.
func (b *Buffer) contentWidth(c Content) int {
	switch {
	case c.IsRune():
		w := runewidth.RuneWidth(c.Rune())
		if w < 1 {
			w = 1
		}
		if w > 2 {
			w = 2
		}
		return w
	case c.IsPooled():
		return b.pool.Width(c.PoolID())
	default:
		return 1
	}
}

// markDirty records [x0, x1) on row y.
func (b *Buffer) markDirty(y, x0, x1 int) {
	b.dirty.set(y)
	b.rows[y].mark(x0, x1)
}

// Set writes cell at (x, y), maintaining the wide-grapheme discipline:
// a 2-column content also claims x+1 with a continuation marker, and any
// write that lands on half of an existing wide pair blanks the other
// half in the same operation. Writes outside the grid are dropped. A
// 2-column write in the last column is forbidden and blanks the cell
// instead.
func (b *Buffer) Set(x, y int, c Cell) {
	if !b.InBounds(x, y) {
		return
	}
	w := b.contentWidth(c.Content)
	if w == 2 && x == b.width-1 {
		c.Content = BlankContent
		w = 1
	}

	b.clearWideAt(x, y)
	if w == 2 {
		b.clearWideAt(x+1, y)
	}

	idx := b.index(x, y)
	if b.cells[idx] != c {
		b.cells[idx] = c
		b.markDirty(y, x, x+1)
	}
	if w == 2 {
		cont := c
		cont.Content = ContinuationContent
		if b.cells[idx+1] != cont {
			b.cells[idx+1] = cont
			b.markDirty(y, x+1, x+2)
		}
	}
}

// clearWideAt breaks up a wide pair that overlaps (x, y): overwriting a
// continuation blanks the head to its left, overwriting a head blanks
// its continuation.
func (b *Buffer) clearWideAt(x, y int) {
	idx := b.index(x, y)
	old := b.cells[idx]
	switch {
	case old.Content.IsContinuation() && x > 0:
		head := b.cells[idx-1]
		if b.contentWidth(head.Content) == 2 {
			head.Content = BlankContent
			b.cells[idx-1] = head
			b.markDirty(y, x-1, x)
		}
	case b.contentWidth(old.Content) == 2 && x+1 < b.width:
		if b.cells[idx+1].Content.IsContinuation() {
			cont := b.cells[idx+1]
			cont.Content = BlankContent
			b.cells[idx+1] = cont
			b.markDirty(y, x+1, x+2)
		}
	}
}

// Fill sets every cell in the rectangle, clipped to the grid.
func (b *Buffer) Fill(r Rect, c Cell) {
	x0, y0 := r.X, r.Y
	x1, y1 := r.X+r.W, r.Y+r.H
	if x0 < 0 {
		x0 = 0
	}
	if y0 < 0 {
		y0 = 0
	}
	if x1 > b.width {
		x1 = b.width
	}
	if y1 > b.height {
		y1 = b.height
	}
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			b.Set(x, y, c)
		}
	}
}

// FillAll sets every cell and marks every row overflow.
func (b *Buffer) FillAll(c Cell) {
	if b.contentWidth(c.Content) == 2 {
		c.Content = BlankContent
	}
	for i := range b.cells {
		b.cells[i] = c
	}
	b.MarkAllDirty()
}

// Clear blanks the buffer.
func (b *Buffer) Clear() {
	b.FillAll(BlankCell())
}

// WriteString writes s at (x, y) one grapheme cluster at a time,
// interning multi-rune clusters in the attached pool. Returns the number
// of columns written. Content past the right edge is clipped.
func (b *Buffer) WriteString(x, y int, s string, style Style) int {
	if y < 0 || y >= b.height {
		return 0
	}
	written := 0
	graphemes(s, func(cluster string, width int) {
		if x >= b.width {
			return
		}
		var content Content
		if singleRune(cluster) {
			for _, r := range cluster {
				content = RuneContent(r)
				break
			}
		} else {
			id, w := b.pool.Intern(cluster)
			content = PooledContent(id)
			width = w
		}
		cell := Cell{Content: content, FG: style.FG, BG: style.BG, Attr: style.Attr, Link: style.Link}
		b.Set(x, y, cell)
		x += width
		written += width
	})
	return written
}

func singleRune(s string) bool {
	n := 0
	for range s {
		n++
		if n > 1 {
			return false
		}
	}
	return n == 1
}

// RowDirty returns true if the row changed since the last ClearDirty.
func (b *Buffer) RowDirty(y int) bool {
	if y < 0 || y >= b.height {
		return false
	}
	return b.dirty.get(y)
}

// RowSpans returns a copy of the dirty spans for a row and whether the
// row is in overflow.
func (b *Buffer) RowSpans(y int) ([]Span, bool) {
	if y < 0 || y >= b.height {
		return nil, false
	}
	r := &b.rows[y]
	out := make([]Span, len(r.spans))
	copy(out, r.spans)
	return out, r.overflow
}

// ClearDirty clears dirty rows and spans. The presenter calls this after
// a successful flush.
func (b *Buffer) ClearDirty() {
	b.dirty.clear()
	for i := range b.rows {
		b.rows[i].reset()
	}
}

// MarkAllDirty forces every row into overflow.
func (b *Buffer) MarkAllDirty() {
	for y := 0; y < b.height; y++ {
		b.dirty.set(y)
		b.rows[y].overflow = true
		b.rows[y].spans = b.rows[y].spans[:0]
	}
}

// Swap exchanges the cell arrays of two same-size buffers, rotating a
// front/back pair at a frame boundary. Mismatched dimensions drop the
// operation.
func (b *Buffer) Swap(other *Buffer) {
	if b.width != other.width || b.height != other.height {
		return
	}
	b.cells, other.cells = other.cells, b.cells
	b.dirty, other.dirty = other.dirty, b.dirty
	b.rows, other.rows = other.rows, b.rows
}

// CopyFrom copies all cells from src. Requires identical dimensions.
func (b *Buffer) CopyFrom(src *Buffer) {
	if b.width != src.width || b.height != src.height {
		return
	}
	copy(b.cells, src.cells)
	b.MarkAllDirty()
}

// Resize changes the buffer dimensions in place, preserving content
// where it fits. Every row of the result is dirty. Session-level resize
// builds a fresh same-size pair instead; this is the single-buffer
// primitive beneath it.
func (b *Buffer) Resize(width, height int) {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	if width == b.width && height == b.height {
		return
	}

	cells := make([]Cell, width*height)
	minW, minH := b.width, b.height
	if width < minW {
		minW = width
	}
	if height < minH {
		minH = height
	}
	for y := 0; y < minH; y++ {
		copy(cells[y*width:y*width+minW], b.cells[y*b.width:y*b.width+minW])
	}
	// A wide head split by the new right edge loses its continuation.
	if width < b.width && width > 0 {
		for y := 0; y < minH; y++ {
			last := &cells[y*width+width-1]
			if b.contentWidth(last.Content) == 2 {
				last.Content = BlankContent
			}
		}
	}

	b.cells = cells
	b.width = width
	b.height = height
	b.dirty = newBitset(height)
	b.rows = make([]rowSpans, height)
	b.MarkAllDirty()
}
