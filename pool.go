package frankentui

import "sync"

// Buffer pool — atomic resize allocates a fresh front/back pair every
// time the terminal changes size; recycling the old pair keeps resize
// storms allocation-flat.
var bufferPool = sync.Pool{
	New: func() any { return &Buffer{} },
}

// GetBuffer returns a blank buffer from the pool, reusing the cell slice
// when its capacity fits.
func GetBuffer(width, height int) *Buffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	b := bufferPool.Get().(*Buffer)
	needed := width * height
	if cap(b.cells) < needed {
		b.cells = make([]Cell, needed)
	} else {
		b.cells = b.cells[:needed]
		for i := range b.cells {
			b.cells[i] = Cell{}
		}
	}
	b.width = width
	b.height = height
	if cap(b.dirty)*64 < height || b.dirty == nil {
		b.dirty = newBitset(height)
	} else {
		b.dirty = b.dirty[:(height+63)/64]
		b.dirty.clear()
	}
	if cap(b.rows) < height {
		b.rows = make([]rowSpans, height)
	} else {
		b.rows = b.rows[:height]
		for i := range b.rows {
			b.rows[i].reset()
		}
	}
	b.pool = NewGraphemePool()
	return b
}

// PutBuffer returns a buffer to the pool. The grapheme pool reference is
// dropped so recycled buffers never alias a dead session's content.
func PutBuffer(b *Buffer) {
	if b == nil {
		return
	}
	b.pool = nil
	bufferPool.Put(b)
}
