package frankentui

import (
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// GraphemePool interns multi-byte grapheme clusters so cells can stay a
// fixed 16 bytes. Entries are appended once and never move; ids are
// stable for the pool's lifetime and deduplicated by content. Display
// width (1 or 2 columns) is computed at insert and cached with the entry.
type GraphemePool struct {
	mu      sync.RWMutex
	ids     map[string]uint32
	entries []graphemeEntry
}

type graphemeEntry struct {
	cluster string
	width   uint8
}

// maxPoolID is the largest id representable in a cell's content payload.
const maxPoolID = contentPayloadMask

// NewGraphemePool creates an empty pool. Id 0 is never issued so a zero
// pool id in a content word is always invalid.
func NewGraphemePool() *GraphemePool {
	return &GraphemePool{
		ids:     make(map[string]uint32),
		entries: []graphemeEntry{{}},
	}
}

// Intern returns the id and display width for a grapheme cluster,
// inserting it on first sight. Width is clamped to the 1..2 column range
// terminals render.
func (p *GraphemePool) Intern(cluster string) (id uint32, width int) {
	p.mu.RLock()
	if id, ok := p.ids[cluster]; ok {
		w := p.entries[id].width
		p.mu.RUnlock()
		return id, int(w)
	}
	p.mu.RUnlock()

	p.mu.Lock()
	defer p.mu.Unlock()
	if id, ok := p.ids[cluster]; ok {
		return id, int(p.entries[id].width)
	}
	w := clusterWidth(cluster)
	id = uint32(len(p.entries))
	if id > maxPoolID {
		// Pool exhausted. Re-issue the last slot rather than corrupt the
		// content word; a diagnostic-worthy state no real session reaches.
		id = maxPoolID
		return id, int(p.entries[len(p.entries)-1].width)
	}
	p.entries = append(p.entries, graphemeEntry{cluster: cluster, width: uint8(w)})
	p.ids[cluster] = id
	return id, w
}

// Cluster returns the UTF-8 bytes for an id.
func (p *GraphemePool) Cluster(id uint32) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if id == 0 || int(id) >= len(p.entries) {
		return "", false
	}
	return p.entries[id].cluster, true
}

// Width returns the cached display width for an id, defaulting to 1 for
// unknown ids.
func (p *GraphemePool) Width(id uint32) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if id == 0 || int(id) >= len(p.entries) {
		return 1
	}
	return int(p.entries[id].width)
}

// Len returns the number of interned clusters.
func (p *GraphemePool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries) - 1
}

// clusterWidth computes the display width of one grapheme cluster.
func clusterWidth(cluster string) int {
	w := runewidth.StringWidth(cluster)
	if w < 1 {
		w = 1
	}
	if w > 2 {
		w = 2
	}
	return w
}

// graphemes iterates the clusters of s, calling fn with each cluster and
// its display width. Zero-width clusters are folded into width 1 so the
// grid always advances.
func graphemes(s string, fn func(cluster string, width int)) {
	state := -1
	for len(s) > 0 {
		cluster, rest, width, st := uniseg.FirstGraphemeClusterInString(s, state)
		if width < 1 {
			width = 1
		}
		if width > 2 {
			width = 2
		}
		fn(cluster, width)
		s, state = rest, st
	}
}
