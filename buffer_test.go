package frankentui

import "testing"

func TestSpanTracking(t *testing.T) {
	t.Run("SparseEditsMerge", func(t *testing.T) {
		buf := NewBuffer(40, 10)
		style := DefaultStyle()
		buf.Set(5, 3, NewCell('a', style))
		buf.Set(6, 3, NewCell('b', style))
		buf.Set(20, 3, NewCell('c', style))

		spans, overflow := buf.RowSpans(3)
		if overflow {
			t.Fatal("no overflow expected")
		}
		want := []Span{{X0: 5, X1: 7}, {X0: 20, X1: 21}}
		if len(spans) != len(want) {
			t.Fatalf("spans = %v, want %v", spans, want)
		}
		for i := range want {
			if spans[i] != want[i] {
				t.Errorf("span %d = %v, want %v", i, spans[i], want[i])
			}
		}
	})

	t.Run("SpansStaySortedDisjoint", func(t *testing.T) {
		buf := NewBuffer(80, 4)
		cols := []int{40, 10, 41, 9, 70, 0, 39}
		for _, x := range cols {
			buf.Set(x, 0, NewCell('x', DefaultStyle()))
		}
		spans, overflow := buf.RowSpans(0)
		if overflow {
			t.Fatal("unexpected overflow")
		}
		for i, s := range spans {
			if s.X0 >= s.X1 || s.X0 < 0 || s.X1 > 80 {
				t.Errorf("span %d out of range: %v", i, s)
			}
			if i > 0 && spans[i-1].X1 >= s.X0 {
				t.Errorf("spans overlap or touch: %v then %v", spans[i-1], s)
			}
		}
	})

	t.Run("SpanSoundness", func(t *testing.T) {
		buf := NewBuffer(100, 2)
		changed := map[int]bool{}
		for _, x := range []int{3, 50, 51, 97, 4, 30} {
			buf.Set(x, 1, NewCell('z', DefaultStyle()))
			changed[x] = true
		}
		spans, overflow := buf.RowSpans(1)
		if overflow {
			return
		}
		for x := range changed {
			covered := false
			for _, s := range spans {
				if x >= s.X0 && x < s.X1 {
					covered = true
				}
			}
			if !covered {
				t.Errorf("changed column %d not covered by spans %v", x, spans)
			}
		}
	})

	t.Run("OverflowAtCap", func(t *testing.T) {
		buf := NewBuffer(200, 1)
		// Disjoint, non-adjacent single-cell spans until the cap trips.
		for i := 0; i < 70; i++ {
			buf.Set(i*2, 0, NewCell('x', DefaultStyle()))
		}
		_, overflow := buf.RowSpans(0)
		if !overflow {
			t.Error("expected overflow past the span cap")
		}
		if !buf.RowDirty(0) {
			t.Error("overflow row must stay dirty")
		}
	})

	t.Run("EqualWriteDoesNotDirty", func(t *testing.T) {
		buf := NewBuffer(10, 2)
		c := NewCell('q', DefaultStyle())
		buf.Set(4, 0, c)
		buf.ClearDirty()
		buf.Set(4, 0, c)
		if buf.RowDirty(0) {
			t.Error("rewriting an identical cell must not dirty the row")
		}
	})

	t.Run("ClearDirty", func(t *testing.T) {
		buf := NewBuffer(10, 3)
		buf.Set(1, 1, NewCell('x', DefaultStyle()))
		buf.ClearDirty()
		if buf.RowDirty(1) {
			t.Error("row still dirty after ClearDirty")
		}
		spans, overflow := buf.RowSpans(1)
		if len(spans) != 0 || overflow {
			t.Errorf("spans survived ClearDirty: %v %v", spans, overflow)
		}
	})
}

func TestWideGraphemes(t *testing.T) {
	t.Run("HeadAndContinuation", func(t *testing.T) {
		buf := NewBuffer(20, 2)
		buf.Set(10, 0, NewCell('世', DefaultStyle()))
		if !buf.CellAt(11, 0).Content.IsContinuation() {
			t.Fatal("expected continuation at x+1")
		}
		if got := buf.CellAt(10, 0).Content.Rune(); got != '世' {
			t.Errorf("head rune = %q", got)
		}
	})

	t.Run("OverwriteContinuationBlanksHead", func(t *testing.T) {
		buf := NewBuffer(20, 2)
		buf.Set(10, 0, NewCell('世', DefaultStyle()))
		buf.ClearDirty()
		buf.Set(11, 0, NewCell('x', DefaultStyle()))
		if !buf.CellAt(10, 0).Content.IsBlank() {
			t.Error("head must blank when its continuation is overwritten")
		}
		if buf.CellAt(11, 0).Content.Rune() != 'x' {
			t.Error("overwrite lost")
		}
		// Both columns changed in the same operation; spans must cover both.
		spans, overflow := buf.RowSpans(0)
		if !overflow {
			covered := func(x int) bool {
				for _, s := range spans {
					if x >= s.X0 && x < s.X1 {
						return true
					}
				}
				return false
			}
			if !covered(10) || !covered(11) {
				t.Errorf("spans %v do not cover the wide pair", spans)
			}
		}
	})

	t.Run("OverwriteHeadBlanksContinuation", func(t *testing.T) {
		buf := NewBuffer(20, 2)
		buf.Set(10, 0, NewCell('世', DefaultStyle()))
		buf.Set(10, 0, NewCell('x', DefaultStyle()))
		if !buf.CellAt(11, 0).Content.IsBlank() {
			t.Error("continuation must blank when its head is overwritten")
		}
	})

	t.Run("WideAtLastColumnForbidden", func(t *testing.T) {
		buf := NewBuffer(20, 2)
		buf.Set(19, 0, NewCell('世', DefaultStyle()))
		if !buf.CellAt(19, 0).Content.IsBlank() {
			t.Error("wide write in last column must blank instead")
		}
	})
}

func TestBufferOps(t *testing.T) {
	t.Run("FillRect", func(t *testing.T) {
		buf := NewBuffer(10, 10)
		c := NewCell('#', DefaultStyle())
		buf.Fill(Rect{X: 2, Y: 3, W: 4, H: 2}, c)
		if buf.CellAt(2, 3) != c || buf.CellAt(5, 4) != c {
			t.Error("rect interior not filled")
		}
		if buf.CellAt(6, 3) == c || buf.CellAt(2, 5) == c {
			t.Error("fill escaped the rect")
		}
	})

	t.Run("FillAllOverflowsEveryRow", func(t *testing.T) {
		buf := NewBuffer(8, 4)
		buf.FillAll(NewCell('.', DefaultStyle()))
		for y := 0; y < 4; y++ {
			if !buf.RowDirty(y) {
				t.Errorf("row %d not dirty", y)
			}
			if _, overflow := buf.RowSpans(y); !overflow {
				t.Errorf("row %d not overflow", y)
			}
		}
	})

	t.Run("WriteStringPoolsClusters", func(t *testing.T) {
		pool := NewGraphemePool()
		buf := NewBuffer(20, 1)
		buf.SetGraphemePool(pool)
		n := buf.WriteString(0, 0, "a👩‍🚀b", DefaultStyle())
		if n != 4 {
			t.Errorf("columns written = %d, want 4", n)
		}
		if !buf.CellAt(0, 0).Content.IsRune() {
			t.Error("ascii should stay a rune")
		}
		if !buf.CellAt(1, 0).Content.IsPooled() {
			t.Error("multi-rune cluster should be pooled")
		}
		if !buf.CellAt(2, 0).Content.IsContinuation() {
			t.Error("wide cluster needs a continuation")
		}
		if buf.CellAt(3, 0).Content.Rune() != 'b' {
			t.Error("text after cluster misplaced")
		}
	})

	t.Run("WriteStringWithoutExternalPool", func(t *testing.T) {
		// Buffers own a default pool: multi-rune clusters intern there
		// instead of being truncated to their base rune.
		buf := NewBuffer(20, 1)
		n := buf.WriteString(0, 0, "a👩‍🚀b", DefaultStyle())
		if n != 4 {
			t.Errorf("columns written = %d, want 4", n)
		}
		head := buf.CellAt(1, 0)
		if !head.Content.IsPooled() {
			t.Fatal("cluster must be pooled, not truncated")
		}
		cluster, ok := buf.pool.Cluster(head.Content.PoolID())
		if !ok || cluster != "👩‍🚀" {
			t.Errorf("pooled cluster = %q %v", cluster, ok)
		}
		if !buf.CellAt(2, 0).Content.IsContinuation() {
			t.Error("wide cluster needs a continuation")
		}
		if buf.CellAt(3, 0).Content.Rune() != 'b' {
			t.Error("advance desynced from written content")
		}
	})

	t.Run("Swap", func(t *testing.T) {
		a := NewBuffer(5, 5)
		b := NewBuffer(5, 5)
		a.Set(1, 1, NewCell('A', DefaultStyle()))
		b.Set(1, 1, NewCell('B', DefaultStyle()))
		a.Swap(b)
		if a.CellAt(1, 1).Content.Rune() != 'B' || b.CellAt(1, 1).Content.Rune() != 'A' {
			t.Error("swap did not exchange cells")
		}
	})

	t.Run("ResizePreservesAndClips", func(t *testing.T) {
		buf := NewBuffer(80, 24)
		buf.Set(60, 5, NewCell('X', DefaultStyle()))
		buf.Set(10, 5, NewCell('Y', DefaultStyle()))
		buf.Resize(40, 24)
		if w, h := buf.Dims(); w != 40 || h != 24 {
			t.Fatalf("dims = %dx%d", w, h)
		}
		if buf.CellAt(10, 5).Content.Rune() != 'Y' {
			t.Error("content inside new bounds lost")
		}
		for y := 0; y < 24; y++ {
			if !buf.RowDirty(y) {
				t.Errorf("row %d not dirty after resize", y)
			}
		}
	})

	t.Run("OutOfBoundsDropped", func(t *testing.T) {
		buf := NewBuffer(4, 4)
		buf.Set(-1, 0, NewCell('x', DefaultStyle()))
		buf.Set(0, 99, NewCell('x', DefaultStyle()))
		for y := 0; y < 4; y++ {
			if buf.RowDirty(y) {
				t.Error("out-of-bounds write dirtied the grid")
			}
		}
	})
}
