package frankentui

import (
	"testing"
	"unsafe"
)

func TestCellPacking(t *testing.T) {
	t.Run("Size", func(t *testing.T) {
		// The 16-byte packing is a design contract: raw equality must be
		// semantic equality, which requires no padding bytes.
		if got := unsafe.Sizeof(Cell{}); got != 16 {
			t.Fatalf("Cell is %d bytes, want 16", got)
		}
	})

	t.Run("EqualityMatchesFields", func(t *testing.T) {
		a := NewCell('A', DefaultStyle().Bold().Foreground(RGB(1, 2, 3)))
		b := NewCell('A', DefaultStyle().Bold().Foreground(RGB(1, 2, 3)))
		if a != b {
			t.Error("cells built from equal logical values must compare equal")
		}

		c := b
		c.Attr = c.Attr.Without(AttrBold)
		if a == c {
			t.Error("attribute change must break equality")
		}
		d := b
		d.Link = 7
		if a == d {
			t.Error("link change must break equality")
		}
	})

	t.Run("BlankVsSpace", func(t *testing.T) {
		if BlankCell() == NewCell(' ', DefaultStyle()) {
			t.Error("blank marker and explicit space are distinct content kinds")
		}
	})
}

func TestContentKinds(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		check   func(Content) bool
	}{
		{"Blank", BlankContent, Content.IsBlank},
		{"Rune", RuneContent('界'), Content.IsRune},
		{"Pooled", PooledContent(42), Content.IsPooled},
		{"Continuation", ContinuationContent, Content.IsContinuation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.check(tt.content) {
				t.Errorf("%s kind not recognized", tt.name)
			}
		})
	}

	if r := RuneContent('界').Rune(); r != '界' {
		t.Errorf("rune round-trip: got %q", r)
	}
	if id := PooledContent(42).PoolID(); id != 42 {
		t.Errorf("pool id round-trip: got %d", id)
	}
}

func TestColor(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		if !DefaultColor.IsDefault() {
			t.Error("zero color must be default")
		}
	})

	t.Run("RGB", func(t *testing.T) {
		c := RGB(10, 20, 30)
		if !c.IsRGB() {
			t.Fatal("expected RGB mode")
		}
		r, g, b := c.RGBParts()
		if r != 10 || g != 20 || b != 30 {
			t.Errorf("got %d,%d,%d", r, g, b)
		}
	})

	t.Run("Indexed", func(t *testing.T) {
		c := Indexed(196)
		if !c.IsIndexed() || c.Index() != 196 {
			t.Errorf("indexed round-trip failed: %v", c)
		}
	})

	t.Run("BlackIsNotDefault", func(t *testing.T) {
		if Indexed(0).IsDefault() {
			t.Error("indexed 0 must be distinct from default")
		}
	})
}

func TestGraphemePool(t *testing.T) {
	p := NewGraphemePool()

	id1, w1 := p.Intern("👩‍🚀")
	if id1 == 0 {
		t.Fatal("id 0 is reserved")
	}
	if w1 != 2 {
		t.Errorf("astronaut emoji width = %d, want 2", w1)
	}

	id2, _ := p.Intern("👩‍🚀")
	if id2 != id1 {
		t.Errorf("dedup failed: %d vs %d", id2, id1)
	}

	cluster, ok := p.Cluster(id1)
	if !ok || cluster != "👩‍🚀" {
		t.Errorf("cluster round-trip: %q %v", cluster, ok)
	}

	if _, ok := p.Cluster(0); ok {
		t.Error("id 0 must not resolve")
	}
	if p.Len() != 1 {
		t.Errorf("pool length = %d, want 1", p.Len())
	}
}

func TestLinkRegistry(t *testing.T) {
	r := NewLinkRegistry()

	id := r.Register("https://x.y")
	if id == 0 {
		t.Fatal("id 0 is reserved")
	}
	if again := r.Register("https://x.y"); again != id {
		t.Errorf("dedup failed: %d vs %d", again, id)
	}
	if other := r.Register("https://a.b"); other == id {
		t.Error("distinct URLs must get distinct ids")
	}

	url, ok := r.URL(id)
	if !ok || url != "https://x.y" {
		t.Errorf("URL round-trip: %q %v", url, ok)
	}
	if _, ok := r.URL(0); ok {
		t.Error("id 0 must not resolve")
	}
	if r.Register("") != 0 {
		t.Error("empty URL maps to no-link")
	}
}
