package frankentui

import (
	"bytes"
	"fmt"

	"github.com/muesli/termenv"
)

// sgrState is the style the terminal currently has applied.
type sgrState struct {
	fg, bg Color
	attr   Attr
}

// appendSGR writes the SGR sequence transitioning from one style to
// another. Two encodings are built — the attribute-level delta, and a
// full reset-then-set — and the shorter one wins. Returns true if
// anything was emitted.
func appendSGR(buf *bytes.Buffer, from, to sgrState, trueColor bool) bool {
	to.attr &= attrKnown
	from.attr &= attrKnown
	if from == to {
		return false
	}

	delta := sgrDeltaParams(from, to, trueColor)
	reset := sgrResetParams(to, trueColor)
	params := delta
	if len(reset) < len(delta) {
		params = reset
	}
	buf.WriteString("\x1b[")
	buf.Write(params)
	buf.WriteByte('m')
	return true
}

// sgrDeltaParams encodes only the attributes and colors that changed.
func sgrDeltaParams(from, to sgrState, trueColor bool) []byte {
	var b []byte
	removed := from.attr &^ to.attr
	added := to.attr &^ from.attr

	// 22 clears both bold and dim; re-add whichever survives.
	if removed.Has(AttrBold) || removed.Has(AttrDim) {
		b = appendParam(b, 22)
		added |= to.attr & (AttrBold | AttrDim)
	}
	if removed.Has(AttrItalic) {
		b = appendParam(b, 23)
	}
	if removed.Has(AttrUnderline) {
		b = appendParam(b, 24)
	}
	if removed.Has(AttrBlink) {
		b = appendParam(b, 25)
	}
	if removed.Has(AttrReverse) {
		b = appendParam(b, 27)
	}
	if removed.Has(AttrHidden) {
		b = appendParam(b, 28)
	}
	if removed.Has(AttrStrike) {
		b = appendParam(b, 29)
	}
	b = appendAttrSet(b, added)
	if from.fg != to.fg {
		b = appendColorParams(b, to.fg, true, trueColor)
	}
	if from.bg != to.bg {
		b = appendColorParams(b, to.bg, false, trueColor)
	}
	return b
}

// sgrResetParams encodes SGR 0 followed by the full target style.
func sgrResetParams(to sgrState, trueColor bool) []byte {
	b := []byte{'0'}
	b = appendAttrSet(b, to.attr)
	if !to.fg.IsDefault() {
		b = appendColorParams(b, to.fg, true, trueColor)
	}
	if !to.bg.IsDefault() {
		b = appendColorParams(b, to.bg, false, trueColor)
	}
	return b
}

func appendAttrSet(b []byte, set Attr) []byte {
	if set.Has(AttrBold) {
		b = appendParam(b, 1)
	}
	if set.Has(AttrDim) {
		b = appendParam(b, 2)
	}
	if set.Has(AttrItalic) {
		b = appendParam(b, 3)
	}
	if set.Has(AttrUnderline) {
		b = appendParam(b, 4)
	}
	if set.Has(AttrBlink) {
		b = appendParam(b, 5)
	}
	if set.Has(AttrReverse) {
		b = appendParam(b, 7)
	}
	if set.Has(AttrHidden) {
		b = appendParam(b, 8)
	}
	if set.Has(AttrStrike) {
		b = appendParam(b, 9)
	}
	return b
}

// appendColorParams encodes one color as SGR params. Basic palette
// indices use the short 30-37/40-47 forms; the rest of the palette uses
// 38;5/48;5; RGB uses 38;2/48;2, degraded to the nearest palette entry
// when the terminal lacks truecolor.
func appendColorParams(b []byte, c Color, fg bool, trueColor bool) []byte {
	if c.IsRGB() && !trueColor {
		c = nearestIndexed(c)
	}
	switch {
	case c.IsDefault():
		if fg {
			b = appendParam(b, 39)
		} else {
			b = appendParam(b, 49)
		}
	case c.IsIndexed():
		n := int(c.Index())
		if n < 8 {
			if fg {
				b = appendParam(b, 30+n)
			} else {
				b = appendParam(b, 40+n)
			}
		} else {
			if fg {
				b = appendParam(b, 38)
			} else {
				b = appendParam(b, 48)
			}
			b = appendParam(b, 5)
			b = appendParam(b, n)
		}
	case c.IsRGB():
		r, g, bl := c.RGBParts()
		if fg {
			b = appendParam(b, 38)
		} else {
			b = appendParam(b, 48)
		}
		b = appendParam(b, 2)
		b = appendParam(b, int(r))
		b = appendParam(b, int(g))
		b = appendParam(b, int(bl))
	}
	return b
}

// appendParam appends one numeric SGR parameter with its separator.
func appendParam(b []byte, n int) []byte {
	if len(b) > 0 {
		b = append(b, ';')
	}
	return appendInt(b, n)
}

// appendInt appends a non-negative integer without allocation.
func appendInt(b []byte, n int) []byte {
	if n == 0 {
		return append(b, '0')
	}
	var scratch [10]byte
	i := len(scratch)
	for n > 0 {
		i--
		scratch[i] = byte('0' + n%10)
		n /= 10
	}
	return append(b, scratch[i:]...)
}

// nearestIndexed degrades a 24-bit color to the nearest 256-palette
// entry via termenv's distance model.
func nearestIndexed(c Color) Color {
	r, g, b := c.RGBParts()
	hex := fmt.Sprintf("#%02x%02x%02x", r, g, b)
	if conv, ok := termenv.ANSI256.Convert(termenv.RGBColor(hex)).(termenv.ANSI256Color); ok {
		return Indexed(uint8(conv))
	}
	return DefaultColor
}
