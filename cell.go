package frankentui

// Attr is a bitmask of text styling attributes.
type Attr uint16

const (
	AttrBold Attr = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrBlink
	AttrReverse
	AttrHidden
	AttrStrike
)

// attrKnown masks the bits the presenter understands. Unknown bits are
// ignored at emission time.
const attrKnown = AttrBold | AttrDim | AttrItalic | AttrUnderline |
	AttrBlink | AttrReverse | AttrHidden | AttrStrike

// Has returns true if the mask contains the given attribute.
func (a Attr) Has(attr Attr) bool {
	return a&attr != 0
}

// With returns a new mask with the given attribute added.
func (a Attr) With(attr Attr) Attr {
	return a | attr
}

// Without returns a new mask with the given attribute removed.
func (a Attr) Without(attr Attr) Attr {
	return a &^ attr
}

// colorMode occupies the top byte of a Color word.
const (
	colorModeShift           = 24
	colorModeDefault  uint32 = 0
	colorModeIndexed  uint32 = 1
	colorModeRGB      uint32 = 2
)

// Color is a packed 32-bit color word: one mode byte over a 24-bit
// payload. Default is the zero value, indexed colors carry a palette
// index in the low byte, RGB colors carry r,g,b in the low three bytes.
// Comparing two Colors with == is semantic equality.
type Color uint32

// DefaultColor is the terminal's default foreground or background.
const DefaultColor Color = 0

// RGB returns a 24-bit true color.
func RGB(r, g, b uint8) Color {
	return Color(colorModeRGB<<colorModeShift | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Indexed returns a palette color (0-255).
func Indexed(n uint8) Color {
	return Color(colorModeIndexed<<colorModeShift | uint32(n))
}

func (c Color) mode() uint32 { return uint32(c) >> colorModeShift }

// IsDefault returns true for the terminal default color.
func (c Color) IsDefault() bool { return c.mode() == colorModeDefault }

// IsIndexed returns true for palette colors.
func (c Color) IsIndexed() bool { return c.mode() == colorModeIndexed }

// IsRGB returns true for 24-bit colors.
func (c Color) IsRGB() bool { return c.mode() == colorModeRGB }

// Index returns the palette index of an indexed color.
func (c Color) Index() uint8 { return uint8(c) }

// RGBParts returns the r,g,b components of an RGB color.
func (c Color) RGBParts() (r, g, b uint8) {
	return uint8(c >> 16), uint8(c >> 8), uint8(c)
}

// Content is the packed content word of a Cell: a 2-bit kind tag over a
// 30-bit payload. The kinds are blank (the cleared state), a scalar
// codepoint, a grapheme-pool id, and the continuation marker that backs
// the second column of a wide grapheme.
type Content uint32

const (
	contentKindShift          = 30
	contentPayloadMask        = 1<<contentKindShift - 1
	kindBlank          uint32 = 0
	kindRune           uint32 = 1
	kindPooled         uint32 = 2
	kindContinuation   uint32 = 3
)

// BlankContent is the content of a cleared cell.
const BlankContent Content = 0

// ContinuationContent marks the second column of a wide grapheme.
const ContinuationContent Content = Content(kindContinuation << contentKindShift)

// RuneContent packs a single codepoint.
func RuneContent(r rune) Content {
	return Content(kindRune<<contentKindShift | uint32(r)&contentPayloadMask)
}

// PooledContent packs a grapheme-pool id. Ids above the 30-bit payload
// limit are out of range for a Cell; the pool never issues them.
func PooledContent(id uint32) Content {
	return Content(kindPooled<<contentKindShift | id&contentPayloadMask)
}

func (c Content) kind() uint32 { return uint32(c) >> contentKindShift }

// IsBlank returns true for the cleared state.
func (c Content) IsBlank() bool { return c.kind() == kindBlank }

// IsRune returns true if the content is a scalar codepoint.
func (c Content) IsRune() bool { return c.kind() == kindRune }

// IsPooled returns true if the content references the grapheme pool.
func (c Content) IsPooled() bool { return c.kind() == kindPooled }

// IsContinuation returns true for the wide-grapheme continuation marker.
func (c Content) IsContinuation() bool { return c.kind() == kindContinuation }

// Rune returns the packed codepoint. Only valid for rune content.
func (c Content) Rune() rune { return rune(uint32(c) & contentPayloadMask) }

// PoolID returns the packed grapheme-pool id. Only valid for pooled content.
func (c Content) PoolID() uint32 { return uint32(c) & contentPayloadMask }

// LinkID indexes the session's LinkRegistry. 0 means no link.
type LinkID uint16

// Cell is one terminal position: content, colors, attributes and link.
// The struct packs to exactly 16 bytes with no padding, so raw ==
// comparison is both cheap and semantically exact. The packing is a
// design contract; cell_test.go pins the size.
type Cell struct {
	Content Content
	FG      Color
	BG      Color
	Attr    Attr
	Link    LinkID
}

// BlankCell returns a cleared cell with default colors.
func BlankCell() Cell {
	return Cell{}
}

// NewCell creates a cell holding a single codepoint with the given style.
func NewCell(r rune, style Style) Cell {
	return Cell{
		Content: RuneContent(r),
		FG:      style.FG,
		BG:      style.BG,
		Attr:    style.Attr,
		Link:    style.Link,
	}
}

// Style returns the cell's style fields as a Style value.
func (c Cell) Style() Style {
	return Style{FG: c.FG, BG: c.BG, Attr: c.Attr, Link: c.Link}
}

// Style combines colors, attributes and an optional hyperlink id. It is
// the working form layout code builds cells from; the packed fields live
// flat in the Cell itself.
type Style struct {
	FG   Color
	BG   Color
	Attr Attr
	Link LinkID
}

// DefaultStyle returns a style with default colors and no attributes.
func DefaultStyle() Style {
	return Style{}
}

// Foreground returns a new style with the given foreground color.
func (s Style) Foreground(c Color) Style {
	s.FG = c
	return s
}

// Background returns a new style with the given background color.
func (s Style) Background(c Color) Style {
	s.BG = c
	return s
}

// Bold returns a new style with bold enabled.
func (s Style) Bold() Style {
	s.Attr = s.Attr.With(AttrBold)
	return s
}

// Dim returns a new style with dim enabled.
func (s Style) Dim() Style {
	s.Attr = s.Attr.With(AttrDim)
	return s
}

// Italic returns a new style with italic enabled.
func (s Style) Italic() Style {
	s.Attr = s.Attr.With(AttrItalic)
	return s
}

// Underline returns a new style with underline enabled.
func (s Style) Underline() Style {
	s.Attr = s.Attr.With(AttrUnderline)
	return s
}

// Reverse returns a new style with reverse video enabled.
func (s Style) Reverse() Style {
	s.Attr = s.Attr.With(AttrReverse)
	return s
}

// Strike returns a new style with strikethrough enabled.
func (s Style) Strike() Style {
	s.Attr = s.Attr.With(AttrStrike)
	return s
}

// Hyperlink returns a new style carrying the given link id.
func (s Style) Hyperlink(id LinkID) Style {
	s.Link = id
	return s
}
