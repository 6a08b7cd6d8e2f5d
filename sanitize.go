package frankentui

import "unicode/utf8"

// Sanitize filters untrusted text before it is turned into cells. The
// policy is a whitelist: TAB, LF, CR and printable UTF-8 pass; every
// other C0 and C1 control is stripped. Escape sequences never reach the
// grid: CSI sequences are consumed through their final byte, but a
// parameter byte outside 0x20-0x3F aborts the sequence immediately and
// the offending byte onward is preserved. OSC and DCS sequences are
// dropped whole, terminator included, with no substitution.
func Sanitize(s string) string {
	var out []byte
	i := 0
	for i < len(s) {
		b := s[i]
		switch {
		case b == 0x1b:
			i = skipEscape(s, i)
		case b == '\t' || b == '\n' || b == '\r':
			out = append(out, b)
			i++
		case b < 0x20 || b == 0x7f:
			i++
		case b < 0x80:
			out = append(out, b)
			i++
		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			if r == utf8.RuneError && size == 1 {
				i++
				continue
			}
			if r >= 0x80 && r <= 0x9f {
				// C1 controls encoded as UTF-8.
				i += size
				continue
			}
			out = append(out, s[i:i+size]...)
			i += size
		}
	}
	return string(out)
}

// skipEscape returns the index of the first byte after the escape
// sequence starting at i (s[i] is ESC).
func skipEscape(s string, i int) int {
	j := i + 1
	if j >= len(s) {
		return j
	}
	switch s[j] {
	case '[':
		// CSI: parameter bytes 0x20-0x3F, terminated by 0x40-0x7E. The
		// first byte outside either range aborts the sequence and is
		// preserved for the caller.
		j++
		for j < len(s) {
			b := s[j]
			switch {
			case b >= 0x20 && b <= 0x3f:
				j++
			case b >= 0x40 && b <= 0x7e:
				return j + 1
			default:
				return j
			}
		}
		return j
	case ']', 'P':
		// OSC / DCS: dropped entirely through ST or BEL.
		j++
		for j < len(s) {
			if s[j] == 0x07 {
				return j + 1
			}
			if s[j] == 0x1b {
				if j+1 < len(s) && s[j+1] == '\\' {
					return j + 2
				}
				// A new escape aborts the string; let it be parsed fresh.
				return j
			}
			j++
		}
		return j
	default:
		// Two-byte escape (ESC c, ESC 7, SS3, ...): drop both when the
		// follower is a plausible final byte, otherwise keep it.
		if s[j] >= 0x20 && s[j] <= 0x7e {
			return j + 1
		}
		return j
	}
}
