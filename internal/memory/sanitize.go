package memory

import "strings"

// Sanitize removes lone UTF-16 surrogates (U+D800..U+DFFF) from text.
//
// Go strings cannot hold a surrogate as a valid rune, but streamed or
// re-encoded text can still carry the three-byte sequence ED A0..BF 80..BF
// (WTF-8 / CESU-8). Those sequences are dropped; every other byte, valid or
// not, is left alone. Empty input is returned as is.
//
// Removing a sequence can join its neighbours into a new one, so passes
// repeat until nothing changes.
//
// Text decoded from JSON never reaches here with a surrogate: encoding/json
// already turns an unpaired \ud800 escape into U+FFFD, which is kept. The
// stripping matters for raw byte input such as stdin.
func Sanitize(text string) string {
	for strings.Contains(text, "\xed") {
		out := stripSurrogates(text)
		if len(out) == len(text) {
			break
		}
		text = out
	}
	return text
}

func stripSurrogates(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		if isSurrogateAt(text, i) {
			i += 3
			continue
		}
		b.WriteByte(text[i])
		i++
	}
	return b.String()
}

func isSurrogateAt(s string, i int) bool {
	if i+2 >= len(s) {
		return false
	}
	return s[i] == 0xED &&
		s[i+1] >= 0xA0 && s[i+1] <= 0xBF &&
		s[i+2] >= 0x80 && s[i+2] <= 0xBF
}
