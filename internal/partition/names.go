package partition

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FileName maps a strain ID to a file name stem. Letters, digits, '-', '_'
// and non-leading '.' are kept; every other byte is percent-encoded, so
// distinct IDs always produce distinct names.
func FileName(id string) string {
	var b strings.Builder
	for i := 0; i < len(id); {
		r, width := utf8.DecodeRuneInString(id[i:])
		if r != utf8.RuneError && keepRune(r, i) {
			b.WriteString(id[i : i+width])
		} else {
			for _, c := range []byte(id[i : i+width]) {
				fmt.Fprintf(&b, "%%%02X", c)
			}
		}
		i += width
	}
	return b.String()
}

func keepRune(r rune, offset int) bool {
	switch {
	case r == '.':
		return offset > 0
	case r == '-' || r == '_':
		return true
	case r < utf8.RuneSelf:
		return ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9')
	default:
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}
}

// uniqueStems maps each ID to a FileName stem that stays unique when compared
// case-insensitively. The first ID to claim a folded stem keeps it; later IDs
// get '~' and a prefix of the SHA-256 of the raw ID appended. FileName escapes
// '~', so a suffixed stem never equals a plain one.
func uniqueStems(ids []string) map[string]string {
	stems := make(map[string]string, len(ids))
	taken := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		stem := FileName(id)
		if _, clash := taken[strings.ToLower(stem)]; clash {
			sum := sha256.Sum256([]byte(id))
			digest := hex.EncodeToString(sum[:])
			for n := 8; n <= len(digest); n += 8 {
				stem = FileName(id) + "~" + digest[:n]
				if _, clash := taken[strings.ToLower(stem)]; !clash {
					break
				}
			}
		}
		taken[strings.ToLower(stem)] = struct{}{}
		stems[id] = stem
	}
	return stems
}
