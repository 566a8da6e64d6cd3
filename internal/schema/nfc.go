package schema

import "golang.org/x/text/unicode/norm"

// nfc applies Unicode NFC normalization, used for both schema object keys
// and string leaf values so two servers that encode equivalent text
// differently (precomposed vs. combining-mark sequences) hash identically.
func nfc(s string) string {
	return norm.NFC.String(s)
}
