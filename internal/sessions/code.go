package sessions

import "crypto/rand"

// codeAlphabet excludes glyphs that are easy to misread when typed from a
// friend's screen (I, L, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// CodeLength is the length of a session code.
const CodeLength = 5

// GenerateCode returns a random short session code.
func GenerateCode() string {
	buf := make([]byte, CodeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf)
}
