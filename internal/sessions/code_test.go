package sessions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCodeShape(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code := GenerateCode()
		assert.Len(t, code, CodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q in %s", r, code)
		}
		seen[code] = true
	}
	// 200 draws from a 31^5 space should essentially never collide.
	assert.Greater(t, len(seen), 190)
}

func TestCodeAlphabetExcludesAmbiguousGlyphs(t *testing.T) {
	for _, r := range "ILO01" {
		assert.False(t, strings.ContainsRune(codeAlphabet, r))
	}
}
