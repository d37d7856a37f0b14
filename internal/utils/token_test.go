package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenHex(t *testing.T) {
	tok := TokenHex(16)
	assert.Len(t, tok, 32)
	assert.Regexp(t, "^[0-9a-f]+$", tok)

	// two tokens should never collide
	assert.NotEqual(t, tok, TokenHex(16))
}
