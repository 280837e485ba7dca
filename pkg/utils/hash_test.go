//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashToken(t *testing.T) {
	// sha256 of the empty string is a known constant
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashToken(""))
	assert.NotEqual(t, HashToken("a"), HashToken("b"))
}

func TestTokenEquals(t *testing.T) {
	assert.True(t, TokenEquals("secret", "secret"))
	assert.False(t, TokenEquals("secret", "other"))
	assert.False(t, TokenEquals("", "secret"))
}
