package testutils

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractToken(t *testing.T) {
	token, err := ExtractToken("visit https://x.io/reset?token=" + url.QueryEscape("a.b+c") + "\nthanks")
	require.NoError(t, err)
	assert.Equal(t, "a.b+c", token)

	token, err = ExtractToken(`<a href="https://x.io/activate?token=abc.def">`)
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	_, err = ExtractToken("no link here")
	assert.Error(t, err)
}
