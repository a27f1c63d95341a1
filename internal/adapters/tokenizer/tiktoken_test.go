package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 1, Estimate("abc"))
	assert.Equal(t, 1, Estimate("abcd"))
	assert.Equal(t, 2, Estimate("abcde"))
	assert.Equal(t, 1, Estimate("ééé"), "counts characters, not bytes")
}

func TestCounter_FallsBackOnUnknownEncoding(t *testing.T) {
	c := NewCounter("no_such_encoding", nil)

	assert.Equal(t, 4, c.Count("hypertension is"))
	assert.Nil(t, c.enc)
}

func TestNewCounter_DefaultEncoding(t *testing.T) {
	assert.Equal(t, DefaultEncoding, NewCounter("", nil).encoding)
}
