package uid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	a, b := New(), New()
	assert.True(t, IsValid(a))
	assert.NotEqual(t, a, b)
	assert.Equal(t, byte('7'), a[14], "request ids are version 7")
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("0190d3f2-7c1a-7b3e-9f00-3a2b1c4d5e6f"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("urn:uuid:0190d3f2-7c1a-7b3e-9f00-3a2b1c4d5e6f"))
	assert.False(t, IsValid("{0190d3f2-7c1a-7b3e-9f00-3a2b1c4d5e6f}"))
	assert.False(t, IsValid("0190d3f2-7c1a-7b3e-9f00-3a2b1c4d5e6\n"))
}
