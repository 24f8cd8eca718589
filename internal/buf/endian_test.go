package buf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestU16At(t *testing.T) {
	data := []byte{0xAA, 0x01, 0x23}

	v, ok := U16At(data, 1)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x2301), v)

	_, ok = U16At(data, 2)
	assert.False(t, ok, "value past the end")
	_, ok = U16At(data, -1)
	assert.False(t, ok)
}

func TestU32At(t *testing.T) {
	data := []byte{0xAA, 0x01, 0x23, 0x45, 0x67}

	v, ok := U32At(data, 1)
	assert.True(t, ok)
	assert.Equal(t, uint32(0x67452301), v)

	v, ok = U32At(data, 2)
	assert.False(t, ok)
	assert.Zero(t, v)
}
