package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeShiftArrowRight(t *testing.T) {
	key, ok := decodeShiftArrow([]byte{0x1b, '[', '1', ';', '2', 'C'})
	assert.True(t, ok)
	assert.Equal(t, KeyShiftRight, key)
}

func TestDecodeShiftArrowLeft(t *testing.T) {
	key, ok := decodeShiftArrow([]byte{0x1b, '[', '1', ';', '2', 'D'})
	assert.True(t, ok)
	assert.Equal(t, KeyShiftLeft, key)
}

func TestDecodeShiftArrowRejectsPlainArrow(t *testing.T) {
	_, ok := decodeShiftArrow([]byte{0x1b, '[', 'C'})
	assert.False(t, ok)
}
