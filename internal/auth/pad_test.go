package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPad_AutoAdvance(t *testing.T) {
	var p Pad
	for i, d := range "12345" {
		assert.False(t, p.Enter(d))
		assert.Equal(t, i+1, p.View().Focus)
	}
	assert.True(t, p.Enter('6'))
	assert.Equal(t, "123456", p.Value())
	assert.Equal(t, PadLength-1, p.View().Focus)
}

func TestPad_IgnoresNonDigits(t *testing.T) {
	var p Pad
	assert.False(t, p.Enter('a'))
	assert.Equal(t, PadView{}, p.View())
}

func TestPad_Backspace(t *testing.T) {
	var p Pad
	p.Enter('1')
	p.Enter('2')

	// focus is on the empty third slot: step back and clear the second
	p.Backspace()
	assert.Equal(t, "1", p.Value())
	assert.Equal(t, 1, p.View().Focus)

	p.Backspace()
	assert.Equal(t, "", p.Value())
	assert.Equal(t, 0, p.View().Focus)

	p.Backspace()
	assert.Equal(t, 0, p.View().Focus)
}

func TestPad_BackspaceOnFilledLastSlot(t *testing.T) {
	var p Pad
	p.Paste("123456")
	p.Backspace()
	assert.Equal(t, "12345", p.Value())
	assert.Equal(t, 5, p.View().Focus)
}

func TestPad_Paste(t *testing.T) {
	var p Pad
	assert.True(t, p.Paste("98765432"))
	assert.Equal(t, "987654", p.Value())

	p.Reset()
	p.Enter('1')
	assert.False(t, p.Paste("2x4"))
	assert.Equal(t, "124", p.Value())
	assert.Equal(t, 4, p.View().Focus)
	assert.Equal(t, 3, p.View().Filled)
}
