package auth

// PadLength is the number of slots in an OTP or PIN pad.
const PadLength = 6

// Pad is a fixed row of single-digit slots with a focus cursor. Entering
// a digit fills the focused slot and moves focus forward; backspace on
// an empty slot moves focus back and clears that slot.
type Pad struct {
	slots [PadLength]byte
	focus int
}

// PadView is the externally visible state of a Pad. Digits are never
// exposed.
type PadView struct {
	Filled   int  `json:"filled"`
	Focus    int  `json:"focus"`
	Complete bool `json:"complete"`
}

// Enter writes d into the focused slot. Non-digits are ignored. It
// reports whether every slot is now filled.
func (p *Pad) Enter(d rune) bool {
	if !isDigit(d) {
		return false
	}
	p.slots[p.focus] = byte(d)
	if p.focus < PadLength-1 {
		p.focus++
	}
	return p.Complete()
}

// Backspace clears the focused slot, or steps back when it is empty.
func (p *Pad) Backspace() {
	if p.slots[p.focus] != 0 {
		p.slots[p.focus] = 0
		return
	}
	if p.focus > 0 {
		p.focus--
		p.slots[p.focus] = 0
	}
}

// Paste spreads s across the slots starting at the focused one. Each
// character consumes a slot; non-digits leave their slot untouched.
func (p *Pad) Paste(s string) bool {
	runes := []rune(s)
	if len(runes) > PadLength {
		runes = runes[:PadLength]
	}
	start := p.focus
	for i, r := range runes {
		if start+i < PadLength && isDigit(r) {
			p.slots[start+i] = byte(r)
		}
	}
	p.focus = min(start+len(runes), PadLength-1)
	return p.Complete()
}

// Complete reports whether every slot holds a digit.
func (p *Pad) Complete() bool {
	for _, b := range p.slots {
		if b == 0 {
			return false
		}
	}
	return true
}

// Value returns the entered digits. Empty slots are skipped.
func (p *Pad) Value() string {
	out := make([]byte, 0, PadLength)
	for _, b := range p.slots {
		if b != 0 {
			out = append(out, b)
		}
	}
	return string(out)
}

// Reset empties every slot and focuses the first one.
func (p *Pad) Reset() {
	*p = Pad{}
}

// View returns a snapshot without the digits.
func (p *Pad) View() PadView {
	filled := 0
	for _, b := range p.slots {
		if b != 0 {
			filled++
		}
	}
	return PadView{Filled: filled, Focus: p.focus, Complete: filled == PadLength}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
