package core

import "strings"

// InputBuffer accumulates the characters typed since the last Enter.
type InputBuffer struct {
	runes []rune
}

// Append adds r at the end of the line.
func (b *InputBuffer) Append(r rune) {
	b.runes = append(b.runes, r)
}

// Backspace removes the last rune. It returns false when the buffer was
// already empty, in which case nothing must be erased on screen.
func (b *InputBuffer) Backspace() (rune, bool) {
	if len(b.runes) == 0 {
		return 0, false
	}
	r := b.runes[len(b.runes)-1]
	b.runes = b.runes[:len(b.runes)-1]
	return r, true
}

// TakeLine returns the trimmed line and empties the buffer.
func (b *InputBuffer) TakeLine() string {
	line := strings.TrimSpace(string(b.runes))
	b.runes = b.runes[:0]
	return line
}

func (b *InputBuffer) String() string {
	return string(b.runes)
}

// Len returns the number of runes in the buffer.
func (b *InputBuffer) Len() int {
	return len(b.runes)
}
