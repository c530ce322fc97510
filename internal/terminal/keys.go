package terminal

import "unicode/utf8"

// KeyKind classifies a decoded keystroke.
type KeyKind int

const (
	KeyChar KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyInterrupt
)

func (k KeyKind) String() string {
	switch k {
	case KeyChar:
		return "char"
	case KeyEnter:
		return "enter"
	case KeyBackspace:
		return "backspace"
	case KeyInterrupt:
		return "interrupt"
	default:
		return "unknown"
	}
}

// Key is one decoded keystroke. Rune is set for KeyChar only.
type Key struct {
	Kind KeyKind
	Rune rune
}

type decodeState int

const (
	stateGround decodeState = iota
	stateEsc
	stateCSI
	stateSS3
	stateOSC
	stateOSCEsc
)

// Decoder turns raw stdin bytes into keys. It keeps state between Feed
// calls, so multi-byte runes and escape sequences may arrive split across
// reads. Escape sequences and control bytes other than Enter, Backspace,
// and Ctrl+C are dropped.
//
// An ESC followed by another byte in the same read is an Alt chord and both
// bytes are dropped. An ESC that ends a read is the Esc key on its own: if
// the next read does not continue a CSI, SS3 or OSC sequence, its first
// byte is decoded normally. Enter, Backspace and Ctrl+C always cancel a
// pending sequence.
type Decoder struct {
	state    decodeState
	escAtEnd bool
	pending  []byte
	lastCR   bool
}

// Feed decodes p and returns the complete keys it contained.
func (d *Decoder) Feed(p []byte) []Key {
	var keys []Key
	for i, b := range p {
		if d.state != stateGround && d.escape(b) {
			continue
		}

		if b < 0x80 && len(d.pending) > 0 {
			// truncated multi-byte rune
			d.pending = d.pending[:0]
		}

		wasCR := d.lastCR
		d.lastCR = false

		switch {
		case b == 0x1b:
			d.state = stateEsc
			d.escAtEnd = i == len(p)-1
		case b == 0x03:
			keys = append(keys, Key{Kind: KeyInterrupt})
		case b == '\r':
			d.lastCR = true
			keys = append(keys, Key{Kind: KeyEnter})
		case b == '\n':
			if !wasCR {
				keys = append(keys, Key{Kind: KeyEnter})
			}
		case b == 0x7f || b == 0x08:
			keys = append(keys, Key{Kind: KeyBackspace})
		case b < 0x20:
		case b < 0x80:
			keys = append(keys, Key{Kind: KeyChar, Rune: rune(b)})
		default:
			d.pending = append(d.pending, b)
			keys = d.drainRunes(keys)
		}
	}
	return keys
}

// escape advances an escape sequence by one byte. It returns false when the
// sequence is abandoned and b must be decoded in ground state.
func (d *Decoder) escape(b byte) bool {
	if cancelsEscape(b) {
		d.state = stateGround
		d.escAtEnd = false
		return false
	}

	switch d.state {
	case stateEsc:
		lone := d.escAtEnd
		d.escAtEnd = false
		switch b {
		case '[':
			d.state = stateCSI
		case 'O':
			d.state = stateSS3
		case ']':
			d.state = stateOSC
		default:
			d.state = stateGround
			return !lone
		}
	case stateCSI:
		if b >= 0x40 && b <= 0x7e {
			d.state = stateGround
		}
	case stateSS3:
		d.state = stateGround
	case stateOSC:
		switch b {
		case 0x07:
			d.state = stateGround
		case 0x1b:
			d.state = stateOSCEsc
		}
	case stateOSCEsc:
		if b == '\\' {
			d.state = stateGround
		} else {
			d.state = stateOSC
		}
	}
	return true
}

func cancelsEscape(b byte) bool {
	switch b {
	case 0x03, '\r', '\n', 0x7f, 0x08:
		return true
	}
	return false
}

func (d *Decoder) drainRunes(keys []Key) []Key {
	for len(d.pending) > 0 && utf8.FullRune(d.pending) {
		r, size := utf8.DecodeRune(d.pending)
		d.pending = d.pending[size:]
		if r == utf8.RuneError && size == 1 {
			continue
		}
		keys = append(keys, Key{Kind: KeyChar, Rune: r})
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return keys
}
