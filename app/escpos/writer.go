package escpos

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ESC/POS Commands
const (
	ESC byte = 0x1B
	GS  byte = 0x1D
	LF  byte = 0x0A
)

// Alignment values for ESC a n
const (
	AlignLeft   byte = 0
	AlignCenter byte = 1
	AlignRight  byte = 2
)

const ellipsis = "..."

// writer accumulates one command stream. Text goes through CP850 so that
// every printable rune is exactly one byte on the wire.
type writer struct {
	buf *bytes.Buffer
}

func newWriter() *writer {
	return &writer{buf: new(bytes.Buffer)}
}

// init resets the printer and selects code page 850
func (w *writer) init() {
	w.buf.Write([]byte{ESC, '@'})
	w.buf.Write([]byte{ESC, 't', 2})
}

// write encodes text to CP850. Runes outside the code page print as '?'
// and control characters as spaces, so user text can never inject commands.
func (w *writer) write(text string) {
	for _, r := range text {
		if r < 0x20 || r == 0x7F {
			w.buf.WriteByte(' ')
			continue
		}
		b, ok := charmap.CodePage850.EncodeRune(r)
		if !ok {
			b = '?'
		}
		w.buf.WriteByte(b)
	}
}

func (w *writer) line(text string) {
	w.write(text)
	w.buf.WriteByte(LF)
}

func (w *writer) feed(n int) {
	for i := 0; i < n; i++ {
		w.buf.WriteByte(LF)
	}
}

func (w *writer) setAlign(a byte) {
	w.buf.Write([]byte{ESC, 'a', a})
}

func (w *writer) setEmphasize(on bool) {
	var e byte
	if on {
		e = 1
	}
	w.buf.Write([]byte{ESC, 'E', e})
}

// setSize sets the character magnification, 1..8 on each axis
func (w *writer) setSize(width, height byte) {
	size := ((width - 1) << 4) | (height - 1)
	w.buf.Write([]byte{GS, '!', size})
}

// cut performs a partial cut
func (w *writer) cut() {
	w.buf.Write([]byte{GS, 'V', 66, 0})
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if runeLen(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// padEnd pads s with spaces to exactly n runes, cutting it if longer
func padEnd(s string, n int) string {
	s = truncate(s, n)
	return s + strings.Repeat(" ", n-runeLen(s))
}

func rule(ch string, columns int) string {
	return strings.Repeat(ch, columns)
}

func money(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// justify places left and right at opposite edges of a line of exactly
// columns runes. The left side is cut when both do not fit.
func justify(left, right string, columns int) string {
	right = truncate(right, columns)
	return padEnd(left, columns-runeLen(right)) + right
}

// itemLine renders "{qty}x {name}" against the right-justified subtotal.
// Names that would touch the price are shortened and end in an ellipsis.
func itemLine(qty int, name string, subtotal float64, columns int) string {
	price := money(subtotal)
	label := fmt.Sprintf("%dx %s", qty, name)

	available := columns - runeLen(price) - 1
	if runeLen(label) > available {
		label = truncate(label, available-len(ellipsis)) + ellipsis
	}
	return justify(label, price, columns)
}
