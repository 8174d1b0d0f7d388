// Package console renders guest UART output onto a fixed character grid
// with a small subset of ANSI cursor control.
package console

import (
	"io"
	"strings"
)

// Default grid dimensions.
const (
	DefaultWidth  = 80
	DefaultHeight = 25
)

// Control bytes understood by the console.
const (
	ESC byte = 0x1b
	CSI byte = '['
	BS  byte = 0x08
	LF  byte = 0x0a
	CR  byte = 0x0d
)

type state uint8

const (
	stateText state = iota
	stateEscape
	stateControl
)

// Console is a width x height character grid with a cursor. Printable
// bytes are placed at the cursor; ESC [ A/B/C/D move it; BS, LF and CR
// behave like a terminal without scrolling.
type Console struct {
	width, height int
	grid          [][]byte
	x, y          int
	state         state
}

// New creates a blank console of the given size.
func New(width, height int) *Console {
	c := &Console{width: width, height: height}
	c.Clear()
	return c
}

// NewDefault creates an 80x25 console.
func NewDefault() *Console {
	return New(DefaultWidth, DefaultHeight)
}

// Clear blanks the grid and homes the cursor.
func (c *Console) Clear() {
	c.grid = make([][]byte, c.height)
	for y := range c.grid {
		c.grid[y] = []byte(strings.Repeat(" ", c.width))
	}
	c.x, c.y = 0, 0
	c.state = stateText
}

// Cursor returns the cursor column and row.
func (c *Console) Cursor() (x, y int) {
	return c.x, c.y
}

// WriteByte interprets one byte of output. It never fails.
func (c *Console) WriteByte(b byte) error {
	switch c.state {
	case stateText:
		c.text(b)
	case stateEscape:
		if b == CSI {
			c.state = stateControl
		} else {
			c.state = stateText
		}
	case stateControl:
		c.control(b)
		c.state = stateText
	}
	return nil
}

// Write interprets every byte of p.
func (c *Console) Write(p []byte) (int, error) {
	for _, b := range p {
		_ = c.WriteByte(b)
	}
	return len(p), nil
}

func (c *Console) text(b byte) {
	switch b {
	case ESC:
		c.state = stateEscape
	case BS:
		if c.x > 0 {
			c.x--
			c.grid[c.y][c.x] = ' '
		}
	case LF:
		c.x = 0
		if c.y < c.height-1 {
			c.y++
		}
	case CR:
		c.x = 0
	default:
		if c.x < c.width {
			c.grid[c.y][c.x] = b
			c.x++
		}
	}
}

func (c *Console) control(b byte) {
	switch b {
	case 'A':
		if c.y > 0 {
			c.y--
		}
	case 'B':
		if c.y < c.height-1 {
			c.y++
		}
	case 'C':
		if c.x < c.width-1 {
			c.x++
		}
	case 'D':
		if c.x > 0 {
			c.x--
		}
	}
}

// Line returns row y without trailing padding.
func (c *Console) Line(y int) string {
	return strings.TrimRight(string(c.grid[y]), " ")
}

// String returns the full grid, one newline-terminated row per line.
func (c *Console) String() string {
	var sb strings.Builder
	sb.Grow((c.width + 1) * c.height)
	for _, row := range c.grid {
		sb.Write(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Render writes the grid to w.
func (c *Console) Render(w io.Writer) error {
	_, err := io.WriteString(w, c.String())
	return err
}
