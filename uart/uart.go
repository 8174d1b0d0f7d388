// Package uart models a 16550-style serial port as a memory-mapped region.
package uart

import (
	"errors"

	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

// ErrInvalidRegister is returned for accesses to offsets with no register.
var ErrInvalidRegister = errors.New(f("invalid UART register"))

// Register offsets within the UART window.
const (
	RegRBR = 0 // receive buffer (read)
	RegTHR = 0 // transmit holding (write)
	RegIER = 1 // interrupt enable
	RegFCR = 2 // FIFO control (write)
	RegISR = 2 // interrupt status (read)
	RegLCR = 3 // line control
	RegMCR = 4 // modem control
	RegLSR = 5 // line status
)

// FIFOSize is the depth of the receive and transmit FIFOs.
const FIFOSize = 16

// Line status bits.
const (
	LSRDataReady uint8 = 0x01
	LSRTHREmpty  uint8 = 0x20
	LSRTxIdle    uint8 = 0x40
)

const (
	lsrResetValue = LSRTHREmpty | LSRTxIdle
	isrResetValue = uint8(0x01) // no interrupt pending
	fcrClearRx    = uint8(0x01)
)

// ErrRegister describes an access to an offset with no register.
type ErrRegister struct {
	Offset uint64
	Write  bool
}

func (err *ErrRegister) Error() string {
	if err.Write {
		return f("write to UART offset %d", err.Offset)
	}
	return f("read from UART offset %d", err.Offset)
}

func (err *ErrRegister) Unwrap() error {
	return ErrInvalidRegister
}

// Sink receives every byte the guest transmits.
type Sink func(b byte)

// UART is a 16550-style register window with 16-entry receive and
// transmit FIFOs. It is driven from a single goroutine.
type UART struct {
	ier, fcr, isr, lcr, mcr, lsr uint8

	rx fifo
	tx fifo

	sink Sink
}

// Option configures a UART.
type Option func(*UART)

// WithSink installs the callback invoked for each transmitted byte.
func WithSink(sink Sink) Option {
	return func(u *UART) {
		u.sink = sink
	}
}

// New creates a UART in its reset state.
func New(opts ...Option) *UART {
	u := &UART{}
	u.Reset()
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Reset restores the register reset values and empties both FIFOs.
func (u *UART) Reset() {
	u.ier, u.fcr, u.lcr, u.mcr = 0, 0, 0, 0
	u.isr = isrResetValue
	u.lsr = lsrResetValue
	u.rx.clear()
	u.tx.clear()
}

// Receive pushes a byte from the host into the receive FIFO. It reports
// false if the FIFO was full and the byte was dropped.
func (u *UART) Receive(b byte) bool {
	return u.rx.push(b)
}

// DrainTransmit empties the transmit FIFO and returns its contents.
func (u *UART) DrainTransmit() []byte {
	return u.tx.drain()
}

// TransmitLen returns the number of bytes waiting in the transmit FIFO.
func (u *UART) TransmitLen() int {
	return u.tx.len()
}

// ReceiveLen returns the number of bytes waiting in the receive FIFO.
func (u *UART) ReceiveLen() int {
	return u.rx.len()
}

// Read8 reads a register.
func (u *UART) Read8(offset uint64) (uint8, error) {
	switch offset {
	case RegRBR:
		b, _ := u.rx.pop()
		return b, nil
	case RegIER:
		return u.ier, nil
	case RegISR:
		return u.isr, nil
	case RegLCR:
		return u.lcr, nil
	case RegMCR:
		return u.mcr, nil
	case RegLSR:
		u.lsr &^= LSRDataReady
		if u.rx.len() > 0 {
			u.lsr |= LSRDataReady
		}
		return u.lsr, nil
	default:
		return 0, &ErrRegister{Offset: offset}
	}
}

// Write8 writes a register. A THR write while the transmit FIFO is full
// drops the byte without calling the sink.
func (u *UART) Write8(offset uint64, value uint8) error {
	switch offset {
	case RegTHR:
		if u.tx.push(value) && u.sink != nil {
			u.sink(value)
		}
	case RegIER:
		u.ier = value
	case RegFCR:
		u.fcr = value
		if value&fcrClearRx != 0 {
			u.rx.clear()
		}
	case RegLCR:
		u.lcr = value
	case RegMCR:
		u.mcr = value
	default: // LSR is read-only
		return &ErrRegister{Offset: offset, Write: true}
	}
	return nil
}

// readN performs n consecutive byte reads, assembling them little-endian.
func (u *UART) readN(offset uint64, n int) (uint64, error) {
	var value uint64
	for i := 0; i < n; i++ {
		b, err := u.Read8(offset + uint64(i))
		if err != nil {
			return 0, err
		}
		value |= uint64(b) << (8 * i)
	}
	return value, nil
}

// writeN performs n consecutive byte writes, lowest byte first.
func (u *UART) writeN(offset uint64, n int, value uint64) error {
	for i := 0; i < n; i++ {
		if err := u.Write8(offset+uint64(i), uint8(value>>(8*i))); err != nil {
			return err
		}
	}
	return nil
}

// Read16 performs two byte reads.
func (u *UART) Read16(offset uint64) (uint16, error) {
	v, err := u.readN(offset, 2)
	return uint16(v), err
}

// Read32 performs four byte reads.
func (u *UART) Read32(offset uint64) (uint32, error) {
	v, err := u.readN(offset, 4)
	return uint32(v), err
}

// Read64 performs eight byte reads.
func (u *UART) Read64(offset uint64) (uint64, error) {
	return u.readN(offset, 8)
}

// Write16 performs two byte writes.
func (u *UART) Write16(offset uint64, value uint16) error {
	return u.writeN(offset, 2, uint64(value))
}

// Write32 performs four byte writes.
func (u *UART) Write32(offset uint64, value uint32) error {
	return u.writeN(offset, 4, uint64(value))
}

// Write64 performs eight byte writes.
func (u *UART) Write64(offset uint64, value uint64) error {
	return u.writeN(offset, 8, value)
}
