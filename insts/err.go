package insts

import (
	"errors"

	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

var (
	// ErrUnknownOpcode is returned for a 32-bit word whose major opcode is
	// not part of RV64IMAC+Zicsr.
	ErrUnknownOpcode = errors.New(f("unknown opcode"))

	// ErrIllegalCompressed is returned for 16-bit encodings that are
	// reserved or not supported.
	ErrIllegalCompressed = errors.New(f("illegal compressed instruction"))
)

// DecodeError describes a word that could not be decoded.
type DecodeError struct {
	Word       uint32
	Opcode     Opcode
	Compressed bool
	Reason     string
	Err        error
}

func (err *DecodeError) Error() string {
	if err.Compressed {
		if err.Reason != "" {
			return f("decode 0x%04x: %v (%v)", err.Word, err.Err, err.Reason)
		}
		return f("decode 0x%04x: %v", err.Word, err.Err)
	}
	return f("decode 0x%08x: %v 0b%07b", err.Word, err.Err, uint8(err.Opcode))
}

func (err *DecodeError) Unwrap() error {
	return err.Err
}
