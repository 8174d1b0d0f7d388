package emu

import (
	"errors"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

var (
	// ErrUnknownFunct3 is returned when the funct3 field selects no
	// operation within an opcode group.
	ErrUnknownFunct3 = errors.New(f("unknown funct3"))

	// ErrUnknownFunct7 is returned when the funct7 field (or the AMO
	// sub-operation) selects no operation.
	ErrUnknownFunct7 = errors.New(f("unknown funct7"))

	// ErrMaxInstructions is returned once the configured instruction
	// limit has been reached.
	ErrMaxInstructions = errors.New(f("max instructions reached"))
)

// ExecError reports a failure while executing the instruction at PC.
type ExecError struct {
	PC     uint64
	Opcode insts.Opcode
	Funct3 uint8
	Funct7 uint8
	Err    error
}

func (err *ExecError) Error() string {
	return f("pc 0x%x: opcode 0b%07b funct3 0b%03b funct7 0b%07b: %v",
		err.PC, uint8(err.Opcode), err.Funct3, err.Funct7, err.Err)
}

func (err *ExecError) Unwrap() error {
	return err.Err
}

func dispatchError(kind error, inst *insts.Instruction) error {
	return &ExecError{
		Opcode: inst.Opcode,
		Funct3: inst.Funct3,
		Funct7: inst.Funct7,
		Err:    kind,
	}
}
