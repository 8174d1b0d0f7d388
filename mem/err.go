package mem

import (
	"errors"

	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

var (
	// ErrAddressOutOfBounds is returned when no region maps an address or
	// an access runs past the end of a region.
	ErrAddressOutOfBounds = errors.New(f("address out of bounds"))

	// ErrROMWrite is returned for every write to a ROM region.
	ErrROMWrite = errors.New(f("cannot write to ROM memory"))

	// ErrRAMTooLarge is returned when a RAM region exceeds MaxRAMSize.
	ErrRAMTooLarge = errors.New(f("RAM size exceeds limit"))

	// ErrImageTooLarge is returned when an image does not fit its region.
	ErrImageTooLarge = errors.New(f("image larger than region"))

	// ErrImageNotFound is returned when an image file does not exist. The
	// returned error also wraps the fs.ErrNotExist from the open.
	ErrImageNotFound = errors.New(f("image file not found"))
)

// AddressError describes a failed access.
type AddressError struct {
	Addr uint64
	Size int
	Err  error
}

func (err *AddressError) Error() string {
	return f("%d-byte access at 0x%x: %v", err.Size, err.Addr, err.Err)
}

func (err *AddressError) Unwrap() error {
	return err.Err
}
