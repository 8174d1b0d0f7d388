package mem

import "fmt"

// MaxRAMSize is the largest RAM region that can be created.
const MaxRAMSize = 0x10000000

// RAM is a read-write memory region.
type RAM struct {
	*Memory
}

// NewRAM creates a zero-filled RAM region of size bytes.
func NewRAM(base, size uint64) (*RAM, error) {
	if size > MaxRAMSize {
		return nil, fmt.Errorf("%w: 0x%x > 0x%x", ErrRAMTooLarge, size, MaxRAMSize)
	}
	return &RAM{Memory: NewMemory(base, size)}, nil
}

// ROM is a memory region that can only be written by loading an image.
type ROM struct {
	*Memory
}

// NewROM creates a zero-filled ROM region of size bytes.
func NewROM(base, size uint64) *ROM {
	return &ROM{Memory: NewMemory(base, size)}
}

// NewROMFromImage creates a ROM sized to hold data exactly.
func NewROMFromImage(base uint64, data []byte) *ROM {
	rom := NewROM(base, uint64(len(data)))
	copy(rom.data, data)
	return rom
}

func (r *ROM) writeError(offset uint64, n int) error {
	return &AddressError{Addr: r.base + offset, Size: n, Err: ErrROMWrite}
}

// Write8 always fails.
func (r *ROM) Write8(offset uint64, _ uint8) error {
	return r.writeError(offset, 1)
}

// Write16 always fails.
func (r *ROM) Write16(offset uint64, _ uint16) error {
	return r.writeError(offset, 2)
}

// Write32 always fails.
func (r *ROM) Write32(offset uint64, _ uint32) error {
	return r.writeError(offset, 4)
}

// Write64 always fails.
func (r *ROM) Write64(offset uint64, _ uint64) error {
	return r.writeError(offset, 8)
}
