// Package mem provides the simulated physical address space: byte
// addressable regions and the bus that routes accesses to them.
package mem

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Region is a device or memory mapped into the address space. Offsets are
// relative to the start of the region's mapping.
type Region interface {
	Read8(offset uint64) (uint8, error)
	Read16(offset uint64) (uint16, error)
	Read32(offset uint64) (uint32, error)
	Read64(offset uint64) (uint64, error)

	Write8(offset uint64, value uint8) error
	Write16(offset uint64, value uint16) error
	Write32(offset uint64, value uint32) error
	Write64(offset uint64, value uint64) error
}

// Memory is a contiguous little-endian byte store. The base address is
// only used to report global addresses in errors.
type Memory struct {
	data []byte
	base uint64
}

// NewMemory creates a zero-filled store of size bytes.
func NewMemory(base, size uint64) *Memory {
	return &Memory{
		data: make([]byte, size),
		base: base,
	}
}

// Base returns the global address the region is mapped at.
func (m *Memory) Base() uint64 {
	return m.base
}

// Size returns the capacity in bytes.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// Bytes exposes the backing buffer.
func (m *Memory) Bytes() []byte {
	return m.data
}

// LoadImage copies data to offset 0.
func (m *Memory) LoadImage(data []byte) error {
	return m.LoadImageAt(0, data)
}

// LoadImageAt copies data to the given offset.
func (m *Memory) LoadImageAt(offset uint64, data []byte) error {
	if offset > m.Size() || uint64(len(data)) > m.Size()-offset {
		return fmt.Errorf("%w: %d bytes at offset 0x%x, region holds %d",
			ErrImageTooLarge, len(data), offset, m.Size())
	}

	copy(m.data[offset:], data)
	return nil
}

// LoadFile reads a raw binary image from path into offset 0.
func (m *Memory) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrImageNotFound, err)
	}
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	return m.LoadImage(data)
}

// slice returns the n bytes at offset, or an AddressError if any of them
// lies outside the buffer.
func (m *Memory) slice(offset uint64, n int) ([]byte, error) {
	size := m.Size()
	if offset >= size || size-offset < uint64(n) {
		return nil, &AddressError{
			Addr: m.base + offset,
			Size: n,
			Err:  ErrAddressOutOfBounds,
		}
	}
	return m.data[offset : offset+uint64(n)], nil
}

// Read8 reads a byte.
func (m *Memory) Read8(offset uint64) (uint8, error) {
	b, err := m.slice(offset, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Read16 reads a little-endian half-word.
func (m *Memory) Read16(offset uint64) (uint16, error) {
	b, err := m.slice(offset, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// Read32 reads a little-endian word.
func (m *Memory) Read32(offset uint64) (uint32, error) {
	b, err := m.slice(offset, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// Read64 reads a little-endian double-word.
func (m *Memory) Read64(offset uint64) (uint64, error) {
	b, err := m.slice(offset, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Write8 writes a byte.
func (m *Memory) Write8(offset uint64, value uint8) error {
	b, err := m.slice(offset, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// Write16 writes a little-endian half-word.
func (m *Memory) Write16(offset uint64, value uint16) error {
	b, err := m.slice(offset, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// Write32 writes a little-endian word.
func (m *Memory) Write32(offset uint64, value uint32) error {
	b, err := m.slice(offset, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// Write64 writes a little-endian double-word.
func (m *Memory) Write64(offset uint64, value uint64) error {
	b, err := m.slice(offset, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}
