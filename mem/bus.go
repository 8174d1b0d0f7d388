package mem

import (
	"fmt"
	"strings"
)

// Mapping places a region at [Start, End) in the global address space.
type Mapping struct {
	Start  uint64
	End    uint64
	Name   string
	Region Region
}

// Bus routes global addresses to regions.
//
// Mappings are searched in registration order and the first one containing
// the address wins; overlaps are not rejected.
type Bus struct {
	mappings []Mapping
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// AddRegion maps region at [start, end).
func (b *Bus) AddRegion(region Region, start, end uint64) {
	b.AddNamedRegion("", region, start, end)
}

// AddNamedRegion maps region at [start, end) with a name used in dumps.
func (b *Bus) AddNamedRegion(name string, region Region, start, end uint64) {
	b.mappings = append(b.mappings, Mapping{
		Start:  start,
		End:    end,
		Name:   name,
		Region: region,
	})
}

// Mappings returns the mappings in registration order.
func (b *Bus) Mappings() []Mapping {
	return b.mappings
}

// Resolve returns the region holding addr and the region-local offset.
func (b *Bus) Resolve(addr uint64) (Region, uint64, error) {
	for _, m := range b.mappings {
		if addr >= m.Start && addr < m.End {
			return m.Region, addr - m.Start, nil
		}
	}

	return nil, 0, ErrAddressOutOfBounds
}

func (b *Bus) resolve(addr uint64, size int) (Region, uint64, error) {
	region, offset, err := b.Resolve(addr)
	if err != nil {
		return nil, 0, &AddressError{Addr: addr, Size: size, Err: err}
	}
	return region, offset, nil
}

// Read8 reads a byte at a global address.
func (b *Bus) Read8(addr uint64) (uint8, error) {
	region, offset, err := b.resolve(addr, 1)
	if err != nil {
		return 0, err
	}
	return region.Read8(offset)
}

// Read16 reads a half-word at a global address.
func (b *Bus) Read16(addr uint64) (uint16, error) {
	region, offset, err := b.resolve(addr, 2)
	if err != nil {
		return 0, err
	}
	return region.Read16(offset)
}

// Read32 reads a word at a global address.
func (b *Bus) Read32(addr uint64) (uint32, error) {
	region, offset, err := b.resolve(addr, 4)
	if err != nil {
		return 0, err
	}
	return region.Read32(offset)
}

// Read64 reads a double-word at a global address.
func (b *Bus) Read64(addr uint64) (uint64, error) {
	region, offset, err := b.resolve(addr, 8)
	if err != nil {
		return 0, err
	}
	return region.Read64(offset)
}

// Write8 writes a byte at a global address.
func (b *Bus) Write8(addr uint64, value uint8) error {
	region, offset, err := b.resolve(addr, 1)
	if err != nil {
		return err
	}
	return region.Write8(offset, value)
}

// Write16 writes a half-word at a global address.
func (b *Bus) Write16(addr uint64, value uint16) error {
	region, offset, err := b.resolve(addr, 2)
	if err != nil {
		return err
	}
	return region.Write16(offset, value)
}

// Write32 writes a word at a global address.
func (b *Bus) Write32(addr uint64, value uint32) error {
	region, offset, err := b.resolve(addr, 4)
	if err != nil {
		return err
	}
	return region.Write32(offset, value)
}

// Write64 writes a double-word at a global address.
func (b *Bus) Write64(addr uint64, value uint64) error {
	region, offset, err := b.resolve(addr, 8)
	if err != nil {
		return err
	}
	return region.Write64(offset, value)
}

// String lists the memory map.
func (b *Bus) String() string {
	var sb strings.Builder
	for _, m := range b.mappings {
		name := m.Name
		if name == "" {
			name = fmt.Sprintf("%T", m.Region)
		}
		fmt.Fprintf(&sb, "[0x%016x, 0x%016x) %s\n", m.Start, m.End, name)
	}
	return sb.String()
}
