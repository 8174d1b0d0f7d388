package cache

import (
	"fmt"

	"github.com/sarchlab/rvsim/mem"
)

// Region places a Cache in front of a mem.Region. It implements mem.Region
// itself, so it can be mapped on a bus in place of the region it wraps.
type Region struct {
	cache   *Cache
	backing mem.Region
	base    uint64
	size    uint64
	cycles  uint64
}

// NewRegion wraps backing, which holds size bytes, with a cache. Out of
// range accesses are reported at bus addresses when backing has a Base.
func NewRegion(backing mem.Region, size uint64, config Config) (*Region, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	r := &Region{
		cache:   New(config, NewRegionBacking(backing)),
		backing: backing,
		size:    size,
	}
	if based, ok := backing.(interface{ Base() uint64 }); ok {
		r.base = based.Base()
	}

	return r, nil
}

// Cache returns the underlying cache.
func (r *Region) Cache() *Cache {
	return r.cache
}

// Stats returns the cache statistics.
func (r *Region) Stats() Statistics {
	return r.cache.Stats()
}

// Cycles returns the accumulated access latency.
func (r *Region) Cycles() uint64 {
	return r.cycles
}

// Flush writes every dirty line back to the wrapped region.
func (r *Region) Flush() error {
	return r.cache.Flush()
}

// LoadImageAt writes an image straight into the wrapped region and drops
// any cached copy of it.
func (r *Region) LoadImageAt(offset uint64, data []byte) error {
	loader, ok := r.backing.(interface {
		LoadImageAt(uint64, []byte) error
	})
	if !ok {
		return fmt.Errorf("%T cannot hold an image", r.backing)
	}

	if err := r.cache.Flush(); err != nil {
		return err
	}
	return loader.LoadImageAt(offset, data)
}

func (r *Region) check(offset uint64, n int) error {
	if offset >= r.size || r.size-offset < uint64(n) {
		return &mem.AddressError{Addr: r.base + offset, Size: n, Err: mem.ErrAddressOutOfBounds}
	}
	return nil
}

func (r *Region) crossesBlock(offset uint64, n int) bool {
	block := uint64(r.cache.config.BlockSize)
	return offset/block != (offset+uint64(n)-1)/block
}

func (r *Region) read(offset uint64, n int) (uint64, error) {
	if err := r.check(offset, n); err != nil {
		return 0, err
	}

	if r.crossesBlock(offset, n) {
		var value uint64
		for i := 0; i < n; i++ {
			b, err := r.read(offset+uint64(i), 1)
			if err != nil {
				return 0, err
			}
			value |= b << (8 * i)
		}
		return value, nil
	}

	result := r.cache.Read(offset, n)
	r.cycles += result.Latency
	return result.Data, result.Err
}

func (r *Region) write(offset uint64, n int, value uint64) error {
	if err := r.check(offset, n); err != nil {
		return err
	}

	if r.crossesBlock(offset, n) {
		for i := 0; i < n; i++ {
			if err := r.write(offset+uint64(i), 1, value>>(8*i)); err != nil {
				return err
			}
		}
		return nil
	}

	result := r.cache.Write(offset, n, value)
	r.cycles += result.Latency
	return result.Err
}

// Read8 reads a byte.
func (r *Region) Read8(offset uint64) (uint8, error) {
	v, err := r.read(offset, 1)
	return uint8(v), err
}

// Read16 reads a little-endian half-word.
func (r *Region) Read16(offset uint64) (uint16, error) {
	v, err := r.read(offset, 2)
	return uint16(v), err
}

// Read32 reads a little-endian word.
func (r *Region) Read32(offset uint64) (uint32, error) {
	v, err := r.read(offset, 4)
	return uint32(v), err
}

// Read64 reads a little-endian double-word.
func (r *Region) Read64(offset uint64) (uint64, error) {
	return r.read(offset, 8)
}

// Write8 writes a byte.
func (r *Region) Write8(offset uint64, value uint8) error {
	return r.write(offset, 1, uint64(value))
}

// Write16 writes a little-endian half-word.
func (r *Region) Write16(offset uint64, value uint16) error {
	return r.write(offset, 2, uint64(value))
}

// Write32 writes a little-endian word.
func (r *Region) Write32(offset uint64, value uint32) error {
	return r.write(offset, 4, uint64(value))
}

// Write64 writes a little-endian double-word.
func (r *Region) Write64(offset uint64, value uint64) error {
	return r.write(offset, 8, value)
}
