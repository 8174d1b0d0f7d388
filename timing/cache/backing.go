package cache

import (
	"github.com/sarchlab/rvsim/mem"
)

// RegionBacking adapts a mem.Region as a BackingStore. Addresses are
// region-local offsets.
type RegionBacking struct {
	region mem.Region
}

// NewRegionBacking creates a new RegionBacking adapter.
func NewRegionBacking(region mem.Region) *RegionBacking {
	return &RegionBacking{region: region}
}

// Read fetches size bytes starting at addr.
func (b *RegionBacking) Read(addr uint64, size int) ([]byte, error) {
	data := make([]byte, size)
	for i := range data {
		v, err := b.region.Read8(addr + uint64(i))
		if err != nil {
			return nil, err
		}
		data[i] = v
	}
	return data, nil
}

// Write stores data starting at addr.
func (b *RegionBacking) Write(addr uint64, data []byte) error {
	for i, v := range data {
		if err := b.region.Write8(addr+uint64(i), v); err != nil {
			return err
		}
	}
	return nil
}
