package loader

import (
	"fmt"

	"github.com/sarchlab/rvsim/mem"
)

// ImageLoader is implemented by regions that accept bulk image loads
// regardless of whether they are writable at run time.
type ImageLoader interface {
	LoadImageAt(offset uint64, data []byte) error
}

// Size returns the number of bytes the program occupies in memory.
func (p *Program) Size() uint64 {
	var total uint64
	for _, seg := range p.Segments {
		total += seg.MemSize
	}
	return total
}

// LoadInto copies every segment into the region mapped at its address.
// Bytes between the file size and the memory size are zeroed.
func (p *Program) LoadInto(bus *mem.Bus) error {
	for _, seg := range p.Segments {
		region, offset, err := bus.Resolve(seg.VirtAddr)
		if err != nil {
			return fmt.Errorf("segment at 0x%x: %w", seg.VirtAddr, err)
		}

		target, ok := region.(ImageLoader)
		if !ok {
			return fmt.Errorf("segment at 0x%x: region %T cannot hold an image",
				seg.VirtAddr, region)
		}

		image := seg.Data
		if seg.MemSize > uint64(len(image)) {
			image = make([]byte, seg.MemSize)
			copy(image, seg.Data)
		}

		if err := target.LoadImageAt(offset, image); err != nil {
			return fmt.Errorf("segment at 0x%x: %w", seg.VirtAddr, err)
		}
	}

	return nil
}
