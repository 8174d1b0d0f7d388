package cache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/cache"
	"github.com/sarchlab/rvsim/timing/latency"
)

// Small cache for testing: 4KB, 4-way, 64B lines, 16 sets.
var smallConfig = cache.Config{
	Size:          4 * 1024,
	Associativity: 4,
	BlockSize:     64,
	HitLatency:    1,
	MissLatency:   10,
}

var _ = Describe("Cache", func() {
	var (
		c      *cache.Cache
		memory *mem.RAM
	)

	read64 := func(addr uint64) uint64 {
		v, err := memory.Read64(addr)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return v
	}

	BeforeEach(func() {
		var err error
		memory, err = mem.NewRAM(0, 0x2000)
		Expect(err).NotTo(HaveOccurred())
		c = cache.New(smallConfig, cache.NewRegionBacking(memory))
	})

	Describe("Read operations", func() {
		It("should miss on cold cache", func() {
			Expect(memory.Write64(0x1000, 0xDEADBEEF)).To(Succeed())

			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Latency).To(Equal(uint64(10)))
			Expect(result.Data).To(Equal(uint64(0xDEADBEEF)))

			stats := c.Stats()
			Expect(stats.Reads).To(Equal(uint64(1)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(0)))
		})

		It("should hit on cached data", func() {
			Expect(memory.Write64(0x1000, 0xCAFEBABE)).To(Succeed())

			c.Read(0x1000, 8)
			result := c.Read(0x1000, 8)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Latency).To(Equal(uint64(1)))
			Expect(result.Data).To(Equal(uint64(0xCAFEBABE)))
			Expect(c.Stats().HitRate()).To(BeNumerically("~", 0.5))
		})

		It("should hit on different addresses in same cache line", func() {
			Expect(memory.Write32(0x1000, 0x11111111)).To(Succeed())
			Expect(memory.Write32(0x1004, 0x22222222)).To(Succeed())

			c.Read(0x1000, 4)
			result := c.Read(0x1004, 4)
			Expect(result.Hit).To(BeTrue())
			Expect(result.Data).To(Equal(uint64(0x22222222)))
		})

		It("should report backing errors without filling a line", func() {
			result := c.Read(0x4000, 8)
			Expect(result.Err).To(MatchError(mem.ErrAddressOutOfBounds))
			Expect(c.Read(0x4000, 8).Hit).To(BeFalse())
		})
	})

	Describe("Write operations", func() {
		It("should write-allocate on miss", func() {
			result := c.Write(0x1000, 8, 0x12345678)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Latency).To(Equal(uint64(10)))

			readResult := c.Read(0x1000, 8)
			Expect(readResult.Hit).To(BeTrue())
			Expect(readResult.Data).To(Equal(uint64(0x12345678)))
		})

		It("should merge partial writes into the fetched line", func() {
			Expect(memory.Write64(0x100, 0x1122334455667788)).To(Succeed())

			c.Write(0x102, 2, 0xAAAA)
			Expect(c.Read(0x100, 8).Data).To(Equal(uint64(0x11223344AAAA7788)))
		})
	})

	Describe("Eviction", func() {
		fillSetZero := func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x0400, 8, 0x22222222)
			c.Write(0x0800, 8, 0x33333333)
			c.Write(0x0C00, 8, 0x44444444)
		}

		It("should evict when a set is full", func() {
			fillSetZero()
			Expect(c.Read(0x0000, 8).Hit).To(BeTrue())
			Expect(c.Read(0x0C00, 8).Hit).To(BeTrue())

			result := c.Write(0x1000, 8, 0x55555555)
			Expect(result.Hit).To(BeFalse())
			Expect(result.Evicted).To(BeTrue())
			Expect(c.Stats().Evictions).To(Equal(uint64(1)))
		})

		It("should write back the least recently used dirty block", func() {
			fillSetZero()
			c.Read(0x0400, 8)
			c.Read(0x0800, 8)
			c.Read(0x0C00, 8)

			result := c.Write(0x1000, 8, 0x55555555)
			Expect(result.EvictedAddr).To(Equal(uint64(0)))
			Expect(read64(0x0000)).To(Equal(uint64(0x11111111)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(1)))
		})
	})

	Describe("Flush", func() {
		It("should write back all dirty blocks", func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Write(0x1000, 8, 0x22222222)

			Expect(read64(0x0000)).To(BeZero())
			Expect(read64(0x1000)).To(BeZero())

			Expect(c.Flush()).To(Succeed())

			Expect(read64(0x0000)).To(Equal(uint64(0x11111111)))
			Expect(read64(0x1000)).To(Equal(uint64(0x22222222)))
			Expect(c.Stats().Writebacks).To(Equal(uint64(2)))
			Expect(c.Read(0x0000, 8).Hit).To(BeFalse())
		})
	})

	Describe("Invalidate", func() {
		It("should drop a line without writing it back", func() {
			c.Write(0x0000, 8, 0x11111111)
			c.Invalidate(0x0008)

			Expect(c.Read(0x0000, 8).Data).To(BeZero())
		})
	})

	Describe("Reset", func() {
		It("should clear lines and statistics", func() {
			c.Read(0x0000, 8)
			c.Reset()

			Expect(c.Stats()).To(Equal(cache.Statistics{}))
			Expect(c.Read(0x0000, 8).Hit).To(BeFalse())
		})
	})
})

var _ = Describe("Config", func() {
	It("should take latencies from the timing config", func() {
		timing := latency.DefaultTimingConfig()
		timing.L1HitLatency = 5
		timing.MemoryLatency = 70

		config := cache.ConfigFromTiming(timing)
		Expect(config.HitLatency).To(Equal(uint64(5)))
		Expect(config.MissLatency).To(Equal(uint64(70)))
		Expect(config.Validate()).To(Succeed())
	})

	It("should create a valid L1D config", func() {
		config := cache.DefaultL1DConfig()
		Expect(config.Size).To(Equal(32 * 1024))
		Expect(config.Associativity).To(Equal(8))
		Expect(config.BlockSize).To(Equal(64))
		Expect(config.Validate()).To(Succeed())
	})

	DescribeTable("invalid geometries",
		func(mutate func(*cache.Config)) {
			config := smallConfig
			mutate(&config)
			Expect(config.Validate()).To(MatchError(cache.ErrInvalidConfig))
		},
		Entry("zero block size", func(c *cache.Config) { c.BlockSize = 0 }),
		Entry("odd block size", func(c *cache.Config) { c.BlockSize = 48 }),
		Entry("zero ways", func(c *cache.Config) { c.Associativity = 0 }),
		Entry("partial set", func(c *cache.Config) { c.Size = 4*1024 + 64 }),
	)
})
