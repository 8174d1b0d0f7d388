// Validate decoder throughput - measures allocations per decoded instruction
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/rvsim/insts"
)

func main() {
	decoder := insts.NewDecoder()

	// A mix of 32-bit and compressed encodings
	workload := []uint32{
		insts.EncodeADDI(10, 11, 42),
		insts.EncodeMulDiv(insts.Funct3MUL, 12, 13, 14),
		insts.EncodeLoad(insts.Funct3LD, 5, 2, 16),
		uint32(insts.EncodeCBNEZ(11, -4)),
	}

	// Warm up
	for i := 0; i < 1000; i++ {
		for _, w := range workload {
			_, _ = decoder.Decode(w)
		}
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000

	for i := 0; i < iterations; i++ {
		for _, w := range workload {
			if _, err := decoder.Decode(w); err != nil {
				fmt.Printf("decode 0x%08x: %v\n", w, err)
				return
			}
		}
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	totalDecodes := iterations * len(workload)
	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocated bytes: %d\n", allocatedBytes)
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(totalDecodes))
	fmt.Printf("Bytes per decode: %.1f\n", float64(allocatedBytes)/float64(totalDecodes))

	if float64(allocations)/float64(totalDecodes) <= 1 {
		fmt.Printf("\n✅ GOOD: At most one allocation per decode\n")
	} else {
		fmt.Printf("\n⚠️  WARNING: High allocation rate detected\n")
	}
}
