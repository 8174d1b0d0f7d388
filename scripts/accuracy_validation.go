// Package main provides accuracy validation for the timing models.
// Ensures that caches and branch prediction change cycle estimates only,
// never architectural results.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/rvsim/benchmarks"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/timing/branch"
)

// testInstructionDecoding validates that compressed instructions decode
// to the same operation as their 32-bit equivalents.
func testInstructionDecoding() bool {
	decoder := insts.NewDecoder()

	testCases := []struct {
		name       string
		compressed uint16
		full       uint32
	}{
		{"c.li a0, 5", insts.EncodeCLI(10, 5), insts.EncodeADDI(10, 0, 5)},
		{"c.addi a0, 1", insts.EncodeCADDI(10, 1), insts.EncodeADDI(10, 10, 1)},
		{"c.mv a0, a1", insts.EncodeCMV(10, 11), insts.EncodeADD(10, 0, 11)},
		{"c.add a0, a1", insts.EncodeCADD(10, 11), insts.EncodeADD(10, 10, 11)},
	}

	fmt.Println("Testing compressed decoder accuracy...")

	for i, tc := range testCases {
		inst1, err := decoder.Decode(uint32(tc.compressed))
		if err != nil {
			fmt.Printf("❌ Test case %d (%s) failed: %v\n", i, tc.name, err)
			return false
		}
		inst2, err := decoder.Decode(tc.full)
		if err != nil {
			fmt.Printf("❌ Test case %d (%s) failed: %v\n", i, tc.name, err)
			return false
		}

		if inst1.Opcode != inst2.Opcode ||
			inst1.Funct3 != inst2.Funct3 ||
			inst1.Rd != inst2.Rd ||
			inst1.Rs1 != inst2.Rs1 ||
			inst1.Imm != inst2.Imm ||
			!inst1.IsCompressed {

			fmt.Printf("❌ Test case %d failed: decode mismatch for %s\n", i, tc.name)
			fmt.Printf("  compressed: %+v\n", inst1)
			fmt.Printf("  full:       %+v\n", inst2)
			return false
		}

		fmt.Printf("✅ Test case %d: %s (0x%04X) decoded correctly\n", i, tc.name, tc.compressed)
	}

	return true
}

// testTimingModels runs every microbenchmark under each combination of
// timing models and checks that results and instruction counts agree.
func testTimingModels() bool {
	fmt.Println("\nTesting timing model transparency...")

	type variant struct {
		name  string
		cache bool
		bpred bool
	}
	variants := []variant{
		{"plain", false, false},
		{"l1d", true, false},
		{"bpred", false, true},
		{"l1d+bpred", true, true},
	}

	var baseline []benchmarks.BenchmarkResult
	for _, v := range variants {
		config := benchmarks.DefaultConfig()
		config.Output = io.Discard
		config.EnableDCache = v.cache
		config.EnableBranchPredictor = v.bpred

		harness := benchmarks.NewHarness(config)
		harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())
		results := harness.RunAll()

		if err := harness.Check(results); err != nil {
			fmt.Printf("❌ %s: %v\n", v.name, err)
			return false
		}

		if baseline == nil {
			baseline = results
			fmt.Printf("✅ %s: %d benchmarks passed\n", v.name, len(results))
			continue
		}

		for i, r := range results {
			base := baseline[i]
			if r.ExitCode != base.ExitCode || r.InstructionsRetired != base.InstructionsRetired {
				fmt.Printf("❌ %s/%s: exit %d after %d instructions, plain run gave %d after %d\n",
					v.name, r.Name, r.ExitCode, r.InstructionsRetired,
					base.ExitCode, base.InstructionsRetired)
				return false
			}
		}

		fmt.Printf("✅ %s: results match the plain run\n", v.name)
	}

	return true
}

// testBranchPredictorAccuracy validates that two predictors fed the same
// outcomes stay in lockstep, including across Reset.
func testBranchPredictorAccuracy() bool {
	fmt.Println("\nTesting branch predictor determinism...")

	config := branch.Config{BHTSize: 16, BTBSize: 8}
	bp1, err := branch.NewPredictor(config)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return false
	}
	bp2, _ := branch.NewPredictor(config)

	testPCs := []uint64{0x1000, 0x1002, 0x1008, 0x100C}
	testTarget := uint64(0x2000)

	for i, pc := range testPCs {
		miss1 := bp1.Resolve(pc, i%2 == 0, testTarget)
		miss2 := bp2.Resolve(pc, i%2 == 0, testTarget)

		if miss1 != miss2 {
			fmt.Printf("❌ Prediction mismatch at PC 0x%X\n", pc)
			return false
		}

		fmt.Printf("✅ PC 0x%X: Prediction consistent (mispredicted=%v)\n", pc, miss1)
	}

	bp1.Reset()
	bp2.Reset()

	for _, pc := range testPCs {
		if bp1.Predict(pc) != bp2.Predict(pc) {
			fmt.Printf("❌ Post-reset prediction mismatch at PC 0x%X\n", pc)
			return false
		}
	}

	fmt.Println("✅ Branch predictor reset behavior validated")
	return true
}

func main() {
	fmt.Println("rvsim Accuracy Validation - Timing Models")
	fmt.Println("=========================================")

	allPassed := true

	if !testInstructionDecoding() {
		allPassed = false
	}

	if !testTimingModels() {
		allPassed = false
	}

	if !testBranchPredictorAccuracy() {
		allPassed = false
	}

	fmt.Println("\n=========================================")
	if allPassed {
		fmt.Println("🎉 ALL ACCURACY TESTS PASSED")
		os.Exit(0)
	} else {
		fmt.Println("❌ ACCURACY TESTS FAILED")
		os.Exit(1)
	}
}
