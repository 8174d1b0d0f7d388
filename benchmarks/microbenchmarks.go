package benchmarks

import (
	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
)

// ABI register numbers used by the programs below.
const (
	regRA = 1
	regSP = 2
	regT0 = 5
	regT1 = 6
	regT2 = 7
	regA0 = 10
	regA1 = 11
	regA2 = 12
	regA3 = 13
	regA4 = 14
)

// halt is the self-jump every benchmark ends in.
var halt = insts.EncodeJAL(0, 0)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific instruction class.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		multiplyDivide(),
		atomicCounter(),
		compressedLoop(),
		loopSimulation(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation: a loop,
// memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		loopSimulation(),
		memorySequential(),
		branchTaken(),
	}
}

// 1. Arithmetic Sequential - ALU throughput with independent operations
func arithmeticSequential() Benchmark {
	var program []uint32
	for i := 0; i < 4; i++ {
		for _, rd := range []uint8{regA0, regA1, regA2, regA3, regA4} {
			program = append(program, insts.EncodeADDI(rd, rd, 1))
		}
	}
	program = append(program, halt)

	return Benchmark{
		Name:         "arithmetic_sequential",
		Description:  "20 independent ADDIs across 5 registers - measures ALU throughput",
		Program:      BuildProgram(program...),
		ExpectedExit: 4,
	}
}

// 2. Dependency Chain - every ADDI reads the previous result
func dependencyChain() Benchmark {
	return Benchmark{
		Name:         "dependency_chain",
		Description:  "20 dependent ADDIs (a0 = a0 + 1) - measures back-to-back latency",
		Program:      buildDependencyChain(20),
		ExpectedExit: 20,
	}
}

func buildDependencyChain(n int) []byte {
	program := make([]uint32, 0, n+1)
	for i := 0; i < n; i++ {
		program = append(program, insts.EncodeADDI(regA0, regA0, 1))
	}
	return BuildProgram(append(program, halt)...)
}

// 3. Memory Sequential - stores then reloads 8 consecutive double-words
func memorySequential() Benchmark {
	program := []uint32{insts.EncodeADDI(regT0, regSP, -256)}
	for i := int32(0); i < 8; i++ {
		program = append(program,
			insts.EncodeADDI(regT1, 0, i+1),
			insts.EncodeStore(insts.Funct3SD, regT0, regT1, 8*i),
		)
	}
	for i := int32(0); i < 8; i++ {
		program = append(program,
			insts.EncodeLoad(insts.Funct3LD, regT1, regT0, 8*i),
			insts.EncodeADD(regA0, regA0, regT1),
		)
	}
	program = append(program, halt)

	return Benchmark{
		Name:         "memory_sequential",
		Description:  "8 SD then 8 LD to one cache line - measures load/store cost",
		Program:      BuildProgram(program...),
		ExpectedExit: 36,
	}
}

// 4. Function Calls - JAL/JALR pairs
func functionCalls() Benchmark {
	const calls = 5
	program := make([]uint32, 0, calls+3)
	for i := 0; i < calls; i++ {
		// The callee sits right after the halt.
		program = append(program, insts.EncodeJAL(regRA, int32(calls+1-i)*4))
	}
	program = append(program,
		halt,
		insts.EncodeADDI(regA0, regA0, 1),
		insts.EncodeJALR(0, regRA, 0),
	)

	return Benchmark{
		Name:         "function_calls",
		Description:  "5 calls to a leaf function - measures call/return overhead",
		Program:      BuildProgram(program...),
		ExpectedExit: calls,
	}
}

// 5. Branch Taken - a count-down loop closed by BNE
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "10 iterations of a BNE loop - measures taken-branch penalty",
		Program: BuildProgram(
			insts.EncodeADDI(regT0, 0, 10),
			insts.EncodeADDI(regA0, regA0, 1),
			insts.EncodeADDI(regT0, regT0, -1),
			insts.EncodeB(insts.Funct3BNE, regT0, 0, -8),
			halt,
		),
		ExpectedExit: 10,
	}
}

// 6. Multiply/Divide - M extension latency
func multiplyDivide() Benchmark {
	return Benchmark{
		Name:        "multiply_divide",
		Description: "MUL, DIV and REMU chain - measures multi-cycle operations",
		Program: BuildProgram(
			insts.EncodeADDI(regA0, 0, 3),
			insts.EncodeADDI(regT0, 0, 7),
			insts.EncodeMulDiv(insts.Funct3MUL, regA0, regA0, regT0), // 21
			insts.EncodeMulDiv(insts.Funct3MUL, regA0, regA0, regT0), // 147
			insts.EncodeADDI(regT1, 0, 5),
			insts.EncodeMulDiv(insts.Funct3DIV, regA0, regA0, regT1),  // 29
			insts.EncodeMulDiv(insts.Funct3REMU, regT2, regA0, regT1), // 4
			insts.EncodeADD(regA0, regA0, regT2),
			halt,
		),
		ExpectedExit: 33,
	}
}

// 7. Atomic Counter - AMOADD.D read-modify-write loop
func atomicCounter() Benchmark {
	return Benchmark{
		Name:        "atomic_counter",
		Description: "10 AMOADD.D increments of one counter - measures atomic cost",
		Setup: func(regFile *emu.RegFile, bus *mem.Bus) error {
			// Start the counter from a known value in memory.
			return bus.Write64(StackPointer-64, 0)
		},
		Program: BuildProgram(
			insts.EncodeADDI(regT0, regSP, -64),
			insts.EncodeADDI(regT1, 0, 1),
			insts.EncodeADDI(regT2, 0, 10),
			insts.EncodeAMO(insts.AMOADD, insts.Funct3AMOD, 0, regT0, regT1),
			insts.EncodeADDI(regT2, regT2, -1),
			insts.EncodeB(insts.Funct3BNE, regT2, 0, -8),
			insts.EncodeLoad(insts.Funct3LD, regA0, regT0, 0),
			halt,
		),
		ExpectedExit: 10,
	}
}

// 8. Compressed Loop - the same count-down loop in 16-bit instructions
func compressedLoop() Benchmark {
	b := &Builder{}
	b.Half(insts.EncodeCLI(regA1, 20))
	b.Half(
		insts.EncodeCADDI(regA0, 1),
		insts.EncodeCADDI(regA1, -1),
		insts.EncodeCBNEZ(regA1, -4),
	)
	b.Word(halt)

	return Benchmark{
		Name:         "compressed_loop",
		Description:  "20 iterations of a C.BNEZ loop - exercises the compressed decoder",
		Program:      b.Bytes(),
		ExpectedExit: 20,
	}
}

// 9. Loop Simulation - sum of 1..100
func loopSimulation() Benchmark {
	return Benchmark{
		Name:        "loop_simulation",
		Description: "Sum 1..100 in a counted loop - typical compiled loop shape",
		Program: BuildProgram(
			insts.EncodeADDI(regT0, 0, 100),
			insts.EncodeADD(regA0, regA0, regT0),
			insts.EncodeADDI(regT0, regT0, -1),
			insts.EncodeB(insts.Funct3BNE, regT0, 0, -8),
			halt,
		),
		ExpectedExit: 5050,
	}
}
