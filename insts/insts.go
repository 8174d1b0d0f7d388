// Package insts provides RISC-V RV64 instruction definitions and decoding.
//
// This package turns fetched machine words into structured instruction
// records. It supports:
//   - The RV64I base integer encodings (R/I/S/B/U/J formats)
//   - The M (multiply/divide), A (atomic) and Zicsr extensions
//   - The C extension, expanded into the equivalent 32-bit form
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode(0x00500293) // ADDI x5, x0, 5
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Opcode, inst.Rd, inst.Rs1, inst.Imm)
package insts
