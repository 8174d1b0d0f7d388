package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/timing/branch"
	"github.com/sarchlab/rvsim/timing/latency"
)

const (
	ramBase  = uint64(0)
	ramSize  = uint64(0x10000)
	entry    = uint64(0x1000)
	dataAddr = uint64(0x8000)
	romBase  = uint64(0x20000)
	unmapped = uint64(0x40000)
)

// loadProgram writes little-endian instruction words starting at entry.
func loadProgram(ram *mem.RAM, words ...uint32) {
	addr := entry
	for _, w := range words {
		ExpectWithOffset(1, ram.Write32(addr, w)).To(Succeed())
		addr += 4
	}
}

// loadHalves writes 16-bit parcels starting at entry.
func loadHalves(ram *mem.RAM, halves ...uint16) {
	addr := entry
	for _, h := range halves {
		ExpectWithOffset(1, ram.Write16(addr, h)).To(Succeed())
		addr += 2
	}
}

var _ = Describe("CPU", func() {
	var (
		bus  *mem.Bus
		ram  *mem.RAM
		cpu  *emu.CPU
		regs *emu.RegFile
	)

	step := func(n int) {
		for i := 0; i < n; i++ {
			ExpectWithOffset(1, cpu.DoCycle()).To(Succeed())
		}
	}

	BeforeEach(func() {
		var err error
		ram, err = mem.NewRAM(ramBase, ramSize)
		Expect(err).NotTo(HaveOccurred())

		bus = mem.NewBus()
		bus.AddRegion(ram, ramBase, ramBase+ramSize)
		bus.AddRegion(mem.NewROMFromImage(romBase, make([]byte, 16)), romBase, romBase+16)

		cpu = emu.NewCPU(bus, emu.WithEntryPoint(entry))
		regs = cpu.RegFile()
	})

	Describe("NewCPU", func() {
		It("should start at the entry point with cleared state", func() {
			Expect(cpu.PC()).To(Equal(entry))
			Expect(regs.ReadReg(1)).To(BeZero())
			Expect(cpu.InstructionCount()).To(BeZero())
		})
	})

	Describe("register x0", func() {
		It("should read zero after an instruction writes it", func() {
			loadProgram(ram, insts.EncodeADDI(0, 0, 5))
			step(1)

			Expect(regs.ReadReg(0)).To(BeZero())
			Expect(cpu.PC()).To(Equal(entry + 4))
		})
	})

	Describe("integer arithmetic", func() {
		It("should compute ADDI, ADDI, ADD = 12", func() {
			loadProgram(ram,
				insts.EncodeADDI(1, 0, 5),
				insts.EncodeADDI(2, 0, 7),
				insts.EncodeADD(3, 1, 2),
			)
			step(3)

			Expect(regs.ReadReg(3)).To(Equal(uint64(12)))
			Expect(cpu.PC()).To(Equal(entry + 12))
		})

		It("should sign-extend negative immediates", func() {
			loadProgram(ram, insts.EncodeADDI(1, 0, -1))
			step(1)

			Expect(regs.ReadReg(1)).To(Equal(^uint64(0)))
		})

		It("should compare signed and unsigned in SLT and SLTU", func() {
			regs.WriteReg(1, ^uint64(0)) // -1
			regs.WriteReg(2, 1)
			loadProgram(ram,
				insts.EncodeR(insts.OpOP, 3, insts.Funct3SLT, 1, 2, 0),
				insts.EncodeR(insts.OpOP, 4, insts.Funct3SLTU, 1, 2, 0),
				insts.EncodeI(insts.OpIMM, 5, insts.Funct3SLTU, 0, 1),
			)
			step(3)

			Expect(regs.ReadReg(3)).To(Equal(uint64(1)))
			Expect(regs.ReadReg(4)).To(BeZero())
			Expect(regs.ReadReg(5)).To(Equal(uint64(1)))
		})

		It("should shift right arithmetically for SRA and SRAI", func() {
			regs.WriteReg(1, 0x8000000000000000)
			regs.WriteReg(2, 68) // masked to 4
			loadProgram(ram,
				insts.EncodeR(insts.OpOP, 3, insts.Funct3SRL, 1, 2, insts.Funct7Alt),
				insts.EncodeShiftImm(insts.Funct3SRL, 4, 1, 63, true),
				insts.EncodeShiftImm(insts.Funct3SRL, 5, 1, 63, false),
			)
			step(3)

			Expect(regs.ReadReg(3)).To(Equal(uint64(0xf800000000000000)))
			Expect(regs.ReadReg(4)).To(Equal(^uint64(0)))
			Expect(regs.ReadReg(5)).To(Equal(uint64(1)))
		})

		It("should load upper immediates sign-extended from 32 bits", func() {
			loadProgram(ram, insts.EncodeLUI(1, 0x80000))
			step(1)

			Expect(regs.ReadReg(1)).To(Equal(uint64(0xffffffff80000000)))
		})

		It("should compute AUIPC relative to its own address", func() {
			loadProgram(ram,
				insts.EncodeAUIPC(1, 0),
				insts.EncodeAUIPC(2, 0xfffff),
			)
			step(2)

			Expect(regs.ReadReg(1)).To(Equal(uint64(0x1000)))
			Expect(regs.ReadReg(2)).To(Equal(uint64(0x1004 - 0x1000)))
		})
	})

	Describe("word arithmetic", func() {
		It("should sign-extend 32-bit results", func() {
			regs.WriteReg(1, 0x7fffffff)
			regs.WriteReg(2, 1)
			loadProgram(ram,
				insts.EncodeR(insts.OpOP32, 3, insts.Funct3ADD, 1, 2, insts.Funct7Base),
				insts.EncodeR(insts.OpOP32, 4, insts.Funct3ADD, 0, 2, insts.Funct7Alt),
				insts.EncodeI(insts.OpIMM32, 5, insts.Funct3ADD, 1, 1),
			)
			step(3)

			Expect(regs.ReadReg(3)).To(Equal(uint64(0xffffffff80000000)))
			Expect(regs.ReadReg(4)).To(Equal(^uint64(0)))
			Expect(regs.ReadReg(5)).To(Equal(uint64(0xffffffff80000000)))
		})

		It("should shift words with 5-bit amounts", func() {
			regs.WriteReg(1, 0x80000000)
			regs.WriteReg(2, 33) // masked to 1
			loadProgram(ram,
				insts.EncodeR(insts.OpOP32, 3, insts.Funct3SRL, 1, 2, insts.Funct7Alt),
				insts.EncodeR(insts.OpOP32, 4, insts.Funct3SRL, 1, 2, insts.Funct7Base),
			)
			step(2)

			Expect(regs.ReadReg(3)).To(Equal(uint64(0xffffffffc0000000)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(0x40000000)))
		})

		It("should view only the low word as signed", func() {
			regs.WriteReg(1, 0x1234567880000000)
			regs.WriteReg(2, 0x00000000fffffffe) // -2 as a word
			loadProgram(ram,
				insts.EncodeI(insts.OpIMM32, 3, insts.Funct3SRL, 1, 0x404), // sraiw x3, x1, 4
				insts.EncodeR(insts.OpOP32, 4, insts.Funct3DIV, 1, 2, insts.Funct7MulDiv),
			)
			step(2)

			Expect(regs.ReadReg(3)).To(Equal(uint64(0xfffffffff8000000)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(0x40000000)))
		})
	})

	Describe("multiply and divide", func() {
		It("should yield 0 for division by zero", func() {
			regs.WriteReg(1, 42)
			loadProgram(ram,
				insts.EncodeMulDiv(insts.Funct3DIV, 3, 1, 0),
				insts.EncodeMulDiv(insts.Funct3DIVU, 4, 1, 0),
				insts.EncodeMulDiv(insts.Funct3REM, 5, 1, 0),
				insts.EncodeMulDiv(insts.Funct3REMU, 6, 1, 0),
			)
			step(4)

			Expect(regs.ReadReg(3)).To(BeZero())
			Expect(regs.ReadReg(4)).To(BeZero())
			Expect(regs.ReadReg(5)).To(BeZero())
			Expect(regs.ReadReg(6)).To(BeZero())
		})

		It("should divide signed values toward zero", func() {
			regs.WriteReg(1, uint64(0xfffffffffffffff9)) // -7
			regs.WriteReg(2, 2)
			loadProgram(ram,
				insts.EncodeMulDiv(insts.Funct3DIV, 3, 1, 2),
				insts.EncodeMulDiv(insts.Funct3REM, 4, 1, 2),
			)
			step(2)

			Expect(int64(regs.ReadReg(3))).To(Equal(int64(-3)))
			Expect(int64(regs.ReadReg(4))).To(Equal(int64(-1)))
		})

		It("should compute the high halves of 128-bit products", func() {
			regs.WriteReg(1, ^uint64(0)) // -1 or 2^64-1
			regs.WriteReg(2, 2)
			loadProgram(ram,
				insts.EncodeMulDiv(insts.Funct3MULH, 3, 1, 2),
				insts.EncodeMulDiv(insts.Funct3MULHU, 4, 1, 2),
				insts.EncodeMulDiv(insts.Funct3MULHSU, 5, 1, 2),
				insts.EncodeMulDiv(insts.Funct3MUL, 6, 1, 2),
			)
			step(4)

			Expect(regs.ReadReg(3)).To(Equal(^uint64(0)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(1)))
			Expect(regs.ReadReg(5)).To(Equal(^uint64(0)))
			Expect(int64(regs.ReadReg(6))).To(Equal(int64(-2)))
		})

		It("should implement the word forms", func() {
			regs.WriteReg(1, 0x80000000)
			regs.WriteReg(2, 0xffffffff)
			loadProgram(ram,
				insts.EncodeR(insts.OpOP32, 3, insts.Funct3DIV, 1, 2, insts.Funct7MulDiv),
				insts.EncodeR(insts.OpOP32, 4, insts.Funct3MUL, 2, 2, insts.Funct7MulDiv),
				insts.EncodeR(insts.OpOP32, 5, insts.Funct3REMU, 1, 0, insts.Funct7MulDiv),
			)
			step(3)

			Expect(regs.ReadReg(3)).To(Equal(uint64(0xffffffff80000000)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(1)))
			Expect(regs.ReadReg(5)).To(BeZero())
		})
	})

	Describe("control flow", func() {
		It("should link and skip the default advance for JAL", func() {
			loadProgram(ram, insts.EncodeJAL(1, 16))
			step(1)

			Expect(cpu.PC()).To(Equal(entry + 16))
			Expect(regs.ReadReg(1)).To(Equal(entry + 4))
		})

		It("should jump backwards with JAL", func() {
			loadProgram(ram, insts.EncodeNOP(), insts.EncodeJAL(0, -4))
			step(2)

			Expect(cpu.PC()).To(Equal(entry))
		})

		It("should clear bit 0 of the JALR target and allow rd == rs1", func() {
			regs.WriteReg(5, 0x2001)
			loadProgram(ram, insts.EncodeJALR(5, 5, 2))
			step(1)

			Expect(cpu.PC()).To(Equal(uint64(0x2002)))
			Expect(regs.ReadReg(5)).To(Equal(entry + 4))
		})

		It("should take branches without the default advance", func() {
			regs.WriteReg(1, 3)
			regs.WriteReg(2, 3)
			loadProgram(ram, insts.EncodeB(insts.Funct3BEQ, 1, 2, 8))
			step(1)

			Expect(cpu.PC()).To(Equal(entry + 8))
		})

		It("should advance by 4 for untaken branches", func() {
			regs.WriteReg(1, 3)
			loadProgram(ram, insts.EncodeB(insts.Funct3BEQ, 1, 0, 8))
			step(1)

			Expect(cpu.PC()).To(Equal(entry + 4))
		})

		DescribeTable("branch conditions",
			func(funct3 uint8, a, b uint64, taken bool) {
				regs.WriteReg(1, a)
				regs.WriteReg(2, b)
				loadProgram(ram, insts.EncodeB(funct3, 1, 2, -8))
				step(1)

				if taken {
					Expect(cpu.PC()).To(Equal(entry - 8))
				} else {
					Expect(cpu.PC()).To(Equal(entry + 4))
				}
			},
			Entry("BNE unequal", insts.Funct3BNE, uint64(1), uint64(2), true),
			Entry("BLT signed", insts.Funct3BLT, ^uint64(0), uint64(1), true),
			Entry("BLT equal", insts.Funct3BLT, uint64(1), uint64(1), false),
			Entry("BGE equal", insts.Funct3BGE, uint64(1), uint64(1), true),
			Entry("BGE signed", insts.Funct3BGE, ^uint64(0), uint64(1), false),
			Entry("BLTU unsigned", insts.Funct3BLTU, uint64(1), ^uint64(0), true),
			Entry("BGEU unsigned", insts.Funct3BGEU, ^uint64(0), uint64(1), true),
		)

		It("should report a jump to itself as halted", func() {
			loadProgram(ram, insts.EncodeJAL(0, 0))

			result := cpu.Step()

			Expect(result.Err).NotTo(HaveOccurred())
			Expect(result.Halted).To(BeTrue())
			Expect(cpu.Idle()).To(BeTrue())
		})
	})

	Describe("loads and stores", func() {
		BeforeEach(func() {
			regs.WriteReg(10, dataAddr)
		})

		It("should round-trip every width", func() {
			regs.WriteReg(1, 0xfedcba9876543210)
			loadProgram(ram,
				insts.EncodeStore(insts.Funct3SD, 10, 1, 0),
				insts.EncodeLoad(insts.Funct3LD, 2, 10, 0),
				insts.EncodeStore(insts.Funct3SW, 10, 1, 8),
				insts.EncodeLoad(insts.Funct3LWU, 3, 10, 8),
				insts.EncodeStore(insts.Funct3SH, 10, 1, 16),
				insts.EncodeLoad(insts.Funct3LHU, 4, 10, 16),
				insts.EncodeStore(insts.Funct3SB, 10, 1, 24),
				insts.EncodeLoad(insts.Funct3LBU, 5, 10, 24),
			)
			step(8)

			Expect(regs.ReadReg(2)).To(Equal(uint64(0xfedcba9876543210)))
			Expect(regs.ReadReg(3)).To(Equal(uint64(0x76543210)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(0x3210)))
			Expect(regs.ReadReg(5)).To(Equal(uint64(0x10)))
		})

		It("should sign-extend LB, LH and LW", func() {
			Expect(ram.Write64(dataAddr, 0x00000000_80008080)).To(Succeed())
			loadProgram(ram,
				insts.EncodeLoad(insts.Funct3LB, 1, 10, 0),
				insts.EncodeLoad(insts.Funct3LH, 2, 10, 0),
				insts.EncodeLoad(insts.Funct3LW, 3, 10, 0),
				insts.EncodeLoad(insts.Funct3LWU, 4, 10, 0),
			)
			step(4)

			Expect(regs.ReadReg(1)).To(Equal(uint64(0xffffffffffffff80)))
			Expect(regs.ReadReg(2)).To(Equal(uint64(0xffffffffffff8080)))
			Expect(regs.ReadReg(3)).To(Equal(uint64(0xffffffff80008080)))
			Expect(regs.ReadReg(4)).To(Equal(uint64(0x80008080)))
		})

		It("should use negative offsets", func() {
			regs.WriteReg(1, 99)
			loadProgram(ram, insts.EncodeStore(insts.Funct3SD, 10, 1, -8))
			step(1)

			Expect(ram.Read64(dataAddr - 8)).To(Equal(uint64(99)))
		})
	})

	Describe("atomics", func() {
		BeforeEach(func() {
			regs.WriteReg(10, dataAddr)
			Expect(ram.Write64(dataAddr, 5)).To(Succeed())
		})

		It("should return the old value and store the sum for AMOADD.D", func() {
			regs.WriteReg(2, 3)
			loadProgram(ram, insts.EncodeAMO(insts.AMOADD, insts.Funct3AMOD, 1, 10, 2))
			step(1)

			Expect(regs.ReadReg(1)).To(Equal(uint64(5)))
			Expect(ram.Read64(dataAddr)).To(Equal(uint64(8)))
		})

		It("should swap at the address in rs1", func() {
			regs.WriteReg(2, 0xffffffff)
			loadProgram(ram, insts.EncodeAMO(insts.AMOSWAP, insts.Funct3AMOW, 1, 10, 2))
			step(1)

			Expect(regs.ReadReg(1)).To(Equal(uint64(5)))
			Expect(ram.Read32(dataAddr)).To(Equal(uint32(0xffffffff)))
		})

		It("should sign-extend word results", func() {
			Expect(ram.Write32(dataAddr, 0x80000000)).To(Succeed())
			loadProgram(ram, insts.EncodeAMO(insts.AMOLR, insts.Funct3AMOW, 1, 10, 0))
			step(1)

			Expect(regs.ReadReg(1)).To(Equal(uint64(0xffffffff80000000)))
		})

		It("should always succeed a store-conditional", func() {
			regs.WriteReg(2, 77)
			regs.WriteReg(1, 123)
			loadProgram(ram,
				insts.EncodeAMO(insts.AMOLR, insts.Funct3AMOD, 3, 10, 0),
				insts.EncodeAMO(insts.AMOSC, insts.Funct3AMOD, 1, 10, 2),
			)
			step(2)

			Expect(regs.ReadReg(3)).To(Equal(uint64(5)))
			Expect(regs.ReadReg(1)).To(BeZero())
			Expect(ram.Read64(dataAddr)).To(Equal(uint64(77)))
		})

		It("should compare signed for AMOMIN and unsigned for AMOMINU", func() {
			regs.WriteReg(2, ^uint64(0))
			loadProgram(ram,
				insts.EncodeAMO(insts.AMOMINU, insts.Funct3AMOD, 1, 10, 2),
				insts.EncodeAMO(insts.AMOMIN, insts.Funct3AMOD, 1, 10, 2),
			)
			step(1)
			Expect(ram.Read64(dataAddr)).To(Equal(uint64(5)))

			step(1)
			Expect(ram.Read64(dataAddr)).To(Equal(^uint64(0)))
		})
	})

	Describe("CSRs", func() {
		It("should swap with CSRRW and read back the old value", func() {
			cpu.CSRs().Write(0x340, 7)
			regs.WriteReg(1, 9)
			loadProgram(ram, insts.EncodeCSR(insts.Funct3CSRRW, 2, 1, 0x340))
			step(1)

			Expect(regs.ReadReg(2)).To(Equal(uint64(7)))
			Expect(cpu.CSRs().Read(0x340)).To(Equal(uint64(9)))
		})

		It("should set and clear bits", func() {
			cpu.CSRs().Write(0x340, 0b1010)
			regs.WriteReg(1, 0b0101)
			loadProgram(ram,
				insts.EncodeCSR(insts.Funct3CSRRS, 0, 1, 0x340),
				insts.EncodeCSR(insts.Funct3CSRRCI, 0, 0b0011, 0x340),
			)
			step(2)

			Expect(cpu.CSRs().Read(0x340)).To(Equal(uint64(0b1100)))
		})

		It("should not write when the source is x0", func() {
			cpu.CSRs().Write(0x340, 0xff)
			loadProgram(ram,
				insts.EncodeCSR(insts.Funct3CSRRC, 1, 0, 0x340),
				insts.EncodeCSR(insts.Funct3CSRRSI, 2, 0, 0x340),
			)
			step(2)

			Expect(regs.ReadReg(1)).To(Equal(uint64(0xff)))
			Expect(cpu.CSRs().Read(0x340)).To(Equal(uint64(0xff)))
		})

		It("should write the 5-bit immediate with CSRRWI", func() {
			loadProgram(ram, insts.EncodeCSR(insts.Funct3CSRRWI, 0, 31, 0x340))
			step(1)

			Expect(cpu.CSRs().Read(0x340)).To(Equal(uint64(31)))
		})

		It("should count cycles and retired instructions", func() {
			loadProgram(ram,
				insts.EncodeNOP(),
				insts.EncodeNOP(),
				insts.EncodeCSR(insts.Funct3CSRRS, 1, 0, emu.CSRInstret),
			)
			step(3)

			Expect(regs.ReadReg(1)).To(Equal(uint64(2)))
			Expect(cpu.CSRs().Read(emu.CSRCycle)).To(Equal(uint64(3)))
		})
	})

	Describe("system instructions", func() {
		It("should treat ECALL, EBREAK and FENCE as no-ops", func() {
			loadProgram(ram,
				insts.WordECALL,
				insts.WordEBREAK,
				insts.EncodeI(insts.OpMISCMEM, 0, 0, 0, 0),
			)
			step(3)

			Expect(cpu.PC()).To(Equal(entry + 12))
		})
	})

	Describe("compressed instructions", func() {
		It("should advance by 2", func() {
			loadHalves(ram, 0x4515, 0x0505) // c.li a0, 5; c.addi a0, 1
			step(2)

			Expect(regs.ReadReg(10)).To(Equal(uint64(6)))
			Expect(cpu.PC()).To(Equal(entry + 4))
		})

		It("should link c.jalr to pc + 4", func() {
			regs.WriteReg(10, 0x3000)
			loadHalves(ram, 0x9502) // c.jalr a0
			step(1)

			Expect(cpu.PC()).To(Equal(uint64(0x3000)))
			Expect(regs.ReadReg(1)).To(Equal(entry + 4))
		})

		It("should link c.jalr to the next 2-byte instruction when asked", func() {
			cpu = emu.NewCPU(bus, emu.WithEntryPoint(entry), emu.WithSizedJALRLink())
			regs = cpu.RegFile()
			regs.WriteReg(10, 0x3000)
			loadHalves(ram, 0x9502) // c.jalr a0
			step(1)

			Expect(cpu.PC()).To(Equal(uint64(0x3000)))
			Expect(regs.ReadReg(1)).To(Equal(entry + 2))
		})

		It("should link c.jal to the next 2-byte instruction", func() {
			loadHalves(ram, 0x2011) // c.jal +4
			step(1)

			Expect(cpu.PC()).To(Equal(entry + 4))
			Expect(regs.ReadReg(1)).To(Equal(entry + 2))
		})

		It("should fetch a compressed instruction in the last bytes of a region", func() {
			regs.WriteReg(10, 1)
			Expect(ram.Write16(ramSize-2, 0x0505)).To(Succeed())
			cpu.SetPC(ramSize - 2)

			step(1)

			Expect(regs.ReadReg(10)).To(Equal(uint64(2)))
		})
	})

	Describe("errors", func() {
		It("should report reserved branch funct3 values with the PC", func() {
			loadProgram(ram, insts.EncodeNOP(), insts.EncodeB(0b010, 1, 2, 8))
			step(1)

			err := cpu.DoCycle()

			var execErr *emu.ExecError
			Expect(errors.As(err, &execErr)).To(BeTrue())
			Expect(execErr.PC).To(Equal(entry + 4))
			Expect(errors.Is(err, emu.ErrUnknownFunct3)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("0b1100011"))
		})

		It("should report unknown funct7 values", func() {
			loadProgram(ram, insts.EncodeR(insts.OpOP, 1, insts.Funct3ADD, 2, 3, 0b0000010))

			Expect(errors.Is(cpu.DoCycle(), emu.ErrUnknownFunct7)).To(BeTrue())
		})

		It("should report SYSTEM funct3 100", func() {
			loadProgram(ram, insts.EncodeCSR(0b100, 1, 0, 0x340))

			Expect(errors.Is(cpu.DoCycle(), emu.ErrUnknownFunct3)).To(BeTrue())
		})

		It("should report undecodable words", func() {
			loadProgram(ram, 0xffffffff)

			Expect(errors.Is(cpu.DoCycle(), insts.ErrUnknownOpcode)).To(BeTrue())
		})

		It("should report fetches from unmapped memory", func() {
			cpu.SetPC(unmapped)

			err := cpu.DoCycle()

			Expect(errors.Is(err, mem.ErrAddressOutOfBounds)).To(BeTrue())
		})

		It("should fail ROM stores and leave the ROM unchanged", func() {
			regs.WriteReg(1, 0xff)
			regs.WriteReg(10, romBase)
			loadProgram(ram, insts.EncodeStore(insts.Funct3SB, 10, 1, 0))

			err := cpu.DoCycle()

			Expect(errors.Is(err, mem.ErrROMWrite)).To(BeTrue())
			Expect(bus.Read8(romBase)).To(Equal(uint8(0)))
		})

		It("should stop at the instruction limit", func() {
			cpu = emu.NewCPU(bus, emu.WithEntryPoint(entry), emu.WithMaxInstructions(2))
			loadProgram(ram, insts.EncodeNOP(), insts.EncodeNOP(), insts.EncodeNOP())

			n, err := cpu.Run(10)

			Expect(n).To(Equal(uint64(2)))
			Expect(err).To(MatchError(emu.ErrMaxInstructions))
		})
	})

	Describe("options", func() {
		It("should charge latency-table costs", func() {
			cpu = emu.NewCPU(bus,
				emu.WithEntryPoint(entry),
				emu.WithLatencyTable(latency.NewTable()),
			)
			loadProgram(ram,
				insts.EncodeMulDiv(insts.Funct3MUL, 1, 0, 0),
				insts.EncodeJAL(0, 4),
			)
			_, err := cpu.Run(2)

			Expect(err).NotTo(HaveOccurred())
			Expect(cpu.CycleCount()).To(Equal(uint64(3 + 1 + 2)))
		})

		It("should only charge mispredicted branches with a predictor", func() {
			loop := []uint32{
				insts.EncodeADDI(5, 0, 10),
				insts.EncodeADDI(5, 5, -1),
				insts.EncodeB(insts.Funct3BNE, 5, 0, -4),
			}

			cpu = emu.NewCPU(bus,
				emu.WithEntryPoint(entry),
				emu.WithLatencyTable(latency.NewTable()),
			)
			loadProgram(ram, loop...)
			_, err := cpu.Run(21)
			Expect(err).NotTo(HaveOccurred())
			Expect(cpu.CycleCount()).To(Equal(uint64(21 + 9*2)))

			predictor, err := branch.NewPredictor(branch.DefaultConfig())
			Expect(err).NotTo(HaveOccurred())
			cpu = emu.NewCPU(bus,
				emu.WithEntryPoint(entry),
				emu.WithLatencyTable(latency.NewTable()),
				emu.WithBranchPredictor(predictor),
			)
			_, err = cpu.Run(21)
			Expect(err).NotTo(HaveOccurred())

			// Cold BTB on the first taken branch and the loop exit.
			Expect(cpu.CycleCount()).To(Equal(uint64(21 + 2*2)))
			Expect(predictor.Stats().Predictions).To(Equal(uint64(10)))
			Expect(predictor.Stats().Mispredictions).To(Equal(uint64(2)))
		})

		It("should trace each instruction", func() {
			var pcs []uint64
			cpu = emu.NewCPU(bus,
				emu.WithEntryPoint(entry),
				emu.WithTracer(func(pc uint64, _ *insts.Instruction) {
					pcs = append(pcs, pc)
				}),
			)
			loadProgram(ram, insts.EncodeNOP(), insts.EncodeNOP())
			_, err := cpu.Run(2)

			Expect(err).NotTo(HaveOccurred())
			Expect(pcs).To(Equal([]uint64{entry, entry + 4}))
		})

		It("should decode c.addiw when given an RV64C decoder", func() {
			cpu = emu.NewCPU(bus,
				emu.WithEntryPoint(entry),
				emu.WithDecoder(insts.NewDecoder(insts.WithCompressedADDIW())),
			)
			cpu.RegFile().WriteReg(10, 0x7fffffff)
			loadHalves(ram, 0x2505) // c.addiw a0, 1
			Expect(cpu.DoCycle()).To(Succeed())

			Expect(cpu.RegFile().ReadReg(10)).To(Equal(uint64(0xffffffff80000000)))
		})
	})

	Describe("Reset", func() {
		It("should clear registers and counters", func() {
			loadProgram(ram, insts.EncodeADDI(1, 0, 1))
			step(1)

			cpu.Reset()

			Expect(regs.ReadReg(1)).To(BeZero())
			Expect(cpu.PC()).To(Equal(entry))
			Expect(cpu.InstructionCount()).To(BeZero())
			Expect(cpu.CSRs().Read(emu.CSRInstret)).To(BeZero())
		})
	})

	Describe("String", func() {
		It("should dump registers with ABI names", func() {
			regs.WriteReg(10, 0x2a)

			dump := cpu.String()

			Expect(dump).To(ContainSubstring("a0  = 0x000000000000002a"))
			Expect(dump).To(ContainSubstring("pc   = 0x0000000000001000"))
		})
	})
})
