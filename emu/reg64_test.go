package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/emu"
)

var _ = Describe("Reg64", func() {
	DescribeTable("SignExtend",
		func(value uint64, bits uint, expected uint64) {
			Expect(emu.SignExtend(value, bits)).To(Equal(expected))
			Expect(emu.Reg64(value).SignExtend(bits)).To(Equal(expected))
		},
		Entry("positive 12-bit", uint64(0x7ff), uint(12), uint64(0x7ff)),
		Entry("negative 12-bit", uint64(0xfff), uint(12), uint64(0xffffffffffffffff)),
		Entry("negative 13-bit branch offset", uint64(0x1ffc), uint(13), uint64(0xfffffffffffffffc)),
		Entry("ignores bits above the width", uint64(0xf0f), uint(8), uint64(0x0f)),
		Entry("full width", uint64(0x8000000000000000), uint(64), uint64(0x8000000000000000)),
	)

	DescribeTable("ZeroExtend",
		func(value uint64, bits uint, expected uint64) {
			Expect(emu.ZeroExtend(value, bits)).To(Equal(expected))
			Expect(emu.Reg64(value).ZeroExtend(bits)).To(Equal(expected))
		},
		Entry("byte", uint64(0xffffffffffffff80), uint(8), uint64(0x80)),
		Entry("word with top bit set", uint64(0xffffffff80000000), uint(32), uint64(0x80000000)),
		Entry("full width", uint64(0xffffffffffffffff), uint(64), uint64(0xffffffffffffffff)),
	)

	DescribeTable("Signed",
		func(value uint64, bits uint, expected int64) {
			Expect(emu.Reg64(value).Signed(bits)).To(Equal(expected))
		},
		Entry("negative word", uint64(0x80000000), uint(32), int64(-0x80000000)),
		Entry("word ignores the upper half", uint64(0x12345678fffffffe), uint(32), int64(-2)),
		Entry("positive word", uint64(0x7fffffff), uint(32), int64(0x7fffffff)),
		Entry("negative double-word", uint64(0xffffffffffffffff), uint(64), int64(-1)),
	)

	It("should format as a 64-bit hex value", func() {
		Expect(emu.Reg64(0x1f).String()).To(Equal("0x000000000000001f"))
	})
})
