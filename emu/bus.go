package emu

// Bus is the memory interface seen by the CPU. Every access may fail, for
// instance when nothing is mapped at the address or the target is
// read-only.
type Bus interface {
	Read8(addr uint64) (uint8, error)
	Read16(addr uint64) (uint16, error)
	Read32(addr uint64) (uint32, error)
	Read64(addr uint64) (uint64, error)

	Write8(addr uint64, value uint8) error
	Write16(addr uint64, value uint16) error
	Write32(addr uint64, value uint32) error
	Write64(addr uint64, value uint64) error
}
