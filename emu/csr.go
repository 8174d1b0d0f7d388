package emu

// CSRCount is the size of the 12-bit CSR address space.
const CSRCount = 4096

// Unprivileged counter CSRs.
const (
	CSRCycle   uint16 = 0xC00
	CSRTime    uint16 = 0xC01
	CSRInstret uint16 = 0xC02
)

// CSRFile holds the raw control and status registers. There is no
// per-register access control; every address is a plain 64-bit cell.
type CSRFile struct {
	regs [CSRCount]Reg64
}

// Read returns the value of a CSR. Addresses are masked to 12 bits.
func (c *CSRFile) Read(addr uint16) uint64 {
	return uint64(c.regs[addr&0xfff])
}

// Write sets the value of a CSR.
func (c *CSRFile) Write(addr uint16, value uint64) {
	c.regs[addr&0xfff] = Reg64(value)
}

// Reset clears every CSR.
func (c *CSRFile) Reset() {
	c.regs = [CSRCount]Reg64{}
}
