package machine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/rvsim/mem"
	"github.com/sarchlab/rvsim/translate"
)

var f = translate.From

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New(f("invalid machine configuration"))

// Config describes the memory map and scheduling of a Machine.
type Config struct {
	// RAMBase and RAMSize place the main memory. Default: 1 MiB at
	// 0x80000000.
	RAMBase uint64 `json:"ram_base"`
	RAMSize uint64 `json:"ram_size"`

	// BootBase and BootWindow place the boot memory mapping. BootSize is
	// the backing store inside the window; accesses past it fail.
	BootBase   uint64 `json:"boot_base"`
	BootWindow uint64 `json:"boot_window"`
	BootSize   uint64 `json:"boot_size"`

	// BootROM maps the boot image read-only. The default boot memory is
	// writable RAM.
	BootROM bool `json:"boot_rom"`

	// UARTBase and UARTSize place the UART register window.
	UARTBase uint64 `json:"uart_base"`
	UARTSize uint64 `json:"uart_size"`

	// BootImage is loaded at BootBase and ProgramImage at RAMBase. Either
	// may be a flat binary or a RISC-V ELF. With no boot image the CPU
	// starts at the program's entry point.
	BootImage    string `json:"boot_image"`
	ProgramImage string `json:"program_image"`

	// CyclesPerTick is the number of instructions executed per Tick.
	CyclesPerTick uint64 `json:"cycles_per_tick"`

	// ReportIntervalSec is the period of the instructions-per-second
	// report. Zero disables it.
	ReportIntervalSec float64 `json:"report_interval_sec"`

	// StopOnIdle halts the run once the CPU jumps to itself.
	StopOnIdle bool `json:"stop_on_idle"`

	// MaxInstructions bounds the run. Zero means no limit.
	MaxInstructions uint64 `json:"max_instructions"`

	// CompressedADDIW decodes the quadrant 1 funct3 001 slot as c.addiw
	// instead of c.jal.
	CompressedADDIW bool `json:"c_addiw"`

	// SizedJALRLink makes JALR link to the next instruction, so c.jalr
	// returns to pc + 2 instead of pc + 4.
	SizedJALRLink bool `json:"jalr_sized_link"`

	// DataCache places an L1 data cache model in front of RAM.
	DataCache bool `json:"l1d"`

	// BranchPredictor charges the redirect penalty only on mispredicted
	// transfers. It implies the default timing table when none is given.
	BranchPredictor bool `json:"bpred"`

	// TimingConfig optionally names a latency JSON file.
	TimingConfig string `json:"timing_config"`
}

// DefaultConfig returns the reference memory map.
func DefaultConfig() *Config {
	return &Config{
		RAMBase:           0x80000000,
		RAMSize:           1 << 20,
		BootBase:          0,
		BootWindow:        0x10000000,
		BootSize:          1 << 20,
		UARTBase:          0x10000000,
		UARTSize:          0x1000,
		BootImage:         "boot.bin",
		ProgramImage:      "program.bin",
		CyclesPerTick:     10000,
		ReportIntervalSec: 3,
		StopOnIdle:        true,
	}
}

// LoadConfig loads a Config from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}

	return nil
}

type window struct {
	name       string
	start, end uint64
}

// Validate checks sizes and that the RAM, boot and UART windows are
// disjoint.
func (c *Config) Validate() error {
	if c.RAMSize == 0 || c.RAMSize > mem.MaxRAMSize {
		return fmt.Errorf("%w: ram_size 0x%x out of range", ErrInvalidConfig, c.RAMSize)
	}
	if c.BootSize == 0 || c.BootSize > mem.MaxRAMSize {
		return fmt.Errorf("%w: boot_size 0x%x out of range", ErrInvalidConfig, c.BootSize)
	}
	if c.BootWindow < c.BootSize {
		return fmt.Errorf("%w: boot_window smaller than boot_size", ErrInvalidConfig)
	}
	if c.UARTSize < 8 {
		return fmt.Errorf("%w: uart_size must cover the 8 UART registers", ErrInvalidConfig)
	}
	if c.CyclesPerTick == 0 {
		return fmt.Errorf("%w: cycles_per_tick must be > 0", ErrInvalidConfig)
	}
	if c.ReportIntervalSec < 0 {
		return fmt.Errorf("%w: report_interval_sec must be >= 0", ErrInvalidConfig)
	}
	if c.BootImage == "" && c.ProgramImage == "" {
		return fmt.Errorf("%w: no boot_image or program_image", ErrInvalidConfig)
	}

	windows := []window{
		{"ram", c.RAMBase, c.RAMBase + c.RAMSize},
		{"boot", c.BootBase, c.BootBase + c.BootWindow},
		{"uart", c.UARTBase, c.UARTBase + c.UARTSize},
	}
	for i, a := range windows {
		if a.end < a.start {
			return fmt.Errorf("%w: %s window wraps the address space", ErrInvalidConfig, a.name)
		}
		for _, b := range windows[i+1:] {
			if a.start < b.end && b.start < a.end {
				return fmt.Errorf("%w: %s and %s windows overlap", ErrInvalidConfig, a.name, b.name)
			}
		}
	}

	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
