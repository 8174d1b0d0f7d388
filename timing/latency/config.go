package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the estimated cycle cost of each instruction class.
// The simulator is functional; these values only feed the cycle counter
// and the benchmark reports.
type TimingConfig struct {
	// ALULatency is the cost of integer register/immediate operations
	// (ADD, SUB, logic, shifts, LUI, AUIPC). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base cost of conditional branches and jumps.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchTakenPenalty is added when control flow is redirected by a
	// taken branch or a jump. Default: 2 cycles (in-order fetch bubble).
	BranchTakenPenalty uint64 `json:"branch_taken_penalty"`

	// LoadLatency is the cost of a load assuming a cache hit.
	// Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the cost of a store. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the cost of MUL/MULH*/MULW. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatencyMin is the minimum cost of DIV/REM variants.
	// Default: 10 cycles.
	DivideLatencyMin uint64 `json:"divide_latency_min"`

	// DivideLatencyMax is the maximum cost of DIV/REM variants.
	// Default: 20 cycles.
	DivideLatencyMax uint64 `json:"divide_latency_max"`

	// AtomicLatency is the cost of LR/SC/AMO read-modify-write sequences.
	// Default: 4 cycles.
	AtomicLatency uint64 `json:"atomic_latency"`

	// SystemLatency is the cost of CSR accesses, fences and the
	// privileged no-ops. Default: 1 cycle.
	SystemLatency uint64 `json:"system_latency"`

	// L1HitLatency is the data cache hit latency. Default: 2 cycles.
	L1HitLatency uint64 `json:"l1_hit_latency"`

	// MemoryLatency is the backing memory latency on a cache miss.
	// Default: 40 cycles.
	MemoryLatency uint64 `json:"memory_latency"`
}

// DefaultTimingConfig returns a TimingConfig with in-order core defaults.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:         1,
		BranchLatency:      1,
		BranchTakenPenalty: 2,
		LoadLatency:        2,
		StoreLatency:       1,
		MultiplyLatency:    3,
		DivideLatencyMin:   10,
		DivideLatencyMax:   20,
		AtomicLatency:      4,
		SystemLatency:      1,
		L1HitLatency:       2,
		MemoryLatency:      40,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.AtomicLatency == 0 {
		return fmt.Errorf("atomic_latency must be > 0")
	}
	if c.SystemLatency == 0 {
		return fmt.Errorf("system_latency must be > 0")
	}
	if c.DivideLatencyMin > c.DivideLatencyMax {
		return fmt.Errorf("divide_latency_min must be <= divide_latency_max")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
