// Package branch models a bimodal branch predictor with a branch target
// buffer. The functional CPU consults it to decide whether a control
// transfer pays the redirect penalty.
package branch

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrInvalidConfig is returned for table sizes that are not powers of two.
var ErrInvalidConfig = errors.New("invalid branch predictor config")

// Config holds configuration for the branch predictor.
type Config struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Must be a power of 2. Default is 1024.
	BHTSize uint32 `json:"bht_size"`
	// BTBSize is the number of entries in the Branch Target Buffer.
	// Must be a power of 2. Default is 256.
	BTBSize uint32 `json:"btb_size"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BHTSize: 1024,
		BTBSize: 256,
	}
}

// Validate checks that both tables are non-empty powers of two.
func (c Config) Validate() error {
	if bits.OnesCount32(c.BHTSize) != 1 {
		return fmt.Errorf("%w: bht_size %d is not a power of 2", ErrInvalidConfig, c.BHTSize)
	}
	if bits.OnesCount32(c.BTBSize) != 1 {
		return fmt.Errorf("%w: btb_size %d is not a power of 2", ErrInvalidConfig, c.BTBSize)
	}
	return nil
}

// Stats holds statistics for the branch predictor.
type Stats struct {
	// Predictions is the total number of resolved control transfers.
	Predictions uint64
	// Correct is the number of correct predictions.
	Correct uint64
	// Mispredictions is the number of incorrect predictions.
	Mispredictions uint64
	// BTBHits is the number of BTB hits.
	BTBHits uint64
	// BTBMisses is the number of BTB misses.
	BTBMisses uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s Stats) Accuracy() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Predictions) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s Stats) MispredictionRate() float64 {
	if s.Predictions == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(s.Predictions) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s Stats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction represents a branch prediction result.
type Prediction struct {
	// Taken indicates whether the branch is predicted to be taken.
	Taken bool
	// Target is the predicted target address (if known from BTB).
	Target uint64
	// TargetKnown indicates whether the target address is known.
	TargetKnown bool
}

// Predictor implements a 2-bit saturating counter (bimodal) predictor
// with a Branch Target Buffer (BTB).
type Predictor struct {
	// 0=Strongly Not Taken, 1=Weakly Not Taken, 2=Weakly Taken,
	// 3=Strongly Taken
	bht []uint8

	btb      []btbEntry
	btbValid []bool

	bhtMask uint64
	btbMask uint64

	stats Stats
}

type btbEntry struct {
	pc     uint64
	target uint64
}

// NewPredictor creates a predictor with the given configuration. Zero
// sizes fall back to the defaults.
func NewPredictor(config Config) (*Predictor, error) {
	defaults := DefaultConfig()
	if config.BHTSize == 0 {
		config.BHTSize = defaults.BHTSize
	}
	if config.BTBSize == 0 {
		config.BTBSize = defaults.BTBSize
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Predictor{
		bht:      make([]uint8, config.BHTSize),
		btb:      make([]btbEntry, config.BTBSize),
		btbValid: make([]bool, config.BTBSize),
		bhtMask:  uint64(config.BHTSize - 1),
		btbMask:  uint64(config.BTBSize - 1),
	}
	p.Reset()

	return p, nil
}

// Instructions are half-word aligned once compressed code is in play, so
// bit 0 is the only alignment bit dropped.
func (p *Predictor) bhtIndex(pc uint64) uint64 {
	return (pc >> 1) & p.bhtMask
}

func (p *Predictor) btbIndex(pc uint64) uint64 {
	return (pc >> 1) & p.btbMask
}

// Predict looks up the direction and target for the branch at pc.
func (p *Predictor) Predict(pc uint64) Prediction {
	pred := Prediction{
		Taken: p.bht[p.bhtIndex(pc)] >= 2,
	}

	idx := p.btbIndex(pc)
	if p.btbValid[idx] && p.btb[idx].pc == pc {
		pred.Target = p.btb[idx].target
		pred.TargetKnown = true
		p.stats.BTBHits++
	} else {
		p.stats.BTBMisses++
	}

	return pred
}

// Update trains the predictor with the actual branch outcome.
func (p *Predictor) Update(pc uint64, taken bool, target uint64) {
	idx := p.bhtIndex(pc)
	counter := p.bht[idx]

	if taken {
		if counter < 3 {
			p.bht[idx] = counter + 1
		}
	} else if counter > 0 {
		p.bht[idx] = counter - 1
	}

	if taken {
		btbIdx := p.btbIndex(pc)
		p.btb[btbIdx] = btbEntry{pc: pc, target: target}
		p.btbValid[btbIdx] = true
	}
}

// Resolve predicts the transfer at pc, trains on the real outcome and
// reports whether the prediction was wrong. A taken transfer is only
// predicted correctly when the BTB also holds the right target.
func (p *Predictor) Resolve(pc uint64, taken bool, target uint64) bool {
	pred := p.Predict(pc)
	p.Update(pc, taken, target)

	miss := pred.Taken != taken ||
		(taken && (!pred.TargetKnown || pred.Target != target))

	p.stats.Predictions++
	if miss {
		p.stats.Mispredictions++
	} else {
		p.stats.Correct++
	}

	return miss
}

// Stats returns the branch predictor statistics.
func (p *Predictor) Stats() Stats {
	return p.stats
}

// Reset sets every counter to weakly taken and clears the BTB and
// statistics.
func (p *Predictor) Reset() {
	for i := range p.bht {
		p.bht[i] = 2
	}
	for i := range p.btbValid {
		p.btbValid[i] = false
	}
	p.stats = Stats{}
}
