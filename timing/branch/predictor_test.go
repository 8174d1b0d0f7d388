package branch_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvsim/timing/branch"
)

var _ = Describe("Predictor", func() {
	var bp *branch.Predictor

	newPredictor := func(bht, btb uint32) *branch.Predictor {
		p, err := branch.NewPredictor(branch.Config{BHTSize: bht, BTBSize: btb})
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		return p
	}

	BeforeEach(func() {
		bp = newPredictor(16, 8)
	})

	Describe("Prediction", func() {
		It("should initially predict taken (biased)", func() {
			Expect(bp.Predict(0x1000).Taken).To(BeTrue())
		})

		It("should not know target initially", func() {
			Expect(bp.Predict(0x1000).TargetKnown).To(BeFalse())
		})

		It("should learn branch patterns", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			for i := 0; i < 10; i++ {
				bp.Update(pc, true, target)
			}

			pred := bp.Predict(pc)
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})

		It("should learn not-taken pattern", func() {
			pc := uint64(0x1000)
			for i := 0; i < 10; i++ {
				bp.Update(pc, false, 0)
			}

			Expect(bp.Predict(pc).Taken).To(BeFalse())
		})

		It("should keep compressed neighbours apart", func() {
			bp.Update(0x1000, false, 0)
			bp.Update(0x1000, false, 0)

			Expect(bp.Predict(0x1000).Taken).To(BeFalse())
			Expect(bp.Predict(0x1002).Taken).To(BeTrue())
		})
	})

	Describe("2-bit saturating counter", func() {
		It("should require 2 mispredictions to change direction", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			bp.Update(pc, true, target)
			bp.Update(pc, true, target)
			bp.Update(pc, true, target) // strongly taken

			bp.Update(pc, false, 0)
			Expect(bp.Predict(pc).Taken).To(BeTrue())

			bp.Update(pc, false, 0)
			Expect(bp.Predict(pc).Taken).To(BeFalse())
		})
	})

	Describe("BTB", func() {
		It("should cache branch targets", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			Expect(bp.Predict(pc).TargetKnown).To(BeFalse())
			bp.Update(pc, true, target)

			pred := bp.Predict(pc)
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})

		It("should not cache not-taken branches", func() {
			bp.Update(0x1000, false, 0x2000)
			Expect(bp.Predict(0x1000).TargetKnown).To(BeFalse())
		})

		It("should handle BTB conflicts correctly", func() {
			bp = newPredictor(16, 4)

			pc1 := uint64(0x1000)
			pc2 := pc1 + 4*2 // same BTB index

			bp.Update(pc1, true, 0x2000)
			Expect(bp.Predict(pc1).Target).To(Equal(uint64(0x2000)))

			bp.Update(pc2, true, 0x3000)
			pred := bp.Predict(pc2)
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(uint64(0x3000)))

			Expect(bp.Predict(pc1).TargetKnown).To(BeFalse())
		})
	})

	Describe("Resolve", func() {
		It("should count a cold taken jump as a misprediction", func() {
			Expect(bp.Resolve(0x1000, true, 0x2000)).To(BeTrue())
			Expect(bp.Resolve(0x1000, true, 0x2000)).To(BeFalse())
		})

		It("should mispredict a changed target", func() {
			bp.Resolve(0x1000, true, 0x2000)
			Expect(bp.Resolve(0x1000, true, 0x3000)).To(BeTrue())
		})

		It("should mispredict a not-taken branch while biased taken", func() {
			Expect(bp.Resolve(0x1000, false, 0)).To(BeTrue())
			Expect(bp.Resolve(0x1000, false, 0)).To(BeFalse())
		})

		It("should compute accuracy correctly", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			bp.Resolve(pc, true, target) // cold BTB
			bp.Resolve(pc, true, target)
			bp.Resolve(pc, true, target)
			bp.Resolve(pc, false, 0) // counter 3 -> 2

			stats := bp.Stats()
			Expect(stats.Predictions).To(Equal(uint64(4)))
			Expect(stats.Correct).To(Equal(uint64(2)))
			Expect(stats.Mispredictions).To(Equal(uint64(2)))
			Expect(stats.Accuracy()).To(BeNumerically("~", 50.0, 0.1))
			Expect(stats.MispredictionRate()).To(BeNumerically("~", 50.0, 0.1))
		})

		It("should track BTB hits and misses", func() {
			bp.Resolve(0x1000, true, 0x2000)
			bp.Resolve(0x1000, true, 0x2000)

			stats := bp.Stats()
			Expect(stats.BTBHits).To(Equal(uint64(1)))
			Expect(stats.BTBMisses).To(Equal(uint64(1)))
			Expect(stats.BTBHitRate()).To(BeNumerically("~", 50.0, 0.1))
		})
	})

	Describe("Reset", func() {
		It("should clear all state", func() {
			bp.Resolve(0x1000, true, 0x2000)
			bp.Reset()

			stats := bp.Stats()
			Expect(stats.Predictions).To(BeZero())
			Expect(stats.Correct).To(BeZero())
			Expect(bp.Predict(0x1000).TargetKnown).To(BeFalse())
		})
	})

	Describe("Configuration", func() {
		It("should use sensible defaults", func() {
			config := branch.DefaultConfig()
			Expect(config.BHTSize).To(Equal(uint32(1024)))
			Expect(config.BTBSize).To(Equal(uint32(256)))
			Expect(config.Validate()).To(Succeed())
		})

		It("should fill in zero sizes", func() {
			_, err := branch.NewPredictor(branch.Config{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should reject sizes that are not powers of two", func() {
			_, err := branch.NewPredictor(branch.Config{BHTSize: 12, BTBSize: 8})
			Expect(err).To(MatchError(branch.ErrInvalidConfig))
			Expect(err).To(MatchError(ContainSubstring("bht_size")))
		})
	})
})
