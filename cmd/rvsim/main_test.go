package main

import (
	"bytes"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sarchlab/rvsim/insts"
	"github.com/sarchlab/rvsim/machine"
	"github.com/sarchlab/rvsim/timing/branch"
	"github.com/sarchlab/rvsim/timing/cache"
)

var _ = Describe("Flag overrides", func() {
	It("should leave the config alone without flags", func() {
		config := machine.DefaultConfig()
		applyFlags(config, flagOverrides{})
		Expect(config).To(Equal(machine.DefaultConfig()))
	})

	It("should override images and options", func() {
		config := machine.DefaultConfig()
		applyFlags(config, flagOverrides{
			boot:      "fw.elf",
			program:   "app.bin",
			timing:    "timing.json",
			maxInstr:  1000,
			dataCache: true,
			bpred:     true,
			cADDIW:    true,
			sizedLink: true,
		})

		Expect(config.BootImage).To(Equal("fw.elf"))
		Expect(config.ProgramImage).To(Equal("app.bin"))
		Expect(config.TimingConfig).To(Equal("timing.json"))
		Expect(config.MaxInstructions).To(Equal(uint64(1000)))
		Expect(config.DataCache).To(BeTrue())
		Expect(config.CompressedADDIW).To(BeTrue())
		Expect(config.SizedJALRLink).To(BeTrue())
		Expect(config.BranchPredictor).To(BeTrue())
	})
})

var _ = Describe("Input forwarding", func() {
	It("should forward every byte and close at EOF", func() {
		input := readInput(strings.NewReader("hello"))

		var got []byte
		Eventually(func() bool {
			for {
				select {
				case b, ok := <-input:
					if !ok {
						return true
					}
					got = append(got, b)
				default:
					return false
				}
			}
		}).WithTimeout(time.Second).Should(BeTrue())
		Expect(string(got)).To(Equal("hello"))
	})
})

var _ = Describe("Tracer", func() {
	It("should log each instruction at trace level", func() {
		logger, hook := logtest.NewNullLogger()
		logger.SetLevel(logrus.TraceLevel)

		inst, err := insts.NewDecoder().Decode(insts.EncodeADDI(10, 0, 1))
		Expect(err).NotTo(HaveOccurred())

		newTracer(logger)(0x80000000, inst)

		entry := hook.LastEntry()
		Expect(entry).NotTo(BeNil())
		Expect(entry.Level).To(Equal(logrus.TraceLevel))
		Expect(entry.Data).To(HaveKeyWithValue("pc", "0x80000000"))
	})
})

var _ = Describe("Stats report", func() {
	It("should print counters and CPI", func() {
		var buf bytes.Buffer
		printStats(&buf, machine.Stats{
			Instructions: 100,
			Cycles:       150,
			Elapsed:      time.Second,
			IPS:          100,
		})

		Expect(buf.String()).To(ContainSubstring("Instructions: 100"))
		Expect(buf.String()).To(ContainSubstring("CPI:          1.50"))
		Expect(buf.String()).NotTo(ContainSubstring("L1D"))
	})

	It("should include cache statistics when present", func() {
		var buf bytes.Buffer
		printStats(&buf, machine.Stats{
			Instructions: 10,
			Cycles:       10,
			Cache:        &cache.Statistics{Hits: 3, Misses: 1},
			CacheCycles:  43,
		})

		Expect(buf.String()).To(ContainSubstring("L1D hit rate: 75.0%"))
		Expect(buf.String()).To(ContainSubstring("L1D cycles:   43"))
	})

	It("should include branch statistics when present", func() {
		var buf bytes.Buffer
		printStats(&buf, machine.Stats{
			Instructions: 10,
			Cycles:       12,
			Branch:       &branch.Stats{Predictions: 4, Correct: 3, Mispredictions: 1},
		})

		Expect(buf.String()).To(ContainSubstring("Mispredicts:  1"))
		Expect(buf.String()).To(ContainSubstring("Accuracy:     75.0%"))
	})
})
