// Package benchmarks holds scenario-level integration tests: small
// programs run end to end through package machine, each checked against
// its expected final architectural state and, where useful, against the
// in-order reference interpreter. These are the concrete scenarios that
// motivated the out-of-order engine's invariants, run as whole programs
// rather than as unit tests of individual components.
package benchmarks_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ooosim/machine"
	"github.com/sarchlab/ooosim/timing/ooo"
)

func programFile(src string) string {
	dir, err := os.MkdirTemp("", "benchmarks-")
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "prog.asm")
	Expect(os.WriteFile(path, []byte(src), 0644)).To(Succeed())
	return path
}

func loadAndRun(src string) *machine.Machine {
	m, err := machine.Load(programFile(src))
	Expect(err).NotTo(HaveOccurred())
	m.Run()
	return m
}

var _ = Describe("factorial of 10", func() {
	It("computes 3628800 through a counted backward-branch loop", func() {
		m := loadAndRun(`
			ADDI r1, r0, 10
			ADDI r2, r0, 1
		loop:
			BEQ  r1, r0, done
			MUL  r2, r2, r1
			SUBI r1, r1, 1
			JMP  loop
		done:
			HALT
		`)
		Expect(m.Registers().Read(2)).To(Equal(int64(3628800)))

		equal, err := m.RunDifferential()
		Expect(err).NotTo(HaveOccurred())
		Expect(equal).To(BeTrue())
	})
})

var _ = Describe("a running sum over a memory-resident array", func() {
	It("sums ten stored values via load/store through the MOB", func() {
		m := loadAndRun(`
			ADDI r1, r0, 0   ; index
			ADDI r2, r0, 0   ; running sum
			ADDI r3, r0, 10  ; count
		fill:
			BEQ  r1, r3, sum_init
			MOV  r4, r1
			ST   r4, [r1, 0]
			ADDI r1, r1, 1
			JMP  fill
		sum_init:
			ADDI r1, r0, 0
		sum:
			BEQ  r1, r3, done
			LD   r5, [r1, 0]
			ADD  r2, r2, r5
			ADDI r1, r1, 1
			JMP  sum
		done:
			HALT
		`)
		// sum of 0..9
		Expect(m.Registers().Read(2)).To(Equal(int64(45)))

		equal, err := m.RunDifferential()
		Expect(err).NotTo(HaveOccurred())
		Expect(equal).To(BeTrue())
	})
})

var _ = Describe("a chain of mispredicted forward branches", func() {
	It("discards every wrong-path write and lands on the right value", func() {
		m := loadAndRun(`
			ADDI r1, r0, 1
			BEQ  r0, r0, a
			ADDI r1, r0, 99
		a:
			BEQ  r0, r0, b
			ADDI r1, r0, 99
		b:
			BEQ  r0, r0, c
			ADDI r1, r0, 99
		c:
			HALT
		`)
		Expect(m.Registers().Read(1)).To(Equal(int64(1)))
		Expect(m.Stats().Flushes).To(BeNumerically(">=", 3))
	})
})

var _ = Describe("round-trip idempotence", func() {
	It("produces identical final state across repeated runs of a fresh machine", func() {
		src := `
			ADDI r1, r0, 5
			ADDI r2, r0, 7
			ADD  r3, r1, r2
			STC  r3, 50
			LD   r4, [r0, 50]
			HALT
		`
		path := programFile(src)

		m1, err := machine.Load(path)
		Expect(err).NotTo(HaveOccurred())
		m1.Run()

		m2, err := machine.Load(path)
		Expect(err).NotTo(HaveOccurred())
		m2.Run()

		Expect(m1.Registers().R).To(Equal(m2.Registers().R))
		Expect(m1.Stats()).To(Equal(m2.Stats()))
	})
})

var _ = Describe("boundary: ROB and MOB back-pressure under tight capacity", func() {
	It("still completes a memory-heavy program with very small buffers", func() {
		path := programFile(`
			ADDI r1, r0, 1
			STC  r1, 10
			ADDI r1, r0, 2
			STC  r1, 11
			ADDI r1, r0, 3
			STC  r1, 12
			LD   r2, [r0, 10]
			LD   r3, [r0, 11]
			LD   r4, [r0, 12]
			HALT
		`)

		m, err := machine.Load(path, ooo.WithROBCapacity(2), ooo.WithMOBCapacity(2), ooo.WithRSCapacity(1))
		Expect(err).NotTo(HaveOccurred())
		m.Run()

		Expect(m.Registers().Read(2)).To(Equal(int64(1)))
		Expect(m.Registers().Read(3)).To(Equal(int64(2)))
		Expect(m.Registers().Read(4)).To(Equal(int64(3)))
	})
})
