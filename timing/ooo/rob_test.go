package ooo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ooosim/isa"
	"github.com/sarchlab/ooosim/timing/ooo"
)

func dummyInst(op isa.Opcode) *isa.Instruction {
	return isa.NewInstruction(op, 0, op.String(), nil)
}

var _ = Describe("ReorderBuffer", func() {
	var rob *ooo.ReorderBuffer

	BeforeEach(func() {
		rob = ooo.NewReorderBuffer(4)
	})

	It("starts empty", func() {
		Expect(rob.Empty()).To(BeTrue())
		Expect(rob.Full()).To(BeFalse())
		Expect(rob.Occupancy()).To(Equal(0))
		Expect(rob.Capacity()).To(Equal(4))
	})

	It("allocates tags in circular order with increasing sequence numbers", func() {
		tag0, seq0 := rob.Alloc(dummyInst(isa.OpADD), 1)
		tag1, seq1 := rob.Alloc(dummyInst(isa.OpADD), 2)
		Expect(tag1).To(Equal((tag0 + 1) % rob.Capacity()))
		Expect(seq1).To(BeNumerically(">", seq0))
	})

	It("reports Full once capacity allocations have been made", func() {
		for i := 0; i < 4; i++ {
			rob.Alloc(dummyInst(isa.OpADD), 1)
		}
		Expect(rob.Full()).To(BeTrue())
	})

	It("panics on Alloc when full", func() {
		for i := 0; i < 4; i++ {
			rob.Alloc(dummyInst(isa.OpADD), 1)
		}
		Expect(func() { rob.Alloc(dummyInst(isa.OpADD), 1) }).To(Panic())
	})

	It("Peek reports not-ready until Complete is called", func() {
		inst := dummyInst(isa.OpADD)
		tag, _ := rob.Alloc(inst, 3)

		_, _, _, _, ready, ok := rob.Peek()
		Expect(ok).To(BeTrue())
		Expect(ready).To(BeFalse())

		rob.Complete(tag, 42)
		gotTag, gotInst, dest, result, ready, ok := rob.Peek()
		Expect(ok).To(BeTrue())
		Expect(ready).To(BeTrue())
		Expect(gotTag).To(Equal(tag))
		Expect(gotInst).To(Equal(inst))
		Expect(dest).To(Equal(3))
		Expect(result).To(Equal(int64(42)))
	})

	It("commits strictly in allocation order regardless of completion order", func() {
		inst1 := dummyInst(isa.OpADD)
		inst2 := dummyInst(isa.OpADD)
		tag1, _ := rob.Alloc(inst1, 1)
		tag2, _ := rob.Alloc(inst2, 2)

		// Complete the younger entry first.
		rob.Complete(tag2, 2)

		_, gotInst, _, _, ready, ok := rob.Peek()
		Expect(ok).To(BeTrue())
		Expect(gotInst).To(Equal(inst1))
		Expect(ready).To(BeFalse())

		rob.Complete(tag1, 1)
		_, gotInst, _, _, ready, ok = rob.Peek()
		Expect(gotInst).To(Equal(inst1))
		Expect(ready).To(BeTrue())

		rob.Retire()
		_, gotInst, _, _, ready, ok = rob.Peek()
		Expect(ok).To(BeTrue())
		Expect(gotInst).To(Equal(inst2))
		Expect(ready).To(BeTrue())
	})

	It("panics on Retire when empty", func() {
		Expect(func() { rob.Retire() }).To(Panic())
	})

	It("SeqOf returns the entry's allocation sequence", func() {
		tag, seq := rob.Alloc(dummyInst(isa.OpADD), 1)
		Expect(rob.SeqOf(tag)).To(Equal(seq))
	})

	Describe("FlushAfter", func() {
		It("invalidates every entry younger than keepTag and returns their tag/dest", func() {
			keepTag, _ := rob.Alloc(dummyInst(isa.OpADD), 1)
			youngTag, _ := rob.Alloc(dummyInst(isa.OpADD), 2)

			flushed := rob.FlushAfter(keepTag)
			Expect(flushed).To(HaveLen(1))
			Expect(flushed[0].Tag).To(Equal(youngTag))
			Expect(flushed[0].Dest).To(Equal(2))

			Expect(rob.Occupancy()).To(Equal(1))
		})

		It("leaves the kept entry retirable", func() {
			keepTag, _ := rob.Alloc(dummyInst(isa.OpADD), 1)
			rob.Alloc(dummyInst(isa.OpADD), 2)

			rob.FlushAfter(keepTag)
			rob.Complete(keepTag, 7)

			_, _, _, result, ready, ok := rob.Peek()
			Expect(ok).To(BeTrue())
			Expect(ready).To(BeTrue())
			Expect(result).To(Equal(int64(7)))
		})

		It("allows further allocation after flushing the tail", func() {
			keepTag, _ := rob.Alloc(dummyInst(isa.OpADD), 1)
			rob.Alloc(dummyInst(isa.OpADD), 2)
			rob.Alloc(dummyInst(isa.OpADD), 3)

			rob.FlushAfter(keepTag)
			Expect(rob.Full()).To(BeFalse())

			Expect(func() { rob.Alloc(dummyInst(isa.OpADD), 4) }).NotTo(Panic())
		})
	})
})
