package ooo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ooosim/timing/ooo"
)

var _ = Describe("MemoryOrderBuffer", func() {
	var mob *ooo.MemoryOrderBuffer

	BeforeEach(func() {
		mob = ooo.NewMemoryOrderBuffer(4)
	})

	It("starts empty and not full", func() {
		Expect(mob.Full()).To(BeFalse())
	})

	It("reports Full once capacity allocations have been made", func() {
		for i := 0; i < 4; i++ {
			mob.Alloc(i, uint64(i), false)
		}
		Expect(mob.Full()).To(BeTrue())
	})

	It("panics on Alloc when full", func() {
		for i := 0; i < 4; i++ {
			mob.Alloc(i, uint64(i), false)
		}
		Expect(func() { mob.Alloc(9, 9, false) }).To(Panic())
	})

	Describe("Forward", func() {
		It("finds nothing when there is no older store", func() {
			loadIdx := mob.Alloc(0, 0, false)
			mob.Resolve(loadIdx, 100, 0)

			_, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeFalse())
			Expect(found).To(BeFalse())
		})

		It("forwards from a resolved older store to the same address", func() {
			storeIdx := mob.Alloc(0, 0, true)
			mob.Resolve(storeIdx, 100, 55)

			loadIdx := mob.Alloc(1, 1, false)
			mob.Resolve(loadIdx, 100, 0)

			value, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeFalse())
			Expect(found).To(BeTrue())
			Expect(value).To(Equal(int64(55)))
		})

		It("ignores an older store to a different address", func() {
			storeIdx := mob.Alloc(0, 0, true)
			mob.Resolve(storeIdx, 200, 55)

			loadIdx := mob.Alloc(1, 1, false)
			mob.Resolve(loadIdx, 100, 0)

			_, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeFalse())
			Expect(found).To(BeFalse())
		})

		It("blocks when an older store's address is not yet resolved", func() {
			mob.Alloc(0, 0, true) // unresolved store

			loadIdx := mob.Alloc(1, 1, false)
			mob.Resolve(loadIdx, 100, 0)

			_, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeTrue())
			Expect(found).To(BeFalse())
		})

		It("forwards from the youngest of several matching older stores", func() {
			s1 := mob.Alloc(0, 0, true)
			mob.Resolve(s1, 100, 1)
			s2 := mob.Alloc(1, 1, true)
			mob.Resolve(s2, 100, 2)

			loadIdx := mob.Alloc(2, 2, false)
			mob.Resolve(loadIdx, 100, 0)

			value, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeFalse())
			Expect(found).To(BeTrue())
			Expect(value).To(Equal(int64(2)))
		})

		It("ignores a younger store entirely", func() {
			loadIdx := mob.Alloc(0, 0, false)
			mob.Resolve(loadIdx, 100, 0)

			youngerStore := mob.Alloc(1, 1, true)
			mob.Resolve(youngerStore, 100, 99)

			_, found, blocked := mob.Forward(loadIdx)
			Expect(blocked).To(BeFalse())
			Expect(found).To(BeFalse())
		})
	})

	Describe("OlderStoreUnresolved", func() {
		It("is false when there is no older store", func() {
			loadIdx := mob.Alloc(0, 0, false)
			Expect(mob.OlderStoreUnresolved(loadIdx)).To(BeFalse())
		})

		It("is true while an older store's address is still unresolved", func() {
			mob.Alloc(0, 0, true) // unresolved store

			loadIdx := mob.Alloc(1, 1, false)
			Expect(mob.OlderStoreUnresolved(loadIdx)).To(BeTrue())
		})

		It("is false once that older store resolves", func() {
			storeIdx := mob.Alloc(0, 0, true)
			loadIdx := mob.Alloc(1, 1, false)

			mob.Resolve(storeIdx, 100, 55)

			Expect(mob.OlderStoreUnresolved(loadIdx)).To(BeFalse())
		})

		It("ignores a younger store entirely", func() {
			loadIdx := mob.Alloc(0, 0, false)
			mob.Alloc(1, 1, true) // unresolved, but younger

			Expect(mob.OlderStoreUnresolved(loadIdx)).To(BeFalse())
		})
	})

	Describe("CommitStore and Retire", func() {
		It("returns the resolved address and data for a store", func() {
			idx := mob.Alloc(0, 0, true)
			mob.Resolve(idx, 10, 77)

			addr, data := mob.CommitStore(idx)
			Expect(addr).To(Equal(10))
			Expect(data).To(Equal(int64(77)))
		})

		It("panics on Retire when empty", func() {
			Expect(func() { mob.Retire() }).To(Panic())
		})

		It("Retire frees a slot for further allocation", func() {
			for i := 0; i < 4; i++ {
				mob.Alloc(i, uint64(i), false)
			}
			mob.Retire()
			Expect(mob.Full()).To(BeFalse())
		})
	})

	Describe("FlushAfter", func() {
		It("drops entries younger than keepSeq", func() {
			mob.Alloc(0, 0, false)
			mob.Alloc(1, 5, false)

			mob.FlushAfter(0)

			// Only the kept entry remains; allocating up to capacity now
			// succeeds without hitting the flushed slot prematurely.
			for i := 0; i < 3; i++ {
				mob.Alloc(i+2, uint64(i+2), false)
			}
			Expect(mob.Full()).To(BeTrue())
		})
	})
})
