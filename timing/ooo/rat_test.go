package ooo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/ooosim/timing/ooo"
)

var _ = Describe("RAT", func() {
	var rat *ooo.RAT

	BeforeEach(func() {
		rat = ooo.NewRAT()
	})

	It("starts with every register pointing at its architectural value", func() {
		_, pending := rat.Lookup(5)
		Expect(pending).To(BeFalse())
	})

	It("reports the renamed tag after Rename", func() {
		rat.Rename(5, 3)
		tag, pending := rat.Lookup(5)
		Expect(pending).To(BeTrue())
		Expect(tag).To(Equal(3))
	})

	It("ClearIfOwner restores the architectural mapping when tag still owns it", func() {
		rat.Rename(5, 3)
		cleared := rat.ClearIfOwner(5, 3)
		Expect(cleared).To(BeTrue())

		_, pending := rat.Lookup(5)
		Expect(pending).To(BeFalse())
	})

	It("ClearIfOwner is a no-op when a younger rename has already superseded tag", func() {
		rat.Rename(5, 3)
		rat.Rename(5, 7) // younger rename of the same register

		cleared := rat.ClearIfOwner(5, 3)
		Expect(cleared).To(BeFalse())

		tag, pending := rat.Lookup(5)
		Expect(pending).To(BeTrue())
		Expect(tag).To(Equal(7))
	})

	It("Reset restores every register to its architectural value", func() {
		rat.Rename(1, 10)
		rat.Rename(2, 20)
		rat.Reset()

		_, p1 := rat.Lookup(1)
		_, p2 := rat.Lookup(2)
		Expect(p1).To(BeFalse())
		Expect(p2).To(BeFalse())
	})
})

var _ = Describe("Scoreboard", func() {
	It("starts with no busy bits", func() {
		var s ooo.Scoreboard
		Expect(s.IsBusy(4)).To(BeFalse())
	})

	It("MarkBusy sets the bit for the given register only", func() {
		var s ooo.Scoreboard
		s.MarkBusy(4)
		Expect(s.IsBusy(4)).To(BeTrue())
		Expect(s.IsBusy(5)).To(BeFalse())
	})

	It("ClearBusy clears exactly the given register's bit", func() {
		var s ooo.Scoreboard
		s.MarkBusy(4)
		s.MarkBusy(5)
		s.ClearBusy(4)
		Expect(s.IsBusy(4)).To(BeFalse())
		Expect(s.IsBusy(5)).To(BeTrue())
	})
})
