package ocr

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Sessions", func() {
	var sessions *Sessions

	BeforeEach(func() {
		sessions = NewSessions()
	})

	It("reports idle for unknown keys", func() {
		Expect(sessions.Status("alice").State).To(Equal(StateIdle))
	})

	It("tracks progress and pass of the current ticket", func() {
		t := sessions.Begin("alice")
		t.EnterPass(ProfileHighContrast)
		t.Report(40)

		st := sessions.Status("alice")
		Expect(st.State).To(Equal(StateScanning))
		Expect(st.Pass).To(Equal(ProfileHighContrast))
		Expect(st.Progress).To(Equal(40))
		Expect(st.Generation).To(Equal(t.Generation()))
	})

	It("marks finished scans done at 100%", func() {
		t := sessions.Begin("alice")
		Expect(t.Finish(nil)).To(BeTrue())
		st := sessions.Status("alice")
		Expect(st.State).To(Equal(StateDone))
		Expect(st.Progress).To(Equal(100))
	})

	It("marks failed scans", func() {
		t := sessions.Begin("alice")
		Expect(t.Finish(errors.New("boom"))).To(BeTrue())
		Expect(sessions.Status("alice").State).To(Equal(StateFailed))
	})

	Context("when a newer scan begins", func() {
		var old, cur *Ticket

		BeforeEach(func() {
			old = sessions.Begin("alice")
			old.Report(70)
			cur = sessions.Begin("alice")
		})

		It("cancels the older ticket", func() {
			Expect(old.Cancelled()).To(BeTrue())
			Expect(cur.Current()).To(BeTrue())
			Expect(cur.Generation()).To(BeNumerically(">", old.Generation()))
		})

		It("ignores reports from the older ticket", func() {
			old.Report(90)
			old.EnterPass(ProfileLowContrast)
			st := sessions.Status("alice")
			Expect(st.Progress).To(BeZero())
			Expect(st.Pass).To(BeEmpty())
		})

		It("refuses to finish the older ticket", func() {
			Expect(old.Finish(nil)).To(BeFalse())
			Expect(sessions.Status("alice").State).To(Equal(StateScanning))
		})
	})

	It("keeps keys independent", func() {
		a := sessions.Begin("alice")
		sessions.Begin("bob")
		Expect(a.Current()).To(BeTrue())
	})
})
