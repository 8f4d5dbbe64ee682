package ocr

import (
	"strings"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("snippet", func() {
	It("collapses whitespace", func() {
		Expect(snippet(" TOTAL\n\t 25.00 ", 40)).To(Equal("TOTAL 25.00"))
	})

	It("never splits a multi-byte rune", func() {
		s := snippet(strings.Repeat("€", 10), 3)
		Expect(utf8.ValidString(s)).To(BeTrue())
		Expect(s).To(Equal("€€€…"))
	})

	It("counts runes, not bytes, against the limit", func() {
		Expect(snippet("₹ 1.234,56", 10)).To(Equal("₹ 1.234,56"))
	})
})
