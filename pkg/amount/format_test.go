package amount

import (
	"testing"

	. "github.com/onsi/gomega"
)

func TestDetectNumberFormat(t *testing.T) {
	cases := []struct {
		name string
		text string
		want NumberFormat
	}{
		{"european receipt", "SUBTOTAL 1.234,00\nTAX 12,34\nTOTAL 1.246,34", FormatEuropean},
		{"us receipt", "SUBTOTAL 1,234.00\nTAX 12.34\nTOTAL 1,246.34", FormatUS},
		{"too little evidence", "TOTAL 1.234,00", FormatUS},
		{"no numbers", "THANK YOU", FormatUS},
		{"space grouped european", "SUBTOTAL 1 200,00\nTAX 34,56\nTOTAL 1 234,56", FormatEuropean},
		{"balanced", "A 1.234,00\nB 1,234.00\nC 12,50\nD 12.50", FormatMixed},
		{"integers carry no evidence", "TABLE 12\nGUESTS 4\nSERVER 7\nTOTAL 12,50", FormatUS},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			NewWithT(t).Expect(DetectNumberFormat(tc.text)).To(Equal(tc.want))
		})
	}
}
