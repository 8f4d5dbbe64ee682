package amount

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	numberRunRE    = regexp.MustCompile(`\d{1,3}(?:[ \x{00a0}]\d{3})+(?:[.,]\d{1,2})?|\d+(?:[.,'’]\d+)*`)
	groupedShapeRE = regexp.MustCompile(`^\d{1,3}(?:[.,'’ \x{00a0}]\d{3})*(?:[.,]\d{1,2})?$`)
)

// minFormatEvidence is the number of voting tokens needed before the
// detector trusts anything other than the US default.
const minFormatEvidence = 3

// DetectNumberFormat tallies grouped-number tokens across the text and
// reports which separator convention dominates.
func DetectNumberFormat(text string) NumberFormat {
	var us, eu int
	for _, tok := range numberRunRE.FindAllString(norm.NFKC.String(text), -1) {
		if !groupedShapeRE.MatchString(tok) {
			continue
		}
		switch tokenFormat(tok) {
		case FormatUS:
			us++
		case FormatEuropean:
			eu++
		}
	}
	if us+eu < minFormatEvidence {
		return FormatUS
	}
	switch {
	case float64(eu) > 1.5*float64(us):
		return FormatEuropean
	case float64(us) > 1.5*float64(eu):
		return FormatUS
	}
	return FormatMixed
}

// tokenFormat classifies one token with the same separator rules the parser
// uses. Tokens with no '.' or ',' carry no evidence and return "".
func tokenFormat(tok string) NumberFormat {
	lastDot := strings.LastIndexByte(tok, '.')
	lastComma := strings.LastIndexByte(tok, ',')
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastDot > lastComma {
			return FormatUS
		}
		return FormatEuropean
	case lastDot >= 0:
		if len(tok)-lastDot-1 <= 2 {
			return FormatUS
		}
		return FormatEuropean
	case lastComma >= 0:
		if len(tok)-lastComma-1 <= 2 {
			return FormatEuropean
		}
		return FormatUS
	}
	return ""
}
