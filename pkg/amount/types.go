package amount

// NumberFormat is the digit grouping convention a receipt appears to use.
type NumberFormat string

const (
	FormatUS       NumberFormat = "us"
	FormatEuropean NumberFormat = "european"
	FormatMixed    NumberFormat = "mixed"
)

// Category is the semantic role of a candidate on the receipt.
type Category string

const (
	CategoryTotal    Category = "total"
	CategorySubtotal Category = "subtotal"
	CategoryTax      Category = "tax"
	CategoryTip      Category = "tip"
	CategoryItem     Category = "item"
	CategoryPayment  Category = "payment"
	CategoryUnknown  Category = "unknown"
)

// ExtractedAmount is a numeric token found in OCR text together with the
// line it came from.
type ExtractedAmount struct {
	Value     float64 `json:"value"`
	Context   string  `json:"context"`
	LineIndex int     `json:"lineIndex"`
}

type CategorizedAmount struct {
	ExtractedAmount
	Category Category `json:"category"`
}

type ValidationResult struct {
	Valid      bool    `json:"valid"`
	Confidence float64 `json:"confidence"`
}

// ScoredAmount is a candidate with its combined score. It only lives for the
// duration of a selection.
type ScoredAmount struct {
	ExtractedAmount
	Category   Category         `json:"category"`
	Score      float64          `json:"score"`
	Validation ValidationResult `json:"validation"`
}

// ExtractedData is the result of one extraction. Amount 0 means no candidate
// was confident enough; AllAmounts keeps discovery order.
type ExtractedData struct {
	Amount     float64           `json:"amount"`
	Confidence float64           `json:"confidence"`
	AllAmounts []ExtractedAmount `json:"allAmounts"`
	RawText    string            `json:"rawText"`
}

// Selection is the outcome of ranking a candidate set. Chosen is nil when
// nothing cleared the acceptance threshold.
type Selection struct {
	Chosen     *ScoredAmount
	Confidence float64
	Ranked     []ScoredAmount
}
