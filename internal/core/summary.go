package core

// CategoryTotal is the summed amount of one category over a date range.
type CategoryTotal struct {
	Category    string  `json:"category"`
	TotalAmount float64 `json:"total_amount"`
}

// DateRange is an inclusive range of ISO dates compared as strings.
type DateRange struct {
	Start string
	End   string
}

// Contains reports whether date falls in the range. ISO-8601 dates sort
// lexicographically in chronological order.
func (r DateRange) Contains(date string) bool {
	return r.Start <= date && date <= r.End
}

// GrandTotal sums all category totals.
func GrandTotal(totals []CategoryTotal) float64 {
	var sum float64
	for _, t := range totals {
		sum += t.TotalAmount
	}
	return sum
}
