package sheets

import (
	"context"

	"expensetracker/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseExporter mirrors the full expense table to an external sheet.
	// Each call replaces whatever the previous export wrote.
	ExpenseExporter interface {
		ReplaceAll(ctx context.Context, expenses []core.Expense) error
	}
)

// Header is the first row of every export.
var Header = []string{"id", "date", "amount", "category", "subcategory", "note"}

// Row flattens an expense into cells ordered like Header.
func Row(e core.Expense) []any {
	return []any{e.ID, e.Date, e.Amount, e.Category, e.Subcategory, e.Note}
}
