package core

import (
	"errors"
	"strings"
)

type (
	// Expense is a single stored expense record.
	Expense struct {
		ID          int64   `json:"id"`
		Date        string  `json:"date"` // YYYY-MM-DD, stored as given
		Amount      float64 `json:"amount"`
		Category    string  `json:"category"`
		Subcategory string  `json:"subcategory"`
		Note        string  `json:"note"`
	}

	// NewExpense holds the fields supplied when recording an expense.
	NewExpense struct {
		Date        string
		Amount      float64
		Category    string
		Subcategory string
		Note        string
	}

	// LookupKey selects the records targeted by an edit or a delete.
	// It is not unique: every record sharing the pair is affected.
	LookupKey struct {
		Date        string
		Subcategory string
	}

	// ExpensePatch lists the fields to overwrite on edit. A nil field is left
	// untouched; a pointer to the zero value is written.
	ExpensePatch struct {
		Amount   *float64
		Category *string
		Note     *string
	}

	// EditResult reports the outcome of an edit.
	EditResult struct {
		NoChanges    bool
		RowsAffected int64
	}
)

var (
	ErrEmptyDate     = errors.New("empty date")
	ErrEmptyCategory = errors.New("empty category")
)

// Validate checks the required fields of a new expense. Only presence is
// checked: dates are not parsed and amounts may be negative.
func (e NewExpense) Validate() error {
	if strings.TrimSpace(e.Date) == "" {
		return ErrEmptyDate
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// IsEmpty reports whether the patch carries no field to write.
func (p ExpensePatch) IsEmpty() bool {
	return p.Amount == nil && p.Category == nil && p.Note == nil
}

// Fields returns the number of fields the patch will write.
func (p ExpensePatch) Fields() int {
	n := 0
	if p.Amount != nil {
		n++
	}
	if p.Category != nil {
		n++
	}
	if p.Note != nil {
		n++
	}
	return n
}
