package tools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"expensetracker/internal/core"
)

// ExpenseOperations is what the tools need from the expense service.
type ExpenseOperations interface {
	AddExpense(ctx context.Context, e core.NewExpense) (int64, error)
	ListExpenses(ctx context.Context, rng core.DateRange) ([]core.Expense, error)
	EditExpense(ctx context.Context, key core.LookupKey, patch core.ExpensePatch) (core.EditResult, error)
	DeleteExpense(ctx context.Context, key core.LookupKey) (int64, error)
	Summarize(ctx context.Context, rng core.DateRange, category string) ([]core.CategoryTotal, error)
}

// AddExpenseInput represents the MCP tool input for recording an expense.
type AddExpenseInput struct {
	Date        string  `json:"date" jsonschema:"expense date as YYYY-MM-DD"`
	Amount      float64 `json:"amount" jsonschema:"expense amount"`
	Category    string  `json:"category" jsonschema:"expense category"`
	Subcategory string  `json:"subcategory,omitempty" jsonschema:"optional subcategory"`
	Note        string  `json:"note,omitempty" jsonschema:"optional free-form note"`
}

// DateRangeInput represents an inclusive date range.
type DateRangeInput struct {
	StartDate string `json:"start_date" jsonschema:"first date of the range (YYYY-MM-DD), inclusive"`
	EndDate   string `json:"end_date" jsonschema:"last date of the range (YYYY-MM-DD), inclusive"`
}

// EditExpenseInput selects expenses by date and subcategory and lists the
// fields to overwrite. Omitted fields are left unchanged.
type EditExpenseInput struct {
	Date        string   `json:"date" jsonschema:"date of the expenses to edit (YYYY-MM-DD)"`
	Subcategory string   `json:"subcategory" jsonschema:"subcategory of the expenses to edit"`
	Amount      *float64 `json:"amount,omitempty" jsonschema:"new amount"`
	Category    *string  `json:"category,omitempty" jsonschema:"new category"`
	Note        *string  `json:"note,omitempty" jsonschema:"new note"`
}

// DeleteExpenseInput selects the expenses to delete.
type DeleteExpenseInput struct {
	Date        string `json:"date" jsonschema:"date of the expenses to delete (YYYY-MM-DD)"`
	Subcategory string `json:"subcategory" jsonschema:"subcategory of the expenses to delete"`
}

// SummarizeInput represents the MCP tool input for category totals.
type SummarizeInput struct {
	StartDate string `json:"start_date" jsonschema:"first date of the range (YYYY-MM-DD), inclusive"`
	EndDate   string `json:"end_date" jsonschema:"last date of the range (YYYY-MM-DD), inclusive"`
	Category  string `json:"category,omitempty" jsonschema:"restrict the summary to this category"`
}

func AddExpenseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "add_expense",
		Description: "Add a new expense entry to the database.",
	}
}

func ListExpensesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_expenses",
		Description: "List expense entries within an inclusive date range.",
	}
}

func EditExpenseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "edit_expense",
		Description: "Edit existing expense entries by their date and subcategory. Every matching entry is updated.",
	}
}

func DeleteExpenseTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "delete_expense",
		Description: "Delete expense entries by their date and subcategory. Every matching entry is removed.",
	}
}

func SummarizeTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "summarize",
		Description: "Summarize expenses by category within an inclusive date range.",
	}
}

// AddExpenseHandler records an expense.
func AddExpenseHandler(ops ExpenseOperations) mcp.ToolHandlerFor[AddExpenseInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input AddExpenseInput) (*mcp.CallToolResult, any, error) {
		id, err := ops.AddExpense(ctx, core.NewExpense{
			Date:        input.Date,
			Amount:      input.Amount,
			Category:    input.Category,
			Subcategory: input.Subcategory,
			Note:        input.Note,
		})
		if err != nil {
			return textResult(Failure("%s", err))
		}
		return textResult(Created(id))
	}
}

// ListExpensesHandler returns the expenses within a date range as a JSON array.
func ListExpensesHandler(ops ExpenseOperations) mcp.ToolHandlerFor[DateRangeInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DateRangeInput) (*mcp.CallToolResult, any, error) {
		expenses, err := ops.ListExpenses(ctx, core.DateRange{Start: input.StartDate, End: input.EndDate})
		if err != nil {
			return textResult(Failure("Error listing expenses: %s", err))
		}
		return textResult(expenses)
	}
}

// EditExpenseHandler applies a partial update to matching expenses.
func EditExpenseHandler(ops ExpenseOperations) mcp.ToolHandlerFor[EditExpenseInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input EditExpenseInput) (*mcp.CallToolResult, any, error) {
		res, err := ops.EditExpense(ctx,
			core.LookupKey{Date: input.Date, Subcategory: input.Subcategory},
			core.ExpensePatch{Amount: input.Amount, Category: input.Category, Note: input.Note})
		if err != nil {
			return textResult(Failure("%s", err))
		}
		if res.NoChanges {
			return textResult(NoChanges())
		}
		return textResult(Affected(res.RowsAffected))
	}
}

// DeleteExpenseHandler removes matching expenses.
func DeleteExpenseHandler(ops ExpenseOperations) mcp.ToolHandlerFor[DeleteExpenseInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input DeleteExpenseInput) (*mcp.CallToolResult, any, error) {
		rows, err := ops.DeleteExpense(ctx, core.LookupKey{Date: input.Date, Subcategory: input.Subcategory})
		if err != nil {
			return textResult(Failure("%s", err))
		}
		return textResult(Affected(rows))
	}
}

// SummarizeHandler returns per-category totals as a JSON array.
func SummarizeHandler(ops ExpenseOperations) mcp.ToolHandlerFor[SummarizeInput, any] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SummarizeInput) (*mcp.CallToolResult, any, error) {
		totals, err := ops.Summarize(ctx, core.DateRange{Start: input.StartDate, End: input.EndDate}, input.Category)
		if err != nil {
			return textResult(Failure("Error summarizing expenses: %s", err))
		}
		return textResult(totals)
	}
}
