package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"expensetracker/internal/core"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

const (
	insertExpenseSQL = `INSERT INTO expenses(date, amount, category, subcategory, note) VALUES (?, ?, ?, ?, ?)`

	listRangeSQL = `
SELECT id, date, amount, category, COALESCE(subcategory, ''), COALESCE(note, '')
FROM expenses
WHERE date BETWEEN ? AND ?
ORDER BY id ASC`

	listAllSQL = `
SELECT id, date, amount, category, COALESCE(subcategory, ''), COALESCE(note, '')
FROM expenses
ORDER BY id ASC`

	deleteByKeySQL = `DELETE FROM expenses WHERE date = ? AND subcategory = ?`

	summarizeSQL = `
SELECT category, SUM(amount) AS total_amount
FROM expenses
WHERE date BETWEEN ? AND ?`
)

// SQLiteRepository stores expense records in a single SQLite table.
//
// Every operation takes its own connection and transaction and releases both
// before returning. Idle connections are not kept, so nothing is shared
// between calls except the database file.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// DSN builds the modernc connection string for dbPath. Writers wait on the
// file lock for up to five seconds instead of failing with SQLITE_BUSY.
func DSN(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxIdleConns(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, path: dbPath}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file location.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// withTx runs fn inside a transaction on a dedicated connection. The
// transaction is rolled back if fn fails and the connection is always
// returned, on every path.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Insert appends a record and returns its id once the write is committed.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.NewExpense) (int64, error) {
	var id int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, insertExpenseSQL, e.Date, e.Amount, e.Category, e.Subcategory, e.Note)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted id: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", id,
		"date", e.Date,
		"amount", e.Amount,
		"category", e.Category,
		"subcategory", e.Subcategory)

	return id, nil
}

// ListRange returns the records dated within r, inclusive, in id order.
func (r *SQLiteRepository) ListRange(ctx context.Context, rng core.DateRange) ([]core.Expense, error) {
	return r.query(ctx, listRangeSQL, rng.Start, rng.End)
}

// ListAll returns every record in id order.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Expense, error) {
	return r.query(ctx, listAllSQL)
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]core.Expense, error) {
	expenses := []core.Expense{}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query expenses: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var e core.Expense
			if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.Category, &e.Subcategory, &e.Note); err != nil {
				return fmt.Errorf("scan expense: %w", err)
			}
			expenses = append(expenses, e)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// Edit overwrites the supplied fields on every record matching key. With an
// empty patch nothing is written and NoChanges is reported.
func (r *SQLiteRepository) Edit(ctx context.Context, key core.LookupKey, patch core.ExpensePatch) (core.EditResult, error) {
	if patch.IsEmpty() {
		return core.EditResult{NoChanges: true}, nil
	}

	fields := make([]string, 0, patch.Fields())
	params := make([]any, 0, patch.Fields()+2)
	if patch.Amount != nil {
		fields = append(fields, "amount = ?")
		params = append(params, *patch.Amount)
	}
	if patch.Category != nil {
		fields = append(fields, "category = ?")
		params = append(params, *patch.Category)
	}
	if patch.Note != nil {
		fields = append(fields, "note = ?")
		params = append(params, *patch.Note)
	}
	params = append(params, key.Date, key.Subcategory)

	query := "UPDATE expenses SET " + strings.Join(fields, ", ") + " WHERE date = ? AND subcategory = ?"

	var affected int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, query, params...)
		if err != nil {
			return fmt.Errorf("update expenses: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.EditResult{}, err
	}

	slog.InfoContext(ctx, "Expenses updated in SQLite",
		"date", key.Date,
		"subcategory", key.Subcategory,
		"fields", len(fields),
		"rows_affected", affected)

	return core.EditResult{RowsAffected: affected}, nil
}

// Delete removes every record matching key and returns how many were removed.
func (r *SQLiteRepository) Delete(ctx context.Context, key core.LookupKey) (int64, error) {
	var affected int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteByKeySQL, key.Date, key.Subcategory)
		if err != nil {
			return fmt.Errorf("delete expenses: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("read rows affected: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Expenses deleted from SQLite",
		"date", key.Date,
		"subcategory", key.Subcategory,
		"rows_affected", affected)

	return affected, nil
}

// Summarize totals amounts per category over rng, ordered by category. A
// non-empty category restricts the result to that category.
func (r *SQLiteRepository) Summarize(ctx context.Context, rng core.DateRange, category string) ([]core.CategoryTotal, error) {
	query := summarizeSQL
	params := []any{rng.Start, rng.End}
	if category != "" {
		query += " AND category = ?"
		params = append(params, category)
	}
	query += " GROUP BY category ORDER BY category ASC"

	totals := []core.CategoryTotal{}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, params...)
		if err != nil {
			return fmt.Errorf("query category totals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var ct core.CategoryTotal
			if err := rows.Scan(&ct.Category, &ct.TotalAmount); err != nil {
				return fmt.Errorf("scan category total: %w", err)
			}
			totals = append(totals, ct)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate category totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}
