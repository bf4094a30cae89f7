package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"expensetracker/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "expenses.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustInsert(t *testing.T, repo *SQLiteRepository, e core.NewExpense) int64 {
	t.Helper()

	id, err := repo.Insert(context.Background(), e)
	if err != nil {
		t.Fatalf("Insert(%+v): %v", e, err)
	}
	return id
}

func ptr[T any](v T) *T { return &v }

func TestInsertAndListRangePreservesFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	id := mustInsert(t, repo, core.NewExpense{
		Date: "2024-01-05", Amount: 42.50, Category: "food", Subcategory: "groceries", Note: "weekly shop",
	})
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	got, err := repo.ListRange(ctx, core.DateRange{Start: "2024-01-01", End: "2024-01-31"})
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	want := core.Expense{
		ID: id, Date: "2024-01-05", Amount: 42.50, Category: "food", Subcategory: "groceries", Note: "weekly shop",
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("ListRange = %+v, want [%+v]", got, want)
	}
}

func TestInsertDefaultsOptionalFieldsToEmpty(t *testing.T) {
	repo := newTestRepository(t)

	mustInsert(t, repo, core.NewExpense{Date: "2024-03-01", Amount: 9, Category: "misc"})

	got, err := repo.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != 1 || got[0].Subcategory != "" || got[0].Note != "" {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestInsertAssignsIncreasingIDs(t *testing.T) {
	repo := newTestRepository(t)

	var prev int64
	for i := 0; i < 5; i++ {
		id := mustInsert(t, repo, core.NewExpense{Date: "2024-01-01", Amount: float64(i), Category: "c"})
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestListRangeInclusiveAndOrderedByID(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Inserted out of chronological order on purpose.
	dates := []string{"2024-02-10", "2024-01-31", "2024-02-01", "2024-02-29", "2024-03-01", "2024-02-15"}
	ids := make(map[string]int64, len(dates))
	for _, d := range dates {
		ids[d] = mustInsert(t, repo, core.NewExpense{Date: d, Amount: 1, Category: "c"})
	}

	rng := core.DateRange{Start: "2024-02-01", End: "2024-02-29"}
	got, err := repo.ListRange(ctx, rng)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}

	wantDates := []string{"2024-02-10", "2024-02-01", "2024-02-29", "2024-02-15"}
	if len(got) != len(wantDates) {
		t.Fatalf("ListRange returned %d records, want %d: %+v", len(got), len(wantDates), got)
	}
	for i, e := range got {
		if e.Date != wantDates[i] || e.ID != ids[wantDates[i]] {
			t.Errorf("record %d = %+v, want date %s", i, e, wantDates[i])
		}
		if !rng.Contains(e.Date) {
			t.Errorf("record %+v outside range", e)
		}
		if i > 0 && got[i-1].ID >= e.ID {
			t.Errorf("records not ordered by id: %d before %d", got[i-1].ID, e.ID)
		}
	}
}

func TestListRangeEmpty(t *testing.T) {
	repo := newTestRepository(t)

	got, err := repo.ListRange(context.Background(), core.DateRange{Start: "2030-01-01", End: "2030-12-31"})
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	key := core.LookupKey{Date: "2024-01-05", Subcategory: "groceries"}

	t.Run("note only leaves other fields", func(t *testing.T) {
		repo := newTestRepository(t)
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 42.5, Category: "food", Subcategory: key.Subcategory, Note: "old"})

		res, err := repo.Edit(ctx, key, core.ExpensePatch{Note: ptr("new")})
		if err != nil {
			t.Fatalf("Edit: %v", err)
		}
		if res.NoChanges || res.RowsAffected != 1 {
			t.Fatalf("Edit result = %+v, want 1 row", res)
		}

		got, _ := repo.ListAll(ctx)
		if got[0].Note != "new" || got[0].Amount != 42.5 || got[0].Category != "food" {
			t.Fatalf("unexpected record after edit: %+v", got[0])
		}
	})

	t.Run("explicit empty string is written", func(t *testing.T) {
		repo := newTestRepository(t)
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 1, Category: "food", Subcategory: key.Subcategory, Note: "something"})

		if _, err := repo.Edit(ctx, key, core.ExpensePatch{Note: ptr("")}); err != nil {
			t.Fatalf("Edit: %v", err)
		}
		got, _ := repo.ListAll(ctx)
		if got[0].Note != "" {
			t.Fatalf("note = %q, want empty", got[0].Note)
		}
	})

	t.Run("empty patch is a no-op", func(t *testing.T) {
		repo := newTestRepository(t)
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 1, Category: "food", Subcategory: key.Subcategory})

		res, err := repo.Edit(ctx, key, core.ExpensePatch{})
		if err != nil {
			t.Fatalf("Edit: %v", err)
		}
		if !res.NoChanges || res.RowsAffected != 0 {
			t.Fatalf("Edit result = %+v, want no changes", res)
		}
	})

	t.Run("updates every matching record", func(t *testing.T) {
		repo := newTestRepository(t)
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 1, Category: "food", Subcategory: key.Subcategory})
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 2, Category: "food", Subcategory: key.Subcategory})
		mustInsert(t, repo, core.NewExpense{Date: key.Date, Amount: 3, Category: "food", Subcategory: "other"})

		res, err := repo.Edit(ctx, key, core.ExpensePatch{Amount: ptr(10.0), Category: ptr("groceries")})
		if err != nil {
			t.Fatalf("Edit: %v", err)
		}
		if res.RowsAffected != 2 {
			t.Fatalf("RowsAffected = %d, want 2", res.RowsAffected)
		}

		got, _ := repo.ListAll(ctx)
		for _, e := range got[:2] {
			if e.Amount != 10 || e.Category != "groceries" {
				t.Errorf("record not updated: %+v", e)
			}
		}
		if got[2].Amount != 3 || got[2].Category != "food" {
			t.Errorf("non-matching record changed: %+v", got[2])
		}
	})

	t.Run("no match", func(t *testing.T) {
		repo := newTestRepository(t)
		res, err := repo.Edit(ctx, key, core.ExpensePatch{Amount: ptr(1.0)})
		if err != nil {
			t.Fatalf("Edit: %v", err)
		}
		if res.NoChanges || res.RowsAffected != 0 {
			t.Fatalf("Edit result = %+v, want 0 rows", res)
		}
	})
}

func TestDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	mustInsert(t, repo, core.NewExpense{Date: "2024-01-05", Amount: 1, Category: "food", Subcategory: "groceries"})
	mustInsert(t, repo, core.NewExpense{Date: "2024-01-05", Amount: 2, Category: "food", Subcategory: "groceries"})
	keep := mustInsert(t, repo, core.NewExpense{Date: "2024-01-06", Amount: 3, Category: "food", Subcategory: "groceries"})

	n, err := repo.Delete(ctx, core.LookupKey{Date: "2024-01-05", Subcategory: "groceries"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("Delete removed %d, want 2", n)
	}

	n, err = repo.Delete(ctx, core.LookupKey{Date: "1999-01-01", Subcategory: "nothing"})
	if err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if n != 0 {
		t.Fatalf("Delete missing removed %d, want 0", n)
	}

	got, _ := repo.ListAll(ctx)
	if len(got) != 1 || got[0].ID != keep {
		t.Fatalf("unexpected remaining records: %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	seed := []core.NewExpense{
		{Date: "2024-01-02", Amount: 10.25, Category: "transport"},
		{Date: "2024-01-05", Amount: 42.50, Category: "food"},
		{Date: "2024-01-20", Amount: 7.50, Category: "food"},
		{Date: "2024-01-31", Amount: -5, Category: "food"},
		{Date: "2024-02-01", Amount: 100, Category: "food"},
		{Date: "2023-12-31", Amount: 100, Category: "rent"},
	}
	for _, e := range seed {
		mustInsert(t, repo, e)
	}
	rng := core.DateRange{Start: "2024-01-01", End: "2024-01-31"}

	totals, err := repo.Summarize(ctx, rng, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	want := []core.CategoryTotal{
		{Category: "food", TotalAmount: 45},
		{Category: "transport", TotalAmount: 10.25},
	}
	if fmt.Sprint(totals) != fmt.Sprint(want) {
		t.Fatalf("Summarize = %+v, want %+v", totals, want)
	}

	listed, err := repo.ListRange(ctx, rng)
	if err != nil {
		t.Fatalf("ListRange: %v", err)
	}
	var sum float64
	for _, e := range listed {
		sum += e.Amount
	}
	if core.GrandTotal(totals) != sum {
		t.Fatalf("grand total %v != listed sum %v", core.GrandTotal(totals), sum)
	}

	filtered, err := repo.Summarize(ctx, rng, "transport")
	if err != nil {
		t.Fatalf("Summarize filtered: %v", err)
	}
	if len(filtered) != 1 || filtered[0] != want[1] {
		t.Fatalf("Summarize filtered = %+v", filtered)
	}

	none, err := repo.Summarize(ctx, rng, "rent")
	if err != nil {
		t.Fatalf("Summarize absent category: %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Fatalf("expected empty result for category without rows, got %#v", none)
	}
}

func TestConcurrentInserts(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := repo.Insert(ctx, core.NewExpense{Date: "2024-05-01", Amount: 1, Category: fmt.Sprintf("w%d", w)})
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent insert: %v", err)
	}

	got, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(got) != workers*perWorker {
		t.Fatalf("got %d records, want %d", len(got), workers*perWorker)
	}
	seen := make(map[int64]bool, len(got))
	for _, e := range got {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true
	}
}

func TestOperationsAfterCloseFail(t *testing.T) {
	repo := newTestRepository(t)
	repo.Close()

	if _, err := repo.Insert(context.Background(), core.NewExpense{Date: "2024-01-01", Amount: 1, Category: "c"}); err == nil {
		t.Fatal("expected error inserting into closed repository")
	}
	if _, err := repo.ListAll(context.Background()); err == nil {
		t.Fatal("expected error listing closed repository")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "expenses.db")

	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		repo.Close()
	}

	version, dirty, err := SchemaVersion(DSN(path))
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 2 || dirty {
		t.Fatalf("schema version = %d dirty=%v, want 2 clean", version, dirty)
	}
}
