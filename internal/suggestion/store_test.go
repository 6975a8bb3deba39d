package suggestion

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestStore_CreateAssignsIDAndPendingStatus(t *testing.T) {
	store := NewStore()

	id := store.Create(&Suggestion{Agent: "linting", Message: "use logging", Patch: "@@ -1 +1 @@\n-a\n+b", FilePath: "app.py"})
	if id == "" {
		t.Fatal("Create should mint an ID for an empty one")
	}

	got, err := store.Get(id)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("Status = %s, want pending", got.Status)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set on create")
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store := NewStore()
	id := store.Create(&Suggestion{Message: "original"})

	got, _ := store.Get(id)
	got.Message = "mutated"
	got.Status = StatusApplied

	again, _ := store.Get(id)
	if again.Message != "original" || again.Status != StatusPending {
		t.Fatal("mutating a Get snapshot must not touch the stored record")
	}
}

func TestStore_ListNewestFirst(t *testing.T) {
	store := NewStore()
	first := store.Create(&Suggestion{Message: "first"})
	time.Sleep(5 * time.Millisecond)
	second := store.Create(&Suggestion{Message: "second"})

	list := store.List()
	if len(list) != 2 {
		t.Fatalf("List length = %d, want 2", len(list))
	}
	if list[0].ID != second || list[1].ID != first {
		t.Fatalf("List order = [%s, %s], want newest first", list[0].ID, list[1].ID)
	}
}

func TestStore_UpdateCAS(t *testing.T) {
	store := NewStore()
	id := store.Create(&Suggestion{})

	if err := store.Update(id, StatusPending, StatusApplying); err != nil {
		t.Fatalf("Update pending->applying returned error: %v", err)
	}

	err := store.Update(id, StatusPending, StatusApplying)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("second CAS error = %v, want *StatusError", err)
	}
	if statusErr.Actual != StatusApplying {
		t.Fatalf("StatusError.Actual = %s, want applying", statusErr.Actual)
	}

	if err := store.Update("nope", StatusPending, StatusApplying); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update on unknown id = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateCAS_SingleWinnerUnderConcurrency(t *testing.T) {
	store := NewStore()
	id := store.Create(&Suggestion{})

	const attempts = 16
	var wg sync.WaitGroup
	wins := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.Update(id, StatusPending, StatusApplying) == nil {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for range wins {
		won++
	}
	if won != 1 {
		t.Fatalf("%d goroutines won the CAS, want exactly 1", won)
	}
}

func TestStore_SetResult(t *testing.T) {
	store := NewStore()
	id := store.Create(&Suggestion{})

	if err := store.SetResult(id, 42, "https://github.com/o/r/pull/42", ""); err != nil {
		t.Fatalf("SetResult returned error: %v", err)
	}

	got, _ := store.Get(id)
	if got.PRNumber != 42 || got.PRURL != "https://github.com/o/r/pull/42" {
		t.Fatalf("result = #%d %q, want #42 with url", got.PRNumber, got.PRURL)
	}

	if err := store.SetResult("nope", 0, "", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetResult on unknown id = %v, want ErrNotFound", err)
	}
}
