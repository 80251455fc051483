package presence

import (
	"sync"
	"testing"

	"homeservices/backend/internal/models"
)

func TestStoreReplaceAndSnapshot(t *testing.T) {
	store := NewStore()
	if got := store.Snapshot(models.RoleProvider); len(got) != 0 {
		t.Fatalf("expected empty roster, got %+v", got)
	}

	entries := []Entry{{SubjectID: 1, ConnectionID: "a"}, {SubjectID: 2, ConnectionID: "b"}}
	store.Replace(models.RoleProvider, entries)
	entries[0].SubjectID = 99

	snapshot := store.Snapshot(models.RoleProvider)
	if len(snapshot) != 2 || snapshot[0].SubjectID != 1 {
		t.Fatalf("replace should copy its input, got %+v", snapshot)
	}
	snapshot[1].ConnectionID = "mutated"
	if store.Snapshot(models.RoleProvider)[1].ConnectionID != "b" {
		t.Fatal("snapshot should not alias the stored roster")
	}
	if store.Size(models.RoleUser) != 0 {
		t.Fatal("user roster should be untouched")
	}
}

func TestStoreFind(t *testing.T) {
	store := NewStore()
	store.Replace(models.RoleProvider, []Entry{
		{SubjectID: 42, ConnectionID: "phone"},
		{SubjectID: 7, ConnectionID: "x"},
		{SubjectID: 42, ConnectionID: "tablet"},
	})

	found := store.Find(models.RoleProvider, 42)
	if len(found) != 2 {
		t.Fatalf("expected 2 entries for subject 42, got %+v", found)
	}
	if store.Online(models.RoleUser, 42) {
		t.Fatal("subject 42 is not an online user")
	}
	if !store.Online(models.RoleProvider, 7) {
		t.Fatal("subject 7 should be an online provider")
	}
}

func TestStoreClear(t *testing.T) {
	store := NewStore()
	store.Replace(models.RoleUser, []Entry{{SubjectID: 1, ConnectionID: "a"}})
	store.Clear()
	if store.Size(models.RoleUser) != 0 {
		t.Fatal("expected cleared roster")
	}
}

func TestStoreConcurrentReplace(t *testing.T) {
	store := NewStore()
	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			roster := make([]Entry, n)
			for j := range roster {
				roster[j] = Entry{SubjectID: int64(n), ConnectionID: "c"}
			}
			store.Replace(models.RoleProvider, roster)
		}(i)
		go func() {
			defer wg.Done()
			snapshot := store.Snapshot(models.RoleProvider)
			for _, entry := range snapshot {
				if entry.SubjectID != int64(len(snapshot)) {
					t.Errorf("torn roster: %d entries tagged %d", len(snapshot), entry.SubjectID)
					return
				}
			}
		}()
	}
	wg.Wait()
}
