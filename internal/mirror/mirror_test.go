package mirror

import (
	"errors"
	"testing"
	"time"

	"shelfmark/api/internal/notes"
)

func bookWithSections(titles ...string) notes.Resource {
	resource := notes.Resource{ID: "res-1", OwnerID: "user-1", Name: "A Book", Type: notes.TypeBook}
	for i, title := range titles {
		resource.Sections = append(resource.Sections, notes.Section{
			ID:     "sec-" + title,
			Title:  title,
			Number: i + 1,
		})
	}
	return resource
}

func TestSectionDeleteDecrementsSiblingNumbers(t *testing.T) {
	store := NewStore()
	store.ApplyResource(bookWithSections("One", "Two", "Three", "Four"))

	store.ApplySectionDeleted("res-1", "sec-Two")

	snapshot := store.Snapshot()
	sections := snapshot.Resources[0].Sections
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	wantNumbers := []int{1, 2, 3}
	wantTitles := []string{"One", "Three", "Four"}
	for i, section := range sections {
		if section.Number != wantNumbers[i] {
			t.Fatalf("section %q number %d, want %d", section.Title, section.Number, wantNumbers[i])
		}
		if section.Title != wantTitles[i] {
			t.Fatalf("section %d title %q, want %q", i, section.Title, wantTitles[i])
		}
	}
}

func TestSubscribeGetsCurrentStateAndUpdates(t *testing.T) {
	store := NewStore()
	store.ApplyResource(bookWithSections("One"))

	var seen []Snapshot
	unsubscribe := store.Subscribe(func(snapshot Snapshot) {
		seen = append(seen, snapshot)
	})

	if len(seen) != 1 {
		t.Fatalf("expected immediate snapshot, got %d calls", len(seen))
	}
	if len(seen[0].Resources) != 1 {
		t.Fatalf("initial snapshot has %d resources", len(seen[0].Resources))
	}

	store.ApplySectionAdded("res-1", notes.Section{ID: "sec-Two", Title: "Two", Number: 2})
	if len(seen) != 2 {
		t.Fatalf("expected a notification after mutation, got %d calls", len(seen))
	}
	if len(seen[1].Resources[0].Sections) != 2 {
		t.Fatal("notification did not carry the new section")
	}

	unsubscribe()
	store.ApplySectionDeleted("res-1", "sec-Two")
	if len(seen) != 2 {
		t.Fatalf("unsubscribed listener still notified, %d calls", len(seen))
	}
}

func TestSubscriberMayReadStoreDuringNotify(t *testing.T) {
	store := NewStore()
	store.ApplyResource(bookWithSections("One"))

	// A listener that calls back into the store must not deadlock;
	// notifications are delivered with the lock released.
	var fromCallback int
	unsubscribe := store.Subscribe(func(Snapshot) {
		fromCallback = len(store.Snapshot().Resources[0].Sections)
	})
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		store.ApplySectionAdded("res-1", notes.Section{ID: "sec-Two", Title: "Two", Number: 2})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification deadlocked against a re-entrant subscriber")
	}
	if fromCallback != 2 {
		t.Fatalf("callback saw %d sections, want 2", fromCallback)
	}
}

func TestSnapshotsAreIsolatedCopies(t *testing.T) {
	store := NewStore()
	store.ApplyResource(bookWithSections("One", "Two"))

	snapshot := store.Snapshot()
	snapshot.Resources[0].Sections[0].Title = "mutated"
	snapshot.Resources[0].Sections = snapshot.Resources[0].Sections[:1]

	fresh := store.Snapshot()
	if len(fresh.Resources[0].Sections) != 2 {
		t.Fatal("mutating a snapshot changed the store")
	}
	if fresh.Resources[0].Sections[0].Title != "One" {
		t.Fatalf("section title changed to %q", fresh.Resources[0].Sections[0].Title)
	}
}

func TestApplyMarkersSortsForResourceType(t *testing.T) {
	store := NewStore()
	podcast := notes.Resource{
		ID:   "res-pod",
		Type: notes.TypePodcast,
		Sections: []notes.Section{
			{ID: "sec-1", Title: "Episode 1", Number: 1},
		},
	}
	store.ApplyResource(podcast)

	store.ApplyMarkers("res-pod", "sec-1", []notes.Marker{
		{ID: "mk-a", Position: "9:00", OrderNum: 1},
		{ID: "mk-b", Position: "10:00", OrderNum: 2},
	})

	snapshot := store.Snapshot()
	markers := snapshot.Resources[0].Sections[0].Markers
	// Lexicographic for audio positions: "10:00" sorts before "9:00".
	if markers[0].Position != "10:00" || markers[1].Position != "9:00" {
		t.Fatalf("unexpected order: %q then %q", markers[0].Position, markers[1].Position)
	}
}

func TestReplaceAllClearsStaleSelectionAndError(t *testing.T) {
	store := NewStore()
	store.ApplyResource(bookWithSections("One"))
	store.SetActive("res-1")
	store.SetError(errors.New("fetch failed"))

	store.ReplaceAll([]notes.Resource{{ID: "res-2", Name: "Other", Type: notes.TypeArticle}})

	snapshot := store.Snapshot()
	if snapshot.Err != nil {
		t.Fatalf("error survived replace: %v", snapshot.Err)
	}
	if snapshot.ActiveID != "" {
		t.Fatalf("active selection %q should have been cleared", snapshot.ActiveID)
	}
	if _, ok := store.Active(); ok {
		t.Fatal("Active() reported a selection after it was cleared")
	}

	store.SetActive("res-2")
	if active, ok := store.Active(); !ok || active.ID != "res-2" {
		t.Fatal("could not select a resource that exists")
	}
}

func TestLoadingFlagLifecycle(t *testing.T) {
	store := NewStore()
	store.SetError(errors.New("old failure"))

	store.SetLoading(true)
	if snapshot := store.Snapshot(); !snapshot.Loading || snapshot.Err != nil {
		t.Fatal("starting a load should set Loading and clear the error")
	}

	store.ReplaceAll(nil)
	if snapshot := store.Snapshot(); snapshot.Loading {
		t.Fatal("ReplaceAll should end the loading state")
	}
}
