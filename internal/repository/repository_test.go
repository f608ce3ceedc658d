package repository_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/repository"
)

func newRecord(id string, kind models.Kind, status models.Status, version int64) *models.ContentRecord {
	return &models.ContentRecord{
		ID:        id,
		Kind:      kind,
		ClientID:  "client-1",
		Title:     "Title " + id,
		Status:    status,
		Version:   version,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	rec := newRecord("p1", models.KindBlogPost, models.StatusDraft, 1)
	rec.Images = []string{"hero.png"}
	if err := store.Create(ctx, rec); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.Create(ctx, rec); !errors.Is(err, repository.ErrAlreadyExists) {
		t.Errorf("Expected ErrAlreadyExists on duplicate, got %v", err)
	}

	// mutating the caller's copy must not leak into the store
	rec.Images[0] = "changed.png"

	got, err := store.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Images[0] != "hero.png" {
		t.Errorf("Store shares slice with caller: %v", got.Images)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_CompareAndSwap(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	store.Seed(newRecord("c1", models.KindCampaign, models.StatusPendingReview, 5))

	next := newRecord("c1", models.KindCampaign, models.StatusPublished, 6)
	now := time.Now().UTC()
	next.PublishedAt = &now
	if err := store.CompareAndSwap(ctx, "c1", 5, next); err != nil {
		t.Fatalf("CompareAndSwap failed: %v", err)
	}

	stale := newRecord("c1", models.KindCampaign, models.StatusDraft, 6)
	if err := store.CompareAndSwap(ctx, "c1", 5, stale); !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("Expected ErrVersionConflict for stale write, got %v", err)
	}

	got, _ := store.Get(ctx, "c1")
	if got.Version != 6 || got.Status != models.StatusPublished {
		t.Errorf("Expected version 6 Published, got %d %s", got.Version, got.Status)
	}

	if err := store.CompareAndSwap(ctx, "nope", 1, newRecord("nope", models.KindBlogPost, models.StatusDraft, 2)); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	if err := store.CompareAndSwap(ctx, "c1", 6, newRecord("c1", models.KindCampaign, models.StatusPublished, 6)); err == nil {
		t.Error("Expected error when new version does not increase")
	}
}

func TestMemoryStore_CompareAndSwapKeepsPublishedAt(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	published := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	rec := newRecord("p1", models.KindBlogPost, models.StatusPublished, 3)
	rec.PublishedAt = &published
	store.Seed(rec)

	next := rec.Clone()
	next.Version = 4
	next.PublishedAt = nil
	next.Title = "Retitled"
	if err := store.CompareAndSwap(ctx, "p1", 3, next); err != nil {
		t.Fatalf("CompareAndSwap failed: %v", err)
	}

	got, _ := store.Get(ctx, "p1")
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("publishedAt must never be cleared, got %v", got.PublishedAt)
	}
}

func TestMemoryStore_ConcurrentSwapsExactlyOneWins(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	store.Seed(newRecord("c1", models.KindCampaign, models.StatusPendingReview, 5))

	const writers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := newRecord("c1", models.KindCampaign, models.StatusPendingReview, 6)
			next.Title = fmt.Sprintf("writer %d", i)
			err := store.CompareAndSwap(ctx, "c1", 5, next)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, repository.ErrVersionConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 || conflicts != writers-1 {
		t.Errorf("Expected 1 win and %d conflicts, got %d and %d", writers-1, wins, conflicts)
	}
}

func TestMemoryStore_ListAndCount(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()

	a := newRecord("a", models.KindBlogPost, models.StatusDraft, 1)
	b := newRecord("b", models.KindBlogPost, models.StatusApproved, 3)
	b.CreatedAt = a.CreatedAt.Add(time.Hour)
	c := newRecord("c", models.KindCampaign, models.StatusDraft, 1)
	c.ClientID = "client-2"
	store.Seed(a, b, c)

	all, _ := store.List(ctx, models.ContentFilter{})
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
	if all[0].ID != "b" {
		t.Errorf("Expected newest first, got %s", all[0].ID)
	}

	drafts, _ := store.List(ctx, models.ContentFilter{Status: models.StatusDraft, ClientID: "client-1"})
	if len(drafts) != 1 || drafts[0].ID != "a" {
		t.Errorf("Expected only a, got %v", drafts)
	}

	page, _ := store.List(ctx, models.ContentFilter{Limit: 1, Offset: 1})
	if len(page) != 1 || page[0].ID != "a" {
		t.Errorf("Expected second page to hold a, got %v", page)
	}

	empty, _ := store.List(ctx, models.ContentFilter{Offset: 10})
	if len(empty) != 0 {
		t.Errorf("Expected empty page, got %d", len(empty))
	}

	counts, _ := store.CountByStatus(ctx, "")
	if len(counts) != 3 {
		t.Errorf("Expected 3 kind/status groups, got %d", len(counts))
	}

	scoped, _ := store.CountByStatus(ctx, "client-none")
	if len(scoped) != 0 {
		t.Errorf("Expected no groups for an unknown client, got %d", len(scoped))
	}
}

func TestMemoryStore_ListDue(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	earlier := now.Add(-2 * time.Hour)
	future := now.Add(time.Hour)

	due1 := newRecord("due1", models.KindBlogPost, models.StatusApproved, 2)
	due1.ScheduledAt = &past
	due2 := newRecord("due2", models.KindSocialMediaPost, models.StatusApproved, 2)
	due2.ScheduledAt = &earlier
	later := newRecord("later", models.KindBlogPost, models.StatusApproved, 2)
	later.ScheduledAt = &future
	unscheduled := newRecord("unscheduled", models.KindBlogPost, models.StatusApproved, 2)
	pending := newRecord("pending", models.KindBlogPost, models.StatusPendingReview, 2)
	pending.ScheduledAt = &past
	store.Seed(due1, due2, later, unscheduled, pending)

	due, err := store.ListDue(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 2 || due[0].ID != "due2" || due[1].ID != "due1" {
		t.Errorf("Expected [due2 due1], got %v", ids(due))
	}
}

func TestMemoryStore_Events(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e1 := models.Event{ID: "e1", RecordID: "p1", Version: 2, OccurredAt: at, ToStatus: models.StatusPendingReview}
	e2 := models.Event{ID: "e2", RecordID: "p1", Version: 3, OccurredAt: at.Add(time.Minute), ToStatus: models.StatusApproved}

	store.Append(ctx, e2)
	store.Append(ctx, e1)
	store.Append(ctx, e1)

	events, _ := store.ListByRecord(ctx, "p1")
	if len(events) != 2 {
		t.Fatalf("Expected 2 events (duplicate ignored), got %d", len(events))
	}
	if events[0].ID != "e1" {
		t.Errorf("Expected events in occurrence order, got %s first", events[0].ID)
	}
}

func ids(records []*models.ContentRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
