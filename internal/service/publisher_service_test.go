package service_test

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/content-review-api/internal/config"
	"github.com/content-review-api/internal/mocks"
	"github.com/content-review-api/internal/models"
	"github.com/content-review-api/internal/repository"
	"github.com/content-review-api/internal/service"
	"github.com/rs/zerolog"
)

func scheduled(r *models.ContentRecord, at time.Time) *models.ContentRecord {
	r.ScheduledAt = &at
	return r
}

func TestPublisher_RunOncePublishesDueRecords(t *testing.T) {
	f := newFixture(
		scheduled(newRecord("a1", models.KindBlogPost, models.StatusApproved, 3), fixedNow.Add(-time.Hour)),
		scheduled(newRecord("a2", models.KindBlogPost, models.StatusApproved, 3), fixedNow.Add(time.Hour)),
		scheduled(newRecord("a3", models.KindSocialMediaPost, models.StatusApproved, 7), fixedNow),
		scheduled(newRecord("d1", models.KindBlogPost, models.StatusDraft, 1), fixedNow.Add(-time.Hour)),
	)
	publisher := service.NewPublisherService(f.store, f.review, config.SchedulerConfig{BatchSize: 10}, nil, zerolog.Nop(), clock)

	summary, err := publisher.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	published := append([]string(nil), summary.Published...)
	sort.Strings(published)
	if !reflect.DeepEqual(published, []string{"a1", "a3"}) {
		t.Errorf("Expected [a1 a3] published, got %v", summary.Published)
	}
	if summary.Due != 2 || len(summary.Failed) != 0 {
		t.Errorf("Unexpected summary %+v", summary)
	}

	for _, id := range []string{"a1", "a3"} {
		stored := f.stored(t, id)
		if stored.Status != models.StatusPublished || stored.PublishedAt == nil {
			t.Errorf("%s: expected Published, got %s", id, stored.Status)
		}
		if stored.UpdatedBy != "scheduler" {
			t.Errorf("%s: expected scheduler as updater, got %q", id, stored.UpdatedBy)
		}
	}
	if stored := f.stored(t, "a2"); stored.Status != models.StatusApproved {
		t.Errorf("a2 is not due yet, got %s", stored.Status)
	}

	// Second sweep finds nothing left
	summary, err = publisher.RunOnce(context.Background())
	if err != nil || summary.Due != 0 {
		t.Errorf("Expected empty second sweep, got %+v %v", summary, err)
	}
}

func TestPublisher_StaleListingIsReportedNotForced(t *testing.T) {
	due := scheduled(newRecord("a1", models.KindBlogPost, models.StatusApproved, 3), fixedNow.Add(-time.Hour))
	f := newFixture(due)

	// The listing reports an older version than the store holds
	listed := due.Clone()
	listed.Version = 2
	repo := mocks.NewMockContentRepository()
	repo.ListDueFunc = func(ctx context.Context, now time.Time, limit int) ([]*models.ContentRecord, error) {
		return []*models.ContentRecord{listed}, nil
	}

	publisher := service.NewPublisherService(repo, f.review, config.SchedulerConfig{}, nil, zerolog.Nop(), clock)
	summary, err := publisher.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if !reflect.DeepEqual(summary.Failed, []string{"a1"}) {
		t.Errorf("Expected a1 to fail on version, got %+v", summary)
	}
	if stored := f.stored(t, "a1"); stored.Status != models.StatusApproved {
		t.Errorf("Expected a1 to stay Approved, got %s", stored.Status)
	}
}

func TestPublisher_ListErrorSurfaces(t *testing.T) {
	repo := mocks.NewMockContentRepository()
	repo.ListError = errors.New("db down")
	review := service.NewReviewService(&repository.Repositories{Content: repo, Event: mocks.NewMockEventRepository()}, nil, nil, zerolog.Nop(), clock)
	publisher := service.NewPublisherService(repo, review, config.SchedulerConfig{}, nil, zerolog.Nop(), clock)

	if _, err := publisher.RunOnce(context.Background()); err == nil {
		t.Fatal("Expected list error to surface")
	}
}

func TestPublisher_ProcessorLoop(t *testing.T) {
	f := newFixture(scheduled(newRecord("a1", models.KindBlogPost, models.StatusApproved, 3), fixedNow.Add(-time.Minute)))
	publisher := service.NewPublisherService(f.store, f.review, config.SchedulerConfig{Interval: 5 * time.Millisecond}, nil, zerolog.Nop(), clock)

	go publisher.StartProcessor(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, _ := f.store.Get(context.Background(), "a1"); r != nil && r.Status == models.StatusPublished {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	publisher.StopProcessor()

	if stored := f.stored(t, "a1"); stored.Status != models.StatusPublished {
		t.Fatalf("Expected background sweep to publish a1, got %s", stored.Status)
	}
}

func TestPublisher_RestartsAfterParentCancel(t *testing.T) {
	f := newFixture()
	publisher := service.NewPublisherService(f.store, f.review, config.SchedulerConfig{Interval: 5 * time.Millisecond}, nil, zerolog.Nop(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		publisher.StartProcessor(ctx)
		close(exited)
	}()
	cancel()

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not exit after its context was cancelled")
	}

	// StopProcessor must not block once the loop has already exited
	publisher.StopProcessor()

	f.store.Seed(scheduled(newRecord("a1", models.KindBlogPost, models.StatusApproved, 3), fixedNow.Add(-time.Minute)))
	go publisher.StartProcessor(context.Background())
	defer publisher.StopProcessor()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r, _ := f.store.Get(context.Background(), "a1"); r != nil && r.Status == models.StatusPublished {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("Expected restarted processor to publish a1")
}
