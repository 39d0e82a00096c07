package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/notifications"
	"github.com/wibucomic/backend/internal/sources"
)

type fakeComicStore struct {
	updates map[int64]float64
	moved   bool
}

func (f *fakeComicStore) UpdateLatestChapter(id int64, chapter float64) (bool, error) {
	if f.updates == nil {
		f.updates = map[int64]float64{}
	}
	f.updates[id] = chapter
	return f.moved, nil
}

type fakeBookmarkStore struct {
	comics []models.Comic
}

func (f *fakeBookmarkStore) BookmarkedComics() ([]models.Comic, error) {
	return f.comics, nil
}

type fakeChapterFetcher struct {
	chapters map[string][]sources.Chapter
	err      error
	calls    int
}

func (f *fakeChapterFetcher) Chapters(_ context.Context, req aggregator.ChaptersRequest) ([]sources.Chapter, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.chapters[req.MangaID], nil
}

type recordingNotifier struct {
	messages []notifications.Message
}

func (r *recordingNotifier) Notify(_ context.Context, message notifications.Message) error {
	r.messages = append(r.messages, message)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func trackedComic(id int64, latestKnown *float64) models.Comic {
	return models.Comic{
		ID:                 id,
		SourceKey:          "mangadex",
		SourceMangaID:      fmt.Sprintf("m-%d", id),
		Title:              "Solo Leveling",
		LatestKnownChapter: latestKnown,
	}
}

func chapterList(numbers ...string) []sources.Chapter {
	items := make([]sources.Chapter, 0, len(numbers))
	for _, number := range numbers {
		items = append(items, sources.Chapter{Number: number})
	}
	return items
}

func TestRunOnceNotifiesOnNewChapter(t *testing.T) {
	known := 178.0
	comics := &fakeComicStore{moved: true}
	bookmarks := &fakeBookmarkStore{comics: []models.Comic{trackedComic(1, &known)}}
	fetcher := &fakeChapterFetcher{chapters: map[string][]sources.Chapter{
		"m-1": chapterList("1", "178", "179"),
	}}
	notifier := &recordingNotifier{}

	poller := NewPoller(comics, bookmarks, fetcher, notifier, PollerConfig{}, quietLogger())
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if comics.updates[1] != 179 {
		t.Errorf("recorded latest = %v, want 179", comics.updates[1])
	}
	if len(notifier.messages) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.messages))
	}
	if notifier.messages[0].Context["chapter"] != 179.0 {
		t.Errorf("notification chapter = %v", notifier.messages[0].Context["chapter"])
	}
}

func TestRunOnceFirstPollOnlyRecordsBaseline(t *testing.T) {
	comics := &fakeComicStore{moved: true}
	bookmarks := &fakeBookmarkStore{comics: []models.Comic{trackedComic(1, nil)}}
	fetcher := &fakeChapterFetcher{chapters: map[string][]sources.Chapter{
		"m-1": chapterList("179"),
	}}
	notifier := &recordingNotifier{}

	poller := NewPoller(comics, bookmarks, fetcher, notifier, PollerConfig{}, quietLogger())
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if comics.updates[1] != 179 {
		t.Errorf("baseline not recorded: %v", comics.updates)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("expected no notifications on first poll, got %d", len(notifier.messages))
	}
}

func TestRunOnceNoMovementNoNotification(t *testing.T) {
	known := 179.0
	comics := &fakeComicStore{moved: false}
	bookmarks := &fakeBookmarkStore{comics: []models.Comic{trackedComic(1, &known)}}
	fetcher := &fakeChapterFetcher{chapters: map[string][]sources.Chapter{
		"m-1": chapterList("179"),
	}}
	notifier := &recordingNotifier{}

	poller := NewPoller(comics, bookmarks, fetcher, notifier, PollerConfig{}, quietLogger())
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(notifier.messages) != 0 {
		t.Errorf("expected no notifications, got %d", len(notifier.messages))
	}
}

func TestRunOnceContainsPerComicFailure(t *testing.T) {
	known := 10.0
	comics := &fakeComicStore{moved: true}
	bookmarks := &fakeBookmarkStore{comics: []models.Comic{
		trackedComic(1, &known),
		trackedComic(2, &known),
	}}
	fetcher := &fakeChapterFetcher{err: fmt.Errorf("upstream down")}
	notifier := &recordingNotifier{}

	poller := NewPoller(comics, bookmarks, fetcher, notifier, PollerConfig{}, quietLogger())
	if err := poller.RunOnce(context.Background()); err != nil {
		t.Fatalf("expected contained failures, got %v", err)
	}
	if fetcher.calls != 2 {
		t.Errorf("expected both comics polled, got %d calls", fetcher.calls)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	comics := &fakeComicStore{}
	bookmarks := &fakeBookmarkStore{}
	fetcher := &fakeChapterFetcher{}

	poller := NewPoller(comics, bookmarks, fetcher, nil, PollerConfig{Interval: time.Hour}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	poller.Start(ctx)
	cancel()
	poller.StopWait(2 * time.Second)
}

func TestStopWaitReturnsImmediatelyWhenNeverStarted(t *testing.T) {
	poller := NewPoller(&fakeComicStore{}, &fakeBookmarkStore{}, &fakeChapterFetcher{}, nil, PollerConfig{}, quietLogger())

	done := make(chan struct{})
	go func() {
		poller.StopWait(5 * time.Second)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StopWait blocked without a running poll loop")
	}
}
