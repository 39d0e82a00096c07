package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wibucomic/backend/internal/aggregator"
	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/notifications"
	"github.com/wibucomic/backend/internal/sources"
)

type comicStore interface {
	UpdateLatestChapter(id int64, chapter float64) (bool, error)
}

type bookmarkStore interface {
	BookmarkedComics() ([]models.Comic, error)
}

type chapterFetcher interface {
	Chapters(ctx context.Context, req aggregator.ChaptersRequest) ([]sources.Chapter, error)
}

// Poller periodically rechecks every bookmarked comic for new chapters and
// notifies when the newest known chapter number moves forward.
type Poller struct {
	comics    comicStore
	bookmarks bookmarkStore
	chapters  chapterFetcher
	notifier  notifications.Notifier
	interval  time.Duration
	logger    *slog.Logger
	stopCh    chan struct{}
	started   bool
}

type PollerConfig struct {
	Interval time.Duration
}

func NewPoller(comics comicStore, bookmarks bookmarkStore, chapters chapterFetcher, notifier notifications.Notifier, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		comics:    comics,
		bookmarks: bookmarks,
		chapters:  chapters,
		notifier:  notifier,
		interval:  cfg.Interval,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.started = true
	p.logger.Info("release poller started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		if err := p.RunOnce(ctx); err != nil {
			p.logger.Warn("poller initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("release poller stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				if err := p.RunOnce(ctx); err != nil {
					p.logger.Warn("poller cycle failed", "error", err)
				}
			}
		}
	}()
}

// StopWait blocks until the poll loop has exited, up to timeout. It returns
// immediately when Start was never called.
func (p *Poller) StopWait(timeout time.Duration) {
	if !p.started {
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

// RunOnce checks every bookmarked comic once. Per-comic failures are logged
// and skipped so one broken upstream cannot stall the whole cycle.
func (p *Poller) RunOnce(ctx context.Context) error {
	comics, err := p.bookmarks.BookmarkedComics()
	if err != nil {
		return fmt.Errorf("load bookmarked comics: %w", err)
	}

	for _, comic := range comics {
		requestCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		chapters, err := p.chapters.Chapters(requestCtx, aggregator.ChaptersRequest{
			SourceKey: comic.SourceKey,
			MangaID:   comic.SourceMangaID,
			Title:     comic.Title,
		})
		cancel()

		if err != nil {
			p.logger.Warn("poll chapters failed",
				"comic_id", comic.ID, "source", comic.SourceKey, "error", err)
			continue
		}
		if len(chapters) == 0 {
			continue
		}

		latest := latestChapterNumber(chapters)
		moved, err := p.comics.UpdateLatestChapter(comic.ID, latest)
		if err != nil {
			p.logger.Warn("poll update failed", "comic_id", comic.ID, "error", err)
			continue
		}
		if !moved {
			continue
		}

		// The first successful poll only records the baseline; notifying
		// then would announce every back-catalog chapter as new.
		if comic.LatestKnownChapter == nil {
			continue
		}

		message := notifications.NewChapterMessage(comic, latest)
		if err := p.notifier.Notify(ctx, message); err != nil {
			p.logger.Warn("notification failed", "comic_id", comic.ID, "error", err)
		}
	}

	return nil
}

func latestChapterNumber(chapters []sources.Chapter) float64 {
	var latest float64
	for _, chapter := range chapters {
		if number := sources.ParseNumber(chapter.Number); number > latest {
			latest = number
		}
	}
	return latest
}
