package trends

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/wibucomic/backend/internal/fetch"
	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/sources"
)

const (
	mentionSource = "reddit"
	maxTrending   = 50
	postsPerFeed  = 100
	userAgent     = "WibuComic/1.0"
)

var defaultSubreddits = []string{"manga", "mangarecommendations", "Mangareviews"}

type titleResolver interface {
	Search(ctx context.Context, query string, limit int) ([]sources.Manga, error)
}

type trendStore interface {
	UpsertTrend(trend models.TrendingManga) error
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title    string  `json:"title"`
	SelfText string  `json:"selftext"`
	Score    float64 `json:"score"`
}

type mentionTally struct {
	display string
	count   int
	score   float64
}

// Syncer periodically mines community post feeds for trending series
// titles, resolves them against an upstream catalog and stores the result.
type Syncer struct {
	fetcher    *fetch.Client
	resolver   titleResolver
	store      trendStore
	baseURL    string
	subreddits []string
	interval   time.Duration
	logger     *slog.Logger
	stopCh     chan struct{}
	started    bool
}

type SyncerConfig struct {
	Interval   time.Duration
	BaseURL    string
	Subreddits []string
}

func NewSyncer(fetcher *fetch.Client, resolver titleResolver, store trendStore, cfg SyncerConfig, logger *slog.Logger) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.reddit.com"
	}
	if len(cfg.Subreddits) == 0 {
		cfg.Subreddits = defaultSubreddits
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Syncer{
		fetcher:    fetcher,
		resolver:   resolver,
		store:      store,
		baseURL:    cfg.BaseURL,
		subreddits: cfg.Subreddits,
		interval:   cfg.Interval,
		logger:     logger,
		stopCh:     make(chan struct{}),
	}
}

func (s *Syncer) Start(ctx context.Context) {
	s.started = true
	s.logger.Info("trends syncer started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		if err := s.RunOnce(ctx); err != nil {
			s.logger.Warn("trends initial sync failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("trends syncer stopped")
				close(s.stopCh)
				return
			case <-ticker.C:
				if err := s.RunOnce(ctx); err != nil {
					s.logger.Warn("trends sync cycle failed", "error", err)
				}
			}
		}
	}()
}

// StopWait blocks until the sync loop has exited, up to timeout. It returns
// immediately when Start was never called.
func (s *Syncer) StopWait(timeout time.Duration) {
	if !s.started {
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-s.stopCh:
	case <-time.After(timeout):
	}
}

// RunOnce performs one full sync: mine mentions from every feed, keep the
// most mentioned titles, resolve each against the catalog and upsert the
// hits. Per-feed and per-title failures are logged and skipped.
func (s *Syncer) RunOnce(ctx context.Context) error {
	mentions := map[string]*mentionTally{}

	for _, subreddit := range s.subreddits {
		posts, err := s.fetchTopPosts(ctx, subreddit)
		if err != nil {
			s.logger.Warn("trend feed fetch failed", "subreddit", subreddit, "error", err)
			continue
		}
		for _, post := range posts {
			for _, title := range ExtractTitles(post.Title + " " + post.SelfText) {
				key := normalizeKey(title)
				tally, ok := mentions[key]
				if !ok {
					tally = &mentionTally{display: title}
					mentions[key] = tally
				}
				tally.count++
				tally.score += post.Score
			}
		}
	}

	synced := 0
	for _, tally := range topMentions(mentions, maxTrending) {
		results, err := s.resolver.Search(ctx, tally.display, 1)
		if err != nil {
			s.logger.Warn("trend title lookup failed", "title", tally.display, "error", err)
			continue
		}
		if len(results) == 0 {
			continue
		}

		manga := results[0]
		err = s.store.UpsertTrend(models.TrendingManga{
			SourceKey:     manga.SourceKey,
			SourceMangaID: manga.ID,
			Title:         manga.Title,
			MentionCount:  tally.count,
			AverageScore:  tally.score / float64(tally.count),
			MentionSource: mentionSource,
		})
		if err != nil {
			return fmt.Errorf("store trend %q: %w", manga.Title, err)
		}
		synced++
	}

	s.logger.Info("trends sync finished", "mined", len(mentions), "synced", synced)
	return nil
}

func (s *Syncer) fetchTopPosts(ctx context.Context, subreddit string) ([]redditPost, error) {
	endpoint := fmt.Sprintf("%s/r/%s/top.json?t=week&limit=%d", s.baseURL, url.PathEscape(subreddit), postsPerFeed)

	var listing redditListing
	opts := fetch.Options{Headers: map[string]string{"User-Agent": userAgent}}
	if err := s.fetcher.GetJSON(ctx, endpoint, opts, &listing); err != nil {
		return nil, err
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func normalizeKey(title string) string {
	return strings.ToLower(title)
}

// topMentions orders tallies by mention count, ties alphabetically for a
// stable sync order, and caps the list.
func topMentions(mentions map[string]*mentionTally, limit int) []*mentionTally {
	tallies := make([]*mentionTally, 0, len(mentions))
	for _, tally := range mentions {
		tallies = append(tallies, tally)
	}
	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].count != tallies[j].count {
			return tallies[i].count > tallies[j].count
		}
		return tallies[i].display < tallies[j].display
	})
	if len(tallies) > limit {
		tallies = tallies[:limit]
	}
	return tallies
}
