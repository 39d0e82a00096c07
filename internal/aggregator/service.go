package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/wibucomic/backend/internal/searchutil"
	"github.com/wibucomic/backend/internal/sources"
)

// Service fans catalog operations out across every registered connector and
// merges the answers. One connector failing never fails the operation; it
// contributes zero results and a log line.
type Service struct {
	registry *sources.Registry
	logger   *slog.Logger
}

func NewService(registry *sources.Registry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{registry: registry, logger: logger}
}

// ChaptersRequest identifies the manga whose chapter list should be
// aggregated. Title and Aliases drive the best-effort match against scraped
// sources; SourceKey/MangaID name where the manga was originally found.
type ChaptersRequest struct {
	SourceKey string
	MangaID   string
	Title     string
	Aliases   []string
}

// Search queries every connector concurrently and concatenates whatever
// succeeded. Entries for the same logical title from different sources stay
// distinct: there is no cross-source identifier to merge on.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]sources.Manga, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if limit <= 0 {
		limit = 10
	}

	return s.fanOut(ctx, "search", func(ctx context.Context, connector sources.Connector) ([]sources.Manga, error) {
		return connector.Search(ctx, query, limit)
	}), nil
}

// Popular concatenates every connector's popular listing, same failure
// policy as Search.
func (s *Service) Popular(ctx context.Context, limit int) []sources.Manga {
	if limit <= 0 {
		limit = 10
	}

	return s.fanOut(ctx, "popular", func(ctx context.Context, connector sources.Connector) ([]sources.Manga, error) {
		return connector.GetPopular(ctx, limit)
	})
}

// Manga resolves a single manga through its origin connector.
func (s *Service) Manga(ctx context.Context, sourceKey string, id string) (*sources.Manga, error) {
	connector, err := s.connector(sourceKey)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("manga id is required")
	}
	return connector.GetManga(ctx, id)
}

// Pages resolves a chapter's page list through its origin connector.
func (s *Service) Pages(ctx context.Context, sourceKey string, chapterID string) ([]sources.Page, error) {
	connector, err := s.connector(sourceKey)
	if err != nil {
		return nil, err
	}
	if chapterID == "" {
		return nil, fmt.Errorf("chapter id is required")
	}
	return connector.GetPages(ctx, chapterID)
}

// Chapters merges the origin source's chapter feed with a best-effort match
// from one scraped source. The merged list is sorted ascending by parsed
// chapter number; on equal numbers the origin feed's entry sorts first, so
// readers land on the canonical variant and the scraped one appears as an
// alternate scanlation.
func (s *Service) Chapters(ctx context.Context, req ChaptersRequest) ([]sources.Chapter, error) {
	origin, err := s.connector(req.SourceKey)
	if err != nil {
		return nil, err
	}
	if req.MangaID == "" {
		return nil, fmt.Errorf("manga id is required")
	}

	merged := make([]sources.Chapter, 0)

	originChapters, err := origin.GetChapters(ctx, req.MangaID)
	if err != nil {
		s.logger.Warn("origin chapter feed failed",
			"source", req.SourceKey, "manga_id", req.MangaID, "error", err)
	} else {
		merged = append(merged, s.labelled(origin, originChapters)...)
	}

	if scraped := s.matchScrapedChapters(ctx, origin, req); len(scraped) > 0 {
		merged = append(merged, scraped...)
	}

	// Origin entries were appended first; the stable sort keeps them ahead
	// of scraped entries carrying the same number.
	sort.SliceStable(merged, func(i, j int) bool {
		return sources.ParseNumber(merged[i].Number) < sources.ParseNumber(merged[j].Number)
	})

	return merged, nil
}

// matchScrapedChapters tries each title alias in order against the scraped
// sources and takes the first alias that matches anywhere. Later aliases
// might match better; stopping at the first hit is the accepted heuristic,
// trading match quality for scrape volume.
func (s *Service) matchScrapedChapters(ctx context.Context, origin sources.Connector, req ChaptersRequest) []sources.Chapter {
	aliases := searchutil.UniqueNonEmpty(append([]string{req.Title}, req.Aliases...))
	if len(aliases) == 0 {
		return nil
	}

	connectors := make([]sources.Connector, 0)
	for _, connector := range s.registry.Scraped() {
		if connector.Source().Key == origin.Source().Key {
			continue
		}
		connectors = append(connectors, connector)
	}

	for _, alias := range aliases {
		for _, connector := range connectors {
			key := connector.Source().Key

			matches, err := connector.Search(ctx, alias, 5)
			if err != nil {
				s.logger.Warn("scraped source search failed",
					"source", key, "alias", alias, "error", err)
				continue
			}
			if len(matches) == 0 {
				continue
			}

			chapters, err := connector.GetChapters(ctx, matches[0].ID)
			if err != nil {
				s.logger.Warn("scraped source chapters failed",
					"source", key, "manga_id", matches[0].ID, "error", err)
				continue
			}

			s.logger.Debug("matched scraped source",
				"source", key, "alias", alias, "title", matches[0].Title, "chapters", len(chapters))
			return s.labelled(connector, chapters)
		}
	}

	return nil
}

// fanOut runs op against every connector concurrently and concatenates the
// successful results in source key order.
func (s *Service) fanOut(ctx context.Context, op string, invoke func(context.Context, sources.Connector) ([]sources.Manga, error)) []sources.Manga {
	connectors := s.registry.All()
	perSource := make([][]sources.Manga, len(connectors))

	var wg sync.WaitGroup
	for i, connector := range connectors {
		wg.Add(1)
		go func(i int, connector sources.Connector) {
			defer wg.Done()

			results, err := invoke(ctx, connector)
			if err != nil {
				s.logger.Warn("connector failed during fan-out",
					"op", op, "source", connector.Source().Key, "error", err)
				return
			}
			perSource[i] = results
		}(i, connector)
	}
	wg.Wait()

	merged := make([]sources.Manga, 0)
	for _, results := range perSource {
		merged = append(merged, results...)
	}
	return merged
}

// labelled fills the scanlator provenance label on chapters that carry none,
// so every merged entry names where it came from.
func (s *Service) labelled(connector sources.Connector, chapters []sources.Chapter) []sources.Chapter {
	name := connector.Source().Name
	for i := range chapters {
		if chapters[i].Scanlator == "" {
			chapters[i].Scanlator = name
		}
	}
	return chapters
}

func (s *Service) connector(sourceKey string) (sources.Connector, error) {
	if sourceKey == "" {
		return nil, fmt.Errorf("source key is required")
	}
	connector, ok := s.registry.Get(sourceKey)
	if !ok {
		return nil, fmt.Errorf("unknown source %q", sourceKey)
	}
	return connector, nil
}
