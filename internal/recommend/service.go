package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/wibucomic/backend/internal/models"
	"github.com/wibucomic/backend/internal/searchutil"
)

const historyWindow = 5

// bookmarkLister is the slice of the bookmark repository the service needs
// for user context.
type bookmarkLister interface {
	ListByUser(userID string) ([]models.Bookmark, error)
}

// Service turns a user's prompt plus their bookmark history into manga
// recommendations. The titles the model names in quotes come back
// separately so callers can feed them straight into search.
type Service struct {
	client    *Client
	bookmarks bookmarkLister
	logger    *slog.Logger
}

func NewService(client *Client, bookmarks bookmarkLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, bookmarks: bookmarks, logger: logger}
}

type Result struct {
	Text   string   `json:"recommendations"`
	Titles []string `json:"titles"`
}

func (s *Service) Enabled() bool {
	return s.client.Enabled()
}

func (s *Service) Recommend(ctx context.Context, userID string, prompt string, history []Message) (*Result, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	text, err := s.client.Complete(ctx, s.systemPrompt(userID), history, prompt)
	if err != nil {
		return nil, err
	}

	return &Result{
		Text:   text,
		Titles: searchutil.ExtractQuotedTitles(text),
	}, nil
}

// systemPrompt folds the user's bookmarks into the instruction block. A
// user without history still gets a usable generic prompt.
func (s *Service) systemPrompt(userID string) string {
	genres := []string{"Action", "Adventure"}
	recent := make([]string, 0, historyWindow)
	total := 0

	if userID != "" {
		bookmarks, err := s.bookmarks.ListByUser(userID)
		if err != nil {
			s.logger.Warn("bookmark context unavailable", "user_id", userID, "error", err)
		} else if len(bookmarks) > 0 {
			total = len(bookmarks)
			if top := topGenres(bookmarks, 3); len(top) > 0 {
				genres = top
			}
			for _, bookmark := range bookmarks {
				if bookmark.Comic == nil {
					continue
				}
				recent = append(recent, fmt.Sprintf("%q", bookmark.Comic.Title))
				if len(recent) == historyWindow {
					break
				}
			}
		}
	}

	recentLine := "None yet"
	if len(recent) > 0 {
		recentLine = strings.Join(recent, ", ")
	}

	return fmt.Sprintf(`You are an expert manga recommendation assistant.

USER PROFILE:
- Favorite Genres: %s
- Bookmarked Titles: %s
- Total Bookmarks: %d

INSTRUCTIONS:
1. Provide 3-5 personalized manga recommendations.
2. For each recommendation, put the title in double quotes: "Title Here",
   followed by a 2-3 sentence description, why it matches their
   preferences, and genre tags.
3. Be conversational and keep the whole response under 500 words.`,
		strings.Join(genres, ", "), recentLine, total)
}

// topGenres tallies genres across bookmarks and returns the most frequent,
// ties broken alphabetically.
func topGenres(bookmarks []models.Bookmark, limit int) []string {
	counts := map[string]int{}
	for _, bookmark := range bookmarks {
		if bookmark.Comic == nil {
			continue
		}
		for _, genre := range bookmark.Comic.Genres {
			counts[genre]++
		}
	}

	genres := make([]string, 0, len(counts))
	for genre := range counts {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})

	if len(genres) > limit {
		genres = genres[:limit]
	}
	return genres
}
