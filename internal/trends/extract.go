package trends

import (
	"regexp"
	"strings"
)

// Community posts bury series names in prose. Three shapes are worth
// mining: quoted titles, bracketed titles, and runs of Title Case words.
var titlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`"([^"]{3,50})"`),
	regexp.MustCompile(`'([^']{3,50})'`),
	regexp.MustCompile(`\[([^\]]{3,50})\]`),
	regexp.MustCompile(`(?:^|\s)([A-Z][a-z]+(?:\s[A-Z][a-z]+){1,4})(?:\s|$|[.,!?])`),
}

var hasLetter = regexp.MustCompile(`[a-zA-Z]`)

// Phrases that match the title shapes but are discussion noise, not series
// names.
var titleBlacklist = []string{
	"reddit", "manga", "anime", "chapter", "volume", "disc",
	"the best", "my favorite", "anyone know", "can someone",
	"i read", "i watched", "looking for", "similar to",
	"recommendation", "suggest", "help me", "question",
}

// ExtractTitles mines candidate series titles from free-form post text,
// deduplicated case-insensitively with the first-seen casing kept.
func ExtractTitles(text string) []string {
	seen := map[string]bool{}
	titles := []string{}

	for _, pattern := range titlePatterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			title := strings.TrimSpace(match[1])
			if !includeTitle(title) {
				continue
			}
			key := strings.ToLower(title)
			if seen[key] {
				continue
			}
			seen[key] = true
			titles = append(titles, title)
		}
	}

	return titles
}

func includeTitle(title string) bool {
	if len(title) < 3 || len(title) > 50 {
		return false
	}

	lower := strings.ToLower(title)
	for _, phrase := range titleBlacklist {
		if strings.Contains(lower, phrase) {
			return false
		}
	}

	if !hasLetter.MatchString(title) {
		return false
	}
	// All caps beyond acronym length reads as emphasis, not a title.
	if title == strings.ToUpper(title) && len(title) > 4 {
		return false
	}

	return true
}
