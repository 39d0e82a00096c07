package searchutil

import (
	"regexp"
	"strings"
)

// Threshold is the acceptance score below which a scraped search candidate
// is treated as noise and dropped.
const Threshold = 0.2

var (
	wordSplitPattern   = regexp.MustCompile(`\W+`)
	quotedTitlePattern = regexp.MustCompile(`"([^"]+)"|\x{201c}([^\x{201d}]+)\x{201d}`)
)

// Tokenize lowercases a value and splits it on runs of non-word characters.
func Tokenize(value string) []string {
	parts := wordSplitPattern.Split(strings.ToLower(value), -1)
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		tokens = append(tokens, part)
	}
	return tokens
}

// QueryTokens tokenizes a query and drops tokens of length one or less,
// which carry no signal in title matching.
func QueryTokens(query string) []string {
	tokens := Tokenize(query)
	filtered := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len(token) <= 1 {
			continue
		}
		filtered = append(filtered, token)
	}
	return filtered
}

// Score is the containment ratio between a free-text query and a candidate
// title: the share of usable query tokens present verbatim among the title's
// tokens. A query with no usable tokens scores 0. Deliberately a cheap,
// explainable measure rather than fuzzy matching.
func Score(query string, title string) float64 {
	queryTokens := QueryTokens(query)
	if len(queryTokens) == 0 {
		return 0
	}

	titleTokens := Tokenize(title)
	titleSet := make(map[string]struct{}, len(titleTokens))
	for _, token := range titleTokens {
		titleSet[token] = struct{}{}
	}

	matches := 0
	for _, token := range queryTokens {
		if _, ok := titleSet[token]; ok {
			matches++
		}
	}

	return float64(matches) / float64(len(queryTokens))
}

// ExtractQuotedTitles pulls double-quoted strings out of free text, the way
// recommended titles are lifted from a text-generation response so they can
// be fed back into search.
func ExtractQuotedTitles(text string) []string {
	matches := quotedTitlePattern.FindAllStringSubmatch(text, -1)
	titles := make([]string, 0, len(matches))
	for _, match := range matches {
		candidate := strings.TrimSpace(match[1])
		if candidate == "" {
			candidate = strings.TrimSpace(match[2])
		}
		if candidate == "" {
			continue
		}
		titles = append(titles, candidate)
	}
	return UniqueNonEmpty(titles)
}

// UniqueNonEmpty trims, de-duplicates (case-insensitively) and drops empty
// values while preserving first-seen order.
func UniqueNonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	unique := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, trimmed)
	}

	return unique
}
