package searchutil

import (
	"reflect"
	"testing"
)

func TestScoreSelfMatchIsOne(t *testing.T) {
	for _, query := range []string{"solo", "solo leveling", "one punch man"} {
		if got := Score(query, query); got != 1.0 {
			t.Fatalf("Score(%q, %q) = %v, want 1.0", query, query, got)
		}
	}
}

func TestScoreContainmentRatioNotExactMatch(t *testing.T) {
	// Two of two query tokens appear in the longer title, extra words do
	// not reduce the score.
	if got := Score("Solo Leveling", "Solo Leveling: Ragnarok"); got != 1.0 {
		t.Fatalf("expected 1.0 for superset title, got %v", got)
	}

	if got := Score("solo leveling", "Solo Cooking"); got != 0.5 {
		t.Fatalf("expected 0.5 for one of two tokens, got %v", got)
	}

	if got := Score("solo leveling", "Tower of God"); got != 0 {
		t.Fatalf("expected 0 for unrelated title, got %v", got)
	}
}

func TestScoreShortTokenQueryYieldsZero(t *testing.T) {
	if got := Score("a", "Akira"); got != 0 {
		t.Fatalf("expected 0 for query with only short tokens, got %v", got)
	}
	if got := Score("a b c", "ABC"); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestScoreSplitsOnNonWordRuns(t *testing.T) {
	if got := Score("jujutsu-kaisen", "Jujutsu Kaisen"); got != 1.0 {
		t.Fatalf("expected punctuation-insensitive match, got %v", got)
	}
}

func TestQueryTokensDropsShortTokens(t *testing.T) {
	got := QueryTokens("a tale of Two Cities")
	want := []string{"tale", "of", "two", "cities"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("QueryTokens = %v, want %v", got, want)
	}
}

func TestExtractQuotedTitles(t *testing.T) {
	text := `You might enjoy "Berserk" for its art, and "Vagabond" too. I'd also suggest "Berserk" again.`
	got := ExtractQuotedTitles(text)
	want := []string{"Berserk", "Vagabond"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractQuotedTitles = %v, want %v", got, want)
	}
}

func TestExtractQuotedTitlesCurlyQuotes(t *testing.T) {
	got := ExtractQuotedTitles("Try “Blame!” next.")
	want := []string{"Blame!"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractQuotedTitles = %v, want %v", got, want)
	}
}

func TestUniqueNonEmpty(t *testing.T) {
	got := UniqueNonEmpty([]string{" Berserk ", "berserk", "", "Vagabond"})
	want := []string{"Berserk", "Vagabond"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("UniqueNonEmpty = %v, want %v", got, want)
	}
}
