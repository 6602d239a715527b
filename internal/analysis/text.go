package analysis

import "unicode/utf8"

const (
	// MinRelevanceLength is the shortest text the relevance gate will classify.
	MinRelevanceLength = 20
	// MinScoringLength is the shortest text the scoring checks will look at.
	MinScoringLength = 50

	relevanceSnippetLength = 500
	aiCheckSnippetLength   = 4000
)

// CharCount counts characters (code points) rather than bytes.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

func truncateChars(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
