package analysis

import (
	"strings"
	"unicode/utf8"
)

// LocatedComment is a comment anchored to a character range of the submission text.
type LocatedComment struct {
	Start int
	End   int
	Text  string
}

// LocateComments anchors each pair at the first occurrence of its quote at or
// after the previous match. Pairs whose quote cannot be found are dropped.
// Offsets count characters, not bytes, and never decrease across the result.
func LocateComments(comments []RawComment, text string) []LocatedComment {
	located := make([]LocatedComment, 0, len(comments))
	byteCursor, charCursor := 0, 0

	for _, comment := range comments {
		if comment.Quote == "" {
			continue
		}

		idx := strings.Index(text[byteCursor:], comment.Quote)
		if idx < 0 {
			continue
		}

		start := charCursor + utf8.RuneCountInString(text[byteCursor:byteCursor+idx])
		end := start + utf8.RuneCountInString(comment.Quote)
		located = append(located, LocatedComment{Start: start, End: end, Text: comment.Comment})

		byteCursor += idx + len(comment.Quote)
		charCursor = end
	}

	return located
}
