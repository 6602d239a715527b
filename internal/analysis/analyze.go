package analysis

import "github.com/noah-isme/gema-grading-api/internal/models"

// AnalysisResult is the typed form of a feedback response for one submission text.
type AnalysisResult struct {
	OverallFeedback models.OverallFeedback
	InlineComments  []LocatedComment
}

// Analyze parses response and anchors its inline comments in text.
func Analyze(text, response string) AnalysisResult {
	block := ParseFeedback(response)
	return AnalysisResult{
		OverallFeedback: models.OverallFeedback{
			Strengths:    block.Strengths,
			Improvements: block.Improvements,
			ActionItems:  block.ActionItems,
		},
		InlineComments: LocateComments(block.Comments, text),
	}
}
