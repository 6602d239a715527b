package service

import (
	"context"
	"fmt"

	"github.com/noah-isme/gema-grading-api/internal/analysis"
	"github.com/noah-isme/gema-grading-api/internal/repository"
)

const referenceCorpusLimit = 200

type submissionCorpus struct {
	submissions repository.SubmissionRepository
	limit       int
}

// NewSubmissionCorpus exposes other students' inline submissions of an assignment as plagiarism references.
func NewSubmissionCorpus(submissions repository.SubmissionRepository) analysis.ReferenceCorpus {
	return &submissionCorpus{submissions: submissions, limit: referenceCorpusLimit}
}

func (c *submissionCorpus) References(ctx context.Context, assignmentID, excludeStudentID uint) ([]analysis.Reference, error) {
	items, err := c.submissions.ListInlineContent(ctx, assignmentID, excludeStudentID, c.limit)
	if err != nil {
		return nil, err
	}

	references := make([]analysis.Reference, 0, len(items))
	for _, item := range items {
		references = append(references, analysis.Reference{
			Label: fmt.Sprintf("submission #%d", item.ID),
			Text:  item.Content,
		})
	}
	return references, nil
}
