package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/noah-isme/gema-grading-api/internal/models"
)

// Reference is a document the submission is compared against.
type Reference struct {
	Label string
	Text  string
}

// ReferenceCorpus supplies the documents relevant to an assignment.
type ReferenceCorpus interface {
	References(ctx context.Context, assignmentID, excludeStudentID uint) ([]Reference, error)
}

// PlagiarismChecker estimates the originality of a text.
type PlagiarismChecker interface {
	Check(ctx context.Context, input ScoringInput) (*models.PlagiarismResult, error)
}

const (
	defaultShingleSize    = 5
	defaultMatchThreshold = 0.15
	defaultMaxMatches     = 5
)

// ShingleChecker compares word shingles against a reference corpus. It stands in
// for an external originality service.
type ShingleChecker struct {
	corpus     ReferenceCorpus
	size       int
	threshold  float64
	maxMatches int
}

// NewShingleChecker builds a checker over corpus. A nil corpus reports every text as original.
func NewShingleChecker(corpus ReferenceCorpus) *ShingleChecker {
	return &ShingleChecker{
		corpus:     corpus,
		size:       defaultShingleSize,
		threshold:  defaultMatchThreshold,
		maxMatches: defaultMaxMatches,
	}
}

// Check returns an originality score from 0 to 100 and the strongest matches.
func (c *ShingleChecker) Check(ctx context.Context, input ScoringInput) (*models.PlagiarismResult, error) {
	result := &models.PlagiarismResult{Score: 100, Matches: []models.PlagiarismMatch{}}

	words := tokenizeWords(input.Text)
	shingles := buildShingles(words, c.size)
	if len(shingles) == 0 || c.corpus == nil {
		return result, nil
	}

	references, err := c.corpus.References(ctx, input.AssignmentID, input.StudentID)
	if err != nil {
		return nil, fmt.Errorf("plagiarism: load references: %w", err)
	}

	covered := make([]bool, len(shingles))
	for _, ref := range references {
		refSet := make(map[string]struct{})
		for _, s := range buildShingles(tokenizeWords(ref.Text), c.size) {
			refSet[s] = struct{}{}
		}
		if len(refSet) == 0 {
			continue
		}

		shared := 0
		bestStart, bestLen, runStart, runLen := 0, 0, 0, 0
		for i, s := range shingles {
			if _, ok := refSet[s]; !ok {
				runLen = 0
				continue
			}
			covered[i] = true
			shared++
			if runLen == 0 {
				runStart = i
			}
			runLen++
			if runLen > bestLen {
				bestStart, bestLen = runStart, runLen
			}
		}

		similarity := float64(shared) / float64(len(shingles))
		if shared == 0 || similarity < c.threshold {
			continue
		}

		result.Matches = append(result.Matches, models.PlagiarismMatch{
			Text:       strings.Join(words[bestStart:bestStart+bestLen+c.size-1], " "),
			Source:     ref.Label,
			Similarity: roundTo(similarity, 2),
		})
	}

	coveredCount := 0
	for _, hit := range covered {
		if hit {
			coveredCount++
		}
	}
	result.Score = roundTo(100*(1-float64(coveredCount)/float64(len(shingles))), 1)

	sort.SliceStable(result.Matches, func(i, j int) bool {
		return result.Matches[i].Similarity > result.Matches[j].Similarity
	})
	if len(result.Matches) > c.maxMatches {
		result.Matches = result.Matches[:c.maxMatches]
	}

	return result, nil
}

func tokenizeWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func buildShingles(words []string, size int) []string {
	if len(words) < size {
		return nil
	}
	shingles := make([]string, 0, len(words)-size+1)
	for i := 0; i+size <= len(words); i++ {
		shingles = append(shingles, strings.Join(words[i:i+size], " "))
	}
	return shingles
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
