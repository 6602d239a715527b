package analysis

import (
	"context"
	"sync"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/pkg/ai"
)

type fakeCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []ai.CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.reply, f.err
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type stubCorpus struct {
	refs []Reference
	err  error
}

func (s stubCorpus) References(context.Context, uint, uint) ([]Reference, error) {
	return s.refs, s.err
}

type stubAuthorship struct {
	result *models.AICheckResult
	err    error
	calls  int
}

func (s *stubAuthorship) Check(context.Context, string) (*models.AICheckResult, error) {
	s.calls++
	return s.result, s.err
}

type panickingAuthorship struct{}

func (panickingAuthorship) Check(context.Context, string) (*models.AICheckResult, error) {
	panic("authorship client exploded")
}

type stubPlagiarism struct {
	result *models.PlagiarismResult
	err    error
	calls  int
}

func (s *stubPlagiarism) Check(context.Context, ScoringInput) (*models.PlagiarismResult, error) {
	s.calls++
	return s.result, s.err
}
