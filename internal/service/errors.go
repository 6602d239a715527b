package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates the request was malformed.
	ErrValidation = errors.New("validation failed")
	// ErrAssignmentNotFound indicates the referenced assignment does not exist.
	ErrAssignmentNotFound = fmt.Errorf("%w: assignment not found", ErrValidation)
	// ErrStorage indicates the object storage provider failed.
	ErrStorage = errors.New("storage provider failure")
	// ErrSubmissionRejected indicates the relevance gate classified the work as off topic.
	ErrSubmissionRejected = errors.New("submission rejected")
	// ErrSubmissionFailed indicates a pipeline step failed after the file was uploaded.
	ErrSubmissionFailed = errors.New("submission failed")
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrScoreExceedsMax indicates a grading score surpasses the allowed max.
	ErrScoreExceedsMax = errors.New("score exceeds assignment max")
	// ErrFeedbackUnavailable indicates no text generation provider can serve feedback.
	ErrFeedbackUnavailable = errors.New("feedback generation unavailable")
	// ErrNoSubmissionText indicates no text could be obtained for a submission.
	ErrNoSubmissionText = errors.New("submission has no analyzable text")
)

// RejectionMessage is shown to students whose work was classified as off topic.
const RejectionMessage = "Your submission does not appear to address this assignment. Please check that you uploaded the right file and try again."
