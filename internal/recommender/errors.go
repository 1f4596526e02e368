package recommender

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownItem   = errors.New("item not present in the content index")
	ErrUnknownUser   = errors.New("user not present in the factor model")
	ErrInvalidTarget = errors.New("target item has an empty normalized title")
	ErrNoCandidates  = errors.New("no candidate passed the similarity threshold")
	ErrEmptyCatalog  = errors.New("catalog is empty, nothing to sample")
)

// ComputeError wraps a numeric or unexpected failure inside one stage.
type ComputeError struct {
	Stage string
	Cause error
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Cause)
}

func (e *ComputeError) Unwrap() error {
	return e.Cause
}

// failureReason maps a stage error to a short metric label.
func failureReason(err error) string {
	var computeErr *ComputeError
	switch {
	case errors.Is(err, ErrUnknownItem):
		return "unknown_item"
	case errors.Is(err, ErrUnknownUser):
		return "unknown_user"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	case errors.Is(err, ErrEmptyCatalog):
		return "empty_catalog"
	case errors.As(err, &computeErr):
		return "compute_error"
	default:
		return "other"
	}
}
