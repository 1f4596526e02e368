package catalog

import (
	"errors"
	"fmt"
)

// ErrNoItems is wrapped by DatasetError when a snapshot has no usable rows.
var ErrNoItems = errors.New("snapshot contains no catalog items")

// DatasetError reports a snapshot that is missing or cannot be parsed.
// The engine cannot serve without a snapshot, so callers treat it as fatal.
type DatasetError struct {
	Source string
	Err    error
}

func (e *DatasetError) Error() string {
	return fmt.Sprintf("dataset %s: %v", e.Source, e.Err)
}

func (e *DatasetError) Unwrap() error {
	return e.Err
}

func newDatasetError(source string, err error) error {
	return &DatasetError{Source: source, Err: err}
}
