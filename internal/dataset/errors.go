package dataset

import (
	"errors"
	"fmt"
)

var (
	ErrDataLoad  = errors.New("data load failed")
	ErrDataParse = errors.New("data parse failed")
)

// DataLoadError reports a missing source or a source whose columns do not
// satisfy the dataset's contract.
type DataLoadError struct {
	Dataset string
	Source  string
	Err     error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("failed to load %s from %s: %v", e.Dataset, e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

func (e *DataLoadError) Is(target error) bool { return target == ErrDataLoad }

// DataParseError reports a nested-structure cell that could not be parsed.
// Row is zero-based over data records.
type DataParseError struct {
	Dataset string
	Source  string
	Row     int
	Column  string
	Text    string
	Err     error
}

func (e *DataParseError) Error() string {
	return fmt.Sprintf("failed to parse %s row %d column %q of %s: %v (text %q)",
		e.Dataset, e.Row, e.Column, e.Source, e.Err, e.Text)
}

func (e *DataParseError) Unwrap() error { return e.Err }

func (e *DataParseError) Is(target error) bool { return target == ErrDataParse }

// classify attaches dataset and source to err, typing it as a load error
// unless it already is a parse error.
func classify(dataset, source string, err error) error {
	var parseErr *DataParseError
	if errors.As(err, &parseErr) {
		parseErr.Dataset = dataset
		parseErr.Source = source
		return parseErr
	}
	var loadErr *DataLoadError
	if errors.As(err, &loadErr) {
		return loadErr
	}
	return &DataLoadError{Dataset: dataset, Source: source, Err: err}
}
