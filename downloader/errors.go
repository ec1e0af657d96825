package downloader

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery       = errors.New("search term must not be empty")
	ErrCountOutOfRange  = errors.New("Number of images must be between 1 and 50.")
	ErrNoResults        = errors.New("No images found for the query.")
	ErrNothingProcessed = errors.New("No images were processed successfully.")
	ErrNothingSelected  = errors.New("Please select at least one image to process.")
	ErrDisallowed       = errors.New("blocked by robots.txt")
	ErrBodyTooLarge     = errors.New("response body exceeds size limit")
	ErrNotAnImage       = errors.New("response is not an image")
)

// StatusError is returned for a non-200 response that was not recognised as a block page
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.StatusCode, e.URL)
}

// Retryable reports whether the status is worth another attempt
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 408
}

// ItemError records why a single image could not be processed
type ItemError struct {
	Index int
	URL   string
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("image %d (%s): %v", e.Index, e.URL, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
