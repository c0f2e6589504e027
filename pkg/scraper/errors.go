package scraper

import "errors"

// RetrievalError is the single failure kind for scraping. Network errors,
// timeouts and malformed URLs are not distinguished.
type RetrievalError struct {
	URL string
	Err error
}

func newRetrievalError(url string, err error) *RetrievalError {
	return &RetrievalError{URL: url, Err: err}
}

func (e *RetrievalError) Error() string {
	return "Error scraping website: " + e.Err.Error()
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}

func IsRetrievalError(err error) bool {
	var re *RetrievalError
	return errors.As(err, &re)
}
