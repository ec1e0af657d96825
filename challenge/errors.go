package challenge

import (
	"errors"
	"fmt"
)

// ChallengeError is returned when a search engine answered with a block page
// instead of results. It is never retried.
type ChallengeError struct {
	URL        string
	StatusCode int
	Kind       Kind
	Indicators []string
	Info       *Info
}

func (e *ChallengeError) Error() string {
	return fmt.Sprintf("challenge_detected: kind=%s status=%d url=%s", e.Kind, e.StatusCode, e.URL)
}

// NewChallengeError builds the error for a detection result
func NewChallengeError(url string, info *Info) *ChallengeError {
	e := &ChallengeError{URL: url, Info: info, Kind: KindBlocked}
	if info != nil {
		e.StatusCode = info.StatusCode
		e.Kind = info.Kind
		e.Indicators = info.Indicators
	}
	return e
}

// IsChallenge checks if err is, or wraps, a ChallengeError
func IsChallenge(err error) (*ChallengeError, bool) {
	if err == nil {
		return nil, false
	}
	var chErr *ChallengeError
	if errors.As(err, &chErr) {
		return chErr, true
	}
	return nil, false
}
