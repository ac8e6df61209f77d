package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks provider errors that no amount of retrying will fix:
// authentication, billing, and quota failures. Batch callers abort the whole
// run instead of burning through every remaining item.
var ErrFatalAPI = errors.New("fatal API error")

var fatalErrorPatterns = []string{
	"credit balance",
	"rate limit",
	"quota exceeded",
	"billing",
	"invalid api key",
	"authentication failed",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether an error message matches a known
// non-retryable provider failure.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range fatalErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// wrapFatalError wraps fatal provider errors with ErrFatalAPI and passes
// everything else through unchanged.
func wrapFatalError(err error) error {
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
