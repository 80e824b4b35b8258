package telegram

import (
	"errors"
	"strings"
	"time"
)

// TimedOut reports a platform call that exceeded its budget. The send queue
// retries these once with a doubled budget.
type TimedOut struct {
	Op     string
	Budget time.Duration
}

func (e *TimedOut) Error() string {
	return "telegram: " + e.Op + " timed out after " + e.Budget.String()
}

// BadRequest is a 400-class platform rejection.
type BadRequest struct {
	Op          string
	Description string
}

func (e *BadRequest) Error() string {
	return "telegram: " + e.Op + ": " + e.Description
}

// URLContentFailed reports the platform failing to fetch URL-form media.
// This specific rejection triggers the raw-bytes re-upload fallback.
func (e *BadRequest) URLContentFailed() bool {
	return strings.Contains(strings.ToLower(e.Description), "failed to get http url content")
}

// QuotaExceeded is the platform rate-limit rejection. RetryAfter is the
// server-suggested wait, zero when not supplied.
type QuotaExceeded struct {
	Op         string
	RetryAfter time.Duration
}

func (e *QuotaExceeded) Error() string {
	return "telegram: " + e.Op + ": rate limited"
}

// IsTimedOut reports whether err is a platform timeout.
func IsTimedOut(err error) bool {
	var t *TimedOut
	return errors.As(err, &t)
}

// NeedsURLFallback reports whether err is the URL-fetch rejection that the
// raw-bytes fallback path handles.
func NeedsURLFallback(err error) bool {
	var b *BadRequest
	return errors.As(err, &b) && b.URLContentFailed()
}

// IsQuota reports whether err is a rate-limit rejection.
func IsQuota(err error) bool {
	var q *QuotaExceeded
	return errors.As(err, &q)
}
