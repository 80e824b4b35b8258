package qzerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthExpired marks remote responses whose code means the login
	// cookie is no longer valid.
	ErrAuthExpired = errors.New("auth expired")
	// ErrBusy marks the remote "retry later" code.
	ErrBusy = errors.New("server busy")
	// ErrAlbumNotReady marks the album endpoint's own retry code; the album
	// queue re-enqueues these with backoff instead of retrying inline.
	ErrAlbumNotReady = errors.New("album not ready")
	// ErrTransient marks recoverable network failures (5xx, timeouts).
	ErrTransient = errors.New("transient failure")
	// ErrPermanent marks malformed responses and non-retryable 4xx.
	ErrPermanent = errors.New("permanent failure")
	// ErrQuotaExceeded marks platform rate-limit pushback.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrStorage marks database I/O failures.
	ErrStorage = errors.New("storage error")
	// ErrUserBreak marks a user-cancelled interactive login.
	ErrUserBreak = errors.New("user break")
	// ErrLoginFailed marks an exhausted login strategy.
	ErrLoginFailed = errors.New("login failed")
	// ErrSkipLogin is returned when a login attempt is suppressed by a
	// cooldown window.
	ErrSkipLogin = errors.New("login suppressed")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether a bounded local retry can make progress.
func Retryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrTransient) || errors.Is(err, ErrQuotaExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
