package qzerr

import "fmt"

// Remote status codes observed on the Qzone CGI endpoints. The expired family
// shares the same recovery path: drop the cached cookie and log in again.
const (
	CodeOK           = 0
	CodeExpired      = -3000
	CodeExpiredAlt   = -4002
	CodeNotLoggedIn  = -10000
	CodeBusy         = -10001
	CodeAlbumRetry   = -10805
	CodeInvalidParam = -10002
)

var expiredCodes = map[int]struct{}{
	CodeExpired:     {},
	CodeExpiredAlt:  {},
	CodeNotLoggedIn: {},
}

// FromCode maps a remote response code to the local error taxonomy. A zero
// code returns nil.
func FromCode(code int, message string) error {
	if code == CodeOK {
		return nil
	}
	if _, ok := expiredCodes[code]; ok {
		return Wrap(ErrAuthExpired, "qzone", "response", fmt.Sprintf("code %d: %s", code, message), nil)
	}
	switch code {
	case CodeBusy:
		return Wrap(ErrBusy, "qzone", "response", fmt.Sprintf("code %d: %s", code, message), nil)
	case CodeAlbumRetry:
		return Wrap(ErrAlbumNotReady, "qzone", "response", fmt.Sprintf("code %d: %s", code, message), nil)
	default:
		return Wrap(ErrPermanent, "qzone", "response", fmt.Sprintf("code %d: %s", code, message), nil)
	}
}
