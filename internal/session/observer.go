package session

import "context"

// QRObserver receives QR sub-flow events. The UI collaborator renders the
// PNG payloads and may request renewal or cancellation through the manager.
type QRObserver interface {
	// QRFetched delivers a fresh QR PNG. The refresh counter is monotonic
	// within one login attempt; a non-zero value invalidates earlier images.
	QRFetched(ctx context.Context, png []byte, refresh int)
	QRScanned(ctx context.Context)
	QRFailed(ctx context.Context, err error)
	QRCancelled(ctx context.Context)
}

// UPPrompter resolves the challenges the password flow may raise. Each call
// runs under a per-challenge timeout; returning an error aborts the attempt.
type UPPrompter interface {
	// SMSCode requests the 6-digit verification code sent to the bound phone.
	SMSCode(ctx context.Context, phoneHint string) (string, error)
	// SelectCaptcha presents numbered images (1..9) and expects the ordered
	// subset the user picked.
	SelectCaptcha(ctx context.Context, images [][]byte) ([]int, error)
}
