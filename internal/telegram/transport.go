package telegram

import (
	"context"
	"time"
)

// Button is one inline keyboard button. Data is an opaque callback payload
// capped at 64 bytes by the platform.
type Button struct {
	Text string
	Data string
}

// InputKind selects the platform send primitive for a piece of media.
type InputKind int

const (
	InputPhoto InputKind = iota
	InputAnimation
	InputVideo
	InputDocument
)

// Input is one media payload. URL-form inputs let the platform fetch the
// content itself; Bytes-form inputs upload from this process and are the
// fallback when the platform cannot reach the URL.
type Input struct {
	Kind     InputKind
	URL      string
	Bytes    []byte
	Filename string
}

// ByURL reports whether the platform is expected to fetch the content.
func (in Input) ByURL() bool { return len(in.Bytes) == 0 }

// SendOptions carry the per-call knobs shared by all send primitives.
type SendOptions struct {
	ReplyTo    int64
	Buttons    []Button
	ForceReply bool
	// Timeout overrides the transport default, used for large uploads and
	// the doubled-budget retry.
	Timeout time.Duration
}

// Transport is the messaging-platform surface the pipeline drives. The
// concrete bot implementation lives outside the core; tests substitute fakes.
type Transport interface {
	SendMessage(ctx context.Context, chat int64, html string, opts SendOptions) (int64, error)
	SendPhoto(ctx context.Context, chat int64, in Input, caption string, opts SendOptions) (int64, error)
	SendAnimation(ctx context.Context, chat int64, in Input, caption string, opts SendOptions) (int64, error)
	SendVideo(ctx context.Context, chat int64, in Input, caption string, opts SendOptions) (int64, error)
	SendDocument(ctx context.Context, chat int64, in Input, caption string, opts SendOptions) (int64, error)
	// SendMediaGroup delivers 2..10 inputs as one album with a single caption
	// and returns one message id per input.
	SendMediaGroup(ctx context.Context, chat int64, inputs []Input, caption string, opts SendOptions) ([]int64, error)
	EditMessageMedia(ctx context.Context, chat int64, mid int64, in Input) error
	DeleteMessage(ctx context.Context, chat int64, mid int64) error
	// EditButtons swaps the inline keyboard of a sent message.
	EditButtons(ctx context.Context, chat int64, mid int64, buttons []Button) error
}
