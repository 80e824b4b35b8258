package telegram

import "context"

// Nop returns a transport whose every call fails with a configuration
// rejection. It stands in when no bot binding is registered, so the pipeline
// records feeds as undeliverable instead of panicking.
func Nop() Transport { return nopTransport{} }

type nopTransport struct{}

func (nopTransport) err(op string) error {
	return &BadRequest{Op: op, Description: "transport not configured"}
}

func (t nopTransport) SendMessage(context.Context, int64, string, SendOptions) (int64, error) {
	return 0, t.err("send_message")
}

func (t nopTransport) SendPhoto(context.Context, int64, Input, string, SendOptions) (int64, error) {
	return 0, t.err("send_photo")
}

func (t nopTransport) SendAnimation(context.Context, int64, Input, string, SendOptions) (int64, error) {
	return 0, t.err("send_animation")
}

func (t nopTransport) SendVideo(context.Context, int64, Input, string, SendOptions) (int64, error) {
	return 0, t.err("send_video")
}

func (t nopTransport) SendDocument(context.Context, int64, Input, string, SendOptions) (int64, error) {
	return 0, t.err("send_document")
}

func (t nopTransport) SendMediaGroup(context.Context, int64, []Input, string, SendOptions) ([]int64, error) {
	return nil, t.err("send_media_group")
}

func (t nopTransport) EditMessageMedia(context.Context, int64, int64, Input) error {
	return t.err("edit_message_media")
}

func (t nopTransport) DeleteMessage(context.Context, int64, int64) error {
	return t.err("delete_message")
}

func (t nopTransport) EditButtons(context.Context, int64, int64, []Button) error {
	return t.err("edit_buttons")
}
