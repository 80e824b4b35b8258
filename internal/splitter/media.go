package splitter

import (
	"context"
	"net/http"
	"net/url"
	"path"
	"strings"

	"qzsync/internal/feed"
	"qzsync/internal/telegram"
)

const (
	// Media above this byte size must go as a document upload.
	maxDirectBytes = 50 << 20
	// Photos whose width+height exceed this are rejected by the photo
	// endpoint and go as documents instead.
	maxPixelSum = 10000
)

// Prober inspects the actual byte size behind a media URL. A nil prober
// classifies from metadata only.
type Prober interface {
	Probe(ctx context.Context, rawURL string) (int64, error)
}

// HeadProber probes with a HEAD request.
type HeadProber struct {
	Client *http.Client
}

func (p *HeadProber) Probe(ctx context.Context, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, err
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.ContentLength, nil
}

// classified is one media with its guessed platform kind and an optional
// caption note (the link-to-original hint for unsupported containers).
type classified struct {
	input telegram.Input
	note  string
}

func (c classified) isDoc() bool { return c.input.Kind == telegram.InputDocument }

// classify guesses the platform kind for one media item. size is the probed
// byte size, or zero when unknown.
func classify(m feed.VisualMedia, size int64) classified {
	rawURL := m.RawURL
	if rawURL == "" {
		rawURL = m.ThumbURL
	}
	in := telegram.Input{URL: rawURL, Filename: filenameOf(rawURL)}

	switch {
	case m.IsVideo && extOf(rawURL) == ".mp4":
		in.Kind = telegram.InputVideo
	case m.IsVideo:
		// Container the platform cannot transcode; ship the file and point
		// the reader at the original.
		in.Kind = telegram.InputDocument
		return classified{input: in, note: linkNote(rawURL)}
	case extOf(rawURL) == ".gif":
		in.Kind = telegram.InputAnimation
	case m.Width+m.Height > maxPixelSum:
		in.Kind = telegram.InputDocument
	default:
		in.Kind = telegram.InputPhoto
	}

	if size > maxDirectBytes && in.Kind != telegram.InputDocument {
		in.Kind = telegram.InputDocument
	}
	return classified{input: in}
}

func extOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(path.Ext(u.Path))
}

func filenameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Base(u.Path)
}

func linkNote(rawURL string) string {
	return "\n<a href=\"" + rawURL + "\">original file</a>"
}
