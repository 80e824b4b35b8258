package feed

import (
	"fmt"
	"time"
)

// Identity uniquely identifies a feed within the remote service.
type Identity struct {
	Uin     int64
	Abstime int64
}

func (id Identity) String() string {
	return fmt.Sprintf("%d/%d", id.Uin, id.Abstime)
}

// EntityKind discriminates the parsed body entities of a feed.
type EntityKind int

const (
	EntityText EntityKind = iota
	EntityAt
	EntityEmoji
)

// Entity is one ordered element of a feed body: literal text, an at-mention,
// or an emoji tag to be resolved by a translator.
type Entity struct {
	Kind EntityKind
	Text string
	Uin  int64
	ID   string
}

// VisualMedia describes one photo or video attached to a feed.
type VisualMedia struct {
	RawURL   string
	ThumbURL string
	Width    int
	Height   int
	IsVideo  bool
}

// Forward is a sum type: at most one field is set. A feed may forward another
// feed, share a URL, or carry a plain description of the shared object.
type Forward struct {
	Feed *Feed
	URL  string
	Text string
}

// AlbumRef points at a photo album the enricher resolves to raw media URLs.
type AlbumRef struct {
	TopicID string
	PickKey string
}

// Feed is the unit of content mirrored into the chat. Identity is
// (Uin, Abstime); Fid is a secondary opaque server-side identifier.
type Feed struct {
	Uin      int64
	Abstime  int64
	Fid      string
	AppID    int
	TypeID   int
	Nickname string
	Unikey   string
	Curkey   string
	HTML     string
	Entities []Entity
	Media    []VisualMedia
	Forward  *Forward
	Album    *AlbumRef
}

// Identity returns the feed's unique key.
func (f *Feed) Identity() Identity {
	return Identity{Uin: f.Uin, Abstime: f.Abstime}
}

// Time returns the publication time.
func (f *Feed) Time() time.Time {
	return time.Unix(f.Abstime, 0)
}

// HasVisual reports whether any attached media remains to be delivered.
func (f *Feed) HasVisual() bool {
	return len(f.Media) > 0
}
