package splitter

import (
	"context"
	"strings"
	"testing"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
)

func testFeed(text string, media ...feed.VisualMedia) *feed.Feed {
	return &feed.Feed{
		Uin:      10000,
		Abstime:  time.Now().Unix(),
		Nickname: "tester",
		Entities: []feed.Entity{{Kind: feed.EntityText, Text: text}},
		Media:    media,
	}
}

func photo(url string) feed.VisualMedia {
	return feed.VisualMedia{RawURL: url, Width: 800, Height: 600}
}

func split(t *testing.T, f *feed.Feed) []Atom {
	t.Helper()
	s := New(logging.NewNop())
	pair, err := s.Split(context.Background(), f)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	return pair.Own
}

func TestLongTextWithOnePhoto(t *testing.T) {
	body := strings.Repeat("a", 6000)
	f := testFeed(body, photo("http://p/1.jpg"))
	atoms := split(t, f)

	if len(atoms) != 3 {
		t.Fatalf("got %d atoms, want 3", len(atoms))
	}
	if atoms[0].Kind != AtomPic {
		t.Fatalf("atom 0 kind = %v, want pic", atoms[0].Kind)
	}
	if n := len([]rune(atoms[0].Text)); n != LimCaption {
		t.Fatalf("caption length = %d, want %d", n, LimCaption)
	}
	if atoms[1].Kind != AtomText || len([]rune(atoms[1].Text)) != LimText {
		t.Fatalf("atom 1 = %v len %d, want full text atom", atoms[1].Kind, len([]rune(atoms[1].Text)))
	}
	if atoms[2].Kind != AtomText {
		t.Fatalf("atom 2 kind = %v, want text", atoms[2].Kind)
	}

	total := len([]rune(atoms[0].Text)) + len([]rune(atoms[1].Text)) + len([]rune(atoms[2].Text))
	header := New(logging.NewNop()).header(f, verbPosted)
	if want := len([]rune(header + body)); total != want {
		t.Fatalf("text split lost characters: got %d, want %d", total, want)
	}
}

func TestCaptionBoundary(t *testing.T) {
	s := New(logging.NewNop())
	f := testFeed("x", photo("http://p/1.jpg"))
	header := s.header(f, verbPosted)

	// Body sized so header+body lands exactly on the caption budget.
	exact := strings.Repeat("b", LimCaption-len([]rune(header)))
	atoms := split(t, testFeed(exact, photo("http://p/1.jpg")))
	if len(atoms) != 1 {
		t.Fatalf("exact fit produced %d atoms, want 1", len(atoms))
	}

	atoms = split(t, testFeed(exact+"c", photo("http://p/1.jpg")))
	if len(atoms) != 2 {
		t.Fatalf("overflow produced %d atoms, want 2", len(atoms))
	}
	if atoms[1].Kind != AtomText || atoms[1].Text != "c" {
		t.Fatalf("spilled atom = %v %q, want text %q", atoms[1].Kind, atoms[1].Text, "c")
	}
}

func TestMediaGroupBoundary(t *testing.T) {
	var ten []feed.VisualMedia
	for i := 0; i < 10; i++ {
		ten = append(ten, photo("http://p/x.jpg"))
	}
	atoms := split(t, testFeed("hello", ten...))
	if len(atoms) != 1 || atoms[0].Kind != AtomGroup || len(atoms[0].Inputs) != 10 {
		t.Fatalf("10 media: got %d atoms, first kind %v with %d inputs",
			len(atoms), atoms[0].Kind, len(atoms[0].Inputs))
	}

	eleven := append(ten, photo("http://p/y.jpg"))
	atoms = split(t, testFeed("hello", eleven...))
	if len(atoms) != 2 {
		t.Fatalf("11 media: got %d atoms, want 2", len(atoms))
	}
	if atoms[0].Kind != AtomGroup || len(atoms[0].Inputs) != 10 {
		t.Fatalf("first atom has %d inputs, want 10", len(atoms[0].Inputs))
	}
	if atoms[1].Kind != AtomPic {
		t.Fatalf("second atom kind = %v, want pic", atoms[1].Kind)
	}
}

func TestDocDemotedInsideGroup(t *testing.T) {
	oversized := feed.VisualMedia{RawURL: "http://p/huge.jpg", Width: 8000, Height: 7000}
	atoms := split(t, testFeed("mixed",
		photo("http://p/1.jpg"), photo("http://p/2.jpg"), oversized, photo("http://p/3.jpg")))

	if len(atoms) != 1 || atoms[0].Kind != AtomGroup {
		t.Fatalf("got %d atoms, first %v, want one group", len(atoms), atoms[0].Kind)
	}
	if len(atoms[0].Inputs) != 3 {
		t.Fatalf("group has %d inputs, want 3 with the document demoted", len(atoms[0].Inputs))
	}
	if !strings.Contains(atoms[0].Text, "original file") {
		t.Fatalf("caption missing demotion link: %q", atoms[0].Text)
	}
}

func TestMediaClassification(t *testing.T) {
	cases := []struct {
		name  string
		media feed.VisualMedia
		want  AtomKind
	}{
		{"mp4 video", feed.VisualMedia{RawURL: "http://v/a.mp4", IsVideo: true}, AtomVideo},
		{"other container", feed.VisualMedia{RawURL: "http://v/a.webm", IsVideo: true}, AtomDoc},
		{"gif", feed.VisualMedia{RawURL: "http://p/a.gif"}, AtomAnim},
		{"oversized photo", feed.VisualMedia{RawURL: "http://p/a.jpg", Width: 9000, Height: 2000}, AtomDoc},
		{"photo", photo("http://p/a.jpg"), AtomPic},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			atoms := split(t, testFeed("m", tc.media))
			if atoms[0].Kind != tc.want {
				t.Fatalf("kind = %v, want %v", atoms[0].Kind, tc.want)
			}
		})
	}
}

func TestSemanticTime(t *testing.T) {
	now := time.Date(2026, 8, 31, 18, 0, 0, 0, time.UTC)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Date(2026, 8, 31, 9, 30, 0, 0, time.UTC), "today 09:30"},
		{time.Date(2026, 8, 30, 23, 5, 0, 0, time.UTC), "yesterday 23:05"},
		{time.Date(2026, 2, 14, 8, 0, 0, 0, time.UTC), "02-14 08:00"},
		{time.Date(2025, 12, 31, 8, 0, 0, 0, time.UTC), "2025-12-31 08:00"},
	}
	for _, tc := range cases {
		if got := semanticTime(tc.at, now); got != tc.want {
			t.Errorf("semanticTime(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestForwardSequencePrecedesOwn(t *testing.T) {
	inner := testFeed("inner body")
	outer := testFeed("outer body")
	outer.Forward = &feed.Forward{Feed: inner}

	s := New(logging.NewNop())
	pair, err := s.Split(context.Background(), outer)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(pair.Forward) == 0 || len(pair.Own) == 0 {
		t.Fatalf("expected both sequences, got forward=%d own=%d", len(pair.Forward), len(pair.Own))
	}
	all := pair.All()
	if !strings.Contains(all[0].Text, "inner body") {
		t.Fatalf("forward atoms do not lead the sequence: %q", all[0].Text)
	}
	if !strings.Contains(all[len(all)-1].Text, "outer body") {
		t.Fatalf("own atoms do not trail the sequence: %q", all[len(all)-1].Text)
	}
}

func TestEntitiesStringified(t *testing.T) {
	f := &feed.Feed{
		Uin:      10000,
		Abstime:  time.Now().Unix(),
		Nickname: "tester",
		Entities: []feed.Entity{
			{Kind: feed.EntityText, Text: "hi <b> "},
			{Kind: feed.EntityAt, Uin: 42, Text: "@pal"},
			{Kind: feed.EntityEmoji, ID: "e100"},
		},
	}
	atoms := split(t, f)
	text := atoms[0].Text
	if !strings.Contains(text, "hi &lt;b&gt; ") {
		t.Fatalf("literal text not escaped: %q", text)
	}
	if !strings.Contains(text, `<a href="https://user.qzone.qq.com/42">@pal</a>`) {
		t.Fatalf("mention not linked: %q", text)
	}
	if !strings.Contains(text, "[em]e100[/em]") {
		t.Fatalf("emoji not translated: %q", text)
	}
}
