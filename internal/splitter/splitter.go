package splitter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"qzsync/internal/feed"
	"qzsync/internal/logging"
	"qzsync/internal/telegram"
)

// Translator resolves an emoji tag id into display text.
type Translator func(id string) string

// Splitter turns one feed into an ordered atom sequence honoring the
// platform's text, caption, and group-size budgets.
type Splitter struct {
	translate Translator
	prober    Prober
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithTranslator replaces the default emoji rendering.
func WithTranslator(t Translator) Option {
	return func(s *Splitter) { s.translate = t }
}

// WithProber enables size probing for accurate document classification.
func WithProber(p Prober) Option {
	return func(s *Splitter) { s.prober = p }
}

func withClock(now func() time.Time) Option {
	return func(s *Splitter) { s.now = now }
}

// New constructs a Splitter.
func New(logger *slog.Logger, opts ...Option) *Splitter {
	s := &Splitter{
		translate: defaultTranslate,
		logger:    logging.NewComponentLogger(logger, "splitter"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultTranslate(id string) string { return "[em]" + id + "[/em]" }

// Split produces the forward atom sequence (when the feed forwards another
// feed) followed by the feed's own sequence.
func (s *Splitter) Split(ctx context.Context, f *feed.Feed) (*Pair, error) {
	pair := &Pair{}
	if f.Forward != nil && f.Forward.Feed != nil {
		inner := f.Forward.Feed
		pair.Forward = s.sequence(ctx, inner, s.header(inner, verbPosted))
	}
	pair.Own = s.sequence(ctx, f, s.header(f, s.verb(f)))
	if len(pair.Own) == 0 {
		pair.Own = []Atom{{Kind: AtomText, Text: s.header(f, s.verb(f))}}
	}
	return pair, nil
}

type verb string

const (
	verbPosted     verb = "posted"
	verbForwarded  verb = "forwarded a feed"
	verbSharedLink verb = "shared a link"
	verbShared     verb = "shared"
)

func (s *Splitter) verb(f *feed.Feed) verb {
	switch {
	case f.Forward == nil:
		return verbPosted
	case f.Forward.Feed != nil:
		return verbForwarded
	case f.Forward.URL != "":
		return verbSharedLink
	default:
		return verbShared
	}
}

// header renders the linked nickname, semantic publication time, and verb.
func (s *Splitter) header(f *feed.Feed, v verb) string {
	name := f.Nickname
	if name == "" {
		name = fmt.Sprint(f.Uin)
	}
	return fmt.Sprintf("<a href=\"https://user.qzone.qq.com/%d\">%s</a> %s %s:\n",
		f.Uin, html.EscapeString(name), semanticTime(f.Time(), s.now()), v)
}

// semanticTime renders a publication time relative to now.
func semanticTime(t, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case !t.Before(today):
		return "today " + t.Format("15:04")
	case !t.Before(today.AddDate(0, 0, -1)):
		return "yesterday " + t.Format("15:04")
	case t.Year() == now.Year():
		return t.Format("01-02 15:04")
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// sequence runs the alternating text/media pipeline for one feed.
func (s *Splitter) sequence(ctx context.Context, f *feed.Feed, header string) []Atom {
	text := []rune(header + s.stringify(f))
	media := s.classifyAll(ctx, f.Media)

	var atoms []Atom
	for len(media) > 0 {
		if len(media) >= 2 && media[0].isDoc() == media[1].isDoc() {
			atom, rest, remaining := takeGroup(media, text)
			atoms = append(atoms, atom)
			media, text = rest, remaining
			continue
		}
		atom, remaining := takeSingle(media[0], text)
		atoms = append(atoms, atom)
		media, text = media[1:], remaining
	}

	for len(text) > 0 {
		n := min(len(text), LimText)
		atoms = append(atoms, Atom{Kind: AtomText, Text: string(text[:n])})
		text = text[n:]
	}
	return atoms
}

func (s *Splitter) classifyAll(ctx context.Context, media []feed.VisualMedia) []classified {
	out := make([]classified, 0, len(media))
	for _, m := range media {
		var size int64
		if s.prober != nil && m.RawURL != "" {
			probed, err := s.prober.Probe(ctx, m.RawURL)
			if err != nil {
				s.logger.Debug("size probe failed",
					logging.String("url", m.RawURL), logging.Error(err))
			} else {
				size = probed
			}
		}
		out = append(out, classify(m, size))
	}
	return out
}

// takeGroup consumes up to ten media of one type class into a MediaGroup.
// A document interleaved into a non-document group is demoted to a caption
// link instead of breaking the group.
func takeGroup(media []classified, text []rune) (Atom, []classified, []rune) {
	docGroup := media[0].isDoc()
	var inputs []telegram.Input
	var notes []string
	consumed := 0
	for _, m := range media {
		if len(inputs) == 10 {
			break
		}
		if m.isDoc() != docGroup {
			if docGroup {
				break
			}
			notes = append(notes, linkNote(m.input.URL))
			consumed++
			continue
		}
		inputs = append(inputs, m.input)
		if m.note != "" {
			notes = append(notes, m.note)
		}
		consumed++
	}

	caption, remaining := takeCaption(text, notes)
	if len(inputs) == 1 {
		return Atom{Kind: atomKindFor(inputs[0].Kind), Text: caption, Inputs: inputs},
			media[consumed:], remaining
	}
	return Atom{Kind: AtomGroup, Text: caption, Inputs: inputs}, media[consumed:], remaining
}

func takeSingle(m classified, text []rune) (Atom, []rune) {
	var notes []string
	if m.note != "" {
		notes = append(notes, m.note)
	}
	caption, remaining := takeCaption(text, notes)
	return Atom{
		Kind:   atomKindFor(m.input.Kind),
		Text:   caption,
		Inputs: []telegram.Input{m.input},
	}, remaining
}

// takeCaption cuts a caption-sized prefix off text, reserving room for any
// appended notes.
func takeCaption(text []rune, notes []string) (string, []rune) {
	budget := LimCaption
	for _, n := range notes {
		budget -= len([]rune(n))
	}
	if budget < 0 {
		budget = 0
	}
	n := min(len(text), budget)
	caption := string(text[:n]) + strings.Join(notes, "")
	return caption, text[n:]
}

// stringify renders the entity list: literal text escaped, mentions as
// anchors, emoji through the translator.
func (s *Splitter) stringify(f *feed.Feed) string {
	var b strings.Builder
	for _, e := range f.Entities {
		switch e.Kind {
		case feed.EntityText:
			b.WriteString(html.EscapeString(e.Text))
		case feed.EntityAt:
			// The label already carries its @ prefix from the source markup.
			fmt.Fprintf(&b, "<a href=\"https://user.qzone.qq.com/%d\">%s</a>",
				e.Uin, html.EscapeString(e.Text))
		case feed.EntityEmoji:
			b.WriteString(s.translate(e.ID))
		}
	}
	if f.Forward != nil && f.Forward.Feed == nil {
		if f.Forward.URL != "" {
			fmt.Fprintf(&b, "\n<a href=\"%s\">%s</a>", f.Forward.URL, html.EscapeString(f.Forward.URL))
		} else if f.Forward.Text != "" {
			b.WriteString("\n" + html.EscapeString(f.Forward.Text))
		}
	}
	return b.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
