package splitter

import "qzsync/internal/telegram"

// Character budgets imposed by the platform: plain messages and media
// captions have different caps.
const (
	LimText    = 4095
	LimCaption = 1023
)

// AtomKind discriminates the platform operation an atom maps to.
type AtomKind int

const (
	AtomText AtomKind = iota
	AtomPic
	AtomAnim
	AtomVideo
	AtomDoc
	AtomGroup
)

// Atom is one platform send operation derived from a feed. Text atoms carry
// no inputs; single-media atoms carry exactly one; groups carry 2..10.
type Atom struct {
	Kind   AtomKind
	Text   string
	Inputs []telegram.Input
}

// MediaCount is the rate-limit weight: a group of N counts as N.
func (a Atom) MediaCount() int {
	if len(a.Inputs) == 0 {
		return 1
	}
	return len(a.Inputs)
}

// HasMedia reports whether the atom's message ids are edit-media targets.
func (a Atom) HasMedia() bool { return len(a.Inputs) > 0 }

// Pair is the split result: the forward sequence (for the referenced inner
// feed, when present) followed by the outer feed's own sequence.
type Pair struct {
	Forward []Atom
	Own     []Atom
}

// All returns the atoms in send order.
func (p *Pair) All() []Atom {
	out := make([]Atom, 0, len(p.Forward)+len(p.Own))
	out = append(out, p.Forward...)
	return append(out, p.Own...)
}

func atomKindFor(kind telegram.InputKind) AtomKind {
	switch kind {
	case telegram.InputAnimation:
		return AtomAnim
	case telegram.InputVideo:
		return AtomVideo
	case telegram.InputDocument:
		return AtomDoc
	default:
		return AtomPic
	}
}
