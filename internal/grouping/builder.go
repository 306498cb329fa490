package grouping

import (
	"slices"

	"panscan/internal/motion"
)

// Group is a maximal run of same-direction pan pairs, expressed as positions
// in the sampled-frame list.
type Group struct {
	ID        int              `json:"id"`
	Direction motion.Direction `json:"direction"`
	Positions []int            `json:"sampled_indices"`
}

// First returns the first sampled position.
func (g Group) First() int { return g.Positions[0] }

// Last returns the last sampled position.
func (g Group) Last() int { return g.Positions[len(g.Positions)-1] }

type state int

const (
	scanning state = iota
	extending
)

// Builder scans classifications in order. Pair i classifies the sampled
// positions (i, i+1).
type Builder struct {
	MinLen int

	state     state
	open      Group
	groups    []Group
	nextID    int
	discarded int
}

// NewBuilder returns a builder that drops groups shorter than minLen positions.
func NewBuilder(minLen int) *Builder {
	return &Builder{MinLen: minLen, nextID: 1}
}

// Step feeds pair i into the automaton.
func (b *Builder) Step(i int, c motion.Classification) {
	switch b.state {
	case scanning:
		if !c.IsPan {
			return
		}
		b.open = Group{Direction: c.Direction, Positions: []int{i, i + 1}}
		b.state = extending
	case extending:
		if !c.IsPan || c.Direction != b.open.Direction {
			// The breaking pair is consumed; scanning resumes after it.
			b.close()
			return
		}
		b.open.Positions = append(b.open.Positions, i+1)
	}
}

// Finish closes any open group and returns the emitted groups in discovery
// order.
func (b *Builder) Finish() []Group {
	if b.state == extending {
		b.close()
	}
	return b.groups
}

func (b *Builder) close() {
	positions := slices.Clone(b.open.Positions)
	slices.Sort(positions)
	positions = slices.Compact(positions)
	direction := b.open.Direction
	b.state = scanning
	b.open = Group{}
	if len(positions) < b.MinLen {
		b.discarded++
		return
	}
	b.groups = append(b.groups, Group{ID: b.nextID, Direction: direction, Positions: positions})
	b.nextID++
}

// Discarded counts candidate runs dropped for being shorter than MinLen.
func (b *Builder) Discarded() int { return b.discarded }

// Build runs the automaton over a full classification list.
func Build(classifications []motion.Classification, minLen int) []Group {
	b := NewBuilder(minLen)
	for i, c := range classifications {
		b.Step(i, c)
	}
	return b.Finish()
}
