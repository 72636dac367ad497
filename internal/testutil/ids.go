package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequenceGenerator returns IDs of the form "<prefix>-<n>", counting from
// 1. It satisfies class.IDGenerator.
//
// Safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	n      atomic.Int64
}

// NewSequenceGenerator creates a generator. An empty prefix becomes "obj".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "obj"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequenceGenerator) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}

// FixedGenerator returns predetermined IDs in order and panics once they
// run out, which flags a test that created more objects than it declared.
type FixedGenerator struct {
	ids []string
	idx atomic.Int64
}

// NewFixedGenerator creates a generator over ids.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined ID.
func (g *FixedGenerator) Generate() string {
	i := g.idx.Add(1) - 1
	if int(i) >= len(g.ids) {
		panic("FixedGenerator: all ids consumed")
	}
	return g.ids[i]
}
