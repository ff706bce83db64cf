package storage

import (
	"fmt"
	"sync/atomic"
)

const kindBits = 3

// Table is an in-memory, array encoded tree.
//
// Kind and attribute size share one packed word per node.
// Names are interned in a dictionary.
type Table struct {
	id     uint64
	meta   []uint32 // attSize<<kindBits | kind
	sizes  []int32
	dists  []int32
	names  []int32 // index into dict, -1 if unnamed
	values []string
	dict   []string
}

var _ interface {
	Accessor
	Textual
} = (*Table)(nil)

var tableIDs atomic.Uint64

// ID implements Accessor. Tables are numbered in creation order.
func (t *Table) ID() uint64 {
	return t.id
}

// Len returns the number of stored nodes.
func (t *Table) Len() int {
	return len(t.meta)
}

// Kind implements Accessor.
func (t *Table) Kind(pre int) Kind {
	return Kind(t.meta[pre] & (1<<kindBits - 1))
}

// Size implements Accessor.
func (t *Table) Size(pre int) int {
	return int(t.sizes[pre])
}

// AttSize implements Accessor.
func (t *Table) AttSize(pre int) int {
	return int(t.meta[pre] >> kindBits)
}

// Parent implements Accessor.
func (t *Table) Parent(pre int) int {
	return pre - int(t.dists[pre])
}

// Name implements Textual.
func (t *Table) Name(pre int) string {
	if id := t.names[pre]; id >= 0 {
		return t.dict[id]
	}
	return ""
}

// Value implements Textual.
func (t *Table) Value(pre int) string {
	return t.values[pre]
}

// String returns a tabular dump of the encoding, one node per line.
func (t *Table) String() string {
	s := "pre\tkind\tsize\tasize\tpar\tname\tvalue\n"
	for pre := range t.meta {
		s += fmt.Sprintf("%d\t%s\t%d\t%d\t%d\t%s\t%q\n", pre, t.Kind(pre), t.Size(pre),
			t.AttSize(pre), t.Parent(pre), t.Name(pre), t.Value(pre))
	}
	return s
}
