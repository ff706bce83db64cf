package storage

import (
	"errors"
	"fmt"
)

// Builder errors.
var (
	ErrAttributeAfterContent = errors.New("attribute added after element content")
	ErrAttributeOutsideElem  = errors.New("attribute added outside of an element")
	ErrNothingToClose        = errors.New("no open node to close")
	ErrUnclosedNodes         = errors.New("unclosed nodes")
	ErrFinished              = errors.New("builder already finished")
)

// Builder appends nodes in document order and computes sizes, attribute
// sizes and parent distances.
//
// Errors are sticky: after the first failure every call is a no-op and the
// error is reported by Finish.
type Builder struct {
	t     *Table
	open  []int
	index map[string]int32
	err   error
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		t:     &Table{id: tableIDs.Add(1)},
		index: make(map[string]int32),
	}
}

func (b *Builder) intern(name string) int32 {
	if id, ok := b.index[name]; ok {
		return id
	}
	id := int32(len(b.t.dict))
	b.t.dict = append(b.t.dict, name)
	b.index[name] = id
	return id
}

func (b *Builder) add(kind Kind, name, value string, named bool) int {
	t := b.t
	pre := len(t.meta)
	par := -1
	if n := len(b.open); n > 0 {
		par = b.open[n-1]
	}
	id := int32(-1)
	if named {
		id = b.intern(name)
	}
	t.meta = append(t.meta, 1<<kindBits|uint32(kind))
	t.sizes = append(t.sizes, 1)
	t.dists = append(t.dists, int32(pre-par))
	t.names = append(t.names, id)
	t.values = append(t.values, value)
	return pre
}

func (b *Builder) ok() bool {
	if b.t == nil && b.err == nil {
		b.err = ErrFinished
	}
	return b.err == nil
}

// OpenDocument opens a document node.
func (b *Builder) OpenDocument(name string) {
	if !b.ok() {
		return
	}
	b.open = append(b.open, b.add(KindDocument, name, "", true))
}

// OpenElement opens an element node.
func (b *Builder) OpenElement(name string) {
	if !b.ok() {
		return
	}
	b.open = append(b.open, b.add(KindElement, name, "", true))
}

// Attribute adds an attribute to the innermost open element. Attributes must
// precede all other content of the element.
func (b *Builder) Attribute(name, value string) {
	if !b.ok() {
		return
	}
	n := len(b.open)
	if n == 0 || b.t.Kind(b.open[n-1]) != KindElement {
		b.err = fmt.Errorf("%w: %s", ErrAttributeOutsideElem, name)
		return
	}
	pre := b.open[n-1]
	asize := b.t.AttSize(pre)
	if len(b.t.meta) != pre+asize {
		b.err = fmt.Errorf("%w: %s", ErrAttributeAfterContent, name)
		return
	}
	b.add(KindAttribute, name, value, true)
	b.t.meta[pre] += 1 << kindBits
}

// Text adds a text node.
func (b *Builder) Text(value string) {
	if b.ok() {
		b.add(KindText, "", value, false)
	}
}

// Comment adds a comment node.
func (b *Builder) Comment(value string) {
	if b.ok() {
		b.add(KindComment, "", value, false)
	}
}

// PI adds a processing instruction.
func (b *Builder) PI(target, value string) {
	if b.ok() {
		b.add(KindPI, target, value, true)
	}
}

// Close closes the innermost open document or element.
func (b *Builder) Close() {
	if !b.ok() {
		return
	}
	n := len(b.open)
	if n == 0 {
		b.err = ErrNothingToClose
		return
	}
	pre := b.open[n-1]
	b.open = b.open[:n-1]
	b.t.sizes[pre] = int32(len(b.t.meta) - pre)
}

// Finish returns the built table. The builder cannot be used afterwards.
func (b *Builder) Finish() (*Table, error) {
	if !b.ok() {
		return nil, b.err
	}
	if len(b.open) > 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnclosedNodes, len(b.open))
	}
	t := b.t
	b.t = nil
	return t, nil
}
