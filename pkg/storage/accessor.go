package storage

// Accessor gives read access to a pre-order encoded tree.
//
// Implementations must be immutable for the duration of a navigation session.
type Accessor interface {
	// ID returns an identifier that is unique among the accessors of a
	// process. It orders nodes of different trees.
	ID() uint64
	// Kind returns the kind of the node at pre.
	Kind(pre int) Kind
	// Size returns the number of nodes in the subtree rooted at pre,
	// including the node itself and its attributes.
	Size(pre int) int
	// AttSize returns 1 plus the number of attributes of the node at pre.
	AttSize(pre int) int
	// Parent returns the pre value of the parent node, or -1 for a root.
	Parent(pre int) int
}

// Textual is implemented by accessors that store names and text values.
type Textual interface {
	// Name returns the name of an element, attribute or processing
	// instruction, or the document name of a document node.
	Name(pre int) string
	// Value returns the text of a text, comment or attribute node, or the
	// content of a processing instruction.
	Value(pre int) string
}
