package storage

// Kind is the kind of a stored node.
type Kind uint8

// Node kinds.
const (
	KindDocument Kind = iota
	KindElement
	KindText
	KindAttribute
	KindComment
	KindPI
)

var kindNames = [...]string{"document-node", "element", "text", "attribute", "comment", "processing-instruction"}

// String returns the kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}
