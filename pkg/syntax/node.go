// Package syntax is the boundary to the concrete-syntax-tree parser. It owns a
// plain Go copy of the parsed tree so callers never hold tree-sitter memory.
package syntax

// Node is a concrete syntax tree node with its byte range and ordered children.
// Anonymous tokens (punctuation, keywords) are kept as children.
type Node struct {
	Type      string
	Children  []*Node
	source    []byte
	StartByte uint32
	EndByte   uint32
	Named     bool
}

// NewNode creates a node over source. Children are attached in the order given.
func NewNode(typ string, named bool, startByte, endByte uint32, source []byte, children ...*Node) *Node {
	return &Node{
		Type:      typ,
		Named:     named,
		StartByte: startByte,
		EndByte:   endByte,
		Children:  children,
		source:    source,
	}
}

// Text returns the source slice covered by the node.
func (n *Node) Text() string {
	if n == nil || int(n.EndByte) > len(n.source) || n.StartByte > n.EndByte {
		return ""
	}

	return string(n.source[n.StartByte:n.EndByte])
}

// ChildCount returns the number of children, named and anonymous.
func (n *Node) ChildCount() int {
	if n == nil {
		return 0
	}

	return len(n.Children)
}

// Child returns the child at idx, or nil when idx is out of range.
func (n *Node) Child(idx int) *Node {
	if n == nil || idx < 0 || idx >= len(n.Children) {
		return nil
	}

	return n.Children[idx]
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.ChildCount() == 0
}

// Covers reports whether the node spans exactly [start, end).
func (n *Node) Covers(start, end uint32) bool {
	return n.StartByte == start && n.EndByte == end
}

// Walk visits the subtree in document order (pre-order). Returning false from
// visit skips the children of the visited node.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}

	if !visit(n) {
		return
	}

	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// Tree is the result of parsing one source text.
type Tree struct {
	Root     *Node
	Source   []byte
	HasError bool
}
