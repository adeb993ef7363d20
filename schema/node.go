package schema

import "strings"

// Kind tags the concrete entity behind a Node.
type Kind string

const (
	KindNamespace Kind = "Namespace"
	KindMessage   Kind = "Message"
	KindField     Kind = "Message.Field"
	KindEnum      Kind = "Enum"
	KindEnumValue Kind = "Enum.Value"
	KindService   Kind = "Service"
	KindMethod    Kind = "Service.RPCMethod"
)

// Node is implemented by every entity in a reflection tree: namespaces,
// messages, fields, enums, enum values, services and RPC methods.
type Node interface {
	// NodeName returns the entity's local name.
	NodeName() string
	// Parent returns the enclosing node, nil at the root. The reference is
	// non-owning; the tree stays acyclic because children never hold their
	// ancestors as children.
	Parent() Node
	// Kind returns the entity tag used by String.
	Kind() Kind

	setParent(Node)
	container() *Namespace
}

// base carries the state shared by every reflection entity.
type base struct {
	parent Node
	name   string
	kind   Kind
}

func (b *base) NodeName() string { return b.name }
func (b *base) Parent() Node     { return b.parent }
func (b *base) Kind() Kind       { return b.kind }
func (b *base) setParent(p Node) { b.parent = p }

// FQN returns the dotted path from the root namespace down to n.
func FQN(n Node) string {
	var parts []string
	for ; n != nil; n = n.Parent() {
		if n.NodeName() != "" {
			parts = append(parts, n.NodeName())
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// String renders n as its fully-qualified name, prefixed with the kind tag
// when includeKind is set.
func String(n Node, includeKind bool) string {
	if includeKind {
		return string(n.Kind()) + " " + FQN(n)
	}
	return FQN(n)
}
