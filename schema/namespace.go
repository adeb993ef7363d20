package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDuplicateName is returned by AddChild when two children would end up
// with the same local name and the field-name reversion rule cannot apply.
var ErrDuplicateName = errors.New("duplicate name in namespace")

// Namespace is a generic container of reflection nodes. Messages, enums and
// services embed it; the root of a reflection tree is a plain Namespace.
type Namespace struct {
	base
	children []Node
	Options  map[string]interface{}

	// self points back at the embedding Message/Enum/Service, if any, so
	// that children report the right parent and FQN.
	self Node
}

// NewNamespace creates an empty namespace with the given local name.
func NewNamespace(name string) *Namespace {
	return &Namespace{
		base:    base{name: name, kind: KindNamespace},
		Options: make(map[string]interface{}),
	}
}

func (ns *Namespace) container() *Namespace { return ns }

// Children returns the namespace's children in insertion order. The slice
// is owned by the namespace and must not be mutated.
func (ns *Namespace) Children() []Node { return ns.children }

// ChildrenOfKind returns the children carrying the given kind tag,
// preserving declaration order.
func (ns *Namespace) ChildrenOfKind(k Kind) []Node {
	var out []Node
	for _, c := range ns.children {
		if c.Kind() == k {
			out = append(out, c)
		}
	}
	return out
}

// AddChild appends child to the namespace. On a name collision the
// camelCase reversion rule applies: an incoming Field whose name was
// rewritten from its source form falls back to OriginalName. If the names
// still collide the insertion fails. The already-registered field stays
// reachable by its own OriginalName through name lookups.
func (ns *Namespace) AddChild(child Node) error {
	if ns.GetChild(child.NodeName()) != nil {
		cf, ok := child.(*Field)
		if !ok || cf.OriginalName == cf.name || ns.GetChild(cf.OriginalName) != nil {
			return fmt.Errorf("%w: %q in %q", ErrDuplicateName, child.NodeName(), FQN(ns))
		}
		cf.name = cf.OriginalName
	}
	child.setParent(ns.owner())
	ns.children = append(ns.children, child)
	return nil
}

// owner returns the node the namespace presents itself as: the embedding
// Message/Enum/Service when there is one, the namespace itself otherwise.
func (ns *Namespace) owner() Node {
	if ns.self != nil {
		return ns.self
	}
	return ns
}

// GetChild performs a linear lookup by local name, nil when absent.
func (ns *Namespace) GetChild(name string) Node {
	for _, c := range ns.children {
		if c.NodeName() == name {
			return c
		}
	}
	return nil
}

// GetChildByID performs a linear lookup by numeric id. Only fields and enum
// values carry ids.
func (ns *Namespace) GetChildByID(id int32) Node {
	for _, c := range ns.children {
		switch t := c.(type) {
		case *Field:
			if t.ID == id {
				return c
			}
		case *EnumValue:
			if t.ID == id {
				return c
			}
		}
	}
	return nil
}

// Resolve binds a symbolic name to a node. A leading dot makes the
// reference absolute (resolution restarts at the root); otherwise descent
// starts at ns and, on failure, retries from each ancestor namespace in
// turn (lexical fallback). Fields are not descended through, and are
// skipped entirely when excludeFields is set. Returns nil when the name
// cannot be resolved; callers raise the name-resolution error.
func (ns *Namespace) Resolve(qname string, excludeFields bool) Node {
	parts := strings.Split(qname, ".")
	start := 0
	scope := ns.owner()
	if parts[0] == "" {
		for scope.Parent() != nil {
			scope = scope.Parent()
		}
		start = 1
	}
	for {
		if n := descend(scope, parts[start:], excludeFields); n != nil {
			return n
		}
		parent := scope.Parent()
		if parent == nil {
			return nil
		}
		scope = parent
	}
}

func descend(from Node, parts []string, excludeFields bool) Node {
	ptr := from
	for _, part := range parts {
		c := ptr.container()
		if c == nil {
			return nil
		}
		child := c.GetChild(part)
		if child == nil {
			return nil
		}
		if _, isField := child.(*Field); isField && excludeFields {
			return nil
		}
		ptr = child
	}
	return ptr
}

// BuildOptions returns a shallow copy of the namespace's options.
func (ns *Namespace) BuildOptions() map[string]interface{} {
	out := make(map[string]interface{}, len(ns.Options))
	for k, v := range ns.Options {
		out[k] = v
	}
	return out
}
