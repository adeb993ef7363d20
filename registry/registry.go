package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/protodyn/protodyn/schema"
)

// ErrNameResolution is returned when a symbolic type reference cannot be
// bound to any node in the reflection tree.
var ErrNameResolution = errors.New("unresolvable type reference")

// Registry owns a reflection tree and its symbol table. The parser
// populates the tree; the resolution pass binds every symbolic type
// reference before the first build consumes the tree read-only.
type Registry struct {
	root     *schema.Namespace
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service
	resolved bool
}

// NewRegistry creates an empty registry with an anonymous root namespace.
func NewRegistry() *Registry {
	return &Registry{
		root:     schema.NewNamespace(""),
		messages: make(map[string]*schema.Message),
		enums:    make(map[string]*schema.Enum),
		services: make(map[string]*schema.Service),
	}
}

// Root returns the root namespace of the reflection tree.
func (r *Registry) Root() *schema.Namespace { return r.root }

// namespaceFor returns the namespace for a dotted package path, creating
// the chain under the root as needed.
func (r *Registry) namespaceFor(pkg string) (*schema.Namespace, error) {
	if pkg == "" {
		return r.root, nil
	}
	ns := r.root
	for _, segment := range strings.Split(pkg, ".") {
		child := ns.GetChild(segment)
		if child == nil {
			next := schema.NewNamespace(segment)
			if err := ns.AddChild(next); err != nil {
				return nil, err
			}
			ns = next
			continue
		}
		next, ok := child.(*schema.Namespace)
		if !ok {
			return nil, fmt.Errorf("%w: package segment %q collides with %s",
				schema.ErrDuplicateName, segment, schema.String(child, true))
		}
		ns = next
	}
	return ns, nil
}

// reindex rebuilds the fqn lookup maps from the tree.
func (r *Registry) reindex() {
	r.messages = make(map[string]*schema.Message)
	r.enums = make(map[string]*schema.Enum)
	r.services = make(map[string]*schema.Service)
	r.walk(r.root)
}

func (r *Registry) walk(ns *schema.Namespace) {
	for _, c := range ns.Children() {
		switch t := c.(type) {
		case *schema.Message:
			r.messages[schema.FQN(t)] = t
			r.walk(&t.Namespace)
		case *schema.Enum:
			r.enums[schema.FQN(t)] = t
		case *schema.Service:
			r.services[schema.FQN(t)] = t
		case *schema.Namespace:
			r.walk(t)
		}
	}
}

// Resolve runs the type-resolution pass: every field's symbolic reference
// is bound to a scalar descriptor or to a Message/Enum node (with lexical
// fallback through ancestor namespaces), and every service method's
// request/response reference is bound to a Message. Idempotent until the
// next load.
func (r *Registry) Resolve() error {
	if r.resolved {
		return nil
	}
	for _, m := range r.messages {
		for _, f := range m.Fields() {
			if err := r.resolveField(m, f); err != nil {
				return err
			}
		}
	}
	for _, s := range r.services {
		for _, method := range s.Methods() {
			if err := r.resolveMethod(s, method); err != nil {
				return err
			}
		}
	}
	r.resolved = true
	logrus.Debugf("registry: resolved %d messages, %d enums, %d services",
		len(r.messages), len(r.enums), len(r.services))
	return nil
}

func (r *Registry) resolveField(m *schema.Message, f *schema.Field) error {
	if f.Resolved() {
		return nil
	}
	switch f.TypeName {
	case "message", "enum", "group":
		// Pseudo type names never appear as symbolic references.
	default:
		if td, ok := schema.Types[f.TypeName]; ok {
			f.Type = td
			return nil
		}
	}
	node := m.Resolve(f.TypeName, true)
	switch t := node.(type) {
	case *schema.Message:
		f.Type = schema.Types["message"]
		f.ResolvedType = t
	case *schema.Enum:
		f.Type = schema.Types["enum"]
		f.ResolvedType = t
	default:
		return fmt.Errorf("%w: %q of field %s", ErrNameResolution, f.TypeName, schema.FQN(f))
	}
	return nil
}

func (r *Registry) resolveMethod(s *schema.Service, method *schema.Method) error {
	if method.Request == nil {
		m, ok := s.Resolve(method.RequestName, true).(*schema.Message)
		if !ok {
			return fmt.Errorf("%w: request type %q of method %s",
				ErrNameResolution, method.RequestName, schema.FQN(method))
		}
		method.Request = m
	}
	if method.Response == nil {
		m, ok := s.Resolve(method.ResponseName, true).(*schema.Message)
		if !ok {
			return fmt.Errorf("%w: response type %q of method %s",
				ErrNameResolution, method.ResponseName, schema.FQN(method))
		}
		method.Response = m
	}
	return nil
}

// GetMessage retrieves a message definition by name: exact fully-qualified
// match first, then the first suffix match found. When several messages
// share the suffix, which one is returned is not defined. Triggers the
// resolution pass.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	if msg, exists := r.messages[name]; exists {
		return msg, nil
	}
	for fullName, msg := range r.messages {
		if strings.HasSuffix(fullName, "."+name) {
			return msg, nil
		}
	}
	return nil, fmt.Errorf("message not found: %s", name)
}

// GetEnum retrieves an enum definition by name.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	if enum, exists := r.enums[name]; exists {
		return enum, nil
	}
	for fullName, enum := range r.enums {
		if strings.HasSuffix(fullName, "."+name) {
			return enum, nil
		}
	}
	return nil, fmt.Errorf("enum not found: %s", name)
}

// GetService retrieves a service definition by name.
func (r *Registry) GetService(name string) (*schema.Service, error) {
	if err := r.Resolve(); err != nil {
		return nil, err
	}
	if service, exists := r.services[name]; exists {
		return service, nil
	}
	for fullName, service := range r.services {
		if strings.HasSuffix(fullName, "."+name) {
			return service, nil
		}
	}
	return nil, fmt.Errorf("service not found: %s", name)
}

// ListMessages returns all registered message names.
func (r *Registry) ListMessages() []string {
	var names []string
	for name := range r.messages {
		names = append(names, name)
	}
	return names
}

// ListEnums returns all registered enum names.
func (r *Registry) ListEnums() []string {
	var names []string
	for name := range r.enums {
		names = append(names, name)
	}
	return names
}

// ListServices returns all registered service names.
func (r *Registry) ListServices() []string {
	var names []string
	for name := range r.services {
		names = append(names, name)
	}
	return names
}
