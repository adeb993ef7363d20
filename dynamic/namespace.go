package dynamic

import (
	"github.com/protodyn/protodyn/schema"
)

// BuildNamespace projects a namespace into a mapping from child name to
// built runtime artifact: message children build to their *Factory, enum
// children to their name-to-id mapping, plain nested namespaces recurse.
// Service children are skipped; a dispatcher only exists once a transport
// is bound (NewDispatcher). The namespace's own options are reachable via
// its BuildOptions.
func BuildNamespace(ns *schema.Namespace) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, c := range ns.Children() {
		switch t := c.(type) {
		case *schema.Message:
			f, err := Build(t)
			if err != nil {
				return nil, err
			}
			out[t.NodeName()] = f
		case *schema.Enum:
			out[t.NodeName()] = BuildEnum(t)
		case *schema.Namespace:
			nested, err := BuildNamespace(t)
			if err != nil {
				return nil, err
			}
			out[t.NodeName()] = nested
		}
	}
	return out, nil
}
