package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	protoparser "github.com/yoheimuta/go-protoparser/v4"
	pbparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/protodyn/protodyn/schema"
)

// LoadSchema loads one .proto file, or recursively every .proto file under
// a directory, into the reflection tree. Imports between the loaded files
// resolve against each other once the resolution pass runs.
func (r *Registry) LoadSchema(protoPath string) error {
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		return r.loadFile(protoPath)
	}
	return filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		if err := r.loadFile(path); err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", path, err)
		}
		return nil
	})
}

func (r *Registry) loadFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return r.LoadSource(filepath.Base(path), string(content))
}

// LoadSource parses .proto source text and merges its definitions into the
// reflection tree.
func (r *Registry) LoadSource(filename, source string) error {
	proto, err := protoparser.Parse(strings.NewReader(source))
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if err := r.addProto(proto); err != nil {
		return fmt.Errorf("failed to load %s: %w", filename, err)
	}
	r.reindex()
	r.resolved = false
	logrus.Debugf("registry: loaded %s", filename)
	return nil
}

func (r *Registry) addProto(proto *pbparser.Proto) error {
	pkg := ""
	for _, v := range proto.ProtoBody {
		if p, ok := v.(*pbparser.Package); ok {
			pkg = p.Name
		}
	}
	ns, err := r.namespaceFor(pkg)
	if err != nil {
		return err
	}
	for _, v := range proto.ProtoBody {
		switch t := v.(type) {
		case *pbparser.Message:
			m, err := buildMessage(t.MessageName, t.MessageBody)
			if err != nil {
				return err
			}
			if err := ns.AddChild(m); err != nil {
				return err
			}
		case *pbparser.Enum:
			e, err := buildEnum(t)
			if err != nil {
				return err
			}
			if err := ns.AddChild(e); err != nil {
				return err
			}
		case *pbparser.Service:
			s, err := buildService(t)
			if err != nil {
				return err
			}
			if err := ns.AddChild(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// buildMessage converts a parsed message body into a Message node,
// recursing through nested messages, enums and groups.
func buildMessage(name string, body []pbparser.Visitee) (*schema.Message, error) {
	m := schema.NewMessage(name)
	for _, item := range body {
		switch b := item.(type) {
		case *pbparser.Field:
			f, err := buildField(fieldLabel(b.IsRequired, b.IsRepeated), b.Type, b.FieldName, b.FieldNumber, b.FieldOptions)
			if err != nil {
				return nil, err
			}
			if err := m.AddChild(f); err != nil {
				return nil, err
			}
		case *pbparser.GroupField:
			if err := addGroup(m, b); err != nil {
				return nil, err
			}
		case *pbparser.Oneof:
			// proto2 oneofs carry no wire-level footprint of their own;
			// their members load as plain optional fields.
			for _, of := range b.OneofFields {
				f, err := buildField(schema.LabelOptional, of.Type, of.FieldName, of.FieldNumber, of.FieldOptions)
				if err != nil {
					return nil, err
				}
				if err := m.AddChild(f); err != nil {
					return nil, err
				}
			}
		case *pbparser.Message:
			nested, err := buildMessage(b.MessageName, b.MessageBody)
			if err != nil {
				return nil, err
			}
			if err := m.AddChild(nested); err != nil {
				return nil, err
			}
		case *pbparser.Enum:
			e, err := buildEnum(b)
			if err != nil {
				return nil, err
			}
			if err := m.AddChild(e); err != nil {
				return nil, err
			}
		case *pbparser.Extensions:
			if len(b.Ranges) == 0 {
				continue
			}
			lo, hi, err := parseRange(b.Ranges[0])
			if err != nil {
				return nil, fmt.Errorf("message %s: %w", name, err)
			}
			m.Extensions = [2]int32{lo, hi}
		case *pbparser.Option:
			m.Options[b.OptionName] = parseConstant(b.Constant)
		}
	}
	seen := make(map[int32]string, len(m.Fields()))
	for _, f := range m.Fields() {
		if prev, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("fields %s.%s and %s.%s share id %d", name, prev, name, f.NodeName(), f.ID)
		}
		seen[f.ID] = f.NodeName()
		if m.Extensions != [2]int32{} && f.ID >= m.Extensions[0] && f.ID <= m.Extensions[1] {
			return nil, fmt.Errorf("field %s.%s id %d lies inside the extensions range [%d,%d]",
				name, f.NodeName(), f.ID, m.Extensions[0], m.Extensions[1])
		}
	}
	return m, nil
}

func addGroup(m *schema.Message, b *pbparser.GroupField) error {
	id, err := parseFieldNumber(b.FieldNumber)
	if err != nil {
		return fmt.Errorf("group %s: %w", b.GroupName, err)
	}
	gm, err := buildMessage(b.GroupName, b.MessageBody)
	if err != nil {
		return err
	}
	gm.GroupID = id
	if err := m.AddChild(gm); err != nil {
		return err
	}
	// The group declaration doubles as a field; its name is the group
	// name lowercased, per protobuf convention.
	f := schema.NewField(fieldLabel(b.IsRequired, b.IsRepeated), b.GroupName, strings.ToLower(b.GroupName), id, nil)
	f.Type = schema.Types["group"]
	f.ResolvedType = gm
	return m.AddChild(f)
}

func buildField(rule schema.FieldLabel, typeName, name, number string, fieldOptions []*pbparser.FieldOption) (*schema.Field, error) {
	id, err := parseFieldNumber(number)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	options := make(map[string]interface{}, len(fieldOptions))
	for _, o := range fieldOptions {
		options[o.OptionName] = parseConstant(o.Constant)
	}
	return schema.NewField(rule, typeName, name, id, options), nil
}

func buildEnum(b *pbparser.Enum) (*schema.Enum, error) {
	e := schema.NewEnum(b.EnumName)
	for _, item := range b.EnumBody {
		switch t := item.(type) {
		case *pbparser.EnumField:
			n, err := strconv.ParseInt(t.Number, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("enum value %s.%s: %w", b.EnumName, t.Ident, err)
			}
			if err := e.AddChild(schema.NewEnumValue(t.Ident, int32(n))); err != nil {
				return nil, err
			}
		case *pbparser.Option:
			e.Options[t.OptionName] = parseConstant(t.Constant)
		}
	}
	return e, nil
}

func buildService(b *pbparser.Service) (*schema.Service, error) {
	s := schema.NewService(b.ServiceName)
	for _, item := range b.ServiceBody {
		rpc, ok := item.(*pbparser.RPC)
		if !ok {
			continue
		}
		options := make(map[string]interface{}, len(rpc.Options))
		for _, o := range rpc.Options {
			options[o.OptionName] = parseConstant(o.Constant)
		}
		method := schema.NewMethod(rpc.RPCName, rpc.RPCRequest.MessageType, rpc.RPCResponse.MessageType, options)
		if err := s.AddChild(method); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func fieldLabel(required, repeated bool) schema.FieldLabel {
	switch {
	case required:
		return schema.LabelRequired
	case repeated:
		return schema.LabelRepeated
	default:
		return schema.LabelOptional
	}
}

func parseFieldNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad field number %q: %w", s, err)
	}
	if !schema.IsValidID(int32(n)) {
		return 0, fmt.Errorf("field number %d out of range", n)
	}
	return int32(n), nil
}

func parseRange(rg *pbparser.Range) (int32, int32, error) {
	lo, err := strconv.ParseInt(rg.Begin, 10, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad extensions range start %q: %w", rg.Begin, err)
	}
	hi := lo
	if rg.End != "" {
		if rg.End == "max" {
			hi = schema.IDMax
		} else {
			hi, err = strconv.ParseInt(rg.End, 10, 32)
			if err != nil {
				return 0, 0, fmt.Errorf("bad extensions range end %q: %w", rg.End, err)
			}
		}
	}
	return int32(lo), int32(hi), nil
}

// parseConstant converts an option constant to its natural Go form:
// quoted strings are unquoted, booleans and numbers typed, anything else
// (identifiers such as enum value names) kept verbatim.
func parseConstant(s string) interface{} {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	switch s {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
