package schema

import (
	"strings"

	"github.com/actgardner/gogen-avro/v10/parser"
	"github.com/actgardner/gogen-avro/v10/resolver"
	avro "github.com/actgardner/gogen-avro/v10/schema"
)

// Parse reads an Avro JSON schema. Nodes of the returned tree have no runtime
// type; they describe the wire shape only.
func Parse(text string) (Schema, error) {
	if strings.TrimSpace(text) == "" {
		return nil, Errorf(nil, "empty schema text")
	}
	ns := parser.NewNamespace(false)
	t, err := ns.TypeForSchema([]byte(text))
	if err != nil {
		return nil, &SchemaError{Reason: "invalid schema text", Err: err}
	}
	for _, def := range ns.Roots {
		if err := resolver.ResolveDefinition(def, ns.Definitions); err != nil {
			return nil, &SchemaError{Reason: "unresolved reference", Err: err}
		}
	}
	c := &converter{names: NewNames(), defs: ns.Definitions}
	return c.convert(t)
}

// MustParse is like Parse but panics on error.
func MustParse(text string) Schema {
	s, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return s
}

type converter struct {
	names *Names
	defs  map[avro.QualifiedName]avro.Definition
}

func (c *converter) convert(t avro.AvroType) (Schema, error) {
	switch t := t.(type) {
	case *avro.NullField:
		return NewPrimitive(Null, nil), nil
	case *avro.BoolField:
		return NewPrimitive(Boolean, nil), nil
	case *avro.IntField:
		return NewPrimitive(Int, nil), nil
	case *avro.LongField:
		return NewPrimitive(Long, nil), nil
	case *avro.FloatField:
		return NewPrimitive(Float, nil), nil
	case *avro.DoubleField:
		return NewPrimitive(Double, nil), nil
	case *avro.BytesField:
		return NewPrimitive(Bytes, nil), nil
	case *avro.StringField:
		return NewPrimitive(String, nil), nil
	case *avro.ArrayField:
		items, err := c.convert(t.ItemType())
		if err != nil {
			return nil, err
		}
		return NewArray(items, nil), nil
	case *avro.MapField:
		values, err := c.convert(t.ItemType())
		if err != nil {
			return nil, err
		}
		return NewMap(values, nil), nil
	case *avro.UnionField:
		branches := make([]Branch, 0, len(t.ItemTypes()))
		for _, item := range t.ItemTypes() {
			b, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			branches = append(branches, Branch{Schema: b})
		}
		return NewUnion(nil, branches...)
	case *avro.Reference:
		return c.reference(t)
	}
	return nil, Errorf(nil, "unsupported schema node %T", t)
}

func (c *converter) reference(ref *avro.Reference) (Schema, error) {
	if ref.Def == nil {
		// references outside every definition, such as the root, are left unresolved
		def, ok := c.defs[ref.TypeName]
		if !ok {
			return nil, Errorf(nil, "unresolved reference %s", ref.TypeName)
		}
		ref.Def = def
	}
	qn := ref.Def.AvroName()
	name := Name{Namespace: qn.Namespace, Name: qn.Name}
	if _, ok := c.names.Lookup(name.String()); ok {
		return NewRef(c.names, name, nil)
	}

	switch def := ref.Def.(type) {
	case *avro.FixedDefinition:
		s, err := NewFixed(name, def.SizeBytes(), nil)
		if err != nil {
			return nil, err
		}
		return s, c.names.Register(s)
	case *avro.EnumDefinition:
		s, err := NewEnum(name, def.Symbols(), nil)
		if err != nil {
			return nil, err
		}
		return s, c.names.Register(s)
	case *avro.RecordDefinition:
		s, err := NewRecord(name, def.Doc(), nil)
		if err != nil {
			return nil, err
		}
		if err := c.names.Register(s); err != nil {
			return nil, err
		}
		fields := make([]*Field, 0, len(def.Fields()))
		for i, f := range def.Fields() {
			fs, err := c.convert(f.Type())
			if err != nil {
				return nil, err
			}
			fields = append(fields, &Field{
				Name:     f.Name(),
				Schema:   fs,
				Position: i,
				Aliases:  f.Aliases(),
				Doc:      f.Doc(),
			})
		}
		return s, s.Define(fields...)
	}
	return nil, Errorf(nil, "unsupported definition %T for %s", ref.Def, name)
}
