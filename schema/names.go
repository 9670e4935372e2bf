package schema

import "reflect"

// Names registers named schemas by full name while a tree is being built.
// A Names is not safe for concurrent use; once the tree is complete it is
// only read.
type Names struct {
	m map[string]NamedSchema
}

func NewNames() *Names {
	return &Names{m: make(map[string]NamedSchema)}
}

// Register adds s under its full name.
func (n *Names) Register(s NamedSchema) error {
	full := s.Name().String()
	if _, ok := n.m[full]; ok {
		return Errorf(s.RuntimeType(), "name %s is already defined", full)
	}
	n.m[full] = s
	return nil
}

// Lookup returns the schema registered under full.
func (n *Names) Lookup(full string) (NamedSchema, bool) {
	s, ok := n.m[full]
	return s, ok
}

func (n *Names) Len() int { return len(n.m) }

// RefSchema is a back-reference to a named schema registered earlier in the
// same tree. Recursive types are expressed with references instead of cycles.
type RefSchema struct {
	base
	name  Name
	names *Names
}

// NewRef returns a reference to the schema registered under name.
func NewRef(names *Names, name Name, t reflect.Type) (*RefSchema, error) {
	if _, ok := names.Lookup(name.String()); !ok {
		return nil, Errorf(t, "reference to undefined name %s", name)
	}
	return &RefSchema{base: base{t}, name: name, names: names}, nil
}

func (s *RefSchema) Name() Name { return s.name }

// Target returns the referenced schema.
func (s *RefSchema) Target() NamedSchema {
	target, _ := s.names.Lookup(s.name.String())
	return target
}

func (s *RefSchema) Kind() Kind      { return s.Target().Kind() }
func (s *RefSchema) String() string  { return stringOf(s) }
func (s *RefSchema) write(w *writer) { w.ref(s) }
