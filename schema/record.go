package schema

import (
	"reflect"
)

// Field is one member of a record.
type Field struct {
	Name     string
	Schema   Schema
	Position int   // declaration order in the source type or schema text
	Index    []int // reflect field index path; nil for parsed schemas
	Aliases  []string
	Doc      string
}

// RecordSchema is a named, ordered list of fields.
//
// A record is created empty and registered before its fields are resolved, so
// that fields may refer back to it; Define then sets the fields exactly once.
type RecordSchema struct {
	base
	name    Name
	doc     string
	fields  []*Field
	byName  map[string]*Field
	defined bool
}

func NewRecord(name Name, doc string, t reflect.Type) (*RecordSchema, error) {
	if !name.valid() {
		return nil, Errorf(t, "invalid record name %q", name)
	}
	return &RecordSchema{base: base{t}, name: name, doc: doc}, nil
}

// Define sets the record's fields in wire order.
func (s *RecordSchema) Define(fields ...*Field) error {
	if s.defined {
		return Errorf(s.typ, "record %s is already defined", s.name)
	}
	byName := make(map[string]*Field, len(fields))
	for _, f := range fields {
		if !validIdent(f.Name) {
			return Errorf(s.typ, "record %s has invalid field name %q", s.name, f.Name)
		}
		if f.Schema == nil {
			return Errorf(s.typ, "record %s field %s has no schema", s.name, f.Name)
		}
		if _, dup := byName[f.Name]; dup {
			return Errorf(s.typ, "record %s has duplicate field %q", s.name, f.Name)
		}
		byName[f.Name] = f
	}
	s.fields = fields
	s.byName = byName
	s.defined = true
	return nil
}

func (s *RecordSchema) Kind() Kind  { return Record }
func (s *RecordSchema) Name() Name  { return s.name }
func (s *RecordSchema) Doc() string { return s.doc }

// Fields returns the fields in wire order. The slice must not be modified.
func (s *RecordSchema) Fields() []*Field { return s.fields }

// Field looks a field up by name.
func (s *RecordSchema) Field(name string) (*Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Lookup finds the field that answers to name, either directly or by alias.
func (s *RecordSchema) Lookup(name string) (*Field, bool) {
	if f, ok := s.byName[name]; ok {
		return f, true
	}
	for _, f := range s.fields {
		for _, a := range f.Aliases {
			if a == name {
				return f, true
			}
		}
	}
	return nil, false
}

func (s *RecordSchema) String() string  { return stringOf(s) }
func (s *RecordSchema) write(w *writer) { w.record(s) }
