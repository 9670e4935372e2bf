package schema

import (
	"reflect"
	"strings"
)

// Schema is one node of an immutable schema tree.
//
// Every node carries the runtime type it was derived from; nodes parsed from
// schema text have no runtime type. String returns the Avro JSON of the node
// in Parsing Canonical Form.
type Schema interface {
	Kind() Kind
	RuntimeType() reflect.Type
	String() string

	write(w *writer)
}

// NamedSchema is a schema identified by its full name: record, enum or fixed.
type NamedSchema interface {
	Schema
	Name() Name
}

// Name is an Avro full name split into namespace and local name.
type Name struct {
	Namespace string
	Name      string
}

// ParseName splits a dotted full name.
func ParseName(full string) Name {
	i := strings.LastIndexByte(full, '.')
	if i < 0 {
		return Name{Name: full}
	}
	return Name{Namespace: full[:i], Name: full[i+1:]}
}

// String returns the full name.
func (n Name) String() string {
	if n.Namespace == "" {
		return n.Name
	}
	return n.Namespace + "." + n.Name
}

func (n Name) valid() bool {
	if !validIdent(n.Name) {
		return false
	}
	if n.Namespace == "" {
		return true
	}
	for _, part := range strings.Split(n.Namespace, ".") {
		if !validIdent(part) {
			return false
		}
	}
	return true
}

func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case i > 0 && '0' <= c && c <= '9':
		default:
			return false
		}
	}
	return true
}

type base struct {
	typ reflect.Type
}

func (b base) RuntimeType() reflect.Type { return b.typ }

func stringOf(s Schema) string {
	w := newWriter()
	defer w.release()
	s.write(w)
	return w.String()
}

// PrimitiveSchema is one of null, boolean, int, long, float, double, bytes or string.
type PrimitiveSchema struct {
	base
	kind Kind
}

// NewPrimitive returns a primitive node of kind k bound to t.
func NewPrimitive(k Kind, t reflect.Type) *PrimitiveSchema {
	if !k.Primitive() {
		panic("schema: NewPrimitive called with non-primitive kind " + k.String())
	}
	return &PrimitiveSchema{base: base{t}, kind: k}
}

func (s *PrimitiveSchema) Kind() Kind      { return s.kind }
func (s *PrimitiveSchema) String() string  { return stringOf(s) }
func (s *PrimitiveSchema) write(w *writer) { w.primitive(s) }

// FixedSchema is a named blob of exactly Size bytes.
type FixedSchema struct {
	base
	name Name
	size int
}

func NewFixed(name Name, size int, t reflect.Type) (*FixedSchema, error) {
	if !name.valid() {
		return nil, Errorf(t, "invalid fixed name %q", name)
	}
	if size <= 0 {
		return nil, Errorf(t, "fixed %s has non-positive size %d", name, size)
	}
	return &FixedSchema{base: base{t}, name: name, size: size}, nil
}

func (s *FixedSchema) Kind() Kind      { return Fixed }
func (s *FixedSchema) Name() Name      { return s.name }
func (s *FixedSchema) Size() int       { return s.size }
func (s *FixedSchema) String() string  { return stringOf(s) }
func (s *FixedSchema) write(w *writer) { w.fixed(s) }

// EnumSchema is a named set of symbols encoded by index.
type EnumSchema struct {
	base
	name    Name
	symbols []string
	index   map[string]int
}

func NewEnum(name Name, symbols []string, t reflect.Type) (*EnumSchema, error) {
	if !name.valid() {
		return nil, Errorf(t, "invalid enum name %q", name)
	}
	if len(symbols) == 0 {
		return nil, Errorf(t, "enum %s has no symbols", name)
	}
	index := make(map[string]int, len(symbols))
	for i, sym := range symbols {
		if !validIdent(sym) {
			return nil, Errorf(t, "enum %s has invalid symbol %q", name, sym)
		}
		if _, dup := index[sym]; dup {
			return nil, Errorf(t, "enum %s has duplicate symbol %q", name, sym)
		}
		index[sym] = i
	}
	return &EnumSchema{
		base:    base{t},
		name:    name,
		symbols: append([]string(nil), symbols...),
		index:   index,
	}, nil
}

func (s *EnumSchema) Kind() Kind { return Enum }
func (s *EnumSchema) Name() Name { return s.name }

// Symbols returns the symbols in index order. The slice must not be modified.
func (s *EnumSchema) Symbols() []string { return s.symbols }

// Index returns the position of sym, or -1.
func (s *EnumSchema) Index(sym string) int {
	if i, ok := s.index[sym]; ok {
		return i
	}
	return -1
}

func (s *EnumSchema) String() string  { return stringOf(s) }
func (s *EnumSchema) write(w *writer) { w.enum(s) }

// ArraySchema is a sequence of Items.
type ArraySchema struct {
	base
	items Schema
}

func NewArray(items Schema, t reflect.Type) *ArraySchema {
	return &ArraySchema{base: base{t}, items: items}
}

func (s *ArraySchema) Kind() Kind      { return Array }
func (s *ArraySchema) Items() Schema   { return s.items }
func (s *ArraySchema) String() string  { return stringOf(s) }
func (s *ArraySchema) write(w *writer) { w.array(s) }

// MapSchema maps string keys to Values.
type MapSchema struct {
	base
	values Schema
}

func NewMap(values Schema, t reflect.Type) *MapSchema {
	return &MapSchema{base: base{t}, values: values}
}

func (s *MapSchema) Kind() Kind      { return Map }
func (s *MapSchema) Values() Schema  { return s.values }
func (s *MapSchema) String() string  { return stringOf(s) }
func (s *MapSchema) write(w *writer) { w.mapping(s) }

// SurrogateSchema binds the schema of a surrogate type to the original type it
// stands in for. It is transparent on the wire and in schema text.
type SurrogateSchema struct {
	inner    Schema
	original reflect.Type
}

func NewSurrogate(inner Schema, original reflect.Type) *SurrogateSchema {
	return &SurrogateSchema{inner: inner, original: original}
}

func (s *SurrogateSchema) Kind() Kind                { return s.inner.Kind() }
func (s *SurrogateSchema) RuntimeType() reflect.Type { return s.original }
func (s *SurrogateSchema) Inner() Schema             { return s.inner }
func (s *SurrogateSchema) String() string            { return s.inner.String() }
func (s *SurrogateSchema) write(w *writer)           { s.inner.write(w) }

// Unwrap strips surrogate wrappers and dereferences back-references.
func Unwrap(s Schema) Schema {
	for {
		switch n := s.(type) {
		case *SurrogateSchema:
			s = n.inner
		case *RefSchema:
			s = n.Target()
		default:
			return s
		}
	}
}
