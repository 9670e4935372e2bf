package resolver

import (
	"encoding"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/samber/lo"

	"github.com/oy3o/avro/schema"
)

var (
	timeType            = reflect.TypeFor[time.Time]()
	urlType             = reflect.TypeFor[url.URL]()
	enumeratorType      = reflect.TypeFor[Enumerator]()
	namerType           = reflect.TypeFor[Namer]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// Reflection is the default Resolver. It maps exported struct fields to
// record fields, configured through struct tags:
//
//	Name  string `avro:"name"`             // rename
//	Hash  []byte `avro:"hash,fixed=32"`    // fixed instead of bytes
//	ID    int64  `avro:"id,order=0"`       // wire position
//	Cache any    `avro:"-"`                // never serialized
type Reflection struct {
	// TagName is the struct tag key; "avro" when empty.
	TagName string
}

var _ Resolver = Reflection{}

// Resolve implements Resolver.
func (r Reflection) Resolve(t reflect.Type, opts Options) (schema.Schema, error) {
	if t == nil {
		return nil, schema.Errorf(nil, "nil type")
	}
	if bad, ok := lo.Find(opts.KnownTypes, func(kt reflect.Type) bool {
		return kt == nil || kt.Kind() == reflect.Interface
	}); ok {
		return nil, schema.Errorf(bad, "known type must be concrete")
	}
	tag := r.TagName
	if tag == "" {
		tag = "avro"
	}
	rs := &resolution{
		opts:  opts,
		known: lo.Uniq(opts.KnownTypes),
		tag:   tag,
		names: schema.NewNames(),
		seen:  make(map[reflect.Type]schema.NamedSchema),
	}
	return rs.resolve(t)
}

// IsTextual reports whether t is represented as an Avro string through its
// text marshaling methods.
func IsTextual(t reflect.Type) bool {
	if t == urlType {
		return true
	}
	return t.Kind() != reflect.String &&
		t.Implements(textMarshalerType) &&
		reflect.PointerTo(t).Implements(textUnmarshalerType)
}

// IsEnum reports whether t is an integer type listing Avro enum symbols.
func IsEnum(t reflect.Type) bool {
	return isInteger(t.Kind()) &&
		(t.Implements(enumeratorType) || reflect.PointerTo(t).Implements(enumeratorType))
}

// Symbols returns the enum symbols of t.
func Symbols(t reflect.Type) []string {
	return reflect.New(t).Interface().(Enumerator).AvroSymbols()
}

type resolution struct {
	opts  Options
	known []reflect.Type
	tag   string
	names *schema.Names
	seen  map[reflect.Type]schema.NamedSchema
	anon  int
}

func (r *resolution) resolve(t reflect.Type) (schema.Schema, error) {
	if r.opts.Surrogate != nil {
		if st, ok := r.opts.Surrogate.SurrogateType(t); ok && st != t {
			if st == nil {
				return nil, schema.Errorf(t, "surrogate returned no type")
			}
			inner, err := r.resolve(st)
			if err != nil {
				return nil, err
			}
			return schema.NewSurrogate(inner, t), nil
		}
	}

	if named, ok := r.seen[t]; ok {
		return schema.NewRef(r.names, named.Name(), t)
	}

	switch {
	case t == timeType:
		return schema.NewPrimitive(schema.Long, t), nil
	case IsEnum(t):
		return r.enum(t)
	case IsTextual(t):
		return schema.NewPrimitive(schema.String, t), nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return schema.NewPrimitive(schema.Boolean, t), nil
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Uint8, reflect.Uint16:
		return schema.NewPrimitive(schema.Int, t), nil
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return schema.NewPrimitive(schema.Long, t), nil
	case reflect.Float32:
		return schema.NewPrimitive(schema.Float, t), nil
	case reflect.Float64:
		return schema.NewPrimitive(schema.Double, t), nil
	case reflect.String:
		return schema.NewPrimitive(schema.String, t), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return schema.NewPrimitive(schema.Bytes, t), nil
		}
		return r.array(t)
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return r.fixed(t, r.nameFor(t, "Fixed"+strconv.Itoa(t.Len())), t.Len())
		}
		return r.array(t)
	case reflect.Map:
		return r.mapping(t)
	case reflect.Struct:
		return r.record(t)
	case reflect.Pointer:
		return r.pointer(t)
	case reflect.Interface:
		return r.iface(t)
	}
	return nil, schema.Errorf(t, "unsupported kind %s", t.Kind())
}

func (r *resolution) register(t reflect.Type, s schema.NamedSchema) error {
	if err := r.names.Register(s); err != nil {
		return err
	}
	r.seen[t] = s
	return nil
}

func (r *resolution) enum(t reflect.Type) (schema.Schema, error) {
	s, err := schema.NewEnum(r.nameFor(t, "Enum"), Symbols(t), t)
	if err != nil {
		return nil, err
	}
	return s, r.register(t, s)
}

func (r *resolution) fixed(t reflect.Type, name schema.Name, size int) (schema.Schema, error) {
	s, err := schema.NewFixed(name, size, t)
	if err != nil {
		return nil, err
	}
	return s, r.register(t, s)
}

func (r *resolution) array(t reflect.Type) (schema.Schema, error) {
	items, err := r.resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return schema.NewArray(items, t), nil
}

func (r *resolution) mapping(t reflect.Type) (schema.Schema, error) {
	if k := t.Key(); k.Kind() != reflect.String && !isInteger(k.Kind()) && !IsTextual(k) {
		return nil, schema.Errorf(t, "map key %s cannot be represented as a string", k)
	}
	values, err := r.resolve(t.Elem())
	if err != nil {
		return nil, err
	}
	return schema.NewMap(values, t), nil
}

// pointer makes *T nullable: ["null", T].
func (r *resolution) pointer(t reflect.Type) (schema.Schema, error) {
	elem := t.Elem()
	if k := elem.Kind(); k == reflect.Pointer || k == reflect.Interface {
		return nil, schema.Errorf(t, "pointer to %s is not supported", k)
	}
	inner, err := r.resolve(elem)
	if err != nil {
		return nil, err
	}
	return schema.NewUnion(t,
		schema.Branch{Schema: schema.NewPrimitive(schema.Null, t), Type: t},
		schema.Branch{Schema: inner, Type: elem},
	)
}

// iface builds a union of the known types implementing t, followed by null.
func (r *resolution) iface(t reflect.Type) (schema.Schema, error) {
	impls := lo.Filter(r.known, func(kt reflect.Type, _ int) bool { return kt.Implements(t) })
	if len(impls) == 0 {
		return nil, schema.Errorf(t, "no known type implements the interface")
	}
	branches := make([]schema.Branch, 0, len(impls)+1)
	for _, kt := range impls {
		target := kt
		if kt.Kind() == reflect.Pointer {
			target = kt.Elem()
		}
		s, err := r.resolve(target)
		if err != nil {
			return nil, err
		}
		if s.Kind() == schema.Union {
			return nil, schema.Errorf(kt, "known type resolves to a union")
		}
		branches = append(branches, schema.Branch{Schema: s, Type: kt})
	}
	branches = append(branches, schema.Branch{Schema: schema.NewPrimitive(schema.Null, t), Type: t})
	u, err := schema.NewUnion(t, branches...)
	if err != nil {
		return nil, &schema.SchemaError{Type: t, Reason: "ambiguous known types", Err: err}
	}
	return u, nil
}

func (r *resolution) record(t reflect.Type) (schema.Schema, error) {
	rec, err := schema.NewRecord(r.nameFor(t, "Record"), "", t)
	if err != nil {
		return nil, err
	}
	if err := r.register(t, rec); err != nil {
		return nil, err
	}

	members := r.members(t, nil)
	sort.SliceStable(members, func(i, j int) bool { return members[i].order < members[j].order })

	fields := make([]*schema.Field, 0, len(members))
	for _, m := range members {
		var fs schema.Schema
		if m.fixed > 0 {
			fs, err = r.fixedField(rec, m)
		} else {
			fs, err = r.resolve(m.typ)
		}
		if err != nil {
			return nil, err
		}
		fields = append(fields, &schema.Field{
			Name:     m.name,
			Schema:   fs,
			Position: m.position,
			Index:    m.index,
		})
	}
	if err := rec.Define(fields...); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *resolution) fixedField(rec *schema.RecordSchema, m member) (schema.Schema, error) {
	k := m.typ.Kind()
	if !(k == reflect.Slice || k == reflect.Array) || m.typ.Elem().Kind() != reflect.Uint8 {
		return nil, schema.Errorf(m.typ, "fixed tag on field %s requires a byte slice or array", m.name)
	}
	if k == reflect.Array && m.typ.Len() != m.fixed {
		return nil, schema.Errorf(m.typ, "fixed=%d disagrees with array length %d", m.fixed, m.typ.Len())
	}
	name := rec.Name()
	name.Name += "_" + m.name
	s, err := schema.NewFixed(name, m.fixed, m.typ)
	if err != nil {
		return nil, err
	}
	return s, r.names.Register(s)
}

// nameFor derives the Avro full name of t. Types implementing Namer choose
// their own name; anonymous types are numbered.
func (r *resolution) nameFor(t reflect.Type, anonymous string) schema.Name {
	if t.Implements(namerType) || reflect.PointerTo(t).Implements(namerType) {
		return schema.ParseName(reflect.New(t).Interface().(Namer).AvroName())
	}
	if t.Name() == "" {
		if anonymous == "Record" {
			r.anon++
			return schema.Name{Name: "Anonymous" + strconv.Itoa(r.anon)}
		}
		return schema.Name{Name: anonymous}
	}
	return schema.Name{Namespace: namespace(t.PkgPath()), Name: identifier(t.Name())}
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}
