package avro

import (
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/schema"
)

// encoder compiles the encode closure of s for values of type t.
func (c *compiler) encoder(s schema.Schema, t reflect.Type) (*encoder, error) {
	if n, ok := s.(*schema.SurrogateSchema); ok && n.RuntimeType() == t {
		return c.surrogateEncoder(n, t)
	}
	if t.Kind() == reflect.Pointer && s.Kind() != schema.Union {
		return c.indirectEncoder(s, t)
	}

	switch n := s.(type) {
	case *schema.RefSchema:
		return c.namedEncoder(n.Target(), t)
	case schema.NamedSchema:
		return c.namedEncoder(n, t)
	case *schema.PrimitiveSchema:
		fn, err := c.primitiveEncoder(n.Kind(), t)
		if err != nil {
			return nil, err
		}
		return &encoder{fn}, nil
	case *schema.ArraySchema:
		return c.arrayEncoder(n, t)
	case *schema.MapSchema:
		return c.mapEncoder(n, t)
	case *schema.UnionSchema:
		return c.unionEncoder(n, t)
	}
	return nil, schema.Errorf(t, "cannot encode %s", s.Kind())
}

func (c *compiler) namedEncoder(n schema.NamedSchema, t reflect.Type) (*encoder, error) {
	key := namedKey{n.Name().String(), t}
	if node, ok := c.encoders[key]; ok {
		return node, nil
	}
	node := &encoder{}
	c.encoders[key] = node

	var (
		fn  encodeFunc
		err error
	)
	switch n := n.(type) {
	case *schema.RecordSchema:
		fn, err = c.recordEncoder(n, t)
	case *schema.EnumSchema:
		fn, err = enumEncoder(n, t)
	case *schema.FixedSchema:
		fn, err = fixedEncoder(n, t)
	default:
		err = schema.Errorf(t, "cannot encode %s", n.Kind())
	}
	if err != nil {
		delete(c.encoders, key)
		return nil, err
	}
	node.fn = fn
	return node, nil
}

func (c *compiler) surrogateEncoder(n *schema.SurrogateSchema, t reflect.Type) (*encoder, error) {
	if c.surrogate == nil {
		return nil, schema.Errorf(t, "schema uses a surrogate but none is configured")
	}
	st := n.Inner().RuntimeType()
	inner, err := c.encoder(n.Inner(), st)
	if err != nil {
		return nil, err
	}
	conv := c.surrogate
	return &encoder{func(e *codec.Encoder, v reflect.Value) error {
		sv, err := conv.ToSurrogate(v.Interface())
		if err != nil {
			return mismatch("surrogate for %s: %v", t, err)
		}
		rv := reflect.ValueOf(sv)
		if !rv.IsValid() || rv.Type() != st {
			return mismatch("surrogate for %s returned %T, want %s", t, sv, st)
		}
		return inner.encode(e, rv)
	}}, nil
}

func (c *compiler) indirectEncoder(s schema.Schema, t reflect.Type) (*encoder, error) {
	elem := t.Elem()
	if elem.Kind() == reflect.Pointer {
		return nil, schema.Errorf(t, "pointer to pointer is not supported")
	}
	inner, err := c.encoder(s, elem)
	if err != nil {
		return nil, err
	}
	return &encoder{func(e *codec.Encoder, v reflect.Value) error {
		if v.IsNil() {
			return mismatch("nil %s for non-nullable %s", t, s.Kind())
		}
		return inner.encode(e, v.Elem())
	}}, nil
}

func (c *compiler) primitiveEncoder(k schema.Kind, t reflect.Type) (encodeFunc, error) {
	switch k {
	case schema.Null:
		return func(*codec.Encoder, reflect.Value) error { return nil }, nil

	case schema.Boolean:
		if t.Kind() == reflect.Bool {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeBool(v.Bool())
				return nil
			}, nil
		}

	case schema.Int:
		if get, ok := intGetter(t, math.MinInt32, math.MaxInt32); ok {
			return func(e *codec.Encoder, v reflect.Value) error {
				n, err := get(v)
				e.EncodeInt(int32(n))
				return err
			}, nil
		}

	case schema.Long:
		if t == timeType {
			posix := c.posix
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeLong(timeToLong(v.Interface().(time.Time), posix))
				return nil
			}, nil
		}
		if get, ok := intGetter(t, math.MinInt64, math.MaxInt64); ok {
			return func(e *codec.Encoder, v reflect.Value) error {
				n, err := get(v)
				e.EncodeLong(n)
				return err
			}, nil
		}

	case schema.Float:
		if k := t.Kind(); k == reflect.Float32 || k == reflect.Float64 {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeFloat(float32(v.Float()))
				return nil
			}, nil
		}

	case schema.Double:
		if k := t.Kind(); k == reflect.Float32 || k == reflect.Float64 {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeDouble(v.Float())
				return nil
			}, nil
		}

	case schema.Bytes:
		if isByteSlice(t) {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeBytes(v.Bytes())
				return nil
			}, nil
		}
		if t.Kind() == reflect.String {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeString(v.String())
				return nil
			}, nil
		}

	case schema.String:
		if get, ok := stringGetter(t); ok {
			return func(e *codec.Encoder, v reflect.Value) error {
				s, err := get(v)
				if err != nil {
					return err
				}
				e.EncodeString(s)
				return nil
			}, nil
		}
		if isByteSlice(t) {
			return func(e *codec.Encoder, v reflect.Value) error {
				e.EncodeBytes(v.Bytes())
				return nil
			}, nil
		}
	}
	return nil, schema.Errorf(t, "cannot encode %s as %s", t, k)
}

func enumEncoder(n *schema.EnumSchema, t reflect.Type) (encodeFunc, error) {
	count := int64(len(n.Symbols()))
	get, ok := intGetter(t, 0, count-1)
	if !ok {
		return nil, schema.Errorf(t, "enum %s requires an integer type", n.Name())
	}
	return func(e *codec.Encoder, v reflect.Value) error {
		idx, err := get(v)
		if err != nil {
			return mismatch("enum %s has no symbol at %v", n.Name(), v)
		}
		e.EncodeInt(int32(idx))
		return nil
	}, nil
}

func fixedEncoder(n *schema.FixedSchema, t reflect.Type) (encodeFunc, error) {
	size := n.Size()
	switch {
	case isByteArray(t):
		if t.Len() != size {
			return nil, schema.Errorf(t, "fixed %s has size %d", n.Name(), size)
		}
		return func(e *codec.Encoder, v reflect.Value) error {
			if v.CanAddr() {
				e.EncodeFixed(size, v.Bytes())
				return nil
			}
			buf := make([]byte, size)
			reflect.Copy(reflect.ValueOf(buf), v)
			e.EncodeFixed(size, buf)
			return nil
		}, nil
	case isByteSlice(t):
		return func(e *codec.Encoder, v reflect.Value) error {
			if v.Len() != size {
				return mismatch("fixed %s needs %d bytes, got %d", n.Name(), size, v.Len())
			}
			e.EncodeFixed(size, v.Bytes())
			return nil
		}, nil
	}
	return nil, schema.Errorf(t, "fixed %s requires a byte slice or array", n.Name())
}

func (c *compiler) arrayEncoder(n *schema.ArraySchema, t reflect.Type) (*encoder, error) {
	if k := t.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, schema.Errorf(t, "array requires a slice or array type")
	}
	items, err := c.encoder(n.Items(), t.Elem())
	if err != nil {
		return nil, err
	}
	return &encoder{func(e *codec.Encoder, v reflect.Value) error {
		if l := v.Len(); l > 0 {
			e.EncodeBlockCount(int64(l))
			for i := 0; i < l; i++ {
				if err := items.encode(e, v.Index(i)); err != nil {
					return err
				}
			}
		}
		e.EncodeBlockCount(0)
		return nil
	}}, nil
}

func (c *compiler) mapEncoder(n *schema.MapSchema, t reflect.Type) (*encoder, error) {
	if t.Kind() != reflect.Map {
		return nil, schema.Errorf(t, "map requires a map type")
	}
	key, ok := keyGetter(t.Key())
	if !ok {
		return nil, schema.Errorf(t, "map key %s cannot be represented as a string", t.Key())
	}
	values, err := c.encoder(n.Values(), t.Elem())
	if err != nil {
		return nil, err
	}
	type entry struct {
		key   string
		value reflect.Value
	}
	return &encoder{func(e *codec.Encoder, v reflect.Value) error {
		l := v.Len()
		if l == 0 {
			e.EncodeBlockCount(0)
			return nil
		}
		// Keys are sorted so equal maps always encode to equal bytes.
		entries := make([]entry, 0, l)
		for it := v.MapRange(); it.Next(); {
			k, err := key(it.Key())
			if err != nil {
				return err
			}
			entries = append(entries, entry{k, it.Value()})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

		e.EncodeBlockCount(int64(l))
		for _, en := range entries {
			e.EncodeString(en.key)
			if err := values.encode(e, en.value); err != nil {
				return err
			}
		}
		e.EncodeBlockCount(0)
		return nil
	}}, nil
}

func (c *compiler) recordEncoder(n *schema.RecordSchema, t reflect.Type) (encodeFunc, error) {
	if t.Kind() != reflect.Struct {
		return nil, schema.Errorf(t, "record %s requires a struct type", n.Name())
	}
	type step struct {
		index []int
		enc   *encoder
	}
	steps := make([]step, 0, len(n.Fields()))
	for _, f := range n.Fields() {
		if f.Index == nil {
			return nil, schema.Errorf(t, "record %s field %s is not bound to a struct field", n.Name(), f.Name)
		}
		enc, err := c.encoder(f.Schema, t.FieldByIndex(f.Index).Type)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{f.Index, enc})
	}
	return func(e *codec.Encoder, v reflect.Value) error {
		for _, s := range steps {
			if err := s.enc.encode(e, v.FieldByIndex(s.index)); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// unionEncoder selects the branch from the runtime value. Pointer slots pick
// null for nil and the element branch otherwise; interface slots pick the
// first branch whose type equals the dynamic type of the value.
func (c *compiler) unionEncoder(n *schema.UnionSchema, t reflect.Type) (*encoder, error) {
	slot := t.Kind()
	if slot != reflect.Pointer && slot != reflect.Interface {
		return nil, schema.Errorf(t, "union requires a pointer or interface type")
	}
	null := int64(n.NullIndex())
	encs := make([]*encoder, n.Len())
	byType := make(map[reflect.Type]int, n.Len())
	for i, b := range n.Branches() {
		if b.Schema.Kind() == schema.Null {
			continue
		}
		bt := b.Type
		if slot == reflect.Pointer && bt != t.Elem() && bt != t {
			return nil, schema.Errorf(t, "union branch %d type %s is not held by %s", i, bt, t)
		}
		enc, err := c.encoder(b.Schema, bt)
		if err != nil {
			return nil, err
		}
		encs[i] = enc
		if _, dup := byType[bt]; !dup {
			byType[bt] = i
		}
	}

	if slot == reflect.Pointer {
		elem := -1
		for i, enc := range encs {
			if enc != nil {
				elem = i
				break
			}
		}
		if elem < 0 {
			return nil, schema.Errorf(t, "union has no branch for %s", t.Elem())
		}
		elemEnc := encs[elem]
		byValue := n.Branch(elem).Type == t
		return &encoder{func(e *codec.Encoder, v reflect.Value) error {
			if v.IsNil() {
				if null < 0 {
					return mismatch("nil %s and the union has no null branch", t)
				}
				e.EncodeLong(null)
				return nil
			}
			e.EncodeLong(int64(elem))
			if byValue {
				return elemEnc.encode(e, v)
			}
			return elemEnc.encode(e, v.Elem())
		}}, nil
	}

	return &encoder{func(e *codec.Encoder, v reflect.Value) error {
		if v.IsNil() {
			if null < 0 {
				return mismatch("nil %s and the union has no null branch", t)
			}
			e.EncodeLong(null)
			return nil
		}
		dyn := v.Elem()
		i, ok := byType[dyn.Type()]
		if !ok {
			return mismatch("no branch of %s accepts %s", t, dyn.Type())
		}
		e.EncodeLong(int64(i))
		return encs[i].encode(e, dyn)
	}}, nil
}
