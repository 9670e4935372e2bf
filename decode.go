package avro

import (
	"reflect"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/schema"
)

// decoder compiles a closure that reads data written with schema w into a
// settable value of type t, whose own schema is r. When w and r are the same
// tree this is plain decoding; otherwise the Avro resolution rules apply:
// record fields are matched by name, writer-only fields are skipped, enums
// are mapped by symbol and numeric types may be promoted.
func (c *compiler) decoder(w, r schema.Schema, t reflect.Type) (*decoder, error) {
	if n, ok := r.(*schema.SurrogateSchema); ok && n.RuntimeType() == t {
		return c.surrogateDecoder(w, n, t)
	}
	if t.Kind() == reflect.Pointer && r.Kind() != schema.Union {
		return c.indirectDecoder(w, r, t)
	}

	w = schema.Unwrap(w)
	if wu, ok := w.(*schema.UnionSchema); ok {
		return c.writerUnionDecoder(wu, r, t)
	}
	if ref, ok := r.(*schema.RefSchema); ok {
		r = ref.Target()
	}

	switch rn := r.(type) {
	case *schema.UnionSchema:
		return c.readerUnionDecoder(w, rn, t)
	case schema.NamedSchema:
		return c.namedDecoder(w, rn, t)
	case *schema.PrimitiveSchema:
		fn, err := c.primitiveDecoder(w.Kind(), rn.Kind(), t)
		if err != nil {
			return nil, err
		}
		return &decoder{fn}, nil
	case *schema.ArraySchema:
		if wa, ok := w.(*schema.ArraySchema); ok {
			return c.arrayDecoder(wa, rn, t)
		}
	case *schema.MapSchema:
		if wm, ok := w.(*schema.MapSchema); ok {
			return c.mapDecoder(wm, rn, t)
		}
	}
	return nil, incompatible(w, r, t)
}

func incompatible(w, r schema.Schema, t reflect.Type) error {
	return schema.Errorf(t, "writer %s cannot be read as %s", w.Kind(), r.Kind())
}

func (c *compiler) namedDecoder(w schema.Schema, r schema.NamedSchema, t reflect.Type) (*decoder, error) {
	if w.Kind() != r.Kind() {
		return nil, incompatible(w, r, t)
	}
	key := resolveKey{fullName(w), r.Name().String(), t}
	if err, ok := c.failed[key]; ok {
		return nil, err
	}
	if node, ok := c.decoders[key]; ok {
		return node, nil
	}
	node := &decoder{}
	c.decoders[key] = node

	var (
		fn  decodeFunc
		err error
	)
	switch rn := r.(type) {
	case *schema.RecordSchema:
		fn, err = c.recordDecoder(w.(*schema.RecordSchema), rn, t)
	case *schema.EnumSchema:
		fn, err = enumDecoder(w.(*schema.EnumSchema), rn, t)
	case *schema.FixedSchema:
		fn, err = fixedDecoder(w.(*schema.FixedSchema), rn, t)
	default:
		err = incompatible(w, r, t)
	}
	if err != nil {
		// Nodes compiled meanwhile may already hold this one.
		node.fn = func(codec.Decoder, reflect.Value) error { return err }
		c.failed[key] = err
		return nil, err
	}
	node.fn = fn
	return node, nil
}

func (c *compiler) surrogateDecoder(w schema.Schema, n *schema.SurrogateSchema, t reflect.Type) (*decoder, error) {
	if c.surrogate == nil {
		return nil, schema.Errorf(t, "schema uses a surrogate but none is configured")
	}
	st := n.Inner().RuntimeType()
	inner, err := c.decoder(w, n.Inner(), st)
	if err != nil {
		return nil, err
	}
	conv := c.surrogate
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		tmp := reflect.New(st).Elem()
		if err := inner.decode(d, tmp); err != nil || d.Err() != nil {
			return err
		}
		ov, err := conv.FromSurrogate(tmp.Interface(), t)
		if err != nil {
			return mismatch("surrogate for %s: %v", t, err)
		}
		rv := reflect.ValueOf(ov)
		if !rv.IsValid() {
			v.SetZero()
			return nil
		}
		if !rv.Type().AssignableTo(t) {
			return mismatch("surrogate for %s returned %T", t, ov)
		}
		v.Set(rv)
		return nil
	}}, nil
}

func (c *compiler) indirectDecoder(w, r schema.Schema, t reflect.Type) (*decoder, error) {
	elem := t.Elem()
	if elem.Kind() == reflect.Pointer {
		return nil, schema.Errorf(t, "pointer to pointer is not supported")
	}
	inner, err := c.decoder(w, r, elem)
	if err != nil {
		return nil, err
	}
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		if v.IsNil() {
			v.Set(reflect.New(elem))
		}
		return inner.decode(d, v.Elem())
	}}, nil
}

// promotable reports whether data written as w may be read as r.
func promotable(w, r schema.Kind) bool {
	if w == r {
		return true
	}
	switch w {
	case schema.Int:
		return r == schema.Long || r == schema.Float || r == schema.Double
	case schema.Long:
		return r == schema.Float || r == schema.Double
	case schema.Float:
		return r == schema.Double
	case schema.String:
		return r == schema.Bytes
	case schema.Bytes:
		return r == schema.String
	}
	return false
}

func (c *compiler) primitiveDecoder(w, r schema.Kind, t reflect.Type) (decodeFunc, error) {
	if !w.Primitive() || !promotable(w, r) {
		return nil, schema.Errorf(t, "writer %s cannot be read as %s", w, r)
	}
	switch r {
	case schema.Null:
		return func(codec.Decoder, reflect.Value) error { return nil }, nil

	case schema.Boolean:
		if t.Kind() == reflect.Bool {
			return func(d codec.Decoder, v reflect.Value) error {
				v.SetBool(d.DecodeBool())
				return nil
			}, nil
		}

	case schema.Int, schema.Long:
		read := readInteger(w)
		if r == schema.Long && t == timeType {
			posix := c.posix
			return func(d codec.Decoder, v reflect.Value) error {
				v.Set(reflect.ValueOf(longToTime(read(d), posix)))
				return nil
			}, nil
		}
		if set, ok := intSetter(t); ok {
			return func(d codec.Decoder, v reflect.Value) error {
				return set(v, read(d))
			}, nil
		}

	case schema.Float, schema.Double:
		read := readFloating(w)
		if set, ok := floatSetter(t); ok {
			return func(d codec.Decoder, v reflect.Value) error {
				return set(v, read(d))
			}, nil
		}

	case schema.String:
		if set, ok := stringSetter(t); ok {
			return func(d codec.Decoder, v reflect.Value) error {
				s := d.DecodeString()
				if d.Err() != nil {
					return nil
				}
				return set(v, s)
			}, nil
		}

	case schema.Bytes:
		if isByteSlice(t) {
			return func(d codec.Decoder, v reflect.Value) error {
				v.SetBytes(d.DecodeBytes())
				return nil
			}, nil
		}
		if t.Kind() == reflect.String {
			return func(d codec.Decoder, v reflect.Value) error {
				v.SetString(d.DecodeString())
				return nil
			}, nil
		}
	}
	return nil, schema.Errorf(t, "cannot decode %s into %s", r, t)
}

func readInteger(w schema.Kind) func(d codec.Decoder) int64 {
	if w == schema.Int {
		return func(d codec.Decoder) int64 { return int64(d.DecodeInt()) }
	}
	return func(d codec.Decoder) int64 { return d.DecodeLong() }
}

func readFloating(w schema.Kind) func(d codec.Decoder) float64 {
	switch w {
	case schema.Int:
		return func(d codec.Decoder) float64 { return float64(d.DecodeInt()) }
	case schema.Long:
		return func(d codec.Decoder) float64 { return float64(d.DecodeLong()) }
	case schema.Float:
		return func(d codec.Decoder) float64 { return float64(d.DecodeFloat()) }
	}
	return func(d codec.Decoder) float64 { return d.DecodeDouble() }
}

func enumDecoder(w, r *schema.EnumSchema, t reflect.Type) (decodeFunc, error) {
	set, ok := intSetter(t)
	if !ok {
		return nil, schema.Errorf(t, "enum %s requires an integer type", r.Name())
	}
	symbols := w.Symbols()
	mapping := make([]int, len(symbols))
	for i, sym := range symbols {
		mapping[i] = r.Index(sym)
	}
	return func(d codec.Decoder, v reflect.Value) error {
		idx := d.DecodeInt()
		if d.Err() != nil {
			return nil
		}
		if idx < 0 || int(idx) >= len(mapping) {
			return corrupt("enum %s index %d out of range [0,%d)", w.Name(), idx, len(mapping))
		}
		m := mapping[idx]
		if m < 0 {
			return mismatch("enum %s has no symbol %s", r.Name(), symbols[idx])
		}
		return set(v, int64(m))
	}, nil
}

func fixedDecoder(w, r *schema.FixedSchema, t reflect.Type) (decodeFunc, error) {
	size := r.Size()
	if w.Size() != size {
		return nil, schema.Errorf(t, "fixed %s has size %d, writer %s has %d", r.Name(), size, w.Name(), w.Size())
	}
	switch {
	case isByteArray(t) && t.Len() == size:
		return func(d codec.Decoder, v reflect.Value) error {
			reflect.Copy(v, reflect.ValueOf(d.DecodeFixed(size)))
			return nil
		}, nil
	case isByteSlice(t):
		return func(d codec.Decoder, v reflect.Value) error {
			v.SetBytes(d.DecodeFixed(size))
			return nil
		}, nil
	}
	return nil, schema.Errorf(t, "fixed %s requires a byte slice or [%d]byte", r.Name(), size)
}

func (c *compiler) arrayDecoder(w, r *schema.ArraySchema, t reflect.Type) (*decoder, error) {
	k := t.Kind()
	if k != reflect.Slice && k != reflect.Array {
		return nil, schema.Errorf(t, "array requires a slice or array type")
	}
	elem := t.Elem()
	items, err := c.decoder(w.Items(), r.Items(), elem)
	if err != nil {
		return nil, err
	}

	if k == reflect.Array {
		return &decoder{func(d codec.Decoder, v reflect.Value) error {
			i := 0
			for n := d.DecodeBlockCount(); n > 0; n = d.DecodeBlockCount() {
				for ; n > 0 && d.Err() == nil; n-- {
					if i == v.Len() {
						return mismatch("array holds more than %d items", v.Len())
					}
					if err := items.decode(d, v.Index(i)); err != nil {
						return err
					}
					i++
				}
			}
			for ; i < v.Len(); i++ {
				v.Index(i).SetZero()
			}
			return nil
		}}, nil
	}

	zero := reflect.Zero(elem)
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		var out reflect.Value
		empty := 0
		for n := d.DecodeBlockCount(); n > 0; n = d.DecodeBlockCount() {
			if !out.IsValid() {
				out = reflect.MakeSlice(t, 0, codec.Prealloc(n))
			}
			for ; n > 0 && d.Err() == nil; n-- {
				before := d.Count()
				out = reflect.Append(out, zero)
				if err := items.decode(d, out.Index(out.Len()-1)); err != nil {
					return err
				}
				if d.Count() == before {
					if empty++; empty > codec.MaxEmptyItems {
						return corrupt("more than %d array items without data", codec.MaxEmptyItems)
					}
				}
			}
		}
		if out.IsValid() {
			v.Set(out)
		} else {
			v.SetZero()
		}
		return nil
	}}, nil
}

func (c *compiler) mapDecoder(w, r *schema.MapSchema, t reflect.Type) (*decoder, error) {
	if t.Kind() != reflect.Map {
		return nil, schema.Errorf(t, "map requires a map type")
	}
	key, ok := keySetter(t.Key())
	if !ok {
		return nil, schema.Errorf(t, "map key %s cannot be parsed from a string", t.Key())
	}
	elem := t.Elem()
	values, err := c.decoder(w.Values(), r.Values(), elem)
	if err != nil {
		return nil, err
	}
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		var m reflect.Value
		for n := d.DecodeBlockCount(); n > 0; n = d.DecodeBlockCount() {
			if !m.IsValid() {
				m = reflect.MakeMapWithSize(t, codec.Prealloc(n))
			}
			for ; n > 0 && d.Err() == nil; n-- {
				s := d.DecodeString()
				if d.Err() != nil {
					return nil
				}
				k, err := key(s)
				if err != nil {
					return err
				}
				val := reflect.New(elem).Elem()
				if err := values.decode(d, val); err != nil {
					return err
				}
				m.SetMapIndex(k, val)
			}
		}
		if m.IsValid() {
			v.Set(m)
		} else {
			v.SetZero()
		}
		return nil
	}}, nil
}

func (c *compiler) recordDecoder(w, r *schema.RecordSchema, t reflect.Type) (decodeFunc, error) {
	if t.Kind() != reflect.Struct {
		return nil, schema.Errorf(t, "record %s requires a struct type", r.Name())
	}
	type step struct {
		index []int
		dec   *decoder
		skip  *skipper
	}
	steps := make([]step, 0, len(w.Fields()))
	for _, wf := range w.Fields() {
		rf, ok := r.Lookup(wf.Name)
		for _, alias := range wf.Aliases {
			if ok {
				break
			}
			rf, ok = r.Lookup(alias)
		}
		if !ok {
			sk, err := c.skipper(wf.Schema)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{skip: sk})
			continue
		}
		if rf.Index == nil {
			return nil, schema.Errorf(t, "record %s field %s is not bound to a struct field", r.Name(), rf.Name)
		}
		dec, err := c.decoder(wf.Schema, rf.Schema, t.FieldByIndex(rf.Index).Type)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step{index: rf.Index, dec: dec})
	}
	return func(d codec.Decoder, v reflect.Value) error {
		for _, s := range steps {
			var err error
			if s.skip != nil {
				err = s.skip.skip(d)
			} else {
				err = s.dec.decode(d, v.FieldByIndex(s.index))
			}
			if err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// writerUnionDecoder reads the branch index written by the producer and
// dispatches to that branch. Branches the reader cannot accept fail only when
// they occur in the data.
func (c *compiler) writerUnionDecoder(w *schema.UnionSchema, r schema.Schema, t reflect.Type) (*decoder, error) {
	decs := make([]*decoder, w.Len())
	errs := make([]error, w.Len())
	readable := false
	for i, b := range w.Branches() {
		decs[i], errs[i] = c.decoder(b.Schema, r, t)
		readable = readable || errs[i] == nil
	}
	if !readable {
		return nil, &schema.SchemaError{Type: t, Reason: "no branch of the writer union can be read", Err: errs[0]}
	}
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		idx := d.DecodeLong()
		if d.Err() != nil {
			return nil
		}
		if idx < 0 || idx >= int64(len(decs)) {
			return corrupt("union index %d out of range [0,%d)", idx, len(decs))
		}
		if decs[idx] == nil {
			return mismatch("union branch %d cannot be read as %s: %v", idx, t, errs[idx])
		}
		return decs[idx].decode(d, v)
	}}, nil
}

// readerUnionDecoder reads a non-union writer value into the first reader
// branch of the same kind and full name, or failing that the first
// compatible one.
func (c *compiler) readerUnionDecoder(w schema.Schema, r *schema.UnionSchema, t reflect.Type) (*decoder, error) {
	slot := t.Kind()
	if slot != reflect.Pointer && slot != reflect.Interface {
		return nil, schema.Errorf(t, "union requires a pointer or interface type")
	}
	if w.Kind() == schema.Null {
		if r.NullIndex() < 0 {
			return nil, schema.Errorf(t, "writer null cannot be read: union has no null branch")
		}
		return &decoder{func(_ codec.Decoder, v reflect.Value) error {
			v.SetZero()
			return nil
		}}, nil
	}

	for _, exact := range []bool{true, false} {
		for _, b := range r.Branches() {
			if b.Schema.Kind() == schema.Null || !branchMatches(w, schema.Unwrap(b.Schema), exact) {
				continue
			}
			if dec, err := c.decoder(w, b.Schema, b.Type); err == nil {
				return branchDecoder(dec, b.Type, t), nil
			}
		}
	}
	return nil, schema.Errorf(t, "writer %s matches no branch of the union", w.Kind())
}

func branchMatches(w, r schema.Schema, exact bool) bool {
	wk, rk := w.Kind(), r.Kind()
	if wk.Named() || rk.Named() {
		if wk != rk {
			return false
		}
		if !exact {
			return true
		}
		return w.(schema.NamedSchema).Name() == r.(schema.NamedSchema).Name()
	}
	if exact {
		return wk == rk
	}
	return promotable(wk, rk)
}

func branchDecoder(dec *decoder, bt, t reflect.Type) *decoder {
	if bt == t {
		return dec
	}
	if t.Kind() == reflect.Pointer && bt == t.Elem() {
		return &decoder{func(d codec.Decoder, v reflect.Value) error {
			p := reflect.New(bt)
			if err := dec.decode(d, p.Elem()); err != nil {
				return err
			}
			v.Set(p)
			return nil
		}}
	}
	return &decoder{func(d codec.Decoder, v reflect.Value) error {
		nv := reflect.New(bt).Elem()
		if err := dec.decode(d, nv); err != nil {
			return err
		}
		v.Set(nv)
		return nil
	}}
}
