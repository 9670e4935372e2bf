package schema

import (
	jsoniter "github.com/json-iterator/go"
)

// canonical writes attributes in the fixed order name, type, fields, symbols,
// items, values, size, with full names and no whitespace.
var canonical = jsoniter.Config{EscapeHTML: false}.Froze()

type writer struct {
	stream  *jsoniter.Stream
	defined map[string]bool
}

func newWriter() *writer {
	return &writer{stream: canonical.BorrowStream(nil), defined: make(map[string]bool)}
}

func (w *writer) release() { canonical.ReturnStream(w.stream) }

func (w *writer) String() string { return string(w.stream.Buffer()) }

// define reports whether name still needs a full definition and marks it done.
func (w *writer) define(name Name) bool {
	full := name.String()
	if w.defined[full] {
		w.stream.WriteString(full)
		return false
	}
	w.defined[full] = true
	return true
}

func (w *writer) head(name, typ string) {
	w.stream.WriteObjectStart()
	if name != "" {
		w.stream.WriteObjectField("name")
		w.stream.WriteString(name)
		w.stream.WriteMore()
	}
	w.stream.WriteObjectField("type")
	w.stream.WriteString(typ)
}

func (w *writer) primitive(s *PrimitiveSchema) { w.stream.WriteString(s.kind.String()) }

func (w *writer) fixed(s *FixedSchema) {
	if !w.define(s.name) {
		return
	}
	w.head(s.name.String(), "fixed")
	w.stream.WriteMore()
	w.stream.WriteObjectField("size")
	w.stream.WriteInt(s.size)
	w.stream.WriteObjectEnd()
}

func (w *writer) enum(s *EnumSchema) {
	if !w.define(s.name) {
		return
	}
	w.head(s.name.String(), "enum")
	w.stream.WriteMore()
	w.stream.WriteObjectField("symbols")
	w.stream.WriteArrayStart()
	for i, sym := range s.symbols {
		if i > 0 {
			w.stream.WriteMore()
		}
		w.stream.WriteString(sym)
	}
	w.stream.WriteArrayEnd()
	w.stream.WriteObjectEnd()
}

func (w *writer) array(s *ArraySchema) {
	w.head("", "array")
	w.stream.WriteMore()
	w.stream.WriteObjectField("items")
	s.items.write(w)
	w.stream.WriteObjectEnd()
}

func (w *writer) mapping(s *MapSchema) {
	w.head("", "map")
	w.stream.WriteMore()
	w.stream.WriteObjectField("values")
	s.values.write(w)
	w.stream.WriteObjectEnd()
}

func (w *writer) record(s *RecordSchema) {
	if !w.define(s.name) {
		return
	}
	w.head(s.name.String(), "record")
	w.stream.WriteMore()
	w.stream.WriteObjectField("fields")
	w.stream.WriteArrayStart()
	for i, f := range s.fields {
		if i > 0 {
			w.stream.WriteMore()
		}
		w.stream.WriteObjectStart()
		w.stream.WriteObjectField("name")
		w.stream.WriteString(f.Name)
		w.stream.WriteMore()
		w.stream.WriteObjectField("type")
		f.Schema.write(w)
		w.stream.WriteObjectEnd()
	}
	w.stream.WriteArrayEnd()
	w.stream.WriteObjectEnd()
}

func (w *writer) union(s *UnionSchema) {
	w.stream.WriteArrayStart()
	for i, b := range s.branches {
		if i > 0 {
			w.stream.WriteMore()
		}
		b.Schema.write(w)
	}
	w.stream.WriteArrayEnd()
}

// ref writes the name once the target is defined, and the full definition
// when the reference is reached before its target, as in a subtree.
func (w *writer) ref(s *RefSchema) {
	if w.defined[s.name.String()] {
		w.stream.WriteString(s.name.String())
		return
	}
	s.Target().write(w)
}
