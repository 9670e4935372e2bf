package resolver

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

type member struct {
	name     string
	typ      reflect.Type
	index    []int
	position int
	order    int
	fixed    int
}

// members lists the serializable fields of struct t in declaration order,
// flattening untagged embedded structs.
func (r *resolution) members(t reflect.Type, prefix []int) []member {
	var out []member
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get(r.tag)
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct && !IsTextual(sf.Type) && sf.Type != timeType {
			out = append(out, r.members(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		m := member{name: name, typ: sf.Type, index: index, order: math.MaxInt}
		for _, opt := range strings.Split(opts, ",") {
			key, value, _ := strings.Cut(opt, "=")
			switch key {
			case "order":
				if n, err := strconv.Atoi(value); err == nil {
					m.order = n
				}
			case "fixed":
				if n, err := strconv.Atoi(value); err == nil {
					m.fixed = n
				}
			}
		}
		out = append(out, m)
	}
	if prefix == nil {
		for i := range out {
			out[i].position = i
		}
	}
	return out
}

// identifier turns a Go type name into a valid Avro name. Instantiated
// generic types such as Pair[int,string] become Pair_int_string_.
func identifier(s string) string {
	var b strings.Builder
	for i, c := range s {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			b.WriteRune(c)
		case '0' <= c && c <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// namespace derives an Avro namespace from a Go package path.
func namespace(pkgPath string) string {
	if pkgPath == "" {
		return ""
	}
	parts := strings.FieldsFunc(pkgPath, func(c rune) bool { return c == '/' || c == '.' })
	for i, p := range parts {
		parts[i] = identifier(p)
	}
	return strings.Join(parts, ".")
}
