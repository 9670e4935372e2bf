package schema

import "reflect"

// Branch is one alternative of a union together with the runtime type whose
// values select it when encoding.
type Branch struct {
	Schema Schema
	Type   reflect.Type
}

// UnionSchema is an ordered set of alternatives. A branch's index is its
// position in this order.
type UnionSchema struct {
	base
	branches []Branch
	null     int
}

// NewUnion validates and builds a union bound to t. A branch with a nil Type
// selects values of its schema's runtime type.
//
// A union may not directly contain another union, may hold at most one
// branch of each unnamed kind, and its named branches must differ by name.
func NewUnion(t reflect.Type, branches ...Branch) (*UnionSchema, error) {
	if len(branches) == 0 {
		return nil, Errorf(t, "union has no branches")
	}
	u := &UnionSchema{base: base{t}, branches: make([]Branch, len(branches)), null: -1}
	kinds := make(map[Kind]int)
	names := make(map[string]int)
	for i, b := range branches {
		if b.Schema == nil {
			return nil, Errorf(t, "union branch %d has no schema", i)
		}
		if b.Type == nil {
			b.Type = b.Schema.RuntimeType()
		}
		k := b.Schema.Kind()
		switch {
		case k == Union:
			return nil, Errorf(t, "union branch %d is itself a union", i)
		case k.Named():
			full := nameOf(b.Schema)
			if j, dup := names[full]; dup {
				return nil, Errorf(t, "union branches %d and %d are both named %s", j, i, full)
			}
			names[full] = i
		default:
			if j, dup := kinds[k]; dup {
				return nil, Errorf(t, "union branches %d and %d are both %s", j, i, k)
			}
			kinds[k] = i
		}
		if k == Null {
			u.null = i
		}
		u.branches[i] = b
	}
	return u, nil
}

func (s *UnionSchema) Kind() Kind { return Union }

// Len returns the number of branches.
func (s *UnionSchema) Len() int { return len(s.branches) }

func (s *UnionSchema) Branch(i int) Branch { return s.branches[i] }

// Branches returns the branches in index order. The slice must not be modified.
func (s *UnionSchema) Branches() []Branch { return s.branches }

// NullIndex returns the index of the null branch, or -1.
func (s *UnionSchema) NullIndex() int { return s.null }

func (s *UnionSchema) String() string  { return stringOf(s) }
func (s *UnionSchema) write(w *writer) { w.union(s) }

func nameOf(s Schema) string {
	switch n := s.(type) {
	case NamedSchema:
		return n.Name().String()
	case *SurrogateSchema:
		return nameOf(n.inner)
	}
	return ""
}
