package avro

import (
	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/schema"
)

func skipNothing(codec.Decoder) error { return nil }

// skipper compiles a closure advancing past one value of s without building
// it. Only the schema matters, so skippers are shared by full name.
func (c *compiler) skipper(s schema.Schema) (*skipper, error) {
	switch n := s.(type) {
	case *schema.SurrogateSchema:
		return c.skipper(n.Inner())
	case *schema.RefSchema:
		return c.namedSkipper(n.Target())
	case schema.NamedSchema:
		return c.namedSkipper(n)

	case *schema.PrimitiveSchema:
		switch n.Kind() {
		case schema.Null:
			return &skipper{skipNothing}, nil
		case schema.Boolean:
			return &skipper{func(d codec.Decoder) error { d.SkipBool(); return nil }}, nil
		case schema.Int:
			return &skipper{func(d codec.Decoder) error { d.SkipInt(); return nil }}, nil
		case schema.Long:
			return &skipper{func(d codec.Decoder) error { d.SkipLong(); return nil }}, nil
		case schema.Float:
			return &skipper{func(d codec.Decoder) error { d.SkipFloat(); return nil }}, nil
		case schema.Double:
			return &skipper{func(d codec.Decoder) error { d.SkipDouble(); return nil }}, nil
		case schema.Bytes, schema.String:
			return &skipper{func(d codec.Decoder) error { d.SkipBytes(); return nil }}, nil
		}

	case *schema.ArraySchema:
		items, err := c.skipper(n.Items())
		if err != nil {
			return nil, err
		}
		return &skipper{func(d codec.Decoder) error {
			d.SkipBlocks(func() error { return items.skip(d) })
			return nil
		}}, nil

	case *schema.MapSchema:
		values, err := c.skipper(n.Values())
		if err != nil {
			return nil, err
		}
		return &skipper{func(d codec.Decoder) error {
			d.SkipBlocks(func() error {
				d.SkipString()
				return values.skip(d)
			})
			return nil
		}}, nil

	case *schema.UnionSchema:
		branches := make([]*skipper, n.Len())
		for i, b := range n.Branches() {
			sk, err := c.skipper(b.Schema)
			if err != nil {
				return nil, err
			}
			branches[i] = sk
		}
		return &skipper{func(d codec.Decoder) error {
			idx := d.DecodeLong()
			if d.Err() != nil {
				return nil
			}
			if idx < 0 || idx >= int64(len(branches)) {
				return corrupt("union index %d out of range [0,%d)", idx, len(branches))
			}
			return branches[idx].skip(d)
		}}, nil
	}
	return nil, schema.Errorf(s.RuntimeType(), "cannot skip %s", s.Kind())
}

func (c *compiler) namedSkipper(n schema.NamedSchema) (*skipper, error) {
	key := n.Name().String()
	if node, ok := c.skippers[key]; ok {
		return node, nil
	}
	node := &skipper{}
	c.skippers[key] = node

	switch n := n.(type) {
	case *schema.FixedSchema:
		size := n.Size()
		node.fn = func(d codec.Decoder) error {
			d.SkipFixed(size)
			return nil
		}
	case *schema.EnumSchema:
		node.fn = func(d codec.Decoder) error {
			d.SkipInt()
			return nil
		}
	case *schema.RecordSchema:
		fields := make([]*skipper, 0, len(n.Fields()))
		for _, f := range n.Fields() {
			sk, err := c.skipper(f.Schema)
			if err != nil {
				delete(c.skippers, key)
				return nil, err
			}
			fields = append(fields, sk)
		}
		node.fn = func(d codec.Decoder) error {
			for _, sk := range fields {
				if err := sk.skip(d); err != nil {
					return err
				}
				if d.Err() != nil {
					return nil
				}
			}
			return nil
		}
	default:
		delete(c.skippers, key)
		return nil, schema.Errorf(n.RuntimeType(), "cannot skip %s", n.Kind())
	}
	return node, nil
}
