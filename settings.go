package avro

import (
	"reflect"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/oy3o/avro/resolver"
)

// Settings configures how a Serializer is built.
type Settings struct {
	// Resolver maps the target type to its schema. Defaults to resolver.Reflection{}.
	Resolver resolver.Resolver

	// KnownTypes lists the concrete types allowed in interface-typed slots,
	// in union branch order.
	KnownTypes []reflect.Type

	// Surrogate substitutes types the resolver cannot represent directly.
	Surrogate resolver.Surrogate

	// UseCache shares compiled serializers between constructions with equal
	// settings.
	UseCache bool

	// GenerateSerializer and GenerateDeserializer select the directions that
	// are compiled. Calling a disabled direction is an ErrConfiguration.
	GenerateSerializer   bool
	GenerateDeserializer bool

	// UsePosixTime encodes time.Time as seconds since the Unix epoch instead
	// of 100ns ticks since 0001-01-01.
	UsePosixTime bool

	// Logger receives construction events. It does not take part in Equal.
	Logger *zap.Logger
}

// DefaultSettings returns settings with caching and both directions enabled.
func DefaultSettings() *Settings {
	return &Settings{
		UseCache:             true,
		GenerateSerializer:   true,
		GenerateDeserializer: true,
	}
}

// Equal reports whether s and o produce interchangeable serializers. A nil
// Settings equals DefaultSettings().
func (s *Settings) Equal(o *Settings) bool {
	if s == o {
		return true
	}
	ka, okA := s.normalize().key()
	kb, okB := o.normalize().key()
	return okA && okB && ka == kb
}

// normalize returns a copy with the defaults filled in.
func (s *Settings) normalize() *Settings {
	if s == nil {
		s = DefaultSettings()
	}
	n := *s
	if n.Resolver == nil {
		n.Resolver = resolver.Reflection{}
	}
	if n.Logger == nil {
		n.Logger = zap.NewNop()
	}
	return &n
}

// settingsKey is the comparable form of Settings used as part of a cache key.
type settingsKey struct {
	resolver    any
	surrogate   any
	knownTypes  string
	cache       bool
	serialize   bool
	deserialize bool
	posix       bool
}

// key derives the cache key of normalized settings. It reports false when the
// resolver or surrogate cannot be compared, in which case nothing is cached.
func (s *Settings) key() (settingsKey, bool) {
	k := settingsKey{
		knownTypes:  typeList(s.KnownTypes),
		cache:       s.UseCache,
		serialize:   s.GenerateSerializer,
		deserialize: s.GenerateDeserializer,
		posix:       s.UsePosixTime,
	}
	if !isComparable(s.Resolver) || !isComparable(s.Surrogate) {
		return k, false
	}
	k.resolver, k.surrogate = s.Resolver, s.Surrogate
	return k, true
}

// isComparable checks the dynamic value, so a struct holding a slice in an
// interface field is rejected even though its type is comparable.
func isComparable(v any) bool {
	return v == nil || reflect.ValueOf(v).Comparable()
}

// typeList identifies an ordered list of types by their runtime descriptors.
func typeList(types []reflect.Type) string {
	var b strings.Builder
	for _, t := range types {
		if t == nil {
			b.WriteString("nil;")
			continue
		}
		b.WriteString(strconv.FormatUint(uint64(reflect.ValueOf(t).Pointer()), 16))
		b.WriteByte(';')
	}
	return b.String()
}
