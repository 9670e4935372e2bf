package avro

import (
	"reflect"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/oy3o/avro/schema"
)

// cacheKey identifies a compiled serializer. writer is empty for Create and
// the canonical writer schema text for CreateDeserializerOnly.
type cacheKey struct {
	writer   string
	t        reflect.Type
	settings settingsKey
}

// compiled is the immutable product of one construction, shared by every
// Serializer built from it.
type compiled struct {
	writer schema.Schema
	reader schema.Schema
	bundle *bundle
}

// cache holds compiled serializers for the life of the process. Entries are
// only removed by ClearCache.
var cache = xsync.NewMap[cacheKey, *compiled]()

// CacheLen returns the number of cached serializers.
func CacheLen() int { return cache.Size() }

// ClearCache drops every cached serializer. Serializers already constructed
// keep working.
func ClearCache() { cache.Clear() }

// lookup returns the cached entry for key or builds one. Concurrent builders
// of the same key may both compile; the first stored result wins and is
// returned to all of them.
func lookup(key cacheKey, cacheable bool, build func() (*compiled, error)) (*compiled, string, error) {
	if !cacheable {
		c, err := build()
		return c, lookupBypass, err
	}
	if c, ok := cache.Load(key); ok {
		return c, lookupHit, nil
	}
	c, err := build()
	if err != nil {
		return nil, lookupMiss, err
	}
	actual, _ := cache.LoadOrStore(key, c)
	return actual, lookupMiss, nil
}
