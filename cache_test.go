package avro

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/oy3o/avro/resolver"
	"github.com/oy3o/avro/schema"
)

// tableSurrogate is not comparable, so settings holding it are never cached.
type tableSurrogate struct {
	names []string
}

func (tableSurrogate) SurrogateType(reflect.Type) (reflect.Type, bool) { return nil, false }

func (tableSurrogate) ToSurrogate(v any) (any, error) { return v, nil }

func (tableSurrogate) FromSurrogate(v any, _ reflect.Type) (any, error) { return v, nil }

// boxedSurrogate has a comparable type but may hold a value that is not.
type boxedSurrogate struct {
	table any
}

func (boxedSurrogate) SurrogateType(reflect.Type) (reflect.Type, bool) { return nil, false }

func (boxedSurrogate) ToSurrogate(v any) (any, error) { return v, nil }

func (boxedSurrogate) FromSurrogate(v any, _ reflect.Type) (any, error) { return v, nil }

// --- Cache Test Suite ---

type CacheTestSuite struct {
	suite.Suite
}

func (s *CacheTestSuite) SetupTest() {
	ClearCache()
}

func (s *CacheTestSuite) TearDownTest() {
	ClearCache()
}

func (s *CacheTestSuite) TestSharedAcrossCalls() {
	first := mustCreate[listNode](s.T(), nil)
	second := mustCreate[listNode](s.T(), DefaultSettings())
	s.Equal(1, CacheLen())
	s.Same(first.bundle, second.bundle)

	posix := DefaultSettings()
	posix.UsePosixTime = true
	third := mustCreate[listNode](s.T(), posix)
	s.Equal(2, CacheLen())
	s.NotSame(first.bundle, third.bundle)

	mustCreate[*listNode](s.T(), nil)
	s.Equal(3, CacheLen())
}

func (s *CacheTestSuite) TestDeserializerOnlyKeys() {
	a, err := CreateDeserializerOnly[int64](`"int"`, nil)
	s.Require().NoError(err)
	b, err := CreateDeserializerOnly[int64](`{"type": "int"}`, nil)
	s.Require().NoError(err)
	s.Same(a.bundle, b.bundle)
	s.Equal(1, CacheLen())

	_, err = CreateDeserializerOnly[int64](`"long"`, nil)
	s.Require().NoError(err)
	s.Equal(2, CacheLen())

	mustCreate[int64](s.T(), nil)
	s.Equal(3, CacheLen())
}

func (s *CacheTestSuite) TestDisabled() {
	settings := DefaultSettings()
	settings.UseCache = false
	first := mustCreate[listNode](s.T(), settings)
	second := mustCreate[listNode](s.T(), settings)
	s.Zero(CacheLen())
	s.NotSame(first.bundle, second.bundle)
}

func (s *CacheTestSuite) TestNonComparableSettingsBypass() {
	settings := DefaultSettings()
	settings.Surrogate = tableSurrogate{names: []string{"x"}}
	before := testutil.ToFloat64(CacheLookups.WithLabelValues(lookupBypass))

	mustCreate[listNode](s.T(), settings)
	s.Zero(CacheLen())
	s.Equal(before+1, testutil.ToFloat64(CacheLookups.WithLabelValues(lookupBypass)))
}

func (s *CacheTestSuite) TestBoxedSliceSettingsBypass() {
	settings := DefaultSettings()
	settings.Surrogate = boxedSurrogate{table: []string{"x"}}
	s.NotPanics(func() { mustCreate[listNode](s.T(), settings) })
	s.Zero(CacheLen())
	s.False(settings.Equal(DefaultSettings()))

	settings.Surrogate = boxedSurrogate{table: "x"}
	mustCreate[listNode](s.T(), settings)
	s.Equal(1, CacheLen())
}

func (s *CacheTestSuite) TestFailuresAreNotCached() {
	before := testutil.ToFloat64(CompileErrors)
	_, err := Create[chan int](nil)
	s.ErrorIs(err, ErrSchema)
	_, err = Create[chan int](nil)
	s.ErrorIs(err, ErrSchema)
	s.Zero(CacheLen())
	s.Equal(before+2, testutil.ToFloat64(CompileErrors))
}

func (s *CacheTestSuite) TestLookupMetrics() {
	hits := testutil.ToFloat64(CacheLookups.WithLabelValues(lookupHit))
	misses := testutil.ToFloat64(CacheLookups.WithLabelValues(lookupMiss))

	mustCreate[account](s.T(), nil)
	mustCreate[account](s.T(), nil)
	mustCreate[account](s.T(), nil)

	s.Equal(misses+1, testutil.ToFloat64(CacheLookups.WithLabelValues(lookupMiss)))
	s.Equal(hits+2, testutil.ToFloat64(CacheLookups.WithLabelValues(lookupHit)))
}

func (s *CacheTestSuite) TestConcurrentCreate() {
	var g errgroup.Group
	results := make([]*Serializer[account], 32)
	for i := range results {
		g.Go(func() error {
			ser, err := Create[account](nil)
			if err != nil {
				return err
			}
			data, err := ser.Marshal(account{Name: fmt.Sprint(i), Hash: make([]byte, 4)})
			if err != nil {
				return err
			}
			got, err := ser.Unmarshal(data)
			if err != nil {
				return err
			}
			if got.Name != fmt.Sprint(i) {
				return fmt.Errorf("round trip %d returned %q", i, got.Name)
			}
			results[i] = ser
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(1, CacheLen())
	for _, r := range results[1:] {
		s.Same(results[0].bundle, r.bundle)
	}
}

func TestCacheSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

// --- Settings ---

func TestSettingsEqual(t *testing.T) {
	var none *Settings
	assert.True(t, none.Equal(DefaultSettings()))
	assert.True(t, DefaultSettings().Equal(nil))

	logged := DefaultSettings()
	logged.Logger = zap.NewExample()
	assert.True(t, logged.Equal(DefaultSettings()))

	uncached := DefaultSettings()
	uncached.UseCache = false
	assert.False(t, uncached.Equal(DefaultSettings()))

	known := DefaultSettings()
	known.KnownTypes = []reflect.Type{reflect.TypeFor[circle](), reflect.TypeFor[*square]()}
	same := DefaultSettings()
	same.KnownTypes = []reflect.Type{reflect.TypeFor[circle](), reflect.TypeFor[*square]()}
	swapped := DefaultSettings()
	swapped.KnownTypes = []reflect.Type{reflect.TypeFor[*square](), reflect.TypeFor[circle]()}
	assert.True(t, known.Equal(same))
	assert.False(t, known.Equal(swapped))

	tagged := DefaultSettings()
	tagged.Resolver = resolver.Reflection{TagName: "json"}
	assert.False(t, tagged.Equal(DefaultSettings()))

	table := DefaultSettings()
	table.Surrogate = tableSurrogate{}
	assert.True(t, table.Equal(table))
	assert.False(t, table.Equal(DefaultSettings()))
	other := *table
	assert.False(t, table.Equal(&other))
}

// --- Observability ---

func TestConstructionLogs(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	core, logs := observer.New(zapcore.DebugLevel)
	settings := DefaultSettings()
	settings.Logger = zap.New(core)

	ser, err := Create[listNode](settings)
	require.NoError(t, err)
	_, err = Create[listNode](settings)
	require.NoError(t, err)

	ready := logs.FilterMessage("serializer ready").AllUntimed()
	require.Len(t, ready, 2)
	assert.Equal(t, lookupMiss, ready[0].ContextMap()["result"])
	assert.Equal(t, lookupHit, ready[1].ContextMap()["result"])
	assert.Equal(t, "avro.listNode", ready[0].ContextMap()["type"])
	assert.Equal(t, true, ready[0].ContextMap()["serialize"])
	assert.Equal(t, fmt.Sprintf("%016x", schema.Fingerprint(ser.WriterSchema())), ready[0].ContextMap()["fingerprint"])

	_, err = Create[func()](settings)
	require.Error(t, err)
	failed := logs.FilterMessage("serializer construction failed").AllUntimed()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Contains(t, failed[0].ContextMap()["error"], "unsupported kind func")
}

func TestRegisterMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterMetrics(reg))
	require.NoError(t, RegisterMetrics(reg))

	ClearCache()
	t.Cleanup(ClearCache)
	_, err := Create[int32](nil)
	require.NoError(t, err)

	n, err := testutil.GatherAndCount(reg, "avro_serializer_cache_lookups_total", "avro_serializer_compile_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 2)
}
