package avro

import (
	"bytes"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oy3o/avro/codec"
	"github.com/oy3o/avro/resolver"
)

// --- Fixtures ---

type listNode struct {
	Value int32
	Next  *listNode
}

type color int

const (
	red color = iota
	green
	blue
)

func (color) AvroSymbols() []string { return []string{"RED", "GREEN", "BLUE"} }

type shape interface{ Area() float64 }

type circle struct{ R float64 }

func (c circle) Area() float64 { return 3 * c.R * c.R }

type square struct{ Side float64 }

func (s *square) Area() float64 { return s.Side * s.Side }

type blob float64

func (b blob) Area() float64 { return float64(b) }

type drawing struct {
	Title  string
	Shapes []shape
	Pinned shape
}

type account struct {
	ID      uuid.UUID         `avro:"id"`
	Name    string            `avro:"name"`
	Home    url.URL           `avro:"home"`
	Joined  time.Time         `avro:"joined"`
	Balance float64           `avro:"balance"`
	Scores  map[string]int32  `avro:"scores"`
	Limits  map[uint16]uint64 `avro:"limits"`
	Favor   color             `avro:"favor"`
	Key     [4]byte           `avro:"key"`
	Hash    []byte            `avro:"hash,fixed=4"`
	Nick    *string           `avro:"nick"`
	Flags   [3]bool           `avro:"flags"`
	Cache   []string          `avro:"-"`
}

func mustCreate[T any](t *testing.T, settings *Settings) *Serializer[T] {
	t.Helper()
	s, err := Create[T](settings)
	require.NoError(t, err)
	return s
}

func marshal[T any](t *testing.T, v T) []byte {
	t.Helper()
	data, err := mustCreate[T](t, nil).Marshal(v)
	require.NoError(t, err)
	return data
}

func roundTrip[T any](t *testing.T, settings *Settings, v T) T {
	t.Helper()
	s := mustCreate[T](t, settings)
	data, err := s.Marshal(v)
	require.NoError(t, err)
	got, err := s.Unmarshal(data)
	require.NoError(t, err)
	return got
}

func ptr[T any](v T) *T { return &v }

// --- Wire Format Test Suite ---

type WireTestSuite struct {
	suite.Suite
}

func (s *WireTestSuite) TestInts() {
	cases := map[int32][]byte{
		0:  {0x00},
		-1: {0x01},
		1:  {0x02},
		64: {0x80, 0x01},
	}
	ser := mustCreate[int32](s.T(), nil)
	for v, want := range cases {
		data, err := ser.Marshal(v)
		s.Require().NoError(err)
		s.Equal(want, data, "%d", v)

		got, err := ser.Unmarshal(want)
		s.Require().NoError(err)
		s.Equal(v, got)
	}
}

func (s *WireTestSuite) TestOverlongInt() {
	ser := mustCreate[int32](s.T(), nil)
	_, err := ser.Unmarshal([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01})
	s.ErrorIs(err, ErrCorrupt)

	_, err = ser.Deserialize(bytes.NewReader([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}))
	s.ErrorIs(err, ErrCorrupt)
}

func (s *WireTestSuite) TestEmptyArray() {
	s.Equal([]byte{0x00}, marshal[[]int32](s.T(), nil))
	s.Equal([]byte{0x00}, marshal(s.T(), []int32{}))
	s.Equal([]byte{0x00}, marshal(s.T(), map[string]bool{}))

	got, err := mustCreate[[]int32](s.T(), nil).Unmarshal([]byte{0x00})
	s.Require().NoError(err)
	s.Nil(got)
}

func (s *WireTestSuite) TestString() {
	data := marshal(s.T(), "Test string")
	s.Equal(append([]byte{0x16}, "Test string"...), data)
	s.Equal(12, len(data))
}

func (s *WireTestSuite) TestRecursiveNode() {
	v := listNode{Value: 1, Next: &listNode{Value: 2, Next: &listNode{Value: 3}}}
	data := marshal(s.T(), v)
	s.Equal([]byte{0x02, 0x02, 0x04, 0x02, 0x06, 0x00}, data)

	got, err := mustCreate[listNode](s.T(), nil).Unmarshal(data)
	s.Require().NoError(err)
	s.Equal(v, got)
	s.Require().NotNil(got.Next.Next)
	s.Nil(got.Next.Next.Next)
}

func (s *WireTestSuite) TestPrimitives() {
	s.Equal([]byte{0x01}, marshal(s.T(), true))
	s.Equal([]byte{0x00, 0x00, 0xc0, 0x3f}, marshal(s.T(), float32(1.5)))
	s.Equal([]byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}, marshal(s.T(), 1.0))
	s.Equal([]byte{0x04, 0xca, 0xfe}, marshal(s.T(), []byte{0xca, 0xfe}))
	s.Equal([]byte{0xfe, 0x03}, marshal(s.T(), uint8(255)))
	s.Equal([]byte{0x01, 0x02, 0x03, 0x04}, marshal(s.T(), [4]byte{1, 2, 3, 4}))
}

func (s *WireTestSuite) TestNullable() {
	s.Equal([]byte{0x00}, marshal[*int32](s.T(), nil))
	s.Equal([]byte{0x02, 0x54}, marshal(s.T(), ptr(int32(42))))

	ser := mustCreate[*int32](s.T(), nil)
	got, err := ser.Unmarshal([]byte{0x02, 0x54})
	s.Require().NoError(err)
	s.Equal(int32(42), *got)

	got, err = ser.Unmarshal([]byte{0x00})
	s.Require().NoError(err)
	s.Nil(got)

	for _, bad := range [][]byte{{0x04}, {0x01}} {
		_, err = ser.Unmarshal(bad)
		s.ErrorIs(err, ErrCorrupt)
	}
}

func (s *WireTestSuite) TestSortedMapKeys() {
	data := marshal(s.T(), map[string]int32{"b": 2, "a": 1})
	s.Equal([]byte{0x04, 0x02, 'a', 0x02, 0x02, 'b', 0x04, 0x00}, data)
}

func (s *WireTestSuite) TestTime() {
	epoch := time.Unix(0, 0)
	d := codec.NewSpanDecoder(marshal(s.T(), epoch))
	s.Equal(int64(unixEpochTicks), d.DecodeLong())

	d = codec.NewSpanDecoder(marshal(s.T(), time.Time{}))
	s.Equal(int64(0), d.DecodeLong())

	posix := DefaultSettings()
	posix.UsePosixTime = true
	data, err := mustCreate[time.Time](s.T(), posix).Marshal(time.Unix(1_700_000_000, 999))
	s.Require().NoError(err)
	s.Equal(int64(1_700_000_000), codec.NewSpanDecoder(data).DecodeLong())
}

// --- Round Trip Test Suite ---

type RoundTripTestSuite struct {
	suite.Suite
}

func (s *RoundTripTestSuite) TestScalars() {
	s.Equal(int8(-128), roundTrip(s.T(), nil, int8(-128)))
	s.Equal(uint16(65535), roundTrip(s.T(), nil, uint16(65535)))
	s.Equal(int64(-1<<63), roundTrip(s.T(), nil, int64(-1<<63)))
	s.Equal(^uint64(0), roundTrip(s.T(), nil, ^uint64(0)))
	s.Equal(uint32(1<<32-1), roundTrip(s.T(), nil, uint32(1<<32-1)))
	s.Equal(-2.5, roundTrip(s.T(), nil, -2.5))
	s.Equal("héllo", roundTrip(s.T(), nil, "héllo"))
	s.Equal([]byte{}, roundTrip(s.T(), nil, []byte{}))
}

func (s *RoundTripTestSuite) TestTime() {
	tm := time.Date(2024, 5, 17, 10, 30, 0, 123456789, time.UTC)
	got := roundTrip(s.T(), nil, tm)
	s.True(tm.Truncate(100*time.Nanosecond).Equal(got), "%v != %v", tm, got)
	s.Equal(time.UTC, got.Location())

	before := time.Date(1900, 1, 1, 0, 0, 0, 100, time.UTC)
	s.True(before.Equal(roundTrip(s.T(), nil, before)))

	posix := DefaultSettings()
	posix.UsePosixTime = true
	got = roundTrip(s.T(), posix, tm)
	s.True(tm.Truncate(time.Second).Equal(got))
}

func (s *RoundTripTestSuite) TestRecord() {
	home, err := url.Parse("https://example.com/users/7?tab=profile")
	s.Require().NoError(err)
	v := account{
		ID:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Name:    "Ada",
		Home:    *home,
		Joined:  time.Date(2020, 2, 29, 12, 0, 0, 0, time.UTC),
		Balance: 1234.5,
		Scores:  map[string]int32{"chess": 1800, "go": 3},
		Limits:  map[uint16]uint64{1: 10, 65535: 1 << 63},
		Favor:   blue,
		Key:     [4]byte{9, 8, 7, 6},
		Hash:    []byte{1, 2, 3, 4},
		Nick:    ptr("ada"),
		Flags:   [3]bool{true, false, true},
		Cache:   []string{"dropped"},
	}
	got := roundTrip(s.T(), nil, v)
	v.Cache = nil
	s.Equal(v, got)
}

func (s *RoundTripTestSuite) TestKnownTypes() {
	settings := DefaultSettings()
	settings.KnownTypes = []reflect.Type{reflect.TypeFor[circle](), reflect.TypeFor[*square]()}
	v := drawing{
		Title:  "mixed",
		Shapes: []shape{circle{R: 1}, &square{Side: 2}, nil},
		Pinned: &square{Side: 3},
	}
	got := roundTrip(s.T(), settings, v)
	s.Equal(v, got)

	_, err := mustCreate[drawing](s.T(), settings).Marshal(drawing{Pinned: blob(1)})
	s.ErrorIs(err, ErrValueMismatch)

	_, err = Create[drawing](nil)
	s.ErrorIs(err, ErrSchema)
}

func (s *RoundTripTestSuite) TestSurrogate() {
	type job struct {
		Name    string
		Timeout time.Duration
	}
	settings := DefaultSettings()
	settings.Surrogate = resolver.NewSurrogate(
		func(d time.Duration) (string, error) { return d.String(), nil },
		func(v string) (time.Duration, error) { return time.ParseDuration(v) },
	)
	ser := mustCreate[job](s.T(), settings)
	data, err := ser.Marshal(job{Name: "backup", Timeout: 90 * time.Second})
	s.Require().NoError(err)
	s.Equal(append([]byte{0x0c}, "backup\x0a1m30s"...), data)

	got, err := ser.Unmarshal(data)
	s.Require().NoError(err)
	s.Equal(job{Name: "backup", Timeout: 90 * time.Second}, got)

	_, err = ser.Unmarshal(append([]byte{0x0c}, "backup\x08soon"...))
	s.ErrorIs(err, ErrValueMismatch)
}

// --- Error Test Suite ---

type ErrorTestSuite struct {
	suite.Suite
}

func (s *ErrorTestSuite) TestUnsupportedTypes() {
	_, err := Create[chan int](nil)
	s.ErrorIs(err, ErrSchema)
	var se *SchemaError
	s.Require().ErrorAs(err, &se)
	s.Equal(reflect.TypeFor[chan int](), se.Type)

	_, err = Create[**int32](nil)
	s.ErrorIs(err, ErrSchema)
	_, err = Create[map[struct{ A int }]string](nil)
	s.ErrorIs(err, ErrSchema)
}

func (s *ErrorTestSuite) TestEnum() {
	ser := mustCreate[color](s.T(), nil)
	data, err := ser.Marshal(green)
	s.Require().NoError(err)
	s.Equal([]byte{0x02}, data)

	_, err = ser.Marshal(color(3))
	s.ErrorIs(err, ErrValueMismatch)
	_, err = ser.Marshal(color(-1))
	s.ErrorIs(err, ErrValueMismatch)

	_, err = ser.Unmarshal([]byte{0x06})
	s.ErrorIs(err, ErrCorrupt)
}

func (s *ErrorTestSuite) TestFixedLength() {
	type digest struct {
		Sum []byte `avro:"sum,fixed=4"`
	}
	_, err := mustCreate[digest](s.T(), nil).Marshal(digest{Sum: []byte{1, 2, 3}})
	s.ErrorIs(err, ErrValueMismatch)
}

func (s *ErrorTestSuite) TestMalformedText() {
	var buf bytes.Buffer
	e, _ := codec.NewEncoder(&buf)
	e.EncodeString("not-a-uuid")
	_, err := e.Result()
	s.Require().NoError(err)

	_, err = mustCreate[uuid.UUID](s.T(), nil).Unmarshal(buf.Bytes())
	s.ErrorIs(err, ErrFormat)

	_, err = mustCreate[map[int8]bool](s.T(), nil).Unmarshal([]byte{0x02, 0x06, '9', '9', '9', 0x01, 0x00})
	s.ErrorIs(err, ErrFormat)
}

func (s *ErrorTestSuite) TestTruncated() {
	ser := mustCreate[listNode](s.T(), nil)
	data, err := ser.Marshal(listNode{Value: 1, Next: &listNode{Value: 2}})
	s.Require().NoError(err)
	for i := 0; i < len(data); i++ {
		_, err := ser.Unmarshal(data[:i])
		s.ErrorIs(err, ErrCorrupt, "prefix %d", i)
	}

	_, err = ser.Unmarshal(append(data, 0x00))
	s.ErrorIs(err, ErrCorrupt)
}

func (s *ErrorTestSuite) TestArrayOverflow() {
	ser := mustCreate[[2]*int32](s.T(), nil)
	data, err := ser.Marshal([2]*int32{nil, ptr(int32(1))})
	s.Require().NoError(err)
	s.Equal([]byte{0x04, 0x00, 0x02, 0x02, 0x00}, data)

	_, err = ser.Unmarshal([]byte{0x06, 0x00, 0x00, 0x00, 0x00})
	s.ErrorIs(err, ErrValueMismatch)

	got, err := ser.Unmarshal([]byte{0x02, 0x00, 0x00})
	s.Require().NoError(err)
	s.Equal([2]*int32{}, got)
}

func (s *ErrorTestSuite) TestDisabledDirections() {
	readOnly := DefaultSettings()
	readOnly.GenerateSerializer = false
	ser := mustCreate[int32](s.T(), readOnly)
	_, err := ser.Marshal(1)
	s.ErrorIs(err, ErrConfiguration)
	s.EqualError(err, "avro: operation disabled by settings: serialization is not supported, change the serializer settings")
	got, err := ser.Unmarshal([]byte{0x02})
	s.NoError(err)
	s.Equal(int32(1), got)

	writeOnly := DefaultSettings()
	writeOnly.GenerateDeserializer = false
	ser = mustCreate[int32](s.T(), writeOnly)
	_, err = ser.Unmarshal([]byte{0x02})
	s.ErrorIs(err, ErrConfiguration)
	s.EqualError(err, "avro: operation disabled by settings: deserialization is not supported, change the serializer settings")
	_, err = ser.Deserialize(bytes.NewReader([]byte{0x02}))
	s.ErrorIs(err, ErrConfiguration)
	_, _, err = ser.DeserializeSpan([]byte{0x02})
	s.ErrorIs(err, ErrConfiguration)
	s.NoError(ser.Skip(bytes.NewReader([]byte{0x02})))
}

func (s *ErrorTestSuite) TestEmptyItems() {
	type marker struct{}
	ser := mustCreate[[]marker](s.T(), nil)

	got, err := ser.Unmarshal([]byte{0x06, 0x00})
	s.Require().NoError(err)
	s.Len(got, 3)

	var buf bytes.Buffer
	e, _ := codec.NewEncoder(&buf)
	e.EncodeLong(math.MaxInt64)
	e.EncodeLong(0)
	_, err = e.Result()
	s.Require().NoError(err)

	_, err = ser.Unmarshal(buf.Bytes())
	s.ErrorIs(err, ErrCorrupt)
	s.ErrorIs(ser.Skip(bytes.NewReader(buf.Bytes())), ErrCorrupt)
}

// --- Stream Test Suite ---

type StreamTestSuite struct {
	suite.Suite
	ser *Serializer[listNode]
}

func (s *StreamTestSuite) SetupTest() {
	s.ser = mustCreate[listNode](s.T(), nil)
}

func (s *StreamTestSuite) encodeAll(values ...listNode) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		s.Require().NoError(s.ser.Serialize(&buf, v))
	}
	return buf.Bytes()
}

func (s *StreamTestSuite) TestConsecutiveValues() {
	values := []listNode{{Value: 1}, {Value: 2, Next: &listNode{Value: 3}}, {Value: 4}}
	data := s.encodeAll(values...)

	r := bytes.NewReader(data)
	for _, want := range values {
		got, err := s.ser.Deserialize(r)
		s.Require().NoError(err)
		s.Equal(want, got)
	}
	_, err := s.ser.Deserialize(r)
	s.ErrorIs(err, io.EOF)
	s.ErrorIs(err, ErrCorrupt)
}

func (s *StreamTestSuite) TestSpan() {
	data := s.encodeAll(listNode{Value: 1, Next: &listNode{Value: 2}}, listNode{Value: 7})
	first, n, err := s.ser.DeserializeSpan(data)
	s.Require().NoError(err)
	s.Equal(4, n)
	s.Equal(int32(2), first.Next.Value)

	second, m, err := s.ser.DeserializeSpan(data[n:])
	s.Require().NoError(err)
	s.Equal(2, m)
	s.Equal(listNode{Value: 7}, second)
}

func (s *StreamTestSuite) TestSkip() {
	data := s.encodeAll(listNode{Value: 1, Next: &listNode{Value: 2}}, listNode{Value: 9})
	r := bytes.NewReader(data)
	s.Require().NoError(s.ser.Skip(r))
	got, err := s.ser.Deserialize(r)
	s.Require().NoError(err)
	s.Equal(listNode{Value: 9}, got)

	s.ErrorIs(s.ser.Skip(bytes.NewReader([]byte{0x02, 0x08})), ErrCorrupt)
}

func (s *StreamTestSuite) TestSkipSeekableSources() {
	ser := mustCreate[[]byte](s.T(), nil)
	payload := append([]byte{0x80, 0x40}, make([]byte, 4096)...) // 4096 bytes announced
	truncated := payload[:1024]
	sources := map[string]func(b []byte) io.Reader{
		"strings": func(b []byte) io.Reader { return strings.NewReader(string(b)) },
		"file": func(b []byte) io.Reader {
			path := filepath.Join(s.T().TempDir(), "value.avro")
			s.Require().NoError(os.WriteFile(path, b, 0o600))
			f, err := os.Open(path)
			s.Require().NoError(err)
			s.T().Cleanup(func() { f.Close() })
			return f
		},
	}
	for name, open := range sources {
		s.Run(name, func() {
			s.NoError(ser.Skip(open(payload)))
			s.ErrorIs(ser.Skip(open(truncated)), ErrCorrupt)
			s.ErrorIs(ser.Skip(open([]byte{0x08, 1, 2})), ErrCorrupt)
		})
	}

	// fields unknown to the reader are skipped through the same path
	reader, err := CreateDeserializerOnly[struct {
		B int32 `avro:"b"`
	}](`{"type": "record", "name": "R", "fields": [
		{"name": "a", "type": "bytes"},
		{"name": "b", "type": "int"}
	]}`, nil)
	s.Require().NoError(err)
	whole := append(append([]byte(nil), payload...), 0x54)
	v, err := reader.Deserialize(strings.NewReader(string(whole)))
	s.Require().NoError(err)
	s.EqualValues(42, v.B)
	_, err = reader.Deserialize(strings.NewReader(string(truncated)))
	s.ErrorIs(err, ErrCorrupt)
}

func (s *StreamTestSuite) TestSharedEncoder() {
	var buf bytes.Buffer
	e, err := codec.NewEncoder(&buf)
	s.Require().NoError(err)
	s.Require().NoError(s.ser.Serialize(e, listNode{Value: 5}))
	s.Require().NoError(s.ser.Serialize(e, listNode{Value: 6}))
	_, err = e.Result()
	s.Require().NoError(err)
	s.Equal([]byte{0x0a, 0x00, 0x0c, 0x00}, buf.Bytes())

	d := codec.NewSpanDecoder(buf.Bytes())
	first, err := s.ser.Deserialize(d)
	s.Require().NoError(err)
	second, err := s.ser.Deserialize(d)
	s.Require().NoError(err)
	s.Equal([]int32{5, 6}, []int32{first.Value, second.Value})
}

func (s *StreamTestSuite) TestPlainReader() {
	data := s.encodeAll(listNode{Value: 3})
	got, err := s.ser.Deserialize(io.MultiReader(bytes.NewReader(data[:1]), bytes.NewReader(data[1:])))
	s.Require().NoError(err)
	s.Equal(listNode{Value: 3}, got)
}

func (s *StreamTestSuite) TestMarshalTo() {
	v := listNode{Value: 1, Next: &listNode{Value: 2}}
	buf := make([]byte, 16)
	n, err := s.ser.MarshalTo(buf, v)
	s.Require().NoError(err)
	s.Equal([]byte{0x02, 0x02, 0x04, 0x00}, buf[:n])

	_, err = s.ser.MarshalTo(make([]byte, 2), v)
	s.ErrorIs(err, io.ErrShortWrite)
}

func (s *StreamTestSuite) TestDatum() {
	v := listNode{Value: 1, Next: &listNode{Value: 2}}
	d := NewDatum(s.ser, v)

	data, err := d.MarshalBinary()
	s.Require().NoError(err)

	var out Datum[listNode]
	out.Serializer = s.ser
	s.Require().NoError(out.UnmarshalBinary(data))
	s.Equal(v, out.Value)

	var buf bytes.Buffer
	written, err := d.WriteTo(&buf)
	s.Require().NoError(err)
	s.Equal(int64(len(data)), written)
	buf.WriteString("tail")

	back := NewDatum(s.ser, listNode{})
	read, err := back.ReadFrom(&buf)
	s.Require().NoError(err)
	s.Equal(written, read)
	s.Equal(v, back.Value)
	s.Equal("tail", buf.String())

	small := make([]byte, 1)
	_, err = d.MarshalTo(small)
	s.ErrorIs(err, io.ErrShortWrite)
	s.Error(out.UnmarshalBinary(append(data, 0)))
}

func TestWireSuite(t *testing.T) {
	suite.Run(t, new(WireTestSuite))
}

func TestRoundTripSuite(t *testing.T) {
	suite.Run(t, new(RoundTripTestSuite))
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func TestStreamSuite(t *testing.T) {
	suite.Run(t, new(StreamTestSuite))
}

func TestSchemaAccessors(t *testing.T) {
	ser := mustCreate[listNode](t, nil)
	assert.Same(t, ser.WriterSchema(), ser.ReaderSchema())
	assert.True(t, strings.HasSuffix(ser.WriterSchema().String(), `"type":["null","github.com.oy3o.avro.listNode"]}]}`))
}
