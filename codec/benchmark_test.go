package codec

import (
	"bytes"
	"testing"
)

func benchmarkPayload() []byte {
	var buf bytes.Buffer
	e, _ := NewEncoder(&buf)
	for i := int64(0); i < 64; i++ {
		e.EncodeLong(i * 1_000_003)
		e.EncodeString("benchmark payload")
		e.EncodeDouble(float64(i) / 3)
	}
	_, _ = e.Result()
	return buf.Bytes()
}

func BenchmarkEncoderBytesWriter(b *testing.B) {
	buf := make([]byte, 4*BUFFER_SIZE)
	w := NewBytesWriter(buf)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Reset()
		e, _ := NewEncoder(w)
		for j := int64(0); j < 64; j++ {
			e.EncodeLong(j * 1_000_003)
			e.EncodeString("benchmark payload")
			e.EncodeDouble(float64(j) / 3)
		}
	}
}

func BenchmarkSpanDecoder(b *testing.B) {
	data := benchmarkPayload()
	d := NewSpanDecoder(data)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Reset(data)
		for j := 0; j < 64; j++ {
			d.DecodeLong()
			d.SkipString()
			d.DecodeDouble()
		}
	}
}

// Baseline for the span decoder: the same data through a stream.
func BenchmarkStreamDecoder(b *testing.B) {
	data := benchmarkPayload()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d, _ := NewStreamDecoder(bytes.NewReader(data))
		for j := 0; j < 64; j++ {
			d.DecodeLong()
			d.SkipString()
			d.DecodeDouble()
		}
	}
}
