package avro

import (
	"bytes"
	"testing"

	hamba "github.com/hamba/avro/v2"
)

func benchmarkInvoice() invoice {
	return invoice{
		ID:       42,
		Customer: "benchmark",
		Total:    12.5,
		Lines:    []invoiceLine{{SKU: "A", Qty: 1}, {SKU: "B", Qty: 2}, {SKU: "C", Qty: 3}},
		Tags:     map[string]string{"k": "v"},
		Blob:     make([]byte, 32),
	}
}

func BenchmarkMarshal(b *testing.B) {
	ser, _ := Create[invoice](nil)
	v := benchmarkInvoice()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ser.Marshal(v)
	}
}

func BenchmarkMarshalTo(b *testing.B) {
	ser, _ := Create[invoice](nil)
	v := benchmarkInvoice()
	buf := make([]byte, 1024)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ser.MarshalTo(buf, v)
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	ser, _ := Create[invoice](nil)
	data, _ := ser.Marshal(benchmarkInvoice())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = ser.Unmarshal(data)
	}
}

func BenchmarkDeserializeStream(b *testing.B) {
	ser, _ := Create[invoice](nil)
	data, _ := ser.Marshal(benchmarkInvoice())
	r := bytes.NewReader(data)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.Reset(data)
		_, _ = ser.Deserialize(r)
	}
}

func BenchmarkCreateCached(b *testing.B) {
	_, _ = Create[invoice](nil)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Create[invoice](nil)
	}
}

// Baseline against an independent implementation on the same schema.
func BenchmarkHambaMarshal(b *testing.B) {
	ser, _ := Create[invoice](nil)
	sch := hamba.MustParse(ser.WriterSchema().String())
	v := benchmarkInvoice()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = hamba.Marshal(sch, v)
	}
}
