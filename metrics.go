package avro

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricNamespace = "avro"
	metricSubsystem = "serializer"

	lookupHit    = "hit"
	lookupMiss   = "miss"
	lookupBypass = "bypass"

	modeCreate           = "create"
	modeDeserializerOnly = "deserializer_only"
)

var (
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "cache_lookups_total",
		Help:      "Serializer cache lookups by result (hit, miss, bypass).",
	}, []string{"result"})

	CompileErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "compile_errors_total",
		Help:      "Serializer constructions that failed to resolve or compile.",
	})

	CompileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricNamespace,
		Subsystem: metricSubsystem,
		Name:      "compile_duration_seconds",
		Help:      "Time spent resolving and compiling a serializer.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"mode"})
)

// RegisterMetrics registers the serializer collectors with reg. Collectors
// that are already registered there are left as they are.
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{CacheLookups, CompileErrors, CompileDuration} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}
