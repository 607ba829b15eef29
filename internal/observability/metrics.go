package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesDecoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemawire",
			Subsystem: "frame",
			Name:      "decoded_total",
			Help:      "Frames decoded from streams, by message schema.",
		},
		[]string{"message"},
	)
	framesEncoded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemawire",
			Subsystem: "frame",
			Name:      "encoded_total",
			Help:      "Frames encoded, by message schema.",
		},
		[]string{"message"},
	)
	frameBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemawire",
			Subsystem: "frame",
			Name:      "bytes_total",
			Help:      "Frame bytes processed, by direction.",
		},
		[]string{"direction"},
	)
	streamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "schemawire",
			Subsystem: "stream",
			Name:      "errors_total",
			Help:      "Stream decode failures, by reason.",
		},
		[]string{"reason"},
	)
	payloadSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "schemawire",
			Subsystem: "frame",
			Name:      "payload_bytes",
			Help:      "Payload size of decoded frames in bytes.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 8),
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesDecoded, framesEncoded, frameBytes, streamErrors, payloadSize)
	})
}

// RecordFrameDecoded counts one decoded frame of total bytes with a payload of payload bytes.
func RecordFrameDecoded(message string, total, payload int) {
	RegisterMetrics()
	framesDecoded.WithLabelValues(message).Inc()
	frameBytes.WithLabelValues("decode").Add(float64(total))
	payloadSize.Observe(float64(payload))
}

// RecordFrameEncoded counts one encoded frame of total bytes.
func RecordFrameEncoded(message string, total int) {
	RegisterMetrics()
	framesEncoded.WithLabelValues(message).Inc()
	frameBytes.WithLabelValues("encode").Add(float64(total))
}

// RecordStreamError counts a failed stream decode.
func RecordStreamError(reason string) {
	RegisterMetrics()
	streamErrors.WithLabelValues(reason).Inc()
}
