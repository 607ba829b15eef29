package observability

import (
	"testing"

	"github.com/danmuck/schemawire/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	logger := testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(framesDecoded.WithLabelValues("metrics-test"))
	RecordFrameDecoded("metrics-test", 30, 20)
	RecordFrameEncoded("metrics-test", 30)
	RecordStreamError("metrics-test")

	if got := testutil.ToFloat64(framesDecoded.WithLabelValues("metrics-test")); got != before+1 {
		t.Fatalf("decoded counter=%v want %v", got, before+1)
	}
	if got := testutil.ToFloat64(streamErrors.WithLabelValues("metrics-test")); got < 1 {
		t.Fatalf("error counter=%v", got)
	}
	logger.Info().Msg("observability/metrics: registration idempotent and recording paths executed")
}
