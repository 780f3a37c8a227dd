package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordAuth(t *testing.T) {
	before := counterValue(t, AuthEvents.WithLabelValues("login", "success"))
	RecordAuth("login", "success")
	assert.Equal(t, before+1, counterValue(t, AuthEvents.WithLabelValues("login", "success")))
}

func TestRecordBucketEvent(t *testing.T) {
	before := counterValue(t, BucketEvents.WithLabelValues("created"))
	RecordBucketEvent("created")
	assert.Equal(t, before+1, counterValue(t, BucketEvents.WithLabelValues("created")))
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{Enabled: false})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, finish := StartSpan(context.Background(), "service", "Noop")
	finish(errors.New("boom"))
}
