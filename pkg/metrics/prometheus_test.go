package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordCache("series", true)
	r.RecordCache("series", false)
	r.RecordCache("series", false)
	r.RecordUpstreamCall("yahoo", "ok", 0.2)
	r.RecordError("not_found")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("series", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheLookups.WithLabelValues("series", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.upstreamCalls.WithLabelValues("yahoo", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("not_found")))
}
