package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/clover/pkg/correlation"
	"github.com/Ramsey-B/clover/pkg/errors"
)

var _ correlation.Observer = (*Observer)(nil)

func TestObserveOperation(t *testing.T) {
	o := NewObserver()
	method := "TestObserveOperation"

	o.ObserveOperation(method, nil, 10*time.Millisecond)
	o.ObserveOperation(method, errors.CorrelationMismatch(method, "stored tbl-1, supplied tbl-2"), time.Millisecond)
	o.ObserveOperation(method, fmt.Errorf("boom"), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(OperationsTotal.WithLabelValues(method, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(OperationsTotal.WithLabelValues(method, string(errors.KindCorrelationMismatch))))
	assert.Equal(t, float64(1), testutil.ToFloat64(OperationsTotal.WithLabelValues(method, string(errors.KindPropertyServer))))
	assert.Equal(t, float64(1), testutil.ToFloat64(CorrelationMismatchesTotal.WithLabelValues(method)))
}

func TestStatusCodeLabel(t *testing.T) {
	tests := map[int]string{101: "1xx", 200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 409: "4xx", 500: "5xx", 503: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, statusCodeLabel(code), code)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "/test/record", 201, time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/test/record", "2xx")))
}
