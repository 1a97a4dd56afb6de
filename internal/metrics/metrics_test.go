package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PaymentsConfirmed.WithLabelValues(SourceWebhook))
	PaymentsConfirmed.WithLabelValues(SourceWebhook).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PaymentsConfirmed.WithLabelValues(SourceWebhook)))

	before = testutil.ToFloat64(OrdersCreated)
	OrdersCreated.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(OrdersCreated))
}
