package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(bookings.WithLabelValues("seaside", "confirmed"))
	IncBooking("seaside", "confirmed")
	assert.Equal(t, before+1, testutil.ToFloat64(bookings.WithLabelValues("seaside", "confirmed")))

	before = testutil.ToFloat64(quotes.WithLabelValues("ok"))
	ObserveQuote("ok", 3*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(quotes.WithLabelValues("ok")))

	before = testutil.ToFloat64(selectionOutcomes.WithLabelValues("completed"))
	IncSelection("completed")
	assert.Equal(t, before+1, testutil.ToFloat64(selectionOutcomes.WithLabelValues("completed")))

	IncCache("hit")
	IncHTTPRequest("GET", "/api/v1/rooms", "200")
	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/api/v1/rooms", "200")))
}
