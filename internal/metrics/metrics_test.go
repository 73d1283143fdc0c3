// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCountersIncrementByLabel(t *testing.T) {
	SessionsCreatedTotal.Reset()
	SessionsReusedTotal.Reset()
	SessionFailuresTotal.Reset()

	SessionsCreatedTotal.WithLabelValues("com.widevine.alpha").Inc()
	SessionsCreatedTotal.WithLabelValues("com.widevine.alpha").Inc()
	SessionsReusedTotal.WithLabelValues("org.w3.clearkey").Inc()
	SessionFailuresTotal.WithLabelValues("LicenceRequestFailed").Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(SessionsCreatedTotal.WithLabelValues("com.widevine.alpha")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SessionsReusedTotal.WithLabelValues("org.w3.clearkey")))
	assert.Equal(t, float64(1), testutil.ToFloat64(SessionFailuresTotal.WithLabelValues("LicenceRequestFailed")))
}

func TestLicenseRequestDurationObservesIntoHistogram(t *testing.T) {
	LicenseRequestDuration.Reset()
	LicenseRequestDuration.WithLabelValues("com.widevine.alpha", "1").Observe(0.12)

	count := testutil.CollectAndCount(LicenseRequestDuration)
	require.Equal(t, 1, count, "expected exactly one histogram series after a single Observe")
}

func TestTokenRefreshTotalCountsByOutcome(t *testing.T) {
	TokenRefreshTotal.Reset()
	TokenRefreshTotal.WithLabelValues("retried").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(TokenRefreshTotal.WithLabelValues("retried")))
	assert.Equal(t, float64(0), testutil.ToFloat64(TokenRefreshTotal.WithLabelValues("failed")))
}

func TestSlotsInUseGaugeTracksSet(t *testing.T) {
	SlotsInUse.Set(3)
	assert.Equal(t, float64(3), testutil.ToFloat64(SlotsInUse))
	SlotsInUse.Set(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(SlotsInUse))
}

func TestSetCircuitBreakerStateExclusivelySetsOneState(t *testing.T) {
	SetCircuitBreakerState("drm_license_server", "open")

	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerStateInfo.WithLabelValues("drm_license_server", "open")))
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitBreakerStateInfo.WithLabelValues("drm_license_server", "closed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitBreakerStateInfo.WithLabelValues("drm_license_server", "half-open")))

	SetCircuitBreakerState("drm_license_server", "closed")
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerStateInfo.WithLabelValues("drm_license_server", "closed")))
	assert.Equal(t, float64(0), testutil.ToFloat64(circuitBreakerStateInfo.WithLabelValues("drm_license_server", "open")))
}

func TestSetCircuitBreakerStatusRecordsNumericState(t *testing.T) {
	SetCircuitBreakerStatus("drm_license_server", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(circuitBreakerStatus.WithLabelValues("drm_license_server")))
}

func TestRecordCircuitBreakerTripIncrementsByReason(t *testing.T) {
	circuitBreakerTrips.Reset()
	RecordCircuitBreakerTrip("drm_license_server", "too_many_5xx")
	RecordCircuitBreakerTrip("drm_license_server", "too_many_5xx")

	assert.Equal(t, float64(2), testutil.ToFloat64(circuitBreakerTrips.WithLabelValues("drm_license_server", "too_many_5xx")))
}
