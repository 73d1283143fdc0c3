// SPDX-License-Identifier: MIT

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSessionAttributesCarriesAllFields(t *testing.T) {
	attrs := SessionAttributes("com.widevine.alpha", "deadbeef", 2, "ready")

	assert.Contains(t, attrs, attribute.String(SchemeUUIDKey, "com.widevine.alpha"))
	assert.Contains(t, attrs, attribute.String(KeyIDKey, "deadbeef"))
	assert.Contains(t, attrs, attribute.Int(SlotIndexKey, 2))
	assert.Contains(t, attrs, attribute.String(SessionStateKey, "ready"))
}

func TestLicenseAttributesCarriesAllFields(t *testing.T) {
	attrs := LicenseAttributes("https://license.example.com", 1, 412, true)

	assert.Contains(t, attrs, attribute.String(LicenseURLKey, "https://license.example.com"))
	assert.Contains(t, attrs, attribute.Int(LicenseAttemptKey, 1))
	assert.Contains(t, attrs, attribute.Int(LicenseStatusKey, 412))
	assert.Contains(t, attrs, attribute.Bool(LicenseRetryingKey, true))
}

func TestCurlStoreAttributesCarriesAllFields(t *testing.T) {
	attrs := CurlStoreAttributes("license.example.com", 4, true)

	assert.Contains(t, attrs, attribute.String(CurlHostKey, "license.example.com"))
	assert.Contains(t, attrs, attribute.Int(CurlBucketCountKey, 4))
	assert.Contains(t, attrs, attribute.Bool(CurlPooledKey, true))
}

func TestTaskAttributesCarriesAllFields(t *testing.T) {
	attrs := TaskAttributes(42, "license_refresh")

	assert.Contains(t, attrs, attribute.Int64(TaskIDKey, 42))
	assert.Contains(t, attrs, attribute.String(TaskNameKey, "license_refresh"))
}

func TestErrorAttributesMarksErrorTrue(t *testing.T) {
	attrs := ErrorAttributes(assert.AnError, "license_request_failed")

	assert.Contains(t, attrs, attribute.Bool(ErrorKey, true))
	assert.Contains(t, attrs, attribute.String(ErrorTypeKey, "license_request_failed"))
}
