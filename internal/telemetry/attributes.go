// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for the DRM core.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the DRM session manager,
// curl store and scheduler.
const (
	// Session attributes
	SchemeUUIDKey      = "drm.scheme_uuid"
	KeyIDKey           = "drm.key_id"
	SlotIndexKey       = "drm.slot_index"
	SessionStateKey    = "drm.session_state"
	OCDMSystemIDKey    = "drm.ocdm_system_id"
	ExternalLicenseKey = "drm.external_license"

	// License-request attributes
	LicenseURLKey      = "license.url"
	LicenseAttemptKey  = "license.attempt"
	LicenseStatusKey   = "license.status_code"
	LicenseRetryingKey = "license.retrying"

	// Curl store attributes
	CurlHostKey        = "curlstore.host"
	CurlBucketCountKey = "curlstore.bucket_count"
	CurlPooledKey      = "curlstore.pooled"

	// Scheduler attributes
	TaskIDKey   = "scheduler.task_id"
	TaskNameKey = "scheduler.task_name"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// SessionAttributes creates DRM-session span attributes.
func SessionAttributes(schemeUUID, keyID string, slot int, state string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SchemeUUIDKey, schemeUUID),
		attribute.String(KeyIDKey, keyID),
		attribute.Int(SlotIndexKey, slot),
		attribute.String(SessionStateKey, state),
	}
}

// LicenseAttributes creates license-request span attributes.
func LicenseAttributes(url string, attempt, statusCode int, retrying bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(LicenseURLKey, url),
		attribute.Int(LicenseAttemptKey, attempt),
		attribute.Int(LicenseStatusKey, statusCode),
		attribute.Bool(LicenseRetryingKey, retrying),
	}
}

// CurlStoreAttributes creates curl-store bucket span attributes.
func CurlStoreAttributes(host string, bucketCount int, pooled bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(CurlHostKey, host),
		attribute.Int(CurlBucketCountKey, bucketCount),
		attribute.Bool(CurlPooledKey, pooled),
	}
}

// TaskAttributes creates scheduler-task span attributes.
func TaskAttributes(taskID uint64, taskName string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(TaskIDKey, int64(taskID)),
		attribute.String(TaskNameKey, taskName),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
