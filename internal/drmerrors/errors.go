// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package drmerrors defines the DRM error taxonomy: a closed set of typed
// failure codes instead of ad hoc exceptions, each carrying a retry hint
// used by the Session Manager's DRM_METADATA event.
package drmerrors

import (
	"errors"
	"fmt"
)

// Code identifies one entry in the DRM error taxonomy.
type Code int

const (
	CorruptDrmMetadata Code = iota
	FailedToGetKeyID
	DrmInitFailed
	DrmDataBindFailed
	DrmSessionIDEmpty
	DrmChallengeFailed
	FailedToGetAccessToken
	AuthorisationFailure
	LicenceTimeout
	LicenceRequestFailed
	DrmSelfAbort
	InvalidDrmKey
	DrmKeyUpdateFailed
	HDCPComplianceError
)

// String renders the wire/log name for one error code.
func (c Code) String() string {
	switch c {
	case CorruptDrmMetadata:
		return "CORRUPT_DRM_METADATA"
	case FailedToGetKeyID:
		return "FAILED_TO_GET_KEYID"
	case DrmInitFailed:
		return "DRM_INIT_FAILED"
	case DrmDataBindFailed:
		return "DRM_DATA_BIND_FAILED"
	case DrmSessionIDEmpty:
		return "DRM_SESSIONID_EMPTY"
	case DrmChallengeFailed:
		return "DRM_CHALLENGE_FAILED"
	case FailedToGetAccessToken:
		return "FAILED_TO_GET_ACCESS_TOKEN"
	case AuthorisationFailure:
		return "AUTHORISATION_FAILURE"
	case LicenceTimeout:
		return "LICENCE_TIMEOUT"
	case LicenceRequestFailed:
		return "LICENCE_REQUEST_FAILED"
	case DrmSelfAbort:
		return "DRM_SELF_ABORT"
	case InvalidDrmKey:
		return "INVALID_DRM_KEY"
	case DrmKeyUpdateFailed:
		return "DRM_KEY_UPDATE_FAILED"
	case HDCPComplianceError:
		return "HDCP_COMPLIANCE_ERROR"
	default:
		return "UNKNOWN_DRM_ERROR"
	}
}

// notRetryable is the denylist of codes for which isRetryEnabled is false
// on the DRM_METADATA event: authorisation, request, timeout and HDCP
// failures are never worth a caller-side retry.
var notRetryable = map[Code]bool{
	AuthorisationFailure: true,
	LicenceRequestFailed: true,
	LicenceTimeout:       true,
	HDCPComplianceError:  true,
}

// Retryable reports the isRetryEnabled hint carried on the DRM_METADATA
// event for this code.
func (c Code) Retryable() bool {
	return !notRetryable[c]
}

// DrmError wraps a Code with the underlying cause and is returned by every
// Session Manager operation that can fail; the CDM Adapter returns plain
// errors, which the Session Manager wraps in a DrmError.
type DrmError struct {
	Code      Code
	Retryable bool
	Cause     error
}

func New(code Code, cause error) *DrmError {
	return &DrmError{Code: code, Retryable: code.Retryable(), Cause: cause}
}

func (e *DrmError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Code.String()
}

func (e *DrmError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, drmerrors.Sentinel(code)) style checks work
// against DrmError without requiring callers to type-assert.
func (e *DrmError) Is(target error) bool {
	var de *DrmError
	if errors.As(target, &de) {
		return de.Code == e.Code
	}
	return false
}

// Sentinel returns a comparable *DrmError carrying only a code, for use
// with errors.Is(err, drmerrors.Sentinel(drmerrors.DrmChallengeFailed)).
func Sentinel(code Code) error {
	return &DrmError{Code: code}
}
