// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package drm implements the DRM Helper Registry and Session Manager: the
// core that turns a protected segment's DrmInfo into a ready decryption
// session, acquiring and caching content keys across HLS and DASH.
package drm

import "time"

// DrmInfo describes one protected segment's cryptographic context.
type DrmInfo struct {
	EncryptionMethod string
	MediaFormat      MediaFormat
	SchemeUUID       string
	KeyFormat        string
	KeyURI           string
	ManifestURL      string
	InitData         []byte
	IV               []byte
	PropagateQuery   bool
}

// MediaFormat identifies the manifest family a DrmInfo was extracted from.
type MediaFormat int

const (
	MediaFormatUnknown MediaFormat = iota
	MediaFormatHLS
	MediaFormatDASH
)

func (f MediaFormat) String() string {
	switch f {
	case MediaFormatHLS:
		return "hls"
	case MediaFormatDASH:
		return "dash"
	default:
		return "unknown"
	}
}

// KeyStatus mirrors the platform CDM's reported state for one key.
type KeyStatus int

const (
	KeyUsable KeyStatus = iota
	KeyOutputRestricted
	KeyOutputRestrictedHDCP22
	KeyHWError
	KeyExpired
	KeyInternalError
	KeyEmptyID
)

// ChallengeInfo is passed to DrmHelper.GenerateLicenseRequest after the CDM
// produces a challenge.
type ChallengeInfo struct {
	Challenge []byte
	KeyID     []byte
}

// LicenseRequest is the HTTP request a helper wants the Session Manager to
// issue on its behalf.
type LicenseRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Payload []byte
}

// LicenseResponse is the raw HTTP response body (plus status) handed back
// to the helper for TransformLicenseResponse.
type LicenseResponse struct {
	StatusCode int
	Body       []byte
	Header     map[string]string
}

// DrmHelper is the per-scheme strategy object. All methods are expected to
// be pure with respect to shared state, aside from the explicit
// SetDrmMetaData setter.
type DrmHelper interface {
	OcdmSystemID() string
	CreateInitData() ([]byte, error)
	ParsePssh(data []byte) (bool, error)
	GetKey() ([]byte, error)
	GetKeys() (map[int][]byte, error)
	GetDrmMetaData() string
	SetDrmMetaData(string)
	IsClearDecrypt() bool
	IsHdcp22Required() bool
	IsExternalLicense() bool
	RequiresAuth() bool
	GenerateLicenseRequest(ChallengeInfo) (LicenseRequest, error)
	TransformLicenseResponse(LicenseResponse) ([]byte, error)
	LicenseGenerateTimeout() time.Duration
	KeyProcessTimeout() time.Duration

	// MediaFormat and PrimaryKeyID support slot selection and helper
	// equality without widening the interface per call site.
	MediaFormat() MediaFormat
	PrimaryKeyID() []byte
	AuxiliaryKeyIDs() [][]byte
}

// Equal implements helper equivalence: same ocdm-system-id (the only scheme
// identifier a DrmHelper exposes), same media format, same drm-metadata, and
// a's primary key-id among b's key-ids (primary + auxiliary).
func Equal(a, b DrmHelper) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.OcdmSystemID() != b.OcdmSystemID() {
		return false
	}
	if a.MediaFormat() != b.MediaFormat() {
		return false
	}
	if a.GetDrmMetaData() != b.GetDrmMetaData() {
		return false
	}
	akid := a.PrimaryKeyID()
	for _, bkid := range allKeyIDs(b) {
		if bytesEqual(akid, bkid) {
			return true
		}
	}
	return false
}

func allKeyIDs(h DrmHelper) [][]byte {
	out := [][]byte{h.PrimaryKeyID()}
	return append(out, h.AuxiliaryKeyIDs()...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
