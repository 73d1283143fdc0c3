// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

// ValueType identifies the fixed primitive type of a config key. Every key
// has exactly one ValueType for its lifetime; Set calls that disagree with
// the registered type are rejected.
type ValueType int

const (
	TypeBool ValueType = iota
	TypeInt
	TypeLong
	TypeDouble
	TypeString
)

func (t ValueType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeInt:
		return "int"
	case TypeLong:
		return "long"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	default:
		return "unknown"
	}
}

// Key names a config cell. Keys are grouped by the subsystem that owns
// them; every key must be registered in the Spec table below.
type Key string

const (
	// Curl connection store.
	KeyCurlMaxBuckets     Key = "curlstore.max_buckets"
	KeyCurlMaxBucketsHard Key = "curlstore.max_buckets_hard_cap"
	KeyCurlDNSCacheTTLSec Key = "curlstore.dns_cache_ttl_seconds"
	KeyCurlFollowRedirect Key = "curlstore.follow_redirects"
	KeyCurlSSLVerifyPeer  Key = "curlstore.ssl_verify_peer"
	KeyCurlUserAgent      Key = "curlstore.user_agent"
	KeyCurlProxyURL       Key = "curlstore.proxy_url"
	KeyCurlTransferTimeoutSec Key = "curlstore.transfer_timeout_seconds"

	// DRM session manager.
	KeySessionSlotCount        Key = "drm.session_slot_count"
	KeyLicenseRetryWaitTimeMS  Key = "drm.license_retry_wait_time_ms"
	KeyLicenseMaxAttempts      Key = "drm.license_max_attempts"
	KeyMDSModeEnabled          Key = "drm.mds_mode_enabled"
	KeyOutputProtectionEnabled Key = "drm.output_protection_enabled"
	KeyHDCP22Required          Key = "drm.hdcp22_required"
	KeyLicenseServerURL        Key = "drm.license_server_url_override"
	KeyAccessTokenServiceURL   Key = "drm.access_token_service_url"
	KeyFakeTuneEnabled         Key = "drm.fake_tune_enabled"
	KeyHWErrorSelfKillEnabled  Key = "drm.hw_error_self_kill_enabled"

	// Scheduler.
	KeySchedulerQueueCapacity Key = "scheduler.queue_capacity"

	// Event manager.
	KeyEventAsyncTuneEnabled Key = "eventmgr.async_tune_enabled"
)

// Spec describes a registered key's fixed type and, for numeric types, its
// permitted inclusive range. A zero Range means unbounded.
type Spec struct {
	Type    ValueType
	Range   Range
	Default any
}

// registry is the fixed partition of keys to types: a map<key, variant>
// rather than the fixed-array-per-type storage an embedded player might
// use.
var registry = map[Key]Spec{
	KeyCurlMaxBuckets:          {Type: TypeInt, Range: Range{Min: 1, Max: 30}, Default: 8},
	KeyCurlMaxBucketsHard:      {Type: TypeInt, Range: Range{Min: 1, Max: 64}, Default: 32},
	KeyCurlDNSCacheTTLSec:      {Type: TypeInt, Range: Range{Min: 1, Max: 3600}, Default: 180},
	KeyCurlFollowRedirect:      {Type: TypeBool, Default: true},
	KeyCurlSSLVerifyPeer:       {Type: TypeBool, Default: true},
	KeyCurlUserAgent:           {Type: TypeString, Default: "drmcore/1.0"},
	KeyCurlProxyURL:            {Type: TypeString, Default: ""},
	KeyCurlTransferTimeoutSec:  {Type: TypeInt, Range: Range{Min: 1, Max: 120}, Default: 10},
	KeySessionSlotCount:        {Type: TypeInt, Range: Range{Min: 1, Max: 30}, Default: 6},
	KeyLicenseRetryWaitTimeMS:  {Type: TypeLong, Range: Range{Min: 0, Max: 60000}, Default: int64(1000)},
	KeyLicenseMaxAttempts:      {Type: TypeInt, Range: Range{Min: 1, Max: 5}, Default: 2},
	KeyMDSModeEnabled:          {Type: TypeBool, Default: false},
	KeyOutputProtectionEnabled: {Type: TypeBool, Default: true},
	KeyHDCP22Required:          {Type: TypeBool, Default: false},
	KeyLicenseServerURL:        {Type: TypeString, Default: ""},
	KeyAccessTokenServiceURL:   {Type: TypeString, Default: "http://localhost:50050/authService/getSessionToken"},
	KeyFakeTuneEnabled:         {Type: TypeBool, Default: false},
	KeyHWErrorSelfKillEnabled:  {Type: TypeBool, Default: false},
	KeySchedulerQueueCapacity:  {Type: TypeInt, Range: Range{Min: 1, Max: 4096}, Default: 256},
	KeyEventAsyncTuneEnabled:   {Type: TypeBool, Default: false},
}
