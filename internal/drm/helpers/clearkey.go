// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helpers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/ManuGH/drmcore/internal/drm"
)

const clearKeySystemID = "1077efec-c0b2-4d02-ace3-3c1e52e2fb4b"

// syntheticHLSKeyID is the key-id ClearKey-over-HLS manifests never carry
// explicitly (HLS EXT-X-KEY has no key-id field); every key on an HLS
// rendition shares this single synthetic id.
var syntheticHLSKeyID = []byte("1")

// jwkKey is one entry of a JSON Web Key Set, RFC 7517 §5, as the EME
// ClearKey CDM expects it.
type jwkKey struct {
	Kty string `json:"kty"`
	K   string `json:"k"`
	Kid string `json:"kid"`
}

type jwkSet struct {
	Keys []jwkKey `json:"keys"`
	Type string   `json:"type"`
}

// ClearKeyHelper implements drm.DrmHelper for org.w3.clearkey. HLS
// manifests carry no key-id; DASH pssh boxes carry a raw 16-byte key-id at
// offset 32 with no tag+length wrapper.
type ClearKeyHelper struct {
	format   drm.MediaFormat
	keyID    []byte
	keyURI   string
	metadata string
}

// NewClearKeyHelperHLS builds a ClearKeyHelper for an HLS EXT-X-KEY tag:
// no pssh, just a key URI to fetch the raw content key from.
func NewClearKeyHelperHLS(keyURI string) *ClearKeyHelper {
	return &ClearKeyHelper{format: drm.MediaFormatHLS, keyID: syntheticHLSKeyID, keyURI: keyURI}
}

// NewClearKeyHelperDASH parses a DASH pssh box's raw 16-byte key-id.
func NewClearKeyHelperDASH(pssh []byte) (*ClearKeyHelper, error) {
	kid, err := parseClearKeyPsshDASH(pssh)
	if err != nil {
		return nil, err
	}
	return &ClearKeyHelper{format: drm.MediaFormatDASH, keyID: kid}, nil
}

func parseClearKeyPsshDASH(data []byte) ([]byte, error) {
	if len(data) < 48 {
		return nil, errors.New("clearkey: pssh too short for 16-byte key id at offset 32")
	}
	return append([]byte(nil), data[32:48]...), nil
}

func (h *ClearKeyHelper) OcdmSystemID() string { return clearKeySystemID }

func (h *ClearKeyHelper) CreateInitData() ([]byte, error) {
	return append([]byte(nil), h.keyID...), nil
}

func (h *ClearKeyHelper) ParsePssh(data []byte) (bool, error) {
	kid, err := parseClearKeyPsshDASH(data)
	if err != nil {
		return false, err
	}
	h.keyID = kid
	return true, nil
}

func (h *ClearKeyHelper) GetKey() ([]byte, error) { return h.keyID, nil }

func (h *ClearKeyHelper) GetKeys() (map[int][]byte, error) {
	return map[int][]byte{0: h.keyID}, nil
}

func (h *ClearKeyHelper) GetDrmMetaData() string      { return h.metadata }
func (h *ClearKeyHelper) SetDrmMetaData(md string)    { h.metadata = md }
func (h *ClearKeyHelper) IsClearDecrypt() bool        { return true }
func (h *ClearKeyHelper) IsHdcp22Required() bool      { return false }
func (h *ClearKeyHelper) IsExternalLicense() bool     { return false }
func (h *ClearKeyHelper) RequiresAuth() bool          { return false }
func (h *ClearKeyHelper) MediaFormat() drm.MediaFormat { return h.format }
func (h *ClearKeyHelper) PrimaryKeyID() []byte        { return h.keyID }
func (h *ClearKeyHelper) AuxiliaryKeyIDs() [][]byte   { return nil }

// GenerateLicenseRequest for HLS ClearKey is a plain GET against the key
// URI: the "license server" is just a raw-key host, not a CDM license
// endpoint. DASH ClearKey follows the ordinary challenge/POST flow.
func (h *ClearKeyHelper) GenerateLicenseRequest(ci drm.ChallengeInfo) (drm.LicenseRequest, error) {
	if h.format == drm.MediaFormatHLS {
		if h.keyURI == "" {
			return drm.LicenseRequest{}, errors.New("clearkey: missing key uri")
		}
		return drm.LicenseRequest{Method: "GET", URL: h.keyURI}, nil
	}
	return drm.LicenseRequest{
		Method:  "POST",
		Payload: ci.Challenge,
		Headers: map[string]string{"Content-Type": "application/json"},
	}, nil
}

// TransformLicenseResponse normalizes whatever the key endpoint returned
// into a single canonical JWK set: a raw key body (the HLS case) is
// wrapped, and a response that already looks like JSON is passed through
// unchanged.
func (h *ClearKeyHelper) TransformLicenseResponse(resp drm.LicenseResponse) ([]byte, error) {
	if len(resp.Body) == 0 {
		return nil, errors.New("clearkey: empty license response")
	}
	if looksLikeJSON(resp.Body) {
		return resp.Body, nil
	}
	set := jwkSet{
		Type: "temporary",
		Keys: []jwkKey{{
			Kty: "oct",
			K:   base64.RawURLEncoding.EncodeToString(resp.Body),
			Kid: base64.RawURLEncoding.EncodeToString(h.keyID),
		}},
	}
	return json.Marshal(set)
}

func looksLikeJSON(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		case '{', '[':
			return true
		default:
			return false
		}
	}
	return false
}

func (h *ClearKeyHelper) LicenseGenerateTimeout() time.Duration { return 5 * time.Second }
func (h *ClearKeyHelper) KeyProcessTimeout() time.Duration      { return 5 * time.Second }

// ClearKeyFactory is the drm.Factory for ClearKeyHelper.
type ClearKeyFactory struct{}

func (ClearKeyFactory) IsDRM(info drm.DrmInfo) bool {
	return info.SchemeUUID == clearKeySystemID || info.KeyFormat == "identity"
}

func (ClearKeyFactory) SystemIDs() []string { return []string{clearKeySystemID} }
func (ClearKeyFactory) Weight() int         { return 20 }

func (ClearKeyFactory) Create(info drm.DrmInfo) (drm.DrmHelper, error) {
	if info.MediaFormat == drm.MediaFormatHLS {
		return NewClearKeyHelperHLS(info.KeyURI), nil
	}
	return NewClearKeyHelperDASH(info.InitData)
}
