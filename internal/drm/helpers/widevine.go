// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package helpers implements the reference DrmHelper set from the
// component design table: Widevine, PlayReady, ClearKey, VGDRM and
// Vanilla AES.
package helpers

import (
	"errors"
	"time"

	"github.com/ManuGH/drmcore/internal/drm"
)

const widevineSystemID = "edef8ba9-79d6-4ace-a3c8-27dcd51d21ed"

// WidevineHelper implements drm.DrmHelper for com.widevine.alpha. Key-id
// extraction follows the v0/v1 pssh layouts: v0 carries a two-byte
// tag+length marker (0x12, keyLen) immediately before the key id, found at
// byte offset 32 or 34; v1 carries the 16-byte key id directly at offset
// 32.
type WidevineHelper struct {
	format   drm.MediaFormat
	keyID    []byte
	metadata string
}

// NewWidevineHelper parses pssh (the raw init-data bytes) and returns a
// ready WidevineHelper.
func NewWidevineHelper(format drm.MediaFormat, pssh []byte) (*WidevineHelper, error) {
	kid, err := parseWidevinePssh(pssh)
	if err != nil {
		return nil, err
	}
	return &WidevineHelper{format: format, keyID: kid}, nil
}

func parseWidevinePssh(data []byte) ([]byte, error) {
	if len(data) < 12 {
		return nil, errors.New("widevine: pssh too short")
	}
	version := data[8]

	if version == 1 {
		if len(data)-32 < 16 {
			return nil, errors.New("widevine: v1 pssh too short for key id")
		}
		return append([]byte(nil), data[32:48]...), nil
	}

	for _, off := range []int{32, 34} {
		if off+2 > len(data) {
			continue
		}
		if data[off] != 0x12 {
			continue
		}
		l := int(data[off+1])
		start := off + 2
		if start+l <= len(data) {
			return append([]byte(nil), data[start:start+l]...), nil
		}
	}
	return nil, errors.New("widevine: key id marker not found in pssh")
}

func (h *WidevineHelper) OcdmSystemID() string { return widevineSystemID }

func (h *WidevineHelper) CreateInitData() ([]byte, error) {
	return append([]byte(nil), h.keyID...), nil
}

func (h *WidevineHelper) ParsePssh(data []byte) (bool, error) {
	kid, err := parseWidevinePssh(data)
	if err != nil {
		return false, err
	}
	h.keyID = kid
	return true, nil
}

func (h *WidevineHelper) GetKey() ([]byte, error) { return h.keyID, nil }

func (h *WidevineHelper) GetKeys() (map[int][]byte, error) {
	return map[int][]byte{0: h.keyID}, nil
}

func (h *WidevineHelper) GetDrmMetaData() string       { return h.metadata }
func (h *WidevineHelper) SetDrmMetaData(md string)      { h.metadata = md }
func (h *WidevineHelper) IsClearDecrypt() bool          { return false }
func (h *WidevineHelper) IsHdcp22Required() bool        { return false }
func (h *WidevineHelper) IsExternalLicense() bool       { return false }
func (h *WidevineHelper) RequiresAuth() bool            { return true }
func (h *WidevineHelper) MediaFormat() drm.MediaFormat  { return h.format }
func (h *WidevineHelper) PrimaryKeyID() []byte          { return h.keyID }
func (h *WidevineHelper) AuxiliaryKeyIDs() [][]byte     { return nil }

func (h *WidevineHelper) GenerateLicenseRequest(ci drm.ChallengeInfo) (drm.LicenseRequest, error) {
	return drm.LicenseRequest{
		Method:  "POST",
		Payload: ci.Challenge,
		Headers: map[string]string{"Content-Type": "application/octet-stream"},
	}, nil
}

func (h *WidevineHelper) TransformLicenseResponse(resp drm.LicenseResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *WidevineHelper) LicenseGenerateTimeout() time.Duration { return 5 * time.Second }
func (h *WidevineHelper) KeyProcessTimeout() time.Duration      { return 5 * time.Second }

// WidevineFactory is the drm.Factory for WidevineHelper.
type WidevineFactory struct{}

func (WidevineFactory) IsDRM(info drm.DrmInfo) bool {
	return info.SchemeUUID == widevineSystemID
}

func (WidevineFactory) SystemIDs() []string { return []string{widevineSystemID} }
func (WidevineFactory) Weight() int         { return 10 }

func (WidevineFactory) Create(info drm.DrmInfo) (drm.DrmHelper, error) {
	return NewWidevineHelper(info.MediaFormat, info.InitData)
}
