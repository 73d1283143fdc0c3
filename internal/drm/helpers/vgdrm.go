// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helpers

import (
	"encoding/hex"
	"errors"
	"time"

	"github.com/ManuGH/drmcore/internal/drm"
)

const vgdrmSystemID = "net.vgdrm"

// VGDrmHelper implements drm.DrmHelper for net.vgdrm, an external-license
// scheme whose key bytes travel in the manifest's key URI itself (hex
// encoded) rather than in a pssh box: byte 6 holds the key length, and the
// key bytes immediately follow it.
type VGDrmHelper struct {
	keyID    []byte
	metadata string
}

// NewVGDrmHelper parses a hex-encoded VGDRM key URI.
func NewVGDrmHelper(hexKeyURI string) (*VGDrmHelper, error) {
	kid, err := parseVGDrmKeyURI(hexKeyURI)
	if err != nil {
		return nil, err
	}
	return &VGDrmHelper{keyID: kid}, nil
}

func parseVGDrmKeyURI(hexStr string) ([]byte, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	if len(raw) < 7 {
		return nil, errors.New("vgdrm: key uri too short")
	}
	keyLen := int(raw[6])
	start := 7
	if start+keyLen > len(raw) {
		return nil, errors.New("vgdrm: key length exceeds key uri")
	}
	return append([]byte(nil), raw[start:start+keyLen]...), nil
}

func (h *VGDrmHelper) OcdmSystemID() string { return vgdrmSystemID }

func (h *VGDrmHelper) CreateInitData() ([]byte, error) {
	return append([]byte(nil), h.keyID...), nil
}

func (h *VGDrmHelper) ParsePssh(data []byte) (bool, error) {
	kid, err := parseVGDrmKeyURI(hex.EncodeToString(data))
	if err != nil {
		return false, err
	}
	h.keyID = kid
	return true, nil
}

func (h *VGDrmHelper) GetKey() ([]byte, error) { return h.keyID, nil }

func (h *VGDrmHelper) GetKeys() (map[int][]byte, error) {
	return map[int][]byte{0: h.keyID}, nil
}

func (h *VGDrmHelper) GetDrmMetaData() string      { return h.metadata }
func (h *VGDrmHelper) SetDrmMetaData(md string)    { h.metadata = md }
func (h *VGDrmHelper) IsClearDecrypt() bool        { return true }
func (h *VGDrmHelper) IsHdcp22Required() bool      { return true }
func (h *VGDrmHelper) IsExternalLicense() bool     { return true }
func (h *VGDrmHelper) RequiresAuth() bool          { return false }
func (h *VGDrmHelper) MediaFormat() drm.MediaFormat { return drm.MediaFormatHLS }
func (h *VGDrmHelper) PrimaryKeyID() []byte        { return h.keyID }
func (h *VGDrmHelper) AuxiliaryKeyIDs() [][]byte   { return nil }

// GenerateLicenseRequest is never called by the Session Manager:
// IsExternalLicense makes it mark the session ready without issuing any
// license request. It only wraps the challenge as the request payload.
func (h *VGDrmHelper) GenerateLicenseRequest(ci drm.ChallengeInfo) (drm.LicenseRequest, error) {
	return drm.LicenseRequest{Payload: ci.Challenge}, nil
}

func (h *VGDrmHelper) TransformLicenseResponse(resp drm.LicenseResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *VGDrmHelper) LicenseGenerateTimeout() time.Duration { return 5 * time.Second }
func (h *VGDrmHelper) KeyProcessTimeout() time.Duration      { return 5 * time.Second }

// VGDrmFactory is the drm.Factory for VGDrmHelper.
type VGDrmFactory struct{}

func (VGDrmFactory) IsDRM(info drm.DrmInfo) bool { return info.SchemeUUID == vgdrmSystemID }
func (VGDrmFactory) SystemIDs() []string         { return []string{vgdrmSystemID} }
func (VGDrmFactory) Weight() int                 { return 10 }

func (VGDrmFactory) Create(info drm.DrmInfo) (drm.DrmHelper, error) {
	return NewVGDrmHelper(info.KeyURI)
}
