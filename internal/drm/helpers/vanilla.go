// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helpers

import (
	"time"

	"github.com/ManuGH/drmcore/internal/drm"
)

const vanillaAESSystemID = "vanilla.aes128"

// VanillaAESHelper is the clear-decrypt bypass helper: plain AES-128 CBC
// with the key fetched the same way a ClearKey HLS key is, but with no CDM
// session at all — IsExternalLicense short-circuits the Session Manager
// straight past GenerateSession/ProcessKey.
type VanillaAESHelper struct {
	keyURI   string
	keyID    []byte
	metadata string
}

// NewVanillaAESHelper builds a helper around the given key URI. There is
// no pssh or init data to parse; the key-id is the URI itself.
func NewVanillaAESHelper(keyURI string) *VanillaAESHelper {
	return &VanillaAESHelper{keyURI: keyURI, keyID: []byte(keyURI)}
}

func (h *VanillaAESHelper) OcdmSystemID() string { return vanillaAESSystemID }

func (h *VanillaAESHelper) CreateInitData() ([]byte, error) { return nil, nil }

func (h *VanillaAESHelper) ParsePssh(data []byte) (bool, error) { return true, nil }

func (h *VanillaAESHelper) GetKey() ([]byte, error) { return h.keyID, nil }

func (h *VanillaAESHelper) GetKeys() (map[int][]byte, error) {
	return map[int][]byte{0: h.keyID}, nil
}

func (h *VanillaAESHelper) GetDrmMetaData() string      { return h.metadata }
func (h *VanillaAESHelper) SetDrmMetaData(md string)    { h.metadata = md }
func (h *VanillaAESHelper) IsClearDecrypt() bool        { return true }
func (h *VanillaAESHelper) IsHdcp22Required() bool      { return false }
func (h *VanillaAESHelper) IsExternalLicense() bool     { return true }
func (h *VanillaAESHelper) RequiresAuth() bool          { return false }
func (h *VanillaAESHelper) MediaFormat() drm.MediaFormat { return drm.MediaFormatHLS }
func (h *VanillaAESHelper) PrimaryKeyID() []byte        { return h.keyID }
func (h *VanillaAESHelper) AuxiliaryKeyIDs() [][]byte   { return nil }

func (h *VanillaAESHelper) GenerateLicenseRequest(ci drm.ChallengeInfo) (drm.LicenseRequest, error) {
	return drm.LicenseRequest{Method: "GET", URL: h.keyURI}, nil
}

func (h *VanillaAESHelper) TransformLicenseResponse(resp drm.LicenseResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *VanillaAESHelper) LicenseGenerateTimeout() time.Duration { return 5 * time.Second }
func (h *VanillaAESHelper) KeyProcessTimeout() time.Duration      { return 5 * time.Second }

// VanillaAESFactory is the drm.Factory for VanillaAESHelper. It carries
// the lowest priority weight: any scheme-specific factory that also
// recognizes an info should win over the clear-decrypt catch-all.
type VanillaAESFactory struct{}

func (VanillaAESFactory) IsDRM(info drm.DrmInfo) bool {
	return info.EncryptionMethod == "AES-128" && info.SchemeUUID == ""
}

func (VanillaAESFactory) SystemIDs() []string { return []string{vanillaAESSystemID} }
func (VanillaAESFactory) Weight() int         { return 1000 }

func (VanillaAESFactory) Create(info drm.DrmInfo) (drm.DrmHelper, error) {
	return NewVanillaAESHelper(info.KeyURI), nil
}
