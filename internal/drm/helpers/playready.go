// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helpers

import (
	"encoding/base64"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/ManuGH/drmcore/internal/drm"
)

const playReadySystemID = "9a04f079-9840-4286-ab92-e65be0885f95"

// PlayReadyHelper implements drm.DrmHelper for com.microsoft.playready.
// Init data is a WRMHEADER XML document; the KID element's VALUE is a
// base64 GUID in Microsoft's little-endian field order and must be
// rearranged into canonical (big-endian) UUID byte order before it can be
// compared against any other scheme's key-id.
type PlayReadyHelper struct {
	keyID    []byte
	policy   string
	metadata string
}

// NewPlayReadyHelper parses a WRMHEADER XML document.
func NewPlayReadyHelper(wrmHeader []byte) (*PlayReadyHelper, error) {
	kid, policy, err := parsePlayReadyHeader(wrmHeader)
	if err != nil {
		return nil, err
	}
	return &PlayReadyHelper{keyID: kid, policy: policy, metadata: policy}, nil
}

func parsePlayReadyHeader(data []byte) (keyID []byte, policy string, err error) {
	dec := xml.NewDecoder(strings.NewReader(string(data)))
	for {
		tok, tErr := dec.Token()
		if tErr == io.EOF {
			break
		}
		if tErr != nil {
			return nil, "", tErr
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "KID":
				for _, attr := range el.Attr {
					if attr.Name.Local == "VALUE" {
						raw, decErr := base64.StdEncoding.DecodeString(attr.Value)
						if decErr != nil {
							return nil, "", decErr
						}
						keyID, err = rearrangeGUID(raw)
						if err != nil {
							return nil, "", err
						}
					}
				}
			case "policy":
				var text string
				if tErr := dec.DecodeElement(&text, &el); tErr == nil {
					policy = strings.TrimSpace(text)
				}
			}
		}
	}
	if len(keyID) == 0 {
		return nil, "", errors.New("playready: KID element not found in header")
	}
	return keyID, policy, nil
}

// rearrangeGUID converts a Microsoft-ordered 16-byte GUID (the first three
// fields stored little-endian) into canonical big-endian UUID byte order.
func rearrangeGUID(raw []byte) ([]byte, error) {
	if len(raw) != 16 {
		return nil, errors.New("playready: key id must be 16 bytes")
	}
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = raw[3], raw[2], raw[1], raw[0]
	out[4], out[5] = raw[5], raw[4]
	out[6], out[7] = raw[7], raw[6]
	copy(out[8:], raw[8:])
	return out, nil
}

func (h *PlayReadyHelper) OcdmSystemID() string { return playReadySystemID }

func (h *PlayReadyHelper) CreateInitData() ([]byte, error) {
	return append([]byte(nil), h.keyID...), nil
}

func (h *PlayReadyHelper) ParsePssh(data []byte) (bool, error) {
	kid, policy, err := parsePlayReadyHeader(data)
	if err != nil {
		return false, err
	}
	h.keyID = kid
	h.policy = policy
	if h.metadata == "" {
		h.metadata = policy
	}
	return true, nil
}

func (h *PlayReadyHelper) GetKey() ([]byte, error) { return h.keyID, nil }

func (h *PlayReadyHelper) GetKeys() (map[int][]byte, error) {
	return map[int][]byte{0: h.keyID}, nil
}

func (h *PlayReadyHelper) GetDrmMetaData() string      { return h.metadata }
func (h *PlayReadyHelper) SetDrmMetaData(md string)    { h.metadata = md }
func (h *PlayReadyHelper) IsClearDecrypt() bool        { return false }
func (h *PlayReadyHelper) IsHdcp22Required() bool      { return false }
func (h *PlayReadyHelper) IsExternalLicense() bool     { return false }
func (h *PlayReadyHelper) RequiresAuth() bool          { return true }
func (h *PlayReadyHelper) MediaFormat() drm.MediaFormat { return drm.MediaFormatDASH }
func (h *PlayReadyHelper) PrimaryKeyID() []byte        { return h.keyID }
func (h *PlayReadyHelper) AuxiliaryKeyIDs() [][]byte   { return nil }

func (h *PlayReadyHelper) GenerateLicenseRequest(ci drm.ChallengeInfo) (drm.LicenseRequest, error) {
	return drm.LicenseRequest{
		Method:  "POST",
		Payload: ci.Challenge,
		Headers: map[string]string{"Content-Type": "text/xml; charset=utf-8"},
	}, nil
}

func (h *PlayReadyHelper) TransformLicenseResponse(resp drm.LicenseResponse) ([]byte, error) {
	return resp.Body, nil
}

func (h *PlayReadyHelper) LicenseGenerateTimeout() time.Duration { return 5 * time.Second }
func (h *PlayReadyHelper) KeyProcessTimeout() time.Duration      { return 5 * time.Second }

// PlayReadyFactory is the drm.Factory for PlayReadyHelper.
type PlayReadyFactory struct{}

func (PlayReadyFactory) IsDRM(info drm.DrmInfo) bool { return info.SchemeUUID == playReadySystemID }
func (PlayReadyFactory) SystemIDs() []string         { return []string{playReadySystemID} }
func (PlayReadyFactory) Weight() int                 { return 10 }

func (PlayReadyFactory) Create(info drm.DrmInfo) (drm.DrmHelper, error) {
	return NewPlayReadyHelper(info.InitData)
}
