// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package helpers

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ManuGH/drmcore/internal/drm"
)

func hexBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		t.Fatalf("bad hex fixture: %v", err)
	}
	return b
}

func TestWidevineV0PsshExtractsKeyID(t *testing.T) {
	pssh := hexBytes(t, "00 00 00 34 70 73 73 68 00 00 00 00 10 77 ef ec "+
		"c0 b2 4d 02 ac e3 3c 1e 52 e2 fb 4b 00 00 00 12 "+
		"12 10 fe ed f0 0d ee de ad be ef f0 ba ad f0 0d "+
		"d0 0d 00 00 00 00")

	h, err := NewWidevineHelper(drm.MediaFormatDASH, pssh)
	if err != nil {
		t.Fatalf("NewWidevineHelper: %v", err)
	}
	want := hexBytes(t, "fe ed f0 0d ee de ad be ef f0 ba ad f0 0d d0 0d")
	if len(h.PrimaryKeyID()) != 16 {
		t.Fatalf("key id length = %d, want 16", len(h.PrimaryKeyID()))
	}
	for i, b := range want {
		if h.PrimaryKeyID()[i] != b {
			t.Fatalf("key id byte %d = %x, want %x", i, h.PrimaryKeyID()[i], b)
		}
	}
}

func TestClearKeyHLSGeneratesGetAndTransformsToJWK(t *testing.T) {
	h := NewClearKeyHelperHLS("http://example.com/assets/file.key")

	req, err := h.GenerateLicenseRequest(drm.ChallengeInfo{})
	if err != nil {
		t.Fatalf("GenerateLicenseRequest: %v", err)
	}
	if req.Method != "GET" || req.URL != "http://example.com/assets/file.key" {
		t.Fatalf("unexpected request: %+v", req)
	}

	out, err := h.TransformLicenseResponse(drm.LicenseResponse{Body: []byte("TESTKEYDATA")})
	if err != nil {
		t.Fatalf("TransformLicenseResponse: %v", err)
	}
	got := string(out)
	if !strings.Contains(got, `"k":"VEVTVEtFWURBVEE"`) {
		t.Fatalf("jwk missing expected k value: %s", got)
	}
	if !strings.Contains(got, `"kid":"MQ"`) {
		t.Fatalf("jwk missing expected kid value: %s", got)
	}
}

func TestClearKeyDASHParsesRawOffset32KeyID(t *testing.T) {
	pssh := make([]byte, 48)
	kid := hexBytes(t, "aa bb cc dd ee ff 00 11 22 33 44 55 66 77 88 99")
	copy(pssh[32:], kid)

	h, err := NewClearKeyHelperDASH(pssh)
	if err != nil {
		t.Fatalf("NewClearKeyHelperDASH: %v", err)
	}
	if string(h.PrimaryKeyID()) != string(kid) {
		t.Fatalf("key id = %x, want %x", h.PrimaryKeyID(), kid)
	}
}

func TestPlayReadyParsesKIDAndPolicyFromXML(t *testing.T) {
	const wrmHeader = `<WRMHEADER xmlns="http://schemas.microsoft.com/DRM/2007/03/PlayReadyHeader" version="4.0.0.0">
  <DATA>
    <PROTECTINFO>
      <KEYLEN>16</KEYLEN>
      <ALGID>AESCTR</ALGID>
    </PROTECTINFO>
    <KID VALUE="16qi1ebqse64eneniyclWg==" ALGID="AESCTR"/>
    <LA_URL>https://example.com/playready/license</LA_URL>
    <CUSTOMATTRIBUTES>
      <ckm:policy xmlns:ckm="urn:ckm">policy</ckm:policy>
    </CUSTOMATTRIBUTES>
  </DATA>
</WRMHEADER>`

	h, err := NewPlayReadyHelper([]byte(wrmHeader))
	if err != nil {
		t.Fatalf("NewPlayReadyHelper: %v", err)
	}
	if h.GetDrmMetaData() != "policy" {
		t.Fatalf("metadata = %q, want %q", h.GetDrmMetaData(), "policy")
	}
	if len(h.PrimaryKeyID()) != 16 {
		t.Fatalf("key id length = %d, want 16", len(h.PrimaryKeyID()))
	}
}

func TestVGDrmParsesHexKeyURI(t *testing.T) {
	h, err := NewVGDrmHelper("81701500000810367b131dd025ab0a7bd8d20c1314151600")
	if err != nil {
		t.Fatalf("NewVGDrmHelper: %v", err)
	}
	want := hexBytes(t, "36 7b 13 1d d0 25 ab 0a 7b d8 d2 0c 13 14 15 16")
	if len(h.PrimaryKeyID()) != len(want) {
		t.Fatalf("key length = %d, want %d", len(h.PrimaryKeyID()), len(want))
	}
	for i, b := range want {
		if h.PrimaryKeyID()[i] != b {
			t.Fatalf("key byte %d = %x, want %x", i, h.PrimaryKeyID()[i], b)
		}
	}
	if !h.IsExternalLicense() || !h.IsHdcp22Required() {
		t.Fatalf("VGDRM helper must be external-license and HDCP22-required")
	}
}

func TestVanillaAESIsClearDecryptWithNoInitData(t *testing.T) {
	h := NewVanillaAESHelper("http://example.com/clear.key")
	if !h.IsClearDecrypt() {
		t.Fatalf("vanilla AES must report IsClearDecrypt() == true")
	}
	data, err := h.CreateInitData()
	if err != nil || data != nil {
		t.Fatalf("CreateInitData() = %v, %v, want nil, nil", data, err)
	}
}
