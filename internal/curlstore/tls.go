// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package curlstore

import "crypto/tls"

// insecureTLSConfig backs the KeyCurlSSLVerifyPeer=false escape hatch used
// by a handful of test/staging license endpoints with self-signed certs.
func insecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true} //nolint:gosec
}
