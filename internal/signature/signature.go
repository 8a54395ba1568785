// Package signature implements the shared-secret HMAC scheme used on both
// sides of the webhook boundary: inbound payload verification and outbound
// relay signing.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Header carries the signature on both inbound webhooks and outbound relay
// posts.
const Header = "X-Chatdesk-Signature"

const headerPrefix = "sha256="

// Sign returns the header value for body: "sha256=<hex hmac>".
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return headerPrefix + hex.EncodeToString(mac.Sum(nil))
}

// Verify checks headerValue against the HMAC-SHA256 of rawBody. rawBody must
// be the exact bytes received on the wire; re-serialized JSON will not match.
// A missing header, a non-sha256 algorithm tag or malformed hex all verify
// false. The digest comparison is constant-time.
func Verify(rawBody []byte, headerValue, secret string) bool {
	if headerValue == "" {
		return false
	}
	if !strings.HasPrefix(headerValue, headerPrefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(headerValue, headerPrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	want := mac.Sum(nil)

	return hmac.Equal(got, want)
}
