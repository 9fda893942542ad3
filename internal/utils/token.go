package utils

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
)

// randomHex returns n cryptographically random bytes hex-encoded.
func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewReference generates the opaque batch reference shared by all
// tickets created in one checkout.  16 random bytes keep the collision
// probability negligible without any uniqueness re-check.
func NewReference() (string, error) {
	return randomHex(16)
}

// NewQRToken generates the redeemable ticket credential.  The store
// still enforces uniqueness defensively via a UNIQUE index.
func NewQRToken() (string, error) {
	return randomHex(12)
}

// QRImageURL builds a chart URL that renders the token as a QR code.
// The encoded payload binds the token under the "t" key so scanners at
// the venue can parse it unambiguously.
func QRImageURL(token string, size int) string {
	if size <= 0 {
		size = 300
	}
	payload, _ := json.Marshal(map[string]string{"t": token})
	return fmt.Sprintf("https://chart.googleapis.com/chart?cht=qr&chs=%dx%d&chl=%s&choe=UTF-8",
		size, size, url.QueryEscape(string(payload)))
}
