// Package binance implements the margin-trading venue boundary: REST calls
// for prices, candles, orders, and loans, plus an optional websocket ticker
// stream feeding a local price cache.
package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"
)

// Signer produces signed query strings for authenticated endpoints.
// Keys are held as byte slices so they can be wiped on shutdown.
type Signer struct {
	apiKey    []byte
	secretKey []byte
}

// NewSigner creates a signer from string credentials.
func NewSigner(apiKey, secretKey string) *Signer {
	return &Signer{
		apiKey:    []byte(apiKey),
		secretKey: []byte(secretKey),
	}
}

// APIKey returns the key header value.
func (s *Signer) APIKey() string {
	return string(s.apiKey)
}

// Sign appends the timestamp and HMAC-SHA256 signature to the given query
// parameters, returning the final encoded query string.
func (s *Signer) Sign(params url.Values) string {
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	encoded := params.Encode()
	return encoded + "&signature=" + s.signature(encoded)
}

func (s *Signer) signature(payload string) string {
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Wipe clears the keys from memory.
func (s *Signer) Wipe() {
	if s == nil {
		return
	}
	wipeSlice(s.apiKey)
	wipeSlice(s.secretKey)
}

func wipeSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
