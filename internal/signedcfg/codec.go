// Package signedcfg builds and verifies the integrity-protected share-link
// format:
//
//	<scheme>://signed?config=<base64(utf8(json))>&sig=<hex(HMAC-SHA256)>
//
// The format protects integrity, not confidentiality; it exists for passing
// configurations between parties, so its key is independent of the at-rest
// field encryption key.
package signedcfg

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"cybervpn/internal/fieldcrypt"
	"cybervpn/internal/logger"
)

// Verification failures. Callers treat all of them like a parse failure:
// reject with the reason, trust nothing in the payload.
var (
	ErrWrongScheme      = errors.New("not a signed config link")
	ErrMissingParams    = errors.New("signed link is missing config or sig")
	ErrSignatureInvalid = errors.New("signature verification failed")
	ErrPayloadInvalid   = errors.New("signed payload is not decodable")
)

const shareSecretEntry = "config-share-secret"

// Codec signs and verifies config payloads under a fixed URI scheme.
type Codec struct {
	scheme string
}

func New(scheme string) *Codec {
	if scheme == "" {
		scheme = "cybervpn"
	}
	return &Codec{scheme: scheme}
}

// CreateSignedURI wraps a JSON payload in the signed link format.
func (c *Codec) CreateSignedURI(payload string, key []byte) string {
	b64 := base64.StdEncoding.EncodeToString([]byte(payload))
	sig := computeSig(key, b64)

	q := url.Values{}
	q.Set("config", b64)
	q.Set("sig", sig)
	return fmt.Sprintf("%s://signed?%s", c.scheme, q.Encode())
}

// ParseAndVerify checks the signature and, only on a match, decodes and
// returns the JSON payload. The payload is never touched before the MAC
// comparison succeeds.
func (c *Codec) ParseAndVerify(rawURI string, key []byte) (string, error) {
	if !strings.HasPrefix(rawURI, c.scheme+"://") {
		return "", ErrWrongScheme
	}

	u, err := url.Parse(rawURI)
	if err != nil {
		return "", ErrWrongScheme
	}

	q := u.Query()
	b64 := q.Get("config")
	sig := q.Get("sig")
	if b64 == "" || sig == "" {
		return "", ErrMissingParams
	}

	expected := computeSig(key, b64)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		logger.Log.Warnf("signedcfg: signature mismatch, rejecting link")
		return "", ErrSignatureInvalid
	}

	payload, err := base64.StdEncoding.DecodeString(b64)
	if err != nil || !utf8.Valid(payload) {
		return "", ErrPayloadInvalid
	}
	return string(payload), nil
}

func computeSig(key []byte, b64Payload string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(b64Payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// LoadShareKey derives the session signing key from the share secret held in
// platform-secure storage, creating the secret on first use. The derivation
// keeps the raw secret out of the signing path.
func LoadShareKey(store fieldcrypt.SecretStore) ([]byte, error) {
	secret, err := store.Read(shareSecretEntry)
	if errors.Is(err, fieldcrypt.ErrSecretNotFound) {
		secret, err = generateShareSecret(store)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load share secret: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("config-share-v1"))
	return mac.Sum(nil), nil
}

func generateShareSecret(store fieldcrypt.SecretStore) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	secret := base64.StdEncoding.EncodeToString(raw)
	if err := store.Write(shareSecretEntry, secret); err != nil {
		return "", err
	}
	logger.Log.Info("signedcfg: generated new share secret")
	return secret, nil
}
