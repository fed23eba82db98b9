// Package fieldcrypt encrypts individual string fields for at-rest storage.
//
// The construction is a keystream cipher: blocks of
// HMAC-SHA256(key, IV || counter) are concatenated and XORed with the
// plaintext. It provides confidentiality against casual inspection of the
// database file, not tamper detection; anything crossing a trust boundary
// goes through the signed link codec instead.
package fieldcrypt

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unicode/utf8"

	"cybervpn/internal/logger"
)

const (
	keySize = 32
	ivSize  = 16

	masterKeyEntry = "field-master-key"
)

// ErrDecryptFailed covers truncated, corrupted, or wrongly keyed input.
var ErrDecryptFailed = errors.New("field decryption failed")

// Service derives and caches the device-bound master key and performs
// per-field encryption. Construct one per process; tests build isolated
// instances over a MemoryStore.
type Service struct {
	store SecretStore

	mu  sync.RWMutex
	key []byte
}

func New(store SecretStore) *Service {
	return &Service{store: store}
}

// Encrypt protects a single field. A nil input stays nil so optional
// columns pass through unchanged.
func (s *Service) Encrypt(plaintext *string) (*string, error) {
	if plaintext == nil {
		return nil, nil
	}

	key, err := s.loadKey()
	if err != nil {
		return nil, err
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	data := []byte(*plaintext)
	stream := keystream(key, iv, len(data))
	for i := range data {
		data[i] ^= stream[i]
	}

	out := base64.StdEncoding.EncodeToString(append(iv, data...))
	return &out, nil
}

// Decrypt reverses Encrypt. Malformed or tampered input yields
// ErrDecryptFailed and a warning log, never a panic; nil stays nil.
func (s *Service) Decrypt(encoded *string) (*string, error) {
	if encoded == nil {
		return nil, nil
	}

	key, err := s.loadKey()
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(*encoded)
	if err != nil {
		logger.Log.Warnf("fieldcrypt: ciphertext is not valid base64")
		return nil, ErrDecryptFailed
	}
	if len(raw) < ivSize {
		logger.Log.Warnf("fieldcrypt: ciphertext shorter than iv")
		return nil, ErrDecryptFailed
	}

	iv, data := raw[:ivSize], raw[ivSize:]
	stream := keystream(key, iv, len(data))
	for i := range data {
		data[i] ^= stream[i]
	}

	if !utf8.Valid(data) {
		// Wrong key or flipped bytes land here more often than not.
		logger.Log.Warnf("fieldcrypt: decrypted payload is not valid utf-8")
		return nil, ErrDecryptFailed
	}

	out := string(data)
	return &out, nil
}

// Invalidate drops the cached key. Safe to call concurrently with in-flight
// operations: they hold their own reference to the prior key bytes and the
// next caller triggers a reload from the secret store.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.key = nil
	s.mu.Unlock()
}

func (s *Service) loadKey() ([]byte, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key != nil {
		return key, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return s.key, nil
	}

	stored, err := s.store.Read(masterKeyEntry)
	switch {
	case err == nil:
		key, err = base64.StdEncoding.DecodeString(stored)
		if err != nil || len(key) != keySize {
			return nil, fmt.Errorf("stored master key is corrupt")
		}
	case errors.Is(err, ErrSecretNotFound):
		key = make([]byte, keySize)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate master key: %w", err)
		}
		if err := s.store.Write(masterKeyEntry, base64.StdEncoding.EncodeToString(key)); err != nil {
			return nil, fmt.Errorf("failed to persist master key: %w", err)
		}
		logger.Log.Info("fieldcrypt: generated new master key")
	default:
		return nil, fmt.Errorf("failed to read master key: %w", err)
	}

	s.key = key
	return key, nil
}

// keystream produces n pseudorandom bytes as successive
// HMAC-SHA256(key, iv || big-endian-uint32(counter)) blocks.
func keystream(key, iv []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	var counter uint32
	var block [4]byte
	for len(out) < n {
		binary.BigEndian.PutUint32(block[:], counter)
		mac := hmac.New(sha256.New, key)
		mac.Write(iv)
		mac.Write(block[:])
		out = mac.Sum(out)
		counter++
	}
	return out[:n]
}
