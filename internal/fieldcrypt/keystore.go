package fieldcrypt

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrSecretNotFound is returned when a named secret has never been stored.
var ErrSecretNotFound = errors.New("secret not found")

// SecretStore is the platform-secure storage primitive the encryption
// service depends on. Production uses the system keyring; tests swap in an
// in-memory implementation.
type SecretStore interface {
	Read(name string) (string, error)
	Write(name, value string) error
}

// KeyringStore backs SecretStore with the OS keyring.
type KeyringStore struct {
	// Service is the keyring service identifier.
	Service string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: "cybervpn"}
}

func (s *KeyringStore) Read(name string) (string, error) {
	v, err := keyring.Get(s.Service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", err
	}
	return v, nil
}

func (s *KeyringStore) Write(name, value string) error {
	return keyring.Set(s.Service, name, value)
}

// MemoryStore is an in-process SecretStore for tests and for platforms
// without a keyring daemon.
type MemoryStore struct {
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Read(name string) (string, error) {
	v, ok := s.values[name]
	if !ok {
		return "", ErrSecretNotFound
	}
	return v, nil
}

func (s *MemoryStore) Write(name, value string) error {
	s.values[name] = value
	return nil
}
