// Package secrets keeps API keys (explorer keys, RPC provider keys) in the
// OS keychain so they never land in config.json.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/99designs/keyring"
)

const keychainService = "w3scan"

// envPrefix lets CI and containers supply secrets without a keychain:
// rpc.ethereum is read from W3SCAN_SECRET_RPC_ETHEREUM.
const envPrefix = "W3SCAN_SECRET_"

// ErrNotFound is returned when no secret is stored under a name.
var ErrNotFound = errors.New("secret not found")

// Well-known secret namespaces.
const (
	KindRPC      = "rpc"
	KindExplorer = "explorer"
)

// Name builds a secret name such as "rpc.ethereum".
func Name(kind, network string) string {
	return kind + "." + strings.ToLower(network)
}

// Store wraps keychain access.
type Store struct {
	ring keyring.Keyring
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring) *Store {
	return &Store{ring: ring}
}

// Open returns a store backed by the OS keychain. On headless Linux it falls
// back to an encrypted file under dir.
func Open(dir string) (*Store, error) {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keys"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		if ring, err = keyring.Open(cfg); err != nil {
			return nil, fmt.Errorf("opening keychain: %w", err)
		}
	}
	return &Store{ring: ring}, nil
}

// Set stores value under name.
func (s *Store) Set(name, value string) error {
	if s == nil || s.ring == nil {
		return fmt.Errorf("keychain not available")
	}
	if err := s.ring.Set(keyring.Item{Key: name, Data: []byte(value), Label: keychainService + " " + name}); err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Get returns the secret stored under name. An environment variable
// (W3SCAN_SECRET_<NAME>) takes precedence over the keychain.
func (s *Store) Get(name string) (string, error) {
	if v := os.Getenv(envName(name)); v != "" {
		return v, nil
	}
	if s == nil || s.ring == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	item, err := s.ring.Get(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Lookup is Get that treats a missing secret as empty.
func (s *Store) Lookup(name string) string {
	v, err := s.Get(name)
	if err != nil {
		return ""
	}
	return v
}

// Delete removes a stored secret.
func (s *Store) Delete(name string) error {
	if s == nil || s.ring == nil {
		return nil
	}
	err := s.ring.Remove(name)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return err
}

// Names lists the stored secret names, sorted.
func (s *Store) Names() ([]string, error) {
	if s == nil || s.ring == nil {
		return nil, nil
	}
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func envName(name string) string {
	r := strings.NewReplacer(".", "_", "-", "_")
	return envPrefix + strings.ToUpper(r.Replace(name))
}
