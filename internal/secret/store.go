package secret

import (
	"errors"
	"os"
	"runtime"
	"strings"
	"sync"
	"unicode"
)

// ErrReadOnly is returned by stores that cannot persist secrets.
var ErrReadOnly = errors.New("secret: store is read-only")

// SecretStore provides a pluggable interface for storing sensitive data
// such as source passwords.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// Default picks the keychain on macOS and environment variables elsewhere.
func Default(getenv func(string) string) SecretStore {
	if runtime.GOOS == "darwin" {
		return NewKeychainStore()
	}
	return NewEnvStore(getenv)
}

// ── Env ────────────────────────────────────────────────────

// EnvPrefix prefixes every variable read by EnvStore.
const EnvPrefix = "ANTHEM_SECRET_"

// EnvStore reads secrets from ANTHEM_SECRET_<KEY> variables. Keys are
// upper-cased and every non-alphanumeric rune becomes '_'.
type EnvStore struct {
	getenv func(string) string
}

// NewEnvStore creates an EnvStore. A nil getenv reads the process environment.
func NewEnvStore(getenv func(string) string) *EnvStore {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &EnvStore{getenv: getenv}
}

// EnvName returns the variable consulted for key.
func EnvName(key string) string {
	return EnvPrefix + strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, key)
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	v := e.getenv(EnvName(key))
	if v == "" {
		return nil, nil
	}
	return []byte(v), nil
}

func (e *EnvStore) Set(string, []byte) error { return ErrReadOnly }

// Delete is a no-op: variables are owned by the caller's environment.
func (e *EnvStore) Delete(string) error { return nil }

// ── Map ────────────────────────────────────────────────────

// MapStore keeps secrets in memory.
type MapStore struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{m: map[string][]byte{}}
}

func (s *MapStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = append([]byte(nil), value...)
	return nil
}

func (s *MapStore) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key], nil
}

func (s *MapStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
