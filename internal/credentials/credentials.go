// Package credentials keeps provider API keys encrypted at rest with AES-256-GCM.
// The key is derived with PBKDF2-SHA256 from a stable per-install secret and
// cached for the lifetime of the Store.
package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/crypto/pbkdf2"

	"github.com/starford/quest/internal/models"
	"github.com/starford/quest/internal/storage"
)

// Key-derivation parameters. Changing any of them orphans stored keys.
const (
	kdfSalt       = "quest_pro_salt"
	kdfSuffix     = "_quest_pro_v1"
	kdfIterations = 10000
	keyLength     = 32

	recordKey = "secure_api_keys.json"
)

// sealed is one encrypted value as persisted.
type sealed struct {
	Data string `json:"data"`
	IV   string `json:"iv"`
}

// Store encrypts, persists and decrypts provider credentials.
type Store struct {
	area   storage.Provider
	secret string
	logger *slog.Logger

	keyOnce sync.Once
	aead    cipher.AEAD
	keyErr  error

	mu sync.Mutex // serializes read-modify-write of the record
}

// NewStore creates a credential store over a local-only area.
func NewStore(area storage.Provider, installSecret string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{area: area, secret: installSecret, logger: logger}
}

func (s *Store) aeadCipher() (cipher.AEAD, error) {
	s.keyOnce.Do(func() {
		key := pbkdf2.Key([]byte(s.secret+kdfSuffix), []byte(kdfSalt), kdfIterations, keyLength, sha256.New)
		block, err := aes.NewCipher(key)
		if err != nil {
			s.keyErr = fmt.Errorf("credentials: create cipher: %w", err)
			return
		}
		s.aead, s.keyErr = cipher.NewGCM(block)
	})
	return s.aead, s.keyErr
}

func (s *Store) load() (map[models.Provider]sealed, error) {
	data, err := s.area.Read(recordKey)
	if errors.Is(err, os.ErrNotExist) {
		return map[models.Provider]sealed{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credentials: read record: %w", err)
	}
	rec := map[models.Provider]sealed{}
	if len(data) == 0 {
		return rec, nil
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("credentials: decode record: %w", err)
	}
	return rec, nil
}

func (s *Store) save(rec map[models.Provider]sealed) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("credentials: encode record: %w", err)
	}
	if err := s.area.Write(recordKey, data); err != nil {
		return fmt.Errorf("credentials: write record: %w", err)
	}
	return nil
}

// SetAPIKey encrypts key with a fresh nonce and stores it for provider.
func (s *Store) SetAPIKey(_ context.Context, provider models.Provider, key string) error {
	aead, err := s.aeadCipher()
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("credentials: generate nonce: %w", err)
	}
	ciphertext := aead.Seal(nil, nonce, []byte(key), nil)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load()
	if err != nil {
		return err
	}
	rec[provider] = sealed{
		Data: base64.StdEncoding.EncodeToString(ciphertext),
		IV:   base64.StdEncoding.EncodeToString(nonce),
	}
	return s.save(rec)
}

// GetAPIKey returns the plaintext key for provider, or "" when none is stored
// or the stored value cannot be decrypted. Only storage failures are returned.
func (s *Store) GetAPIKey(_ context.Context, provider models.Provider) (string, error) {
	s.mu.Lock()
	rec, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	v, ok := rec[provider]
	if !ok {
		return "", nil
	}
	plain, err := s.open(v)
	if err != nil {
		s.logger.Warn("credentials: stored key unreadable",
			slog.String("provider", string(provider)),
			slog.String("error", err.Error()))
		return "", nil
	}
	return plain, nil
}

func (s *Store) open(v sealed) (string, error) {
	aead, err := s.aeadCipher()
	if err != nil {
		return "", err
	}
	ciphertext, err := base64.StdEncoding.DecodeString(v.Data)
	if err != nil {
		return "", fmt.Errorf("decode data: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(v.IV)
	if err != nil {
		return "", fmt.Errorf("decode iv: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return "", fmt.Errorf("iv has %d bytes, want %d", len(nonce), aead.NonceSize())
	}
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// RemoveAPIKey deletes the stored key for provider.
func (s *Store) RemoveAPIKey(_ context.Context, provider models.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := rec[provider]; !ok {
		return nil
	}
	delete(rec, provider)
	return s.save(rec)
}

// Configured reports, per provider, whether a decryptable key is stored.
func (s *Store) Configured(ctx context.Context) (map[models.Provider]bool, error) {
	out := map[models.Provider]bool{}
	for _, p := range []models.Provider{models.ProviderOpenAI, models.ProviderGemini, models.ProviderElevenLabs} {
		key, err := s.GetAPIKey(ctx, p)
		if err != nil {
			return nil, err
		}
		out[p] = key != ""
	}
	return out, nil
}
