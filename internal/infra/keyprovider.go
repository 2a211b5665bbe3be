package infra

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

const (
	keyFileName = ".guard_key"
	keySize     = 32 // 256-bit SQLCipher passphrase
)

// FileKeyProvider holds the database encryption key in a hidden file
// with 0600 permissions inside the data directory.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a provider rooted at dataDir.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, keyFileName)}
}

// EnsureKey returns the stored key, generating and persisting a fresh
// random one on first use.
func (p *FileKeyProvider) EnsureKey() ([]byte, error) {
	if _, err := os.Stat(p.keyPath); err == nil {
		return p.readKey()
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := p.writeKey(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (p *FileKeyProvider) readKey() ([]byte, error) {
	encoded, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	key, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

func (p *FileKeyProvider) writeKey(key []byte) error {
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("create key directory: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(key)
	if err := os.WriteFile(p.keyPath, []byte(encoded), 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}
