package cryptox

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LoadMasterKey returns key material from envValue if set, otherwise from
// the file at path. When neither exists and create is true a fresh key is
// written to path (mode 0600).
func LoadMasterKey(path, envValue string, create bool) ([]byte, error) {
	if envValue != "" {
		return []byte(envValue), nil
	}
	if path == "" {
		return nil, ErrEmptyKey
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		key := strings.TrimSpace(string(data))
		if key == "" {
			return nil, fmt.Errorf("master key file %s: %w", path, ErrEmptyKey)
		}
		return []byte(key), nil
	case errors.Is(err, fs.ErrNotExist) && create:
		key, err := WriteMasterKey(path)
		if err != nil {
			return nil, err
		}
		return []byte(key), nil
	default:
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}
}

// WriteMasterKey generates a 256-bit key and writes it to path. Existing
// files are never overwritten.
func WriteMasterKey(path string) (string, error) {
	key, err := GenerateToken(TokenSize256)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("failed to create key directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create master key file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(key + "\n"); err != nil {
		return "", fmt.Errorf("failed to write master key file: %w", err)
	}
	return key, nil
}
