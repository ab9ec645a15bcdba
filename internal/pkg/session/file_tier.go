// internal/pkg/session/file_tier.go
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	xerrors "swiftel-client/internal/pkg/errors"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// FileTier is the durable tier: one file per key under dir, surviving
// restarts of the shell. With a 32-byte key the token is sealed with
// NaCl secretbox before it touches the disk.
type FileTier struct {
	dir string
	key *[32]byte
	mu  sync.Mutex
}

// NewFileTier creates dir if needed. secret must be empty or 32 bytes long.
func NewFileTier(dir string, secret []byte) (*FileTier, error) {
	if dir == "" {
		return nil, fmt.Errorf("file tier: empty directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file tier: create %s: %w", dir, err)
	}

	t := &FileTier{dir: dir}
	switch len(secret) {
	case 0:
	case 32:
		t.key = new([32]byte)
		copy(t.key[:], secret)
	default:
		return nil, fmt.Errorf("file tier: key must be 32 bytes, got %d", len(secret))
	}
	return t, nil
}

func (t *FileTier) Get(_ context.Context, key string) (string, error) {
	path, err := t.path(key)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", xerrors.ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("file tier: read: %w", err)
	}
	if len(b) == 0 {
		return "", xerrors.ErrNoToken
	}

	if t.key == nil {
		return string(b), nil
	}
	return t.open(b)
}

func (t *FileTier) Set(_ context.Context, key, token string) error {
	path, err := t.path(key)
	if err != nil {
		return err
	}

	data := []byte(token)
	if t.key != nil {
		if data, err = t.seal(data); err != nil {
			return err
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tmp, err := os.CreateTemp(t.dir, ".token-*")
	if err != nil {
		return fmt.Errorf("file tier: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("file tier: write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("file tier: chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("file tier: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("file tier: rename: %w", err)
	}
	return nil
}

func (t *FileTier) Delete(_ context.Context, key string) error {
	path, err := t.path(key)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("file tier: remove: %w", err)
	}
	return nil
}

func (t *FileTier) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("file tier: invalid key %q", key)
	}
	return filepath.Join(t.dir, key), nil
}

func (t *FileTier) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("file tier: nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, t.key), nil
}

func (t *FileTier) open(box []byte) (string, error) {
	if len(box) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("file tier: %w: sealed token too short", xerrors.ErrMalformedToken)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, t.key)
	if !ok {
		return "", fmt.Errorf("file tier: %w: cannot unseal token", xerrors.ErrMalformedToken)
	}
	return string(plain), nil
}
