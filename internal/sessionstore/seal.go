package sessionstore

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

// Sealer protects blobs at rest.
type Sealer interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// ErrSealed is returned when a sealed blob is read without the key.
var ErrSealed = errors.New("sessionstore: blob is sealed and no key is configured")

var sealedMagic = []byte("FLS1")

const nonceSize = 24

func isSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealedMagic)
}

// Plain stores blobs as they are. It can still recognize sealed blobs so that a missing
// key is reported instead of a decode error.
type Plain struct{}

func (Plain) Seal(plain []byte) ([]byte, error) {
	return plain, nil
}

func (Plain) Open(data []byte) ([]byte, error) {
	if isSealed(data) {
		return nil, ErrSealed
	}
	return data, nil
}

// Secretbox seals blobs with NaCl secretbox under a 32 byte key. Unsealed blobs are
// still readable, so turning on a key does not strand existing accounts.
type Secretbox struct {
	key  [32]byte
	rand io.Reader
}

func NewSecretbox(key []byte) (*Secretbox, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("seal key must be 32 bytes, got %d", len(key))
	}
	s := &Secretbox{rand: rand.Reader}
	copy(s.key[:], key)
	return s, nil
}

// ParseSealKey decodes a base64 key. An empty key gives the Plain sealer.
func ParseSealKey(encoded string) (Sealer, error) {
	if encoded == "" {
		return Plain{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode seal key: %w", err)
	}
	return NewSecretbox(key)
}

func (s *Secretbox) Seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	out := make([]byte, 0, len(sealedMagic)+nonceSize+len(plain)+secretbox.Overhead)
	out = append(out, sealedMagic...)
	out = append(out, nonce[:]...)
	return secretbox.Seal(out, plain, &nonce, &s.key), nil
}

func (s *Secretbox) Open(data []byte) ([]byte, error) {
	if !isSealed(data) {
		return data, nil
	}
	data = data[len(sealedMagic):]
	if len(data) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sessionstore: sealed blob is truncated")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	plain, ok := secretbox.Open(nil, data[nonceSize:], &nonce, &s.key)
	if !ok {
		return nil, errors.New("sessionstore: sealed blob failed authentication")
	}
	return plain, nil
}
