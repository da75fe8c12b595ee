package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ==================== Errors ====================

var (
	// ErrFormat the envelope or token is malformed
	ErrFormat = errors.New("secret: malformed envelope")
	// ErrAuthentication the integrity tag did not verify
	ErrAuthentication = errors.New("secret: authentication failed")
)

const (
	envelopeVersion = "v1"
	nonceSize       = 12
	tagSize         = 16
)

var b64 = base64.RawURLEncoding

// deriveKey turns an arbitrary-length secret into an AES-256 key
func deriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func newGCM(secret string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithTagSize(block, tagSize)
}

// ==================== Encrypt / Decrypt ====================

// Encrypt seals plaintext into a "v1:nonce:tag:ciphertext" envelope.
// A fresh nonce is drawn per call, so equal plaintexts never share an envelope.
func Encrypt(plaintext []byte, secret string) (string, error) {
	gcm, err := newGCM(secret)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ciphertext, tag := sealed[:len(sealed)-tagSize], sealed[len(sealed)-tagSize:]

	return strings.Join([]string{
		envelopeVersion,
		b64.EncodeToString(nonce),
		b64.EncodeToString(tag),
		b64.EncodeToString(ciphertext),
	}, ":"), nil
}

// Decrypt opens an envelope produced by Encrypt
func Decrypt(envelope string, secret string) ([]byte, error) {
	parts := strings.Split(envelope, ":")
	if len(parts) != 4 || parts[0] != envelopeVersion {
		return nil, ErrFormat
	}
	// ciphertext may legitimately be empty, the other segments may not
	if parts[1] == "" || parts[2] == "" {
		return nil, ErrFormat
	}

	nonce, err := b64.DecodeString(parts[1])
	if err != nil || len(nonce) != nonceSize {
		return nil, ErrFormat
	}
	tag, err := b64.DecodeString(parts[2])
	if err != nil || len(tag) != tagSize {
		return nil, ErrFormat
	}
	ciphertext, err := b64.DecodeString(parts[3])
	if err != nil {
		return nil, ErrFormat
	}

	gcm, err := newGCM(secret)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return nil, ErrAuthentication
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// EncryptString is Encrypt for string payloads
func EncryptString(plaintext, secret string) (string, error) {
	return Encrypt([]byte(plaintext), secret)
}

// DecryptString is Decrypt for string payloads
func DecryptString(envelope, secret string) (string, error) {
	plaintext, err := Decrypt(envelope, secret)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
