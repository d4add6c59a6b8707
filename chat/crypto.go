package chat

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/solace-health/therapy/config"
)

// KeyVersion is stamped on every envelope so a future key rotation can tell
// which key sealed a stored message.
const KeyVersion = 1

var (
	ErrNotConfigured = errors.New("chat encryption key is not configured")
	// ErrIntegrity means the stored envelope failed authentication. The
	// message body is unrecoverable; readers get a placeholder instead.
	ErrIntegrity = errors.New("message failed integrity check")
)

// Envelope is a message body sealed with AES-256-GCM. All three parts are
// base64; the IV is 96 bits and unique per message.
type Envelope struct {
	Cipher     string `bson:"cipher" json:"-"`
	Iv         string `bson:"iv" json:"-"`
	AuthTag    string `bson:"authTag" json:"-"`
	KeyVersion int    `bson:"keyVersion" json:"-"`
}

type Crypto struct {
	aead cipher.AEAD
}

// NewCrypto parses the configured key. An empty key yields a crypto that is
// not ready; the send path rejects messages until one is configured, while
// reads still serve placeholders.
func NewCrypto(cfg *config.Config) (*Crypto, error) {
	if cfg.ChatEncryptionKey == "" {
		return &Crypto{}, nil
	}

	key, err := parseKey(cfg.ChatEncryptionKey)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Crypto{aead: aead}, nil
}

// parseKey accepts a 64 character hex string or a base64 string decoding to
// exactly 32 bytes.
func parseKey(raw string) ([]byte, error) {
	if len(raw) == 64 {
		if key, err := hex.DecodeString(raw); err == nil {
			return key, nil
		}
	}
	if key, err := base64.StdEncoding.DecodeString(raw); err == nil && len(key) == 32 {
		return key, nil
	}
	return nil, fmt.Errorf("chat encryption key must be 64 hex characters or base64 of 32 bytes")
}

func (c *Crypto) Ready() bool {
	return c.aead != nil
}

func (c *Crypto) Encrypt(plaintext string) (Envelope, error) {
	if !c.Ready() {
		return Envelope{}, ErrNotConfigured
	}

	iv := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return Envelope{}, err
	}

	sealed := c.aead.Seal(nil, iv, []byte(plaintext), nil)
	tagOffset := len(sealed) - c.aead.Overhead()

	return Envelope{
		Cipher:     base64.StdEncoding.EncodeToString(sealed[:tagOffset]),
		Iv:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(sealed[tagOffset:]),
		KeyVersion: KeyVersion,
	}, nil
}

// Decrypt opens an envelope. Any malformed part or authentication failure
// surfaces as ErrIntegrity; the caller decides how to present it.
func (c *Crypto) Decrypt(envelope Envelope) (string, error) {
	if !c.Ready() {
		return "", ErrNotConfigured
	}

	ciphertext, err := base64.StdEncoding.DecodeString(envelope.Cipher)
	if err != nil {
		return "", ErrIntegrity
	}
	iv, err := base64.StdEncoding.DecodeString(envelope.Iv)
	if err != nil || len(iv) != c.aead.NonceSize() {
		return "", ErrIntegrity
	}
	tag, err := base64.StdEncoding.DecodeString(envelope.AuthTag)
	if err != nil {
		return "", ErrIntegrity
	}

	plaintext, err := c.aead.Open(nil, iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrIntegrity
	}
	return string(plaintext), nil
}
