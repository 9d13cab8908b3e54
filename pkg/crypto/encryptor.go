package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
)

// ErrMalformed is returned when a stored secret cannot be opened.
var ErrMalformed = errors.New("malformed ciphertext")

// Encryptor seals short secrets (Slack webhook URLs) at rest with age/X25519.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
	ephemeral bool
}

// NewEncryptor parses an AGE-SECRET-KEY identity. An empty key generates a
// throwaway identity: secrets sealed with it do not survive a restart.
func NewEncryptor(key string) (*Encryptor, error) {
	if key == "" {
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generating identity: %w", err)
		}
		return &Encryptor{identity: identity, recipient: identity.Recipient(), ephemeral: true}, nil
	}

	identity, err := age.ParseX25519Identity(key)
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return &Encryptor{identity: identity, recipient: identity.Recipient()}, nil
}

// GenerateKey returns a fresh identity suitable for ENCRYPTION_KEY.
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// Ephemeral reports whether the identity was generated at startup.
func (e *Encryptor) Ephemeral() bool {
	return e.ephemeral
}

// Seal encrypts plaintext and returns base64 ciphertext. Empty stays empty so
// "no webhook" round-trips without an age header.
func (e *Encryptor) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, e.recipient)
	if err != nil {
		return "", fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing encryptor: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Open reverses Seal.
func (e *Encryptor) Open(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrMalformed, err)
	}

	r, err := age.Decrypt(bytes.NewReader(decoded), e.identity)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("%w: reading plaintext: %v", ErrMalformed, err)
	}

	return string(plaintext), nil
}

// PublicKey returns the recipient as a string.
func (e *Encryptor) PublicKey() string {
	return e.recipient.String()
}
