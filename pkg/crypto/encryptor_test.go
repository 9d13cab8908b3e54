package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_EmptyKeyIsEphemeral(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)
	assert.True(t, enc.Ephemeral())
	assert.NotEmpty(t, enc.PublicKey())
}

func TestNewEncryptor_WithProvidedKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	enc, err := NewEncryptor(key)
	require.NoError(t, err)
	assert.False(t, enc.Ephemeral())
}

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("invalid-key-format")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing identity")
}

func TestSealOpen(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	url := "https://hooks.slack.com/services/T000/B000/XXXX"
	sealed, err := enc.Seal(url)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hooks.slack.com")

	opened, err := enc.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, url, opened)
}

func TestSeal_DifferentOutputEachTime(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	a, err := enc.Seal("same")
	require.NoError(t, err)
	b, err := enc.Seal("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSealOpen_Empty(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc.Seal("")
	require.NoError(t, err)
	assert.Empty(t, sealed)

	opened, err := enc.Open("")
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestOpen_WrongKey(t *testing.T) {
	enc1, err := NewEncryptor("")
	require.NoError(t, err)
	enc2, err := NewEncryptor("")
	require.NoError(t, err)

	sealed, err := enc1.Seal("secret")
	require.NoError(t, err)

	_, err = enc2.Open(sealed)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOpen_NotBase64(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, err = enc.Open("not base64!!!")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestKeyPersistence(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	enc1, err := NewEncryptor(key)
	require.NoError(t, err)
	sealed, err := enc1.Seal("https://example.com/hook")
	require.NoError(t, err)

	enc2, err := NewEncryptor(key)
	require.NoError(t, err)
	opened, err := enc2.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/hook", opened)
}
