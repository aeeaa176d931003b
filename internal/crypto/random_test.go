package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	// Each call generates a unique token
	token2, err := GenerateSecureToken()
	assert.NoError(t, err)
	assert.NotEqual(t, token, token2)

	// base64 encoding of 32 bytes should be at least 40 chars
	assert.GreaterOrEqual(t, len(token), 40)
}

func TestEncryptorRoundTrip(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	sealed, err := enc.Encrypt(`{"accounts":[{"username":"jdoe@goldentrust.com"}]}`)
	require.NoError(t, err)
	assert.NotContains(t, sealed, "jdoe")

	opened, err := enc.Decrypt(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"accounts":[{"username":"jdoe@goldentrust.com"}]}`, opened)

	// Same plaintext encrypts differently thanks to the random nonce
	sealed2, err := enc.Encrypt(`{"accounts":[{"username":"jdoe@goldentrust.com"}]}`)
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)
}

func TestEncryptorRejectsBadInput(t *testing.T) {
	key := make([]byte, 32)
	enc, err := NewEncryptor(key)
	require.NoError(t, err)

	_, err = enc.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=") // valid base64, shorter than a nonce
	assert.Error(t, err)

	sealed, err := enc.Encrypt("payload")
	require.NoError(t, err)

	otherKey := make([]byte, 32)
	otherKey[0] = 1
	other, err := NewEncryptor(otherKey)
	require.NoError(t, err)
	_, err = other.Decrypt(sealed)
	assert.Error(t, err)
}

func TestNewEncryptorKeySize(t *testing.T) {
	_, err := NewEncryptor(make([]byte, 16))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}
