package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretBox_RoundTrip(t *testing.T) {
	box, err := NewSecretBox("test-master-secret")
	require.NoError(t, err)

	sealed, err := box.Seal("ya29.opaque-access-token")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "opaque-access-token")

	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "ya29.opaque-access-token", opened)
}

func TestSecretBox_EmptyPlaintext(t *testing.T) {
	box, err := NewSecretBox("test-master-secret")
	require.NoError(t, err)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	opened, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Empty(t, opened)
}

func TestSecretBox_NonceVariesPerSeal(t *testing.T) {
	box, err := NewSecretBox("test-master-secret")
	require.NoError(t, err)

	a, err := box.Seal("same plaintext")
	require.NoError(t, err)
	b, err := box.Seal("same plaintext")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestSecretBox_TamperDetected(t *testing.T) {
	box, err := NewSecretBox("test-master-secret")
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)

	tampered := []byte(sealed)
	tampered[len(tampered)-1] ^= 'x'
	_, err = box.Open(string(tampered))
	assert.Error(t, err)
}

func TestSecretBox_WrongKeyFails(t *testing.T) {
	box, err := NewSecretBox("key-one")
	require.NoError(t, err)
	other, err := NewSecretBox("key-two")
	require.NoError(t, err)

	sealed, err := box.Seal("secret")
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestSecretBox_MalformedPayloads(t *testing.T) {
	box, err := NewSecretBox("test-master-secret")
	require.NoError(t, err)

	_, err = box.Open("not base64!!!")
	assert.Error(t, err)
	_, err = box.Open("c2hvcnQ") // valid base64, shorter than a nonce
	assert.Error(t, err)
}

func TestNewSecretBox_EmptySecretRejected(t *testing.T) {
	_, err := NewSecretBox("")
	assert.Error(t, err)
}
