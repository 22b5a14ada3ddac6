package field

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jotvault/jotvault/internal/crypto"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	envelopes, err := crypto.NewCodec(crypto.InsecureKDFParams())
	require.NoError(t, err)
	return NewCodec(envelopes)
}

func TestEncryptDecryptField(t *testing.T) {
	c := newTestCodec(t)

	for _, value := range []string{"Title", "A long entry\nwith lines", "#ff8800", "🙂"} {
		stored, err := c.EncryptField(value, "key")
		require.NoError(t, err)
		assert.NotEqual(t, value, stored)
		assert.True(t, c.IsEncrypted(stored))

		got, err := c.DecryptField(stored, "key")
		require.NoError(t, err)
		assert.Equal(t, value, got)
	}
}

func TestEmptyFieldIdempotence(t *testing.T) {
	c := newTestCodec(t)

	stored, err := c.EncryptField("", "key")
	require.NoError(t, err)
	assert.Equal(t, "", stored)

	got, err := c.DecryptField("", "key")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestDecryptField_LegacyFallback(t *testing.T) {
	c := newTestCodec(t)

	legacy := []string{
		"plain old text",
		"{not json",
		`{"title":"json but not an envelope"}`,
		`{"ciphertext":"abc","iv":"def"}`,
		`{"ciphertext":"abc","iv":"def","salt":12}`,
		`{"ciphertext":"***","iv":"***","salt":"***"}`,
		"[1,2,3]",
		"123",
	}

	for _, in := range legacy {
		got, err := c.DecryptField(in, "any password")
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, in, got)
	}

	assert.False(t, c.IsEncrypted("plain old text"))
}

func TestDecryptField_WrongKeyIsNotSwallowed(t *testing.T) {
	c := newTestCodec(t)

	stored, err := c.EncryptField("private", "right key")
	require.NoError(t, err)

	got, err := c.DecryptField(stored, "wrong key")
	assert.ErrorIs(t, err, crypto.ErrAuthentication)
	assert.Empty(t, got)
}

func TestNewCodec_NilUsesDefaults(t *testing.T) {
	c := NewCodec(nil)
	assert.Equal(t, crypto.DefaultKDFParams(), c.envelopes.Params())
}
