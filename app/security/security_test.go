package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptRoundTrip(t *testing.T) {
	t.Setenv("APPDATA", t.TempDir())

	encrypted, err := Encrypt("token-123")
	require.NoError(t, err)
	assert.NotEqual(t, "token-123", encrypted)

	plain, err := Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "token-123", plain)

	empty, err := Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestKeyIsPersistedOnce(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APPDATA", dir)

	first, err := GenerateKeyIfNotExists()
	require.NoError(t, err)
	second, err := GenerateKeyIfNotExists()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, appDirName, keyFileName))
	require.NoError(t, err)
	assert.EqualValues(t, 32, info.Size())
}

func TestDecryptRejectsGarbage(t *testing.T) {
	t.Setenv("APPDATA", t.TempDir())

	_, err := Decrypt("not base64!")
	assert.Error(t, err)
	_, err = Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}

func TestPIN(t *testing.T) {
	hash, err := HashPIN(" 1234 ")
	require.NoError(t, err)

	assert.NoError(t, CheckPIN(hash, "1234"))
	assert.ErrorIs(t, CheckPIN(hash, "4321"), ErrPINMismatch)

	_, err = HashPIN("12")
	assert.ErrorIs(t, err, ErrPINTooShort)
}
