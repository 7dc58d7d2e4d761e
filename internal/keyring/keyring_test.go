package keyring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goledger.dev/chainledger/internal/payload"
)

func TestSignThenVerifySucceeds(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	signed, err := Sign(kp, payload.NewUsage(99))
	require.NoError(t, err)
	assert.True(t, Verify(kp.Public, signed))
}

func TestVerifyFailsUnderWrongKey(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	other, err := Generate()
	require.NoError(t, err)
	signed, err := Sign(kp, payload.NewUsage(99))
	require.NoError(t, err)
	assert.False(t, Verify(other.Public, signed))
}

func TestVerifyFailsIfPayloadTampered(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	signed, err := Sign(kp, payload.NewUsage(1))
	require.NoError(t, err)
	tampered := payload.NewSigned(signed.Signature, payload.NewUsage(2))
	assert.False(t, Verify(kp.Public, tampered))
}

func TestFingerprintIsDeterministic(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	assert.Equal(t, Fingerprint(kp.Public), Fingerprint(kp.Public))
}

func TestFingerprintDiffersAcrossKeys(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, Fingerprint(a.Public), Fingerprint(b.Public))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	enc, err := Encrypt(kp.Private, "correct horse battery staple")
	require.NoError(t, err)

	decrypted, err := enc.Decrypt("correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, kp.Private, decrypted)
}

func TestDecryptWithWrongPasswordFails(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)

	enc, err := Encrypt(kp.Private, "right password")
	require.NoError(t, err)

	_, err = enc.Decrypt("wrong password")
	assert.ErrorIs(t, err, ErrBadPassword)
}

func TestWriteAndReadEncryptedKeyPair(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	enc, err := Encrypt(kp.Private, "pw")
	require.NoError(t, err)

	path := t.TempDir() + "/key.json"
	require.NoError(t, enc.WriteToFile(path))

	loaded, err := ReadEncryptedKeyPair(path)
	require.NoError(t, err)
	decrypted, err := loaded.Decrypt("pw")
	require.NoError(t, err)
	assert.Equal(t, kp.Private, decrypted)
}

func TestWriteToFileRefusesToOverwrite(t *testing.T) {
	kp, err := Generate()
	require.NoError(t, err)
	enc, err := Encrypt(kp.Private, "pw")
	require.NoError(t, err)

	path := t.TempDir() + "/key.json"
	require.NoError(t, enc.WriteToFile(path))
	assert.Error(t, enc.WriteToFile(path))
}
