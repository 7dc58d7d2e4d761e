package payload

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestBillingAccessorsAndKind(t *testing.T) {
	var fp Fingerprint
	fp[0] = 0xAB
	p := NewBilling(fp)
	assert.Equal(t, KindBilling, p.Kind())
	got, ok := p.Billing()
	require.True(t, ok)
	assert.Equal(t, fp, got)
	_, ok = p.Usage()
	assert.False(t, ok)
}

func TestUsageAccessorsAndKind(t *testing.T) {
	p := NewUsage(42)
	assert.Equal(t, KindUsage, p.Kind())
	got, ok := p.Usage()
	require.True(t, ok)
	assert.Equal(t, uint64(42), got)
	_, ok = p.Billing()
	assert.False(t, ok)
}

func TestPayloadMarshalUnmarshalRoundTrip(t *testing.T) {
	var fp Fingerprint
	for i := range fp {
		fp[i] = byte(i)
	}
	for _, p := range []Payload{NewBilling(fp), NewUsage(12345)} {
		encoded, err := p.MarshalBinary()
		require.NoError(t, err)
		decoded, err := ReadFrom(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.True(t, p.Equal(decoded))
	}
}

func TestReadFromUnknownTag(t *testing.T) {
	_, err := ReadFrom(bytes.NewReader([]byte{0xFF}))
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestSignedMarshalUnmarshalRoundTrip(t *testing.T) {
	var sig Signature
	sig[0] = 1
	s := NewSigned(sig, NewUsage(7))
	encoded, err := s.MarshalBinary()
	require.NoError(t, err)
	decoded, err := ReadSignedFrom(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.True(t, s.Equal(decoded))
}

func TestSignedBytesExcludesSignature(t *testing.T) {
	var sigA, sigB Signature
	sigB[0] = 0xFF
	p := NewUsage(1)
	a, err := NewSigned(sigA, p).SignedBytes()
	require.NoError(t, err)
	b, err := NewSigned(sigB, p).SignedBytes()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPayloadRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		quantum := rapid.Uint64().Draw(t, "quantum")
		p := NewUsage(quantum)
		encoded, err := p.MarshalBinary()
		require.NoError(t, err)
		decoded, err := ReadFrom(bytes.NewReader(encoded))
		require.NoError(t, err)
		assert.True(t, p.Equal(decoded))
	})
}
