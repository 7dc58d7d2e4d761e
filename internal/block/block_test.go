package block

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// stringData is a trivial Data implementation used to exercise Block
// without depending on internal/payload.
type stringData string

func (s stringData) MarshalBinary() ([]byte, error) { return []byte(s), nil }
func (s stringData) Equal(other stringData) bool    { return s == other }

func decodeStringData(r io.Reader) (stringData, error) {
	raw, err := io.ReadAll(r)
	return stringData(raw), err
}

func TestNewGenesisHasZeroPrevHash(t *testing.T) {
	b := New(stringData("hello"), 0)
	assert.True(t, b.IsGenesis())
}

func TestIncrementNonceWraps(t *testing.T) {
	b := New(stringData("x"), 0)
	b = b.SetNonce(^uint64(0), 1)
	wrapped := b.IncrementNonce(2)
	assert.Equal(t, uint64(0), wrapped.Nonce())
}

func TestProofOfWorkSatisfiesDifficulty(t *testing.T) {
	b := New(stringData("mine me"), 8)
	mined := b.ProofOfWork()
	assert.True(t, mined.SatisfiesDifficulty())
}

func TestProofOfWorkNoOpIfAlreadySatisfied(t *testing.T) {
	b := New(stringData("zero difficulty"), 0)
	assert.True(t, b.SatisfiesDifficulty())
	assert.Equal(t, b, b.ProofOfWork())
}

func TestAssertDifficultyPanicsAboveHashLength(t *testing.T) {
	assert.Panics(t, func() {
		New(stringData("x"), HashSize*8+1)
	})
}

func TestMarshalUnmarshalRoundTrip(t *testing.T) {
	b := New(stringData("payload"), 4).ProofOfWork()
	encoded, err := b.MarshalBinary()
	require.NoError(t, err)
	decoded, err := ReadFrom(bytes.NewReader(encoded), decodeStringData)
	require.NoError(t, err)
	assert.True(t, b.Equal(decoded))
}

func TestHasLeadingZeroBits(t *testing.T) {
	var h Hash
	assert.True(t, HasLeadingZeroBits(h, uint(HashSize*8)))
	h[0] = 0x0F
	assert.True(t, HasLeadingZeroBits(h, 4))
	assert.False(t, HasLeadingZeroBits(h, 5))
}

func TestHashChangesWithNonce(t *testing.T) {
	b := New(stringData("x"), 0)
	h1 := b.Hash()
	h2 := b.IncrementNonce(b.Time()).Hash()
	assert.NotEqual(t, h1, h2)
}

func TestEqualIsFieldwise(t *testing.T) {
	a := New(stringData("same"), 0)
	b := a
	assert.True(t, a.Equal(b))
	c := b.SetNonce(1, b.Time())
	assert.False(t, a.Equal(c))
}

func TestHashDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		data := stringData(rapid.String().Draw(t, "data"))
		difficulty := rapid.UintRange(0, 8).Draw(t, "difficulty")
		b := New(data, difficulty)
		assert.Equal(t, b.Hash(), b.Hash())
	})
}
