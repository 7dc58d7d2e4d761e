package chain

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"goledger.dev/chainledger/internal/block"
)

type stringData string

func (s stringData) MarshalBinary() ([]byte, error) { return []byte(s), nil }
func (s stringData) Equal(other stringData) bool    { return s == other }

func decodeStringData(r io.Reader) (stringData, error) {
	raw, err := io.ReadAll(r)
	return stringData(raw), err
}

// Scenario A of spec.md §8: genesis-only chain via Append.
func TestScenarioA_SingleAppend(t *testing.T) {
	c := New[stringData]()
	c = c.Append("usage:100", 0)
	require.Equal(t, 1, c.Len())
	head, ok := c.Head()
	require.True(t, ok)
	assert.Equal(t, stringData("usage:100"), head.Data())
	assert.True(t, c.ValidateChain())
	assert.True(t, head.IsGenesis())
}

// Scenario B: a second append links to the first and both validate.
func TestScenarioB_SecondAppendLinks(t *testing.T) {
	c := New[stringData]().Append("first", 0)
	head1, _ := c.Head()
	c = c.Append("second", 0)
	head2, _ := c.Head()
	assert.Equal(t, head1.Hash(), head2.PrevHash())
	assert.True(t, c.ValidateChain())
	assert.Equal(t, 2, c.Len())
}

func TestInsertRejectsWrongPrevHash(t *testing.T) {
	c := New[stringData]().Append("first", 0)
	bogus := block.New(stringData("bad"), 0)
	_, err := c.Insert(bogus)
	require.Error(t, err)
	var prevHashErr *InvalidPrevHashError
	assert.ErrorAs(t, err, &prevHashErr)
}

func TestInsertRejectsUnknownVersion(t *testing.T) {
	c := New[stringData]()
	blk := block.FromParts[stringData](block.Version+1, block.Hash{}, block.CurrentTime(), 0, 0, "x")
	_, err := c.Insert(blk)
	var versionErr *UnknownVersionError
	assert.ErrorAs(t, err, &versionErr)
}

func TestInsertRejectsFailedDifficulty(t *testing.T) {
	c := New[stringData]()
	blk := block.New(stringData("unmined"), 32)
	_, err := c.Insert(blk)
	var hashErr *InvalidBlockHashError
	assert.ErrorAs(t, err, &hashErr)
}

func TestUncheckedAppendCanProduceInvalidChain(t *testing.T) {
	c := New[stringData]().UncheckedAppend("a").UncheckedAppend("b")
	assert.False(t, c.ValidateChain())
}

func TestPersistAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/chain.dat"

	c := New[stringData]().Append("one", 0).Append("two", 0)
	require.NoError(t, c.PersistToDisk(path))

	loaded, err := LoadFromDisk[stringData](path, decodeStringData)
	require.NoError(t, err)
	assert.True(t, c.Equal(loaded))
}

func TestLoadFromDiskMissingFileIsIOErr(t *testing.T) {
	_, err := LoadFromDisk[stringData]("/nonexistent/path/chain.dat", decodeStringData)
	require.Error(t, err)
	var persistErr *PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, IOErr, persistErr.Kind)
}

func TestLoadFromDiskTruncatedFileIsDeserializingErr(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/truncated.dat"
	require.NoError(t, os.WriteFile(path, []byte{1, 2, 3}, 0o600))

	_, err := LoadFromDisk[stringData](path, decodeStringData)
	require.Error(t, err)
	var persistErr *PersistError
	require.ErrorAs(t, err, &persistErr)
	assert.Equal(t, DeserializingErr, persistErr.Kind)
}

func TestMarshalBinaryNewestFirstCount(t *testing.T) {
	c := New[stringData]().Append("one", 0).Append("two", 0).Append("three", 0)
	encoded, err := c.MarshalBinary()
	require.NoError(t, err)
	decoded, err := ReadFrom[stringData](bytes.NewReader(encoded), decodeStringData)
	require.NoError(t, err)
	assert.Equal(t, 3, decoded.Len())
	head, _ := decoded.Head()
	assert.Equal(t, stringData("three"), head.Data())
}

func TestAppendAlwaysValidatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 5).Draw(t, "n")
		c := New[stringData]()
		for i := 0; i < n; i++ {
			c = c.Append(stringData(rapid.String().Draw(t, "data")), 0)
		}
		assert.Equal(t, n, c.Len())
		assert.True(t, c.ValidateChain())
	})
}
