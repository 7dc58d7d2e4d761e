// Package block implements the versioned, proof-of-work-sealed unit of the
// chain. Block is generic over its payload type; the hash function is fixed
// to SHA-256 (see Hash), matching the single concrete instantiation spec
// tests are written against.
package block

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// Version is the only block version this chain accepts.
const Version uint8 = 1

// HashSize is the output length, in bytes, of the hash function blocks are
// committed and linked under.
const HashSize = sha256.Size

// Hash is a fixed-width block digest.
type Hash [HashSize]byte

// IsZero reports whether h is the all-zero hash used as the genesis
// predecessor.
func (h Hash) IsZero() bool { return h == Hash{} }

// Sum hashes data with the chain's hash function.
func Sum(data []byte) Hash { return Hash(sha256.Sum256(data)) }

// Data constrains a block's payload: it must encode deterministically and
// support value equality with itself.
type Data[D any] interface {
	MarshalBinary() ([]byte, error)
	Equal(D) bool
}

// Block is a versioned, timestamped payload with a predecessor hash,
// difficulty target and nonce.
type Block[D Data[D]] struct {
	version    uint8
	prevHash   Hash
	time       uint64
	difficulty uint
	nonce      uint64
	data       D
}

// New builds a fresh, unmined block with an all-zero predecessor hash
// (suitable for a genesis insert). version is fixed to Version, nonce to 0,
// time to the current Unix second. Panics if difficulty exceeds the hash
// function's bit length -- an assertion failure, not a recoverable error, as
// spec.md requires.
func New[D Data[D]](data D, difficulty uint) Block[D] {
	assertDifficulty(difficulty)
	return Block[D]{
		version:    Version,
		time:       CurrentTime(),
		difficulty: difficulty,
		data:       data,
	}
}

// NewWithHash is like New but links to an explicit predecessor hash.
func NewWithHash[D Data[D]](data D, prevHash Hash, difficulty uint) Block[D] {
	assertDifficulty(difficulty)
	return Block[D]{
		version:    Version,
		prevHash:   prevHash,
		time:       CurrentTime(),
		difficulty: difficulty,
		data:       data,
	}
}

// FromParts reconstructs a block from its six raw fields, with no
// validation and no mining. Used by decoders (JSON, binary) that already
// hold field values pulled from the wire and must not re-derive time or
// nonce the way New/NewWithHash do.
func FromParts[D Data[D]](version uint8, prevHash Hash, t uint64, difficulty uint, nonce uint64, data D) Block[D] {
	return Block[D]{
		version:    version,
		prevHash:   prevHash,
		time:       t,
		difficulty: difficulty,
		nonce:      nonce,
		data:       data,
	}
}

func assertDifficulty(difficulty uint) {
	if difficulty > HashSize*8 {
		panic(fmt.Sprintf("block: difficulty %d exceeds hash length of %d bits", difficulty, HashSize*8))
	}
}

// CurrentTime returns the current Unix time in seconds.
func CurrentTime() uint64 { return uint64(time.Now().Unix()) }

// Version returns the block's declared version.
func (b Block[D]) Version() uint8 { return b.version }

// Difficulty returns the number of leading zero bits the block's hash must have.
func (b Block[D]) Difficulty() uint { return b.difficulty }

// Time returns the block's Unix timestamp in seconds.
func (b Block[D]) Time() uint64 { return b.time }

// Data returns the block's payload.
func (b Block[D]) Data() D { return b.data }

// PrevHash returns the hash of the block's predecessor.
func (b Block[D]) PrevHash() Hash { return b.prevHash }

// Nonce returns the current nonce.
func (b Block[D]) Nonce() uint64 { return b.nonce }

// SetNonce returns a new block with nonce and time replaced.
func (b Block[D]) SetNonce(nonce, t uint64) Block[D] {
	b.nonce = nonce
	b.time = t
	return b
}

// IncrementNonce returns a new block with the nonce incremented by one,
// wrapping silently past the maximum uint64 value, and time replaced.
func (b Block[D]) IncrementNonce(t uint64) Block[D] {
	return b.SetNonce(b.nonce+1, t)
}

// MarshalBinary encodes all six fields in order -- version, prevHash, time,
// difficulty, nonce, data -- little-endian. This is the exact byte sequence
// the block is hashed and persisted under, so the signature itself (when D
// is a signed payload) is included in the hash input by construction.
func (b Block[D]) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(b.version)
	buf.Write(b.prevHash[:])
	if err := binary.Write(&buf, binary.LittleEndian, b.time); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint64(b.difficulty)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, b.nonce); err != nil {
		return nil, err
	}
	dataBytes, err := b.data.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf.Write(dataBytes)
	return buf.Bytes(), nil
}

// ReadFrom decodes a block from r, using decodeData to read the payload
// tail. Block's payload type is generic and may have variable width, so the
// caller supplies the matching decoder (e.g. payload.ReadFrom).
func ReadFrom[D Data[D]](r io.Reader, decodeData func(io.Reader) (D, error)) (Block[D], error) {
	var b Block[D]
	var verBuf [1]byte
	if _, err := io.ReadFull(r, verBuf[:]); err != nil {
		return b, err
	}
	b.version = verBuf[0]
	if _, err := io.ReadFull(r, b.prevHash[:]); err != nil {
		return b, err
	}
	if err := binary.Read(r, binary.LittleEndian, &b.time); err != nil {
		return b, err
	}
	var difficulty uint64
	if err := binary.Read(r, binary.LittleEndian, &difficulty); err != nil {
		return b, err
	}
	b.difficulty = uint(difficulty)
	if err := binary.Read(r, binary.LittleEndian, &b.nonce); err != nil {
		return b, err
	}
	data, err := decodeData(r)
	if err != nil {
		return b, err
	}
	b.data = data
	return b, nil
}

// Hash returns the hash of the block's deterministic encoding.
func (b Block[D]) Hash() Hash {
	bs, err := b.MarshalBinary()
	if err != nil {
		// data must always encode deterministically; see DESIGN.md.
		panic(err)
	}
	return Sum(bs)
}

// HasLeadingZeroBits reports whether h has at least difficulty leading zero
// bits under big-endian bit numbering: the first difficulty/8 bytes are all
// zero and the next byte has at least difficulty%8 leading zero bits.
func HasLeadingZeroBits(h Hash, difficulty uint) bool {
	fullBytes := difficulty / 8
	remBits := difficulty % 8
	if int(fullBytes) > len(h) {
		return false
	}
	for i := uint(0); i < fullBytes; i++ {
		if h[i] != 0 {
			return false
		}
	}
	if remBits == 0 {
		return true
	}
	if int(fullBytes) >= len(h) {
		return false
	}
	mask := byte(0xFF << (8 - remBits))
	return h[fullBytes]&mask == 0
}

// SatisfiesDifficulty reports whether the block's hash meets its own
// declared difficulty.
func (b Block[D]) SatisfiesDifficulty() bool {
	return HasLeadingZeroBits(b.Hash(), b.difficulty)
}

// ProofOfWork repeatedly increments the nonce (setting the timestamp to the
// current time on each step) until the
// block's hash satisfies its declared difficulty, then returns the mined
// block. Returns b unchanged if the predicate already holds. Runs for an
// unbounded amount of time; callers wanting cancellation must impose it
// externally.
func (b Block[D]) ProofOfWork() Block[D] {
	for !b.SatisfiesDifficulty() {
		b = b.IncrementNonce(CurrentTime())
	}
	return b
}

// IsGenesis reports whether prevHash is the all-zero hash.
func (b Block[D]) IsGenesis() bool { return b.prevHash.IsZero() }

// Equal performs fieldwise equality over all six fields.
func (b Block[D]) Equal(other Block[D]) bool {
	return b.version == other.version &&
		b.prevHash == other.prevHash &&
		b.time == other.time &&
		b.difficulty == other.difficulty &&
		b.nonce == other.nonce &&
		b.data.Equal(other.data)
}
