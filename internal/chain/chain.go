// Package chain implements the append-only, proof-of-work blockchain: a
// persistent stack of blocks plus the domain invariants (hash linkage,
// version, difficulty, monotonic time) spec.md requires of it.
package chain

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"iter"
	"os"

	"goledger.dev/chainledger/internal/block"
	"goledger.dev/chainledger/internal/pstack"
)

// Chain is a persistent stack of blocks, newest at the head, enforcing hash
// linkage, version and difficulty invariants on every insert.
type Chain[D block.Data[D]] struct {
	blocks pstack.Stack[block.Block[D]]
}

// New returns an empty chain.
func New[D block.Data[D]]() Chain[D] {
	return Chain[D]{}
}

// Len returns the number of blocks in O(1).
func (c Chain[D]) Len() int { return c.blocks.Len() }

// Head returns the newest block, or ok=false if the chain is empty.
func (c Chain[D]) Head() (blk block.Block[D], ok bool) { return c.blocks.Head() }

// Tail returns the newest block (if any) and a chain without it.
func (c Chain[D]) Tail() (blk block.Block[D], ok bool, rest Chain[D]) {
	blk, ok, restStack := c.blocks.Tail()
	return blk, ok, Chain[D]{blocks: restStack}
}

// All iterates the chain newest block first.
func (c Chain[D]) All() iter.Seq[block.Block[D]] { return c.blocks.All() }

// Equal reports whether two chains hold equal blocks in equal order.
func (c Chain[D]) Equal(other Chain[D]) bool {
	return c.blocks.Equal(other.blocks, func(a, b block.Block[D]) bool { return a.Equal(b) })
}

func validateBlock[D block.Data[D]](blk block.Block[D]) error {
	if blk.Version() != block.Version {
		return &UnknownVersionError{Version: blk.Version()}
	}
	if !blk.SatisfiesDifficulty() {
		return &InvalidBlockHashError{Hash: blk.Hash(), Difficulty: blk.Difficulty()}
	}
	return nil
}

// Insert validates and appends block, returning a new chain on success. On
// failure it returns the most specific error -- a prev-hash mismatch is
// reported before an unknown version, which is reported before a difficulty
// failure, mirroring the order these checks run in -- and leaves c
// unmodified.
func (c Chain[D]) Insert(blk block.Block[D]) (Chain[D], error) {
	if head, ok := c.blocks.Head(); ok {
		headHash := head.Hash()
		if blk.PrevHash() != headHash {
			return c, &InvalidPrevHashError{Observed: blk.PrevHash(), Expected: headHash}
		}
	}
	if err := validateBlock(blk); err != nil {
		return c, err
	}
	return Chain[D]{blocks: c.blocks.Push(blk)}, nil
}

// GenerateBlock builds a block linked to the current head (or a zero
// prevHash if the chain is empty) and mines it. Never fails, but may block
// the calling goroutine for an unbounded amount of time.
func (c Chain[D]) GenerateBlock(data D, difficulty uint) block.Block[D] {
	var prevHash block.Hash
	if head, ok := c.blocks.Head(); ok {
		prevHash = head.Hash()
	}
	return block.NewWithHash(data, prevHash, difficulty).ProofOfWork()
}

// Append generates and inserts a block in one step. The insert is an
// internal invariant that cannot fail for a freshly generated block; a
// failure here indicates a bug in GenerateBlock or Insert, not caller error.
func (c Chain[D]) Append(data D, difficulty uint) Chain[D] {
	next, err := c.Insert(c.GenerateBlock(data, difficulty))
	if err != nil {
		panic("chain: generated block failed to insert, invariant violated: " + err.Error())
	}
	return next
}

// UncheckedAppend is a diagnostic back door: it appends a freshly
// constructed block with difficulty 0 and no linkage check whatsoever. It
// can produce an invalid chain and exists only for tests and debugging --
// never call it from production code paths.
func (c Chain[D]) UncheckedAppend(data D) Chain[D] {
	return Chain[D]{blocks: c.blocks.Push(block.New(data, 0))}
}

// ValidateChain walks the chain newest to oldest and reports whether every
// adjacent pair satisfies hash linkage and non-decreasing time, and every
// block but the newest individually passes validateBlock. An empty chain,
// or a chain of one block, is valid unconditionally -- the newest block's
// own version and difficulty are not checked here (only by Insert at append
// time), which is a deliberate asymmetry carried over from the algorithm
// this chain is modeled on.
func (c Chain[D]) ValidateChain() bool {
	valid := true
	var newer block.Block[D]
	hasNewer := false
	for older := range c.blocks.All() {
		if hasNewer {
			if newer.PrevHash() != older.Hash() {
				valid = false
			}
			if newer.Time() < older.Time() {
				valid = false
			}
			if err := validateBlock(older); err != nil {
				valid = false
			}
		}
		newer = older
		hasNewer = true
	}
	return valid
}

// MarshalBinary encodes the chain as a 64-bit little-endian block count
// followed by each block's encoding, newest first.
func (c Chain[D]) MarshalBinary() ([]byte, error) {
	blocks := c.blocks.ToSlice()
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, uint64(len(blocks))); err != nil {
		return nil, err
	}
	for _, blk := range blocks {
		bs, err := blk.MarshalBinary()
		if err != nil {
			return nil, err
		}
		buf.Write(bs)
	}
	return buf.Bytes(), nil
}

// ReadFrom decodes a chain from r in the format MarshalBinary writes,
// using decodeData to read each block's payload.
func ReadFrom[D block.Data[D]](r io.Reader, decodeData func(io.Reader) (D, error)) (Chain[D], error) {
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Chain[D]{}, err
	}
	blocks := make([]block.Block[D], 0, count)
	for i := uint64(0); i < count; i++ {
		blk, err := block.ReadFrom(r, decodeData)
		if err != nil {
			return Chain[D]{}, err
		}
		blocks = append(blocks, blk)
	}
	return Chain[D]{blocks: pstack.FromSlice(blocks)}, nil
}

// PersistToDisk writes the chain's deterministic encoding to path, creating
// or truncating the file, and flushes before returning success. Writes are
// not fsynced: a crash between write and close may leave a truncated file,
// which the next LoadFromDisk will then reject with a DeserializingErr.
func (c Chain[D]) PersistToDisk(path string) error {
	encoded, err := c.MarshalBinary()
	if err != nil {
		return &PersistError{Kind: SerializingErr, Err: err}
	}
	f, err := os.Create(path)
	if err != nil {
		return &PersistError{Kind: IOErr, Err: err}
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if _, err := w.Write(encoded); err != nil {
		return &PersistError{Kind: IOErr, Err: err}
	}
	if err := w.Flush(); err != nil {
		return &PersistError{Kind: IOErr, Err: err}
	}
	return nil
}

// LoadFromDisk reads and decodes a chain from path. It does not re-run
// ValidateChain -- callers that trust the file accept the stored bytes
// verbatim.
func LoadFromDisk[D block.Data[D]](path string, decodeData func(io.Reader) (D, error)) (Chain[D], error) {
	f, err := os.Open(path)
	if err != nil {
		return Chain[D]{}, &PersistError{Kind: IOErr, Err: err}
	}
	defer f.Close()
	c, err := ReadFrom[D](bufio.NewReader(f), decodeData)
	if err != nil {
		return Chain[D]{}, &PersistError{Kind: DeserializingErr, Err: err}
	}
	return c, nil
}
