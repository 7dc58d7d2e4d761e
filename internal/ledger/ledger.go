// Package ledger provides the single-writer/multi-reader wrapper around a
// chain.Chain that the HTTP shell calls into. Writes are serialized behind
// an exclusive lock and durably persisted before the lock is released;
// reads take a shared lock and return an immutable snapshot reference that
// can be walked without blocking subsequent writers.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"goledger.dev/chainledger/internal/block"
	"goledger.dev/chainledger/internal/chain"
	"goledger.dev/chainledger/internal/logging"
	"goledger.dev/chainledger/internal/payload"
)

// Block and Chain fix the engine's generic Block/Chain types to the
// production instantiation: SignedPayload data, SHA-256 hashing.
type Block = block.Block[payload.Signed]
type Chain = chain.Chain[payload.Signed]

// VerifyFunc validates a signed payload's signature against a raw public
// key. It is the narrow cryptography contract the ledger consumes; see
// internal/keyring.Verify for the production implementation.
type VerifyFunc func(pub []byte, s payload.Signed) bool

// BillingQuery identifies the account whose most recent billing record is
// being looked up, and the public key that billing record must have been
// signed by.
type BillingQuery struct {
	Signee []byte
	User   payload.Fingerprint
}

// Sentinel errors surfaced to the HTTP shell, collapsing chain-level
// validation failures into a single InvalidBlock for external callers.
var (
	ErrEmptyChain    = errors.New("ledger: chain is empty")
	ErrInvalidBlock  = errors.New("ledger: invalid block")
	ErrCannotGetLock = errors.New("ledger: cannot get lock")
)

// Ledger is the process-wide chain slot: one chain snapshot guarded by a
// readers-writer lock, plus the path it is durably persisted to.
type Ledger struct {
	mu    sync.RWMutex
	chain Chain
	path  string
	log   *logrus.Entry
}

// New takes ownership of an initial chain (possibly loaded from disk,
// possibly empty) and the path future appends should be persisted to.
func New(c Chain, path string) *Ledger {
	return &Ledger{chain: c, path: path, log: logging.For("ledger")}
}

// LatestBlock returns a copy of the chain's head block, or ErrEmptyChain.
func (l *Ledger) LatestBlock() (blk Block, err error) {
	defer recoverAsLockFailure(&err)
	l.mu.RLock()
	defer l.mu.RUnlock()
	head, ok := l.chain.Head()
	if !ok {
		return Block{}, ErrEmptyChain
	}
	return head, nil
}

// Append validates and inserts block into the chain. On success the new
// snapshot replaces the old one and is persisted to path before the lock is
// released; a persistence failure is logged and swallowed -- the in-memory
// append stays committed. On validation failure, ErrInvalidBlock wraps the
// specific chain error.
func (l *Ledger) Append(blk Block) (err error) {
	defer recoverAsLockFailure(&err)
	l.mu.Lock()
	defer l.mu.Unlock()
	next, insertErr := l.chain.Insert(blk)
	if insertErr != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlock, insertErr)
	}
	l.chain = next
	if persistErr := l.chain.PersistToDisk(l.path); persistErr != nil {
		l.log.WithError(persistErr).Warn("persisting chain to disk failed; in-memory append stands")
	}
	return nil
}

// LastBilling walks the chain newest to oldest collecting blocks until it
// finds one that is a Billing record for query.User signed by query.Signee
// (inclusive of that block), or reaches a genesis block without finding
// one. On a hit it returns a freshly built sub-chain containing the
// collected blocks oldest first; on a miss it returns (nil, nil) -- no
// billing has ever been initialized for this user. Usage blocks are not
// signature-checked here; that is left to callers such as pkg/invoice.
func (l *Ledger) LastBilling(query BillingQuery, verify VerifyFunc) (sub *Chain, err error) {
	defer recoverAsLockFailure(&err)
	l.mu.RLock()
	defer l.mu.RUnlock()

	var collected []Block
	found := false
	for blk := range l.chain.All() {
		collected = append(collected, blk)
		if fp, ok := blk.Data().Payload.Billing(); ok {
			if fp.Equal(query.User) && verify(query.Signee, blk.Data()) {
				found = true
				break
			}
		}
		if blk.IsGenesis() {
			break
		}
	}
	if !found {
		return nil, nil
	}

	for i, j := 0, len(collected)-1; i < j; i, j = i+1, j-1 {
		collected[i], collected[j] = collected[j], collected[i]
	}

	result := chain.New[payload.Signed]()
	for _, blk := range collected {
		next, insertErr := result.Insert(blk)
		if insertErr != nil {
			// Cannot happen if the source chain was valid; swallow per
			// the wrapper's documented contract and report no billing.
			return nil, nil
		}
		result = next
	}
	return &result, nil
}

// Path returns the durable-persistence path this ledger writes to.
func (l *Ledger) Path() string { return l.path }

// recoverAsLockFailure converts a panic inside a lock-guarded method into
// ErrCannotGetLock, the closest Go analogue to a poisoned lock: all
// mutation goes through chain.Chain.Insert, a pure function that should
// never panic on well-formed input, so this path is not expected to be
// exercised in practice.
func recoverAsLockFailure(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%w: %v", ErrCannotGetLock, r)
	}
}
