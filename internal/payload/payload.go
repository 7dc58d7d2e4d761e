// Package payload implements the tagged Billing/Usage payload union and the
// signature envelope that wraps it, matching the deterministic wire format
// blocks are hashed and persisted under.
package payload

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// FingerprintSize is the length, in bytes, of a SHA-256 public-key fingerprint.
const FingerprintSize = 32

// SignatureSize is the length, in bytes, of an Ed25519 signature.
const SignatureSize = 64

// Fingerprint identifies an account by the SHA-256 hash of its public key.
type Fingerprint [FingerprintSize]byte

// Equal reports fieldwise byte equality.
func (f Fingerprint) Equal(other Fingerprint) bool { return f == other }

// Signature is a fixed-width Ed25519 signature.
type Signature [SignatureSize]byte

// Kind tags which variant a Payload holds.
type Kind uint8

const (
	// KindBilling closes an accounting period for the enclosed fingerprint.
	KindBilling Kind = 0
	// KindUsage records a usage quantum for the signer of the enclosing
	// SignedPayload.
	KindUsage Kind = 1
)

func (k Kind) String() string {
	switch k {
	case KindBilling:
		return "Billing"
	case KindUsage:
		return "Usage"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ErrUnknownKind is returned when decoding a payload tag outside {0, 1}.
var ErrUnknownKind = errors.New("payload: unknown tag")

// Payload is the closed Billing(fingerprint) / Usage(u64) tagged union.
// Because KindBilling is tag 0, the zero value is a Billing payload for the
// all-zero fingerprint; construct with NewBilling or NewUsage.
type Payload struct {
	kind    Kind
	billing Fingerprint
	usage   uint64
}

// NewBilling builds a Billing(fingerprint) payload.
func NewBilling(fp Fingerprint) Payload {
	return Payload{kind: KindBilling, billing: fp}
}

// NewUsage builds a Usage(quantum) payload.
func NewUsage(quantum uint64) Payload {
	return Payload{kind: KindUsage, usage: quantum}
}

// Kind reports which variant is held.
func (p Payload) Kind() Kind { return p.kind }

// Billing returns the fingerprint and true iff p is a Billing payload.
func (p Payload) Billing() (Fingerprint, bool) {
	if p.kind != KindBilling {
		return Fingerprint{}, false
	}
	return p.billing, true
}

// Usage returns the usage quantum and true iff p is a Usage payload.
func (p Payload) Usage() (uint64, bool) {
	if p.kind != KindUsage {
		return 0, false
	}
	return p.usage, true
}

// Equal performs exhaustive, variant-aware comparison.
func (p Payload) Equal(other Payload) bool {
	if p.kind != other.kind {
		return false
	}
	switch p.kind {
	case KindBilling:
		return p.billing == other.billing
	case KindUsage:
		return p.usage == other.usage
	default:
		return false
	}
}

// MarshalBinary encodes the payload as a 1-byte tag followed by the variant
// body: Billing is a 64-bit-length-prefixed byte sequence, Usage is a raw
// little-endian uint64.
func (p Payload) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	switch p.kind {
	case KindBilling:
		buf.WriteByte(byte(KindBilling))
		if err := binary.Write(&buf, binary.LittleEndian, uint64(FingerprintSize)); err != nil {
			return nil, err
		}
		buf.Write(p.billing[:])
	case KindUsage:
		buf.WriteByte(byte(KindUsage))
		if err := binary.Write(&buf, binary.LittleEndian, p.usage); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("payload: marshal: %w", ErrUnknownKind)
	}
	return buf.Bytes(), nil
}

// ReadFrom decodes a Payload from r in the same format MarshalBinary writes.
func ReadFrom(r io.Reader) (Payload, error) {
	var tagBuf [1]byte
	if _, err := io.ReadFull(r, tagBuf[:]); err != nil {
		return Payload{}, err
	}
	switch Kind(tagBuf[0]) {
	case KindBilling:
		var length uint64
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return Payload{}, err
		}
		if length != FingerprintSize {
			return Payload{}, fmt.Errorf("payload: billing fingerprint length %d, want %d", length, FingerprintSize)
		}
		var fp Fingerprint
		if _, err := io.ReadFull(r, fp[:]); err != nil {
			return Payload{}, err
		}
		return NewBilling(fp), nil
	case KindUsage:
		var quantum uint64
		if err := binary.Read(r, binary.LittleEndian, &quantum); err != nil {
			return Payload{}, err
		}
		return NewUsage(quantum), nil
	default:
		return Payload{}, fmt.Errorf("payload: tag %d: %w", tagBuf[0], ErrUnknownKind)
	}
}

// Signed pairs a signature with the payload it covers. The signed bytes are
// always the deterministic encoding of Payload alone, never including the
// signature.
type Signed struct {
	Signature Signature
	Payload   Payload
}

// NewSigned constructs a signed payload envelope.
func NewSigned(sig Signature, p Payload) Signed {
	return Signed{Signature: sig, Payload: p}
}

// SignedBytes returns the bytes that should be signed/verified: the
// deterministic encoding of the payload alone.
func (s Signed) SignedBytes() ([]byte, error) {
	return s.Payload.MarshalBinary()
}

// MarshalBinary encodes the envelope as 64 raw signature bytes followed by
// the payload encoding.
func (s Signed) MarshalBinary() ([]byte, error) {
	payloadBytes, err := s.Payload.MarshalBinary()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, SignatureSize+len(payloadBytes))
	buf = append(buf, s.Signature[:]...)
	buf = append(buf, payloadBytes...)
	return buf, nil
}

// ReadSignedFrom decodes a Signed envelope from r.
func ReadSignedFrom(r io.Reader) (Signed, error) {
	var sig Signature
	if _, err := io.ReadFull(r, sig[:]); err != nil {
		return Signed{}, err
	}
	p, err := ReadFrom(r)
	if err != nil {
		return Signed{}, err
	}
	return NewSigned(sig, p), nil
}

// Equal performs fieldwise comparison of signature and payload.
func (s Signed) Equal(other Signed) bool {
	return s.Signature == other.Signature && s.Payload.Equal(other.Payload)
}
