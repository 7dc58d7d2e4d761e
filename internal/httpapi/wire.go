package httpapi

import (
	"crypto/ed25519"
	"fmt"

	"goledger.dev/chainledger/internal/block"
	"goledger.dev/chainledger/internal/ledger"
	"goledger.dev/chainledger/internal/payload"
)

// wirePayload is the JSON-facing mirror of payload.Payload: a Kind tag plus
// exactly one of the two variant fields, matching the tagged encoding
// block.MarshalBinary uses on disk.
type wirePayload struct {
	Kind    payload.Kind        `json:"kind"`
	Billing *payload.Fingerprint `json:"billing,omitempty"`
	Usage   *uint64              `json:"usage,omitempty"`
}

func payloadToWire(p payload.Payload) wirePayload {
	w := wirePayload{Kind: p.Kind()}
	if fp, ok := p.Billing(); ok {
		w.Billing = &fp
	}
	if u, ok := p.Usage(); ok {
		w.Usage = &u
	}
	return w
}

func wireToPayload(w wirePayload) (payload.Payload, error) {
	switch w.Kind {
	case payload.KindBilling:
		if w.Billing == nil {
			return payload.Payload{}, fmt.Errorf("httpapi: billing payload missing fingerprint")
		}
		return payload.NewBilling(*w.Billing), nil
	case payload.KindUsage:
		if w.Usage == nil {
			return payload.Payload{}, fmt.Errorf("httpapi: usage payload missing quantum")
		}
		return payload.NewUsage(*w.Usage), nil
	default:
		return payload.Payload{}, fmt.Errorf("httpapi: %w", payload.ErrUnknownKind)
	}
}

// wireSigned is the JSON-facing mirror of payload.Signed.
type wireSigned struct {
	Signature payload.Signature `json:"signature"`
	Payload   wirePayload       `json:"payload"`
}

func signedToWire(s payload.Signed) wireSigned {
	return wireSigned{Signature: s.Signature, Payload: payloadToWire(s.Payload)}
}

func wireToSigned(w wireSigned) (payload.Signed, error) {
	p, err := wireToPayload(w.Payload)
	if err != nil {
		return payload.Signed{}, err
	}
	return payload.NewSigned(w.Signature, p), nil
}

// wireBlock is the JSON-facing mirror of a ledger.Block: the same six
// fields MarshalBinary encodes, in the same order, so a client reading
// GET /latest_block sees a record shaped like the on-disk format. Fixed-
// width byte arrays (Hash, Signature, Fingerprint) marshal as JSON arrays
// of unsigned integers under encoding/json's default array handling,
// matching spec.md §6's required framing without custom codecs.
type wireBlock struct {
	Version    uint8       `json:"version"`
	PrevHash   block.Hash  `json:"prev_hash"`
	Time       uint64      `json:"time"`
	Difficulty uint        `json:"difficulty"`
	Nonce      uint64      `json:"nonce"`
	Data       wireSigned  `json:"data"`
}

func blockToWire(b ledger.Block) wireBlock {
	return wireBlock{
		Version:    b.Version(),
		PrevHash:   b.PrevHash(),
		Time:       b.Time(),
		Difficulty: b.Difficulty(),
		Nonce:      b.Nonce(),
		Data:       signedToWire(b.Data()),
	}
}

func wireToBlock(w wireBlock) (ledger.Block, error) {
	signed, err := wireToSigned(w.Data)
	if err != nil {
		return ledger.Block{}, err
	}
	return block.FromParts(w.Version, w.PrevHash, w.Time, w.Difficulty, w.Nonce, signed), nil
}

// wireBillingQuery is the JSON request body of POST /since_last_billing.
// Signee is a fixed [32]byte array, matching ed25519.PublicKeySize, so it
// marshals the same way the fixed-width fields above do.
type wireBillingQuery struct {
	Signee [ed25519.PublicKeySize]byte `json:"signee"`
	User   payload.Fingerprint         `json:"user"`
}

// wireChain is the JSON response body of POST /since_last_billing: the
// sub-chain oldest first, since clients consuming a billing history read
// it forward in time.
type wireChain struct {
	Blocks []wireBlock `json:"blocks"`
}

func chainToWire(c *ledger.Chain) wireChain {
	var newestFirst []wireBlock
	for blk := range c.All() {
		newestFirst = append(newestFirst, blockToWire(blk))
	}
	wire := make([]wireBlock, len(newestFirst))
	for i, w := range newestFirst {
		wire[len(newestFirst)-1-i] = w
	}
	return wireChain{Blocks: wire}
}
