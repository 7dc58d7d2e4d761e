// Package invoice renders a human-readable invoice from a billing-suffix
// sub-chain returned by internal/ledger.Ledger.LastBilling. It is a
// standalone consumer of the core engine, not part of the HTTP shell.
package invoice

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/timestamppb"

	"goledger.dev/chainledger/internal/ledger"
	"goledger.dev/chainledger/internal/payload"
)

// Position is one billable line: a Usage record's timestamp and quantum.
type Position struct {
	Timestamp *timestamppb.Timestamp
	Usage     uint64
}

// Invoice is the billed user plus every Usage position since their last
// Billing record, sorted oldest first.
type Invoice struct {
	User      payload.Fingerprint
	Positions []Position
}

// Total sums every position's usage quantum.
func (inv Invoice) Total() uint64 {
	var total uint64
	for _, pos := range inv.Positions {
		total += pos.Usage
	}
	return total
}

// String renders the invoice the way the original invoice generator did:
// one line per position, oldest first, followed by the total.
func (inv Invoice) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice for %x\n", inv.User)
	for _, pos := range inv.Positions {
		fmt.Fprintf(&b, "\t%s: %d\n", pos.Timestamp.AsTime().Format(time.RFC3339), pos.Usage)
	}
	fmt.Fprintf(&b, "total: %d\n", inv.Total())
	return b.String()
}

// Render walks sub oldest to newest, re-verifying every Usage block's
// signature against userPub (internal/ledger.Ledger does not check Usage
// signatures itself; §4.4 leaves that to callers) and skipping any block
// that fails verification or is not a Usage record. sub is expected to be
// the result of Ledger.LastBilling for the same user.
func Render(sub *ledger.Chain, user payload.Fingerprint, userPub []byte, verify ledger.VerifyFunc) (Invoice, error) {
	if sub == nil {
		return Invoice{}, fmt.Errorf("invoice: no billing history for user %x", user)
	}

	var all []ledger.Block
	for blk := range sub.All() {
		all = append(all, blk)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Time() < all[j].Time() })

	inv := Invoice{User: user}
	for _, blk := range all {
		quantum, ok := blk.Data().Payload.Usage()
		if !ok {
			continue
		}
		if !verify(userPub, blk.Data()) {
			continue
		}
		inv.Positions = append(inv.Positions, Position{
			Timestamp: timestamppb.New(time.Unix(int64(blk.Time()), 0)),
			Usage:     quantum,
		})
	}
	return inv, nil
}
