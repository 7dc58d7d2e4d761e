// Command txgen is a small transaction-generating client: it loads an
// encrypted key pair, signs a Usage or Billing payload, mines a block
// against a running worker's current head, and posts it to /append. It
// demonstrates the wire format end to end without adding any scope to the
// core engine.
package main

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"goledger.dev/chainledger/internal/block"
	"goledger.dev/chainledger/internal/keyring"
	"goledger.dev/chainledger/internal/logging"
	"goledger.dev/chainledger/internal/payload"
)

var log = logging.For("txgen")

// wireBlock mirrors the shape internal/httpapi exchanges over the wire;
// txgen is a separate binary and so keeps its own copy rather than
// depending on an internal package's unexported JSON types.
type wireBlock struct {
	Version    uint8            `json:"version"`
	PrevHash   block.Hash       `json:"prev_hash"`
	Time       uint64           `json:"time"`
	Difficulty uint             `json:"difficulty"`
	Nonce      uint64           `json:"nonce"`
	Data       wireSignedPayload `json:"data"`
}

type wireSignedPayload struct {
	Signature payload.Signature `json:"signature"`
	Payload   wirePayload       `json:"payload"`
}

type wirePayload struct {
	Kind    payload.Kind         `json:"kind"`
	Billing *payload.Fingerprint `json:"billing,omitempty"`
	Usage   *uint64              `json:"usage,omitempty"`
}

func blockToWire(b block.Block[payload.Signed]) wireBlock {
	wp := wirePayload{Kind: b.Data().Payload.Kind()}
	if fp, ok := b.Data().Payload.Billing(); ok {
		wp.Billing = &fp
	}
	if u, ok := b.Data().Payload.Usage(); ok {
		wp.Usage = &u
	}
	return wireBlock{
		Version:    b.Version(),
		PrevHash:   b.PrevHash(),
		Time:       b.Time(),
		Difficulty: b.Difficulty(),
		Nonce:      b.Nonce(),
		Data: wireSignedPayload{
			Signature: b.Data().Signature,
			Payload:   wp,
		},
	}
}

func wireToBlock(wb wireBlock) block.Block[payload.Signed] {
	var p payload.Payload
	switch wb.Data.Payload.Kind {
	case payload.KindBilling:
		if wb.Data.Payload.Billing != nil {
			p = payload.NewBilling(*wb.Data.Payload.Billing)
		}
	case payload.KindUsage:
		if wb.Data.Payload.Usage != nil {
			p = payload.NewUsage(*wb.Data.Payload.Usage)
		}
	}
	signed := payload.NewSigned(wb.Data.Signature, p)
	return block.FromParts(wb.Version, wb.PrevHash, wb.Time, wb.Difficulty, wb.Nonce, signed)
}

func main() {
	fs := pflag.NewFlagSet("txgen", pflag.ExitOnError)
	keypairPath := fs.StringP("keypair", "k", "./default.key", "path to the encrypted key pair")
	host := fs.StringP("host", "h", "", "base URL of the worker webservice (required)")
	kind := fs.String("kind", "usage", "payload kind to generate: usage or billing")
	quantum := fs.Uint64("quantum", 0, "usage quantum (for --kind usage)")
	userHex := fs.String("user", "", "hex-encoded fingerprint of the billed user (for --kind billing)")
	difficulty := fs.Uint("difficulty", 20, "leading zero bits required of the mined block's hash")
	fs.Parse(os.Args[1:])

	if *host == "" {
		log.Fatal("--host is required")
	}

	priv := loadKeyPair(*keypairPath)
	pub := priv.Public().(ed25519.PublicKey)

	p := buildPayload(*kind, *quantum, *userHex)

	signed, err := keyring.Sign(keyring.KeyPair{Public: pub, Private: priv}, p)
	if err != nil {
		log.WithError(err).Fatal("cannot sign payload")
	}

	var prevHash block.Hash
	if head, err := fetchLatestBlock(*host); err == nil {
		prevHash = wireToBlock(head).Hash()
	}

	blk := block.NewWithHash(signed, prevHash, *difficulty).ProofOfWork()
	log.WithFields(map[string]any{"difficulty": *difficulty}).Info("mined block, posting to worker")

	if err := postBlock(*host, blockToWire(blk)); err != nil {
		log.WithError(err).Fatal("append failed")
	}
	log.Info("block appended")
}

func loadKeyPair(path string) ed25519.PrivateKey {
	password, err := readPassword("Password for the key pair: ")
	if err != nil {
		log.WithError(err).Fatal("cannot read password")
	}
	enc, err := keyring.ReadEncryptedKeyPair(path)
	if err != nil {
		log.WithError(err).Fatal("cannot read keypair")
	}
	priv, err := enc.Decrypt(password)
	if err != nil {
		log.WithError(err).Fatal("cannot decrypt keypair")
	}
	return priv
}

func buildPayload(kind string, quantum uint64, userHex string) payload.Payload {
	switch kind {
	case "usage":
		return payload.NewUsage(quantum)
	case "billing":
		raw, err := hex.DecodeString(userHex)
		if err != nil || len(raw) != payload.FingerprintSize {
			log.Fatal("--user must be a hex-encoded 32-byte fingerprint")
		}
		var fp payload.Fingerprint
		copy(fp[:], raw)
		return payload.NewBilling(fp)
	default:
		log.Fatalf("unknown --kind %q, want usage or billing", kind)
		panic("unreachable")
	}
}

// fetchLatestBlock asks the worker for its current head so the block we
// mine links to it. A fetch failure is treated as "the chain is empty":
// the mined block gets the all-zero prevHash a genesis block carries.
func fetchLatestBlock(host string) (wireBlock, error) {
	resp, err := http.Get(host + "/latest_block")
	if err != nil {
		return wireBlock{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return wireBlock{}, fmt.Errorf("txgen: GET /latest_block: status %d", resp.StatusCode)
	}
	var wb wireBlock
	if err := json.NewDecoder(resp.Body).Decode(&wb); err != nil {
		return wireBlock{}, err
	}
	return wb, nil
}

func postBlock(host string, wb wireBlock) error {
	encoded, err := json.Marshal(wb)
	if err != nil {
		return err
	}
	resp, err := http.Post(host+"/append", "application/json", bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("txgen: POST /append: status %d", resp.StatusCode)
	}
	return nil
}

func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return line, nil
}
