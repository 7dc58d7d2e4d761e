// Command worker runs the ledger's HTTP shell: it loads (or creates) a
// chain from disk, serves GET /latest_block, POST /append and POST
// /since_last_billing, and persists every successful append back to the
// same file.
//
// The generate-keypair subcommand is unrelated to the server and exists
// purely to exercise internal/keyring end to end: it mints an Ed25519 key
// pair, encrypts the private half with a password-derived key, and writes
// it to disk.
package main

import (
	"bufio"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/term"

	"goledger.dev/chainledger/internal/chain"
	"goledger.dev/chainledger/internal/config"
	"goledger.dev/chainledger/internal/httpapi"
	"goledger.dev/chainledger/internal/keyring"
	"goledger.dev/chainledger/internal/ledger"
	"goledger.dev/chainledger/internal/logging"
	"goledger.dev/chainledger/internal/payload"
)

var log = logging.For("worker")

const defaultKeyPath = "./default.key"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "generate-keypair" {
		if err := runGenerateKeypair(os.Args[2:]); err != nil {
			log.WithError(err).Error("failed to create keypair")
			os.Exit(1)
		}
		log.Info("keypair has been created")
		return
	}

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	c, err := chain.LoadFromDisk[payload.Signed](cfg.BlockchainPath, payload.ReadSignedFrom)
	if err != nil {
		log.WithError(err).Warn("could not load chain from disk; starting from an empty chain")
		c = chain.New[payload.Signed]()
	} else {
		log.WithField("blocks", c.Len()).Info("loaded chain from disk")
	}

	led := ledger.New(c, cfg.BlockchainPath)
	server := httpapi.NewServer(led)

	addr := fmt.Sprintf("%s:%d", cfg.Address, cfg.Port)
	log.WithFields(map[string]any{"address": addr, "blockchain": cfg.BlockchainPath, "difficulty": cfg.Difficulty}).Info("starting worker")
	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func runGenerateKeypair(args []string) error {
	path := defaultKeyPath
	if len(args) > 0 {
		path = args[0]
	}

	kp, err := keyring.Generate()
	if err != nil {
		return fmt.Errorf("worker: generate-keypair: %w", err)
	}

	password, err := readPassword("Password to encrypt the new key pair: ")
	if err != nil {
		return fmt.Errorf("worker: generate-keypair: %w", err)
	}

	encrypted, err := keyring.Encrypt(kp.Private, password)
	if err != nil {
		return fmt.Errorf("worker: generate-keypair: %w", err)
	}
	if err := encrypted.WriteToFile(path); err != nil {
		return fmt.Errorf("worker: generate-keypair: %w", err)
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
