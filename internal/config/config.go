// Package config parses the worker's CLI flags into a typed Config.
package config

import (
	"github.com/spf13/pflag"
)

// Defaults mirror the original worker CLI's constants.
const (
	DefaultBlockchainPath = "./blockchain.dat"
	DefaultPort           = 1337
	DefaultAddress        = "localhost"
	DefaultDifficulty     = 20
)

// Config holds the worker's runtime configuration.
type Config struct {
	BlockchainPath string
	Port           int
	Address        string
	Difficulty     uint
}

// Parse builds a Config from args (typically os.Args[1:]), applying
// defaults for any flag not supplied.
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("worker", pflag.ContinueOnError)
	blockchain := fs.String("blockchain", DefaultBlockchainPath, "path to the persisted blockchain file")
	port := fs.Int("port", DefaultPort, "port the HTTP server listens on")
	address := fs.String("address", DefaultAddress, "address the HTTP server binds to")
	difficulty := fs.Uint("difficulty", DefaultDifficulty, "leading zero bits required of a generated block's hash")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{
		BlockchainPath: *blockchain,
		Port:           *port,
		Address:        *address,
		Difficulty:     *difficulty,
	}, nil
}
