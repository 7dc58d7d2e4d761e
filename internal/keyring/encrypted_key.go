package keyring

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/argon2"
)

const (
	saltSize = 16
	keySize  = 32 // AES-256
)

// argon2 cost parameters for key derivation. Chosen to be comfortably above
// the library's documented minimums without being unreasonably slow on
// commodity hardware.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
)

// ErrBadPassword is returned by Decrypt when the padding recovered after
// decryption is malformed, almost always because the password was wrong.
var ErrBadPassword = errors.New("keyring: incorrect password or corrupt key file")

// EncryptedKeyPair is an Ed25519 private key encrypted at rest with
// AES-256-CBC under a key derived from a password via Argon2i.
type EncryptedKeyPair struct {
	Salt       []byte `json:"salt"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.Key([]byte(password), salt, argonTime, argonMemory, argonThreads, keySize)
}

// Encrypt encrypts priv under a key derived from password, with a freshly
// generated random salt and IV.
func Encrypt(priv ed25519.PrivateKey, password string) (*EncryptedKeyPair, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("keyring: encrypt: salt: %w", err)
	}
	key := deriveKey(password, salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keyring: encrypt: %w", err)
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("keyring: encrypt: iv: %w", err)
	}
	padded := pkcs7Pad([]byte(priv), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return &EncryptedKeyPair{Salt: salt, IV: iv, Ciphertext: ciphertext}, nil
}

// Decrypt recovers the private key, returning ErrBadPassword if the
// password does not match.
func (e *EncryptedKeyPair) Decrypt(password string) (ed25519.PrivateKey, error) {
	key := deriveKey(password, e.Salt)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("keyring: decrypt: %w", err)
	}
	if len(e.Ciphertext) == 0 || len(e.Ciphertext)%aes.BlockSize != 0 {
		return nil, ErrBadPassword
	}
	plain := make([]byte, len(e.Ciphertext))
	cipher.NewCBCDecrypter(block, e.IV).CryptBlocks(plain, e.Ciphertext)
	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, ErrBadPassword
	}
	if len(unpadded) != ed25519.PrivateKeySize {
		return nil, ErrBadPassword
	}
	return ed25519.PrivateKey(unpadded), nil
}

// WriteToFile JSON-encodes the encrypted key pair and writes it to a new
// file at path, refusing to overwrite an existing one.
func (e *EncryptedKeyPair) WriteToFile(path string) error {
	encoded, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("keyring: write: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return fmt.Errorf("keyring: write: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(encoded); err != nil {
		return fmt.Errorf("keyring: write: %w", err)
	}
	return nil
}

// ReadEncryptedKeyPair loads and JSON-decodes an encrypted key pair from path.
func ReadEncryptedKeyPair(path string) (*EncryptedKeyPair, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyring: read: %w", err)
	}
	var e EncryptedKeyPair
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("keyring: read: %w", err)
	}
	return &e, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(append([]byte{}, data...), padding...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := len(data)
	if n == 0 || n%blockSize != 0 {
		return nil, errors.New("keyring: invalid padded length")
	}
	padLen := int(data[n-1])
	if padLen == 0 || padLen > blockSize || padLen > n {
		return nil, errors.New("keyring: invalid padding")
	}
	if !bytes.Equal(data[n-padLen:], bytes.Repeat([]byte{byte(padLen)}, padLen)) {
		return nil, errors.New("keyring: invalid padding")
	}
	return data[:n-padLen], nil
}
