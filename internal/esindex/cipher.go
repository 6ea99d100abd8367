package esindex

import (
	"fmt"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
)

// Cipher encrypts index documents at rest and decrypts them for search.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// PGPCipher implements Cipher with OpenPGP symmetric encryption under a
// per-device passphrase. The passphrase never leaves the keyring; index
// rows on disk are opaque without it.
type PGPCipher struct {
	pgp        *crypto.PGPHandle
	passphrase []byte
}

// NewPGPCipher creates a cipher bound to the given passphrase.
func NewPGPCipher(passphrase []byte) *PGPCipher {
	return &PGPCipher{
		pgp:        crypto.PGP(),
		passphrase: passphrase,
	}
}

// Encrypt seals one index document.
func (c *PGPCipher) Encrypt(plaintext []byte) ([]byte, error) {
	handle, err := c.pgp.Encryption().Password(c.passphrase).New()
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption handle: %w", err)
	}
	msg, err := handle.Encrypt(plaintext)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt index document: %w", err)
	}
	return msg.Bytes(), nil
}

// Decrypt opens one index document.
func (c *PGPCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	handle, err := c.pgp.Decryption().Password(c.passphrase).New()
	if err != nil {
		return nil, fmt.Errorf("failed to create decryption handle: %w", err)
	}
	decrypted, err := handle.Decrypt(ciphertext, crypto.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt index document: %w", err)
	}
	return decrypted.Bytes(), nil
}
