package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"os"

	"telereader/internal/constants"

	"golang.org/x/crypto/pbkdf2"
)

// encryptor provides optional AES-GCM at-rest encryption for stored
// message text in the SQLite backend. Enabled by setting
// TELEREADER_ENCRYPTION_SECRET; disabled otherwise (gcm == nil).
type encryptor struct {
	gcm cipher.AEAD
}

func newEncryptor() (*encryptor, error) {
	secret := os.Getenv(constants.EncryptionSecretEnvVar)
	if secret == "" {
		return &encryptor{}, nil
	}

	salt := os.Getenv(constants.EncryptionSaltEnvVar)
	if salt == "" {
		salt = constants.DefaultEncryptionSalt
	}

	key := pbkdf2.Key([]byte(secret), []byte(salt), constants.PBKDF2Iterations, constants.EncryptionKeySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &encryptor{gcm: gcm}, nil
}

func (e *encryptor) enabled() bool {
	return e.gcm != nil
}

// EncryptIfEnabled encrypts plaintext when encryption is configured and
// passes it through unchanged otherwise.
func (e *encryptor) EncryptIfEnabled(plaintext string) (string, error) {
	if plaintext == "" || !e.enabled() {
		return plaintext, nil
	}

	nonce := make([]byte, constants.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := e.gcm.Seal(nil, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// DecryptIfEnabled reverses EncryptIfEnabled.
func (e *encryptor) DecryptIfEnabled(stored string) (string, error) {
	if stored == "" || !e.enabled() {
		return stored, nil
	}

	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	if len(data) < constants.NonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	nonce, ciphertext := data[:constants.NonceSize], data[constants.NonceSize:]
	plaintext, err := e.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
