// Package cryptox implements the at-rest protection for persisted session
// credentials: a per-device key derived with argon2id and AES-GCM sealing
// of the bearer token.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"

	"golang.org/x/crypto/argon2"
)

// DeriveDeviceKey derives a 32-byte AES key from the device secret and salt
// using argon2id. The same (secret, salt) pair always yields the same key.
func DeriveDeviceKey(secret []byte, salt []byte) []byte {
	return argon2.IDKey(secret, salt, 1, 64*1024, 4, 32)
}

// SealToken encrypts the token with AES-GCM under the given key.
// A fresh random 12-byte nonce is generated per call and returned alongside
// the ciphertext.
func SealToken(token string, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, aesgcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, []byte(token), nil)
	return ciphertext, nonce, nil
}

// OpenToken decrypts a token previously produced by SealToken. The key and
// nonce must match the sealing call; on tampering or a wrong key the GCM
// authentication check fails and an error is returned.
func OpenToken(ciphertext, nonce, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
