package sonorous

import (
	"bytes"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"
)

// Argon2Params contains parameters for Argon2id key derivation
type Argon2Params struct {
	Memory      uint32 // Memory in KiB
	Iterations  uint32 // Number of iterations (time parameter)
	Parallelism uint8  // Degree of parallelism
}

// DefaultArgon2Params are the parameters every archive key is derived with.
// The archive stores no KDF parameters, so changing these makes existing
// archives unreadable.
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
}

// GenerateSalt generates a new random salt of SaltSize bytes
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// Key holds derived key material. It must be released with Destroy.
type Key struct {
	mu  sync.Mutex
	buf []byte
}

// DeriveKey derives the archive key from a salt and password
func DeriveKey(salt, password []byte) (*Key, error) {
	return deriveKey(salt, password, DefaultArgon2Params)
}

func deriveKey(salt, password []byte, params Argon2Params) (key *Key, err error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, &EncryptionError{Operation: "derive", Message: err.Error(), Err: errors.Join(ErrKeyDerivationFailed, err)}
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return nil, &EncryptionError{Operation: "derive", Message: "argon2 parameters must be positive", Err: ErrKeyDerivationFailed}
	}

	// argon2 panics if it cannot allocate its memory blocks
	defer func() {
		if r := recover(); r != nil {
			key = nil
			err = &EncryptionError{Operation: "derive", Message: fmt.Sprintf("argon2 failed: %v", r), Err: ErrKeyDerivationFailed}
		}
	}()

	buf := argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, KeySize)
	return &Key{buf: buf}, nil
}

// use calls fn with the raw key bytes. fn must not retain them.
func (k *Key) use(fn func(raw []byte) error) error {
	if k == nil {
		return ErrInvalidKey
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	if err := ValidateKey(k.buf, KeySize); err != nil {
		return err
	}
	return fn(k.buf)
}

// Equal reports whether two keys hold the same material, in constant time
// with respect to the key contents.
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return false
	}
	var theirs []byte
	if err := other.use(func(raw []byte) error {
		theirs = bytes.Clone(raw)
		return nil
	}); err != nil {
		return false
	}
	defer clear(theirs)

	var eq bool
	_ = k.use(func(raw []byte) error {
		eq = subtle.ConstantTimeCompare(raw, theirs) == 1
		return nil
	})
	return eq
}

// Destroyed reports whether Destroy has been called
func (k *Key) Destroyed() bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.buf == nil
}

// Destroy zeroes the key material. It is safe to call more than once.
func (k *Key) Destroy() {
	if k == nil {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	clear(k.buf)
	k.buf = nil
}
