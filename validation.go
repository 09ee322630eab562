package sonorous

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// Input validation helpers

// MaxWorkers caps Config.Workers
const MaxWorkers = 1024

// ValidateSalt checks that a salt has exactly SaltSize bytes
func ValidateSalt(salt []byte) error {
	if salt == nil {
		return &ValidationError{
			Field:   "salt",
			Message: "salt cannot be nil",
		}
	}
	if len(salt) != SaltSize {
		return &ValidationError{
			Field:   "salt",
			Value:   len(salt),
			Message: fmt.Sprintf("invalid salt size: got %d bytes, expected %d bytes", len(salt), SaltSize),
		}
	}
	return nil
}

// ValidateKey checks if a key has the correct size
func ValidateKey(key []byte, expectedSize int) error {
	if key == nil {
		return &ValidationError{
			Field:   "key",
			Message: "key cannot be nil",
			Err:     ErrInvalidKey,
		}
	}

	if len(key) != expectedSize {
		return &ValidationError{
			Field:   "key",
			Value:   len(key),
			Message: fmt.Sprintf("invalid key size: got %d bytes, expected %d bytes", len(key), expectedSize),
			Err:     ErrInvalidKey,
		}
	}

	return nil
}

// ValidateWorkers checks the parallel sealing worker count
func ValidateWorkers(n int) error {
	if n < 0 {
		return &ValidationError{
			Field:   "workers",
			Value:   n,
			Message: "workers cannot be negative",
		}
	}
	if n > MaxWorkers {
		return &ValidationError{
			Field:   "workers",
			Value:   n,
			Message: fmt.Sprintf("workers must not exceed %d", MaxWorkers),
		}
	}
	return nil
}

// ValidateEntryPath checks that p is a clean, relative, slash separated
// path that stays below the archive root.
func ValidateEntryPath(p string) error {
	if p == "" {
		return &ValidationError{
			Field:   "path",
			Message: "entry path cannot be empty",
			Err:     ErrUnsafePath,
		}
	}
	if !utf8.ValidString(p) {
		return &ValidationError{
			Field:   "path",
			Value:   p,
			Message: "entry path is not valid UTF-8",
			Err:     ErrUnsafePath,
		}
	}
	if strings.HasPrefix(p, "/") || strings.ContainsRune(p, '\\') || strings.ContainsRune(p, 0) {
		return &ValidationError{
			Field:   "path",
			Value:   p,
			Message: "entry path must be relative and slash separated",
			Err:     ErrUnsafePath,
		}
	}
	if path.Clean(p) != p || p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return &ValidationError{
			Field:   "path",
			Value:   p,
			Message: "entry path must be clean and stay below the root",
			Err:     ErrUnsafePath,
		}
	}
	return nil
}

// ValidateEntries checks a build input list
func ValidateEntries(entries []Entry) error {
	if uint64(len(entries)) > uint64(^uint32(0)) {
		return &ValidationError{
			Field:   "entries",
			Value:   len(entries),
			Message: "too many entries for a 32-bit index",
		}
	}
	for _, e := range entries {
		if err := ValidateEntryPath(e.Path); err != nil {
			return err
		}
	}
	return nil
}
