package sonorous

import (
	"errors"
	"fmt"
)

// Error types represent different categories of errors

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
	Err     error  // Underlying error, if any
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// EncryptionError represents a key derivation or sealing failure
type EncryptionError struct {
	Operation string // "derive", "encrypt" or "decrypt"
	Path      string // Entry path, if applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *EncryptionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s error: %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Operation, e.Message)
}

func (e *EncryptionError) Unwrap() error {
	return e.Err
}

// IOError represents a file system I/O error
type IOError struct {
	Operation string // "read", "write", "seek", "open", "mkdir", etc.
	Path      string // File path
	Offset    int64  // Archive offset, if applicable
	Message   string // Human-readable error message
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" && e.Offset >= 0 {
		return fmt.Sprintf("io error: %s %s at offset %d: %s", e.Operation, e.Path, e.Offset, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("io error: %s %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("io error: %s: %s", e.Operation, e.Message)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CorruptionError represents a malformed or truncated archive structure
type CorruptionError struct {
	Path     string // Entry path, if applicable
	ChunkIdx uint32 // Chunk index, if applicable
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *CorruptionError) Error() string {
	if e.ChunkIdx > 0 {
		return fmt.Sprintf("corruption error: %s (chunk %d): %s", e.Path, e.ChunkIdx, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("corruption error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("corruption error: %s", e.Message)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

// AuthenticationError represents an AEAD tag verification failure
type AuthenticationError struct {
	Path     string // Entry path, empty for the table of contents
	ChunkIdx uint32 // Chunk index, if applicable
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *AuthenticationError) Error() string {
	if e.Path != "" && e.ChunkIdx > 0 {
		return fmt.Sprintf("authentication error: %s (chunk %d): %s", e.Path, e.ChunkIdx, e.Message)
	} else if e.Path != "" {
		return fmt.Sprintf("authentication error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("authentication error: %s", e.Message)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Sentinel errors, matched with errors.Is
var (
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	ErrAuthFailed          = errors.New("authentication failed - wrong password or data corrupted or tampered")
	ErrTruncatedInput      = errors.New("truncated input")
	ErrMalformedEntryBody  = errors.New("malformed entry body")
	ErrFilesystemConflict  = errors.New("filesystem conflict")
	ErrOutputExists        = errors.New("output already exists")
	ErrInvalidTrailer      = errors.New("invalid archive trailer")
	ErrMalformedTable      = errors.New("malformed table of contents")
	ErrUnsafePath          = errors.New("unsafe entry path")
	ErrInvalidKey          = errors.New("invalid encryption key")
	ErrArchiveClosed       = errors.New("archive is closed")
)

// Helper functions for creating structured errors

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewEncryptionError creates a new encryption error
func NewEncryptionError(operation, path string, err error) error {
	return &EncryptionError{
		Operation: operation,
		Path:      path,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewIOError creates a new I/O error
func NewIOError(operation, path string, err error) error {
	return &IOError{
		Operation: operation,
		Path:      path,
		Offset:    -1,
		Message:   err.Error(),
		Err:       err,
	}
}

// NewCorruptionError creates a new corruption error wrapping a sentinel
func NewCorruptionError(path string, sentinel error, message string) error {
	return &CorruptionError{
		Path:    path,
		Message: message,
		Err:     sentinel,
	}
}

// NewAuthenticationError creates a new authentication error
func NewAuthenticationError(path string, err error) error {
	return &AuthenticationError{
		Path:    path,
		Message: err.Error(),
		Err:     err,
	}
}

// withEntry attaches an entry path and chunk index to block-level errors
// that were raised without that context.
func withEntry(err error, path string, chunk uint32) error {
	var ae *AuthenticationError
	if errors.As(err, &ae) && ae.Path == "" {
		cp := *ae
		cp.Path, cp.ChunkIdx = path, chunk
		return &cp
	}
	var ce *CorruptionError
	if errors.As(err, &ce) && ce.Path == "" {
		cp := *ce
		cp.Path, cp.ChunkIdx = path, chunk
		return &cp
	}
	return err
}

// Error checking helpers

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsEncryptionError checks if an error is an encryption error
func IsEncryptionError(err error) bool {
	var ee *EncryptionError
	return errors.As(err, &ee)
}

// IsIOError checks if an error is an I/O error
func IsIOError(err error) bool {
	var ie *IOError
	return errors.As(err, &ie)
}

// IsCorruptionError checks if an error is a corruption error
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// IsAuthenticationError checks if an error is an authentication error
func IsAuthenticationError(err error) bool {
	var ae *AuthenticationError
	return errors.As(err, &ae)
}
