package sonorous

import (
	"errors"
	"log/slog"
)

const (
	// ChunkSize is the maximum plaintext size of one stored file chunk (128 KiB)
	ChunkSize = 131072

	// SaltSize is the size of the cleartext salt stored ahead of the TOC
	SaltSize = 32

	// KeySize is the size of the derived ChaCha20-Poly1305 key
	KeySize = 32

	// NonceSize is the size of the nonce prefixing every encrypted block
	NonceSize = 12

	// TagSize is the Poly1305 authentication tag size
	TagSize = 16

	// TrailerSize is the size of the TOC pointer at the end of the archive
	TrailerSize = 8
)

// File body markers
const (
	markerChunk byte = 0x00
	markerEnd   byte = 0x01
)

// Entry is one filesystem object stored in an archive
type Entry struct {
	// Path is slash separated and relative to the archived root
	Path string
	// IsLeaf is true for regular files and false for directories
	IsLeaf bool
}

// Row is one record of the table of contents
type Row struct {
	Index uint32 // Discovery order, dense from 0
	Start uint64 // Offset of the entry body in the archive
	Entry Entry
}

// ProgressFunc is called after each chunk of file content is processed
// with the entry path and the number of plaintext bytes just handled.
type ProgressFunc func(path string, n int64)

// Config contains options for building an archive
type Config struct {
	// Logger receives per-entry debug records. Defaults to a discarding logger.
	Logger *slog.Logger

	// Workers is the number of goroutines sealing chunks of one file.
	// Values below 2 keep sealing on the calling goroutine.
	Workers int

	// Progress, if set, is called as file content is sealed
	Progress ProgressFunc
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	return ValidateWorkers(c.Workers)
}

func (c *Config) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

// ExtractConfig contains options for extracting an archive
type ExtractConfig struct {
	// Logger receives per-entry debug records. Defaults to a discarding logger.
	Logger *slog.Logger

	// Include restricts extraction to entries equal to or below one of
	// these slash separated prefixes. Empty means everything.
	Include []string

	// Progress, if set, is called as file content is decrypted
	Progress ProgressFunc
}

// Validate checks if the configuration is valid
func (c *ExtractConfig) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}
	for _, p := range c.Include {
		if err := ValidateEntryPath(p); err != nil {
			return err
		}
	}
	return nil
}

func (c *ExtractConfig) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return discardLogger
	}
	return c.Logger
}

var discardLogger = slog.New(slog.DiscardHandler)
