package sonorous

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/chacha20poly1305"
)

// blockHeaderSize is the nonce plus the u32 ciphertext length
const blockHeaderSize = NonceSize + 4

// maxBlockCiphertext bounds the allocation made for a declared block length
const maxBlockCiphertext = math.MaxUint32

// BlockCodec reads and writes encrypted blocks:
//
//	nonce (12 bytes) || ciphertext length (u32 LE) || ciphertext + tag
//
// Both file chunks and the serialized table of contents use this layout.
type BlockCodec struct {
	aead cipher.AEAD
}

// NewBlockCodec creates a ChaCha20-Poly1305 block codec for key
func NewBlockCodec(key *Key) (*BlockCodec, error) {
	var aead cipher.AEAD
	err := key.use(func(raw []byte) error {
		var err error
		aead, err = chacha20poly1305.New(raw)
		if err != nil {
			return fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &BlockCodec{aead: aead}, nil
}

// SealBlock encrypts plaintext under a fresh random nonce and returns the
// encoded block.
func (c *BlockCodec) SealBlock(plaintext []byte) ([]byte, error) {
	if uint64(len(plaintext))+TagSize > maxBlockCiphertext {
		return nil, NewValidationError("plaintext", len(plaintext), "block too large")
	}

	out := make([]byte, blockHeaderSize, blockHeaderSize+len(plaintext)+c.aead.Overhead())
	nonce := out[:NonceSize]
	if _, err := rand.Read(nonce); err != nil {
		return nil, NewEncryptionError("encrypt", "", fmt.Errorf("failed to generate nonce: %w", err))
	}

	out = c.aead.Seal(out, nonce, plaintext, nil)
	binary.LittleEndian.PutUint32(out[NonceSize:blockHeaderSize], uint32(len(out)-blockHeaderSize))
	return out, nil
}

// WriteBlock seals plaintext and writes the block to w
func (c *BlockCodec) WriteBlock(w io.Writer, plaintext []byte) error {
	block, err := c.SealBlock(plaintext)
	if err != nil {
		return err
	}
	if _, err := w.Write(block); err != nil {
		return NewIOError("write", "", err)
	}
	return nil
}

// ReadBlock reads one block from r and returns its authenticated plaintext
func (c *BlockCodec) ReadBlock(r io.Reader) ([]byte, error) {
	var header [blockHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, readErr(err, "block header")
	}

	n := binary.LittleEndian.Uint32(header[NonceSize:])
	if n < TagSize {
		return nil, NewCorruptionError("", ErrTruncatedInput, fmt.Sprintf("block length %d shorter than tag", n))
	}

	// Grow the buffer as bytes arrive so a forged length cannot force a
	// large allocation before the data runs out.
	ciphertext, err := readExactly(r, int64(n))
	if err != nil {
		return nil, readErr(err, fmt.Sprintf("block of %d bytes", n))
	}

	plaintext, err := c.aead.Open(ciphertext[:0], header[:NonceSize], ciphertext, nil)
	if err != nil {
		return nil, &AuthenticationError{Message: "block failed authentication", Err: ErrAuthFailed}
	}
	return plaintext, nil
}

func readExactly(r io.Reader, n int64) ([]byte, error) {
	if n <= ChunkSize+TagSize {
		buf := make([]byte, n)
		_, err := io.ReadFull(r, buf)
		return buf, err
	}
	buf, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) != n {
		return nil, io.ErrUnexpectedEOF
	}
	return buf, nil
}

// readErr maps short reads to ErrTruncatedInput
func readErr(err error, what string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return NewCorruptionError("", ErrTruncatedInput, "unexpected end of data reading "+what)
	}
	return NewIOError("read", "", err)
}
