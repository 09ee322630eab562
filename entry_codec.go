package sonorous

import (
	"errors"
	"fmt"
	"io"
)

// bodyReader is what decodeFileBody consumes: markers are read a byte at a
// time, blocks through the plain reader.
type bodyReader interface {
	io.Reader
	io.ByteReader
}

// readChunk fills buf from src and returns how many bytes it got. A short
// count means src is exhausted.
func readChunk(src io.Reader, buf []byte, path string) (int, error) {
	n, err := io.ReadFull(src, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return n, nil
	}
	if err != nil {
		return n, NewIOError("read", path, err)
	}
	return n, nil
}

// encodeFileBody writes the body of a leaf entry: one (0x00, block) pair per
// chunk of at most ChunkSize bytes followed by a single 0x01. It returns the
// number of plaintext bytes consumed.
func encodeFileBody(w io.Writer, src io.Reader, codec *BlockCodec, path string, progress ProgressFunc) (int64, error) {
	buf := make([]byte, ChunkSize)
	defer clear(buf)
	var total int64
	for {
		n, err := readChunk(src, buf, path)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}

		if _, err := w.Write([]byte{markerChunk}); err != nil {
			return total, NewIOError("write", path, err)
		}
		if err := codec.WriteBlock(w, buf[:n]); err != nil {
			return total, withEntry(err, path, 0)
		}
		total += int64(n)
		if progress != nil {
			progress(path, int64(n))
		}

		if n < len(buf) {
			break
		}
	}

	if _, err := w.Write([]byte{markerEnd}); err != nil {
		return total, NewIOError("write", path, err)
	}
	return total, nil
}

// decodeFileBody reads a leaf body from r, writing the decrypted chunks to
// dst until the terminal marker. It returns the number of plaintext bytes
// written.
func decodeFileBody(r bodyReader, dst io.Writer, codec *BlockCodec, path string, progress ProgressFunc) (int64, error) {
	var total int64
	for chunk := uint32(0); ; chunk++ {
		marker, err := r.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return total, &CorruptionError{Path: path, ChunkIdx: chunk, Message: "body ends without terminal marker", Err: ErrTruncatedInput}
			}
			return total, NewIOError("read", path, err)
		}

		switch marker {
		case markerEnd:
			return total, nil
		case markerChunk:
		default:
			return total, &CorruptionError{
				Path:     path,
				ChunkIdx: chunk,
				Message:  fmt.Sprintf("unexpected marker byte 0x%02x", marker),
				Err:      ErrMalformedEntryBody,
			}
		}

		plaintext, err := codec.ReadBlock(r)
		if err != nil {
			return total, withEntry(err, path, chunk)
		}
		n, err := dst.Write(plaintext)
		clear(plaintext)
		if err != nil {
			return total, NewIOError("write", path, err)
		}
		total += int64(n)
		if progress != nil {
			progress(path, int64(n))
		}
	}
}
