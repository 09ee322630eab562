package sonorous

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"unicode/utf8"
)

// Archive layout (no magic header):
//
//	┌──────────────────────────────────────┐
//	│ Entry bodies, back to back           │ <- directories: empty
//	│   file: (0x00, Block)* 0x01          │
//	├──────────────────────────────────────┤
//	│ Salt (32 bytes, cleartext)           │ <- toc start
//	│ Block(serialized rows)               │
//	├──────────────────────────────────────┤
//	│ toc start (u64 LE)                   │ <- always the last 8 bytes
//	└──────────────────────────────────────┘
//
// Row layout before encryption:
//
//	index (u32 LE) || start (u64 LE) || is_leaf (1 byte) || path_len (u32 LE) || path (UTF-8)

// rowFixedSize is the size of a row without its path bytes
const rowFixedSize = 4 + 8 + 1 + 4

func putBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}
}

func putPath(buf *bytes.Buffer, p string) error {
	if !utf8.ValidString(p) {
		return NewValidationError("path", p, "path is not valid UTF-8")
	}
	if uint64(len(p)) > uint64(^uint32(0)) {
		return NewValidationError("path", len(p), "path too long")
	}
	buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(p))))
	buf.WriteString(p)
	return nil
}

// marshalRows serializes rows into the plaintext of the TOC block
func marshalRows(rows []Row) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, row := range rows {
		var fixed [12]byte
		binary.LittleEndian.PutUint32(fixed[0:4], row.Index)
		binary.LittleEndian.PutUint64(fixed[4:12], row.Start)
		buf.Write(fixed[:])
		putBool(buf, row.Entry.IsLeaf)
		if err := putPath(buf, row.Entry.Path); err != nil {
			return nil, fmt.Errorf("row %d: %w", row.Index, err)
		}
	}
	return buf.Bytes(), nil
}

// rowCursor walks a decrypted TOC buffer
type rowCursor struct {
	buf []byte
	off int
}

func (c *rowCursor) done() bool { return c.off == len(c.buf) }

func (c *rowCursor) take(n int) ([]byte, error) {
	if n < 0 || len(c.buf)-c.off < n {
		return nil, NewCorruptionError("", ErrTruncatedInput, fmt.Sprintf("table of contents ends inside a row at offset %d", c.off))
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *rowCursor) readU32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *rowCursor) readU64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *rowCursor) readBool() (bool, error) {
	b, err := c.take(1)
	if err != nil {
		return false, err
	}
	switch b[0] {
	case 0x01:
		return true, nil
	case 0x00:
		return false, nil
	default:
		return false, NewCorruptionError("", ErrMalformedTable, fmt.Sprintf("invalid boolean byte 0x%02x", b[0]))
	}
}

func (c *rowCursor) readPath() (string, error) {
	n, err := c.readU32()
	if err != nil {
		return "", err
	}
	if uint64(n) > uint64(len(c.buf)-c.off) {
		return "", NewCorruptionError("", ErrTruncatedInput, fmt.Sprintf("path length %d exceeds table of contents", n))
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", NewCorruptionError("", ErrMalformedTable, "path is not valid UTF-8")
	}
	return string(b), nil
}

// parseRows decodes every row until the cursor reaches the end of buf.
// Indices must be dense from 0 and paths must be safe relative paths.
func parseRows(buf []byte) ([]Row, error) {
	c := &rowCursor{buf: buf}
	rows := make([]Row, 0, len(buf)/(rowFixedSize+8))
	for !c.done() {
		var row Row
		var err error
		if row.Index, err = c.readU32(); err != nil {
			return nil, err
		}
		if row.Start, err = c.readU64(); err != nil {
			return nil, err
		}
		if row.Entry.IsLeaf, err = c.readBool(); err != nil {
			return nil, err
		}
		if row.Entry.Path, err = c.readPath(); err != nil {
			return nil, err
		}

		if row.Index != uint32(len(rows)) {
			return nil, NewCorruptionError(row.Entry.Path, ErrMalformedTable,
				fmt.Sprintf("row index %d out of order, expected %d", row.Index, len(rows)))
		}
		if err := ValidateEntryPath(row.Entry.Path); err != nil {
			return nil, &CorruptionError{Path: row.Entry.Path, Message: err.Error(), Err: ErrUnsafePath}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func writeTrailer(w io.Writer, tocStart uint64) error {
	var b [TrailerSize]byte
	binary.LittleEndian.PutUint64(b[:], tocStart)
	_, err := w.Write(b[:])
	return err
}

// readTrailer returns the TOC start and the archive size. The trailer must
// leave room for the salt and a minimal block before itself.
func readTrailer(r io.ReadSeeker) (tocStart uint64, size int64, err error) {
	size, err = r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, 0, NewIOError("seek", "", err)
	}
	if size < TrailerSize {
		return 0, size, NewCorruptionError("", ErrInvalidTrailer, fmt.Sprintf("archive of %d bytes has no trailer", size))
	}
	if _, err := r.Seek(size-TrailerSize, io.SeekStart); err != nil {
		return 0, size, NewIOError("seek", "", err)
	}
	var b [TrailerSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, size, readErr(err, "trailer")
	}
	tocStart = binary.LittleEndian.Uint64(b[:])

	limit := uint64(size - TrailerSize)
	if tocStart > limit || limit-tocStart < SaltSize+blockHeaderSize+TagSize {
		return 0, size, NewCorruptionError("", ErrInvalidTrailer,
			fmt.Sprintf("trailer points at %d, outside the %d byte archive", tocStart, size))
	}
	return tocStart, size, nil
}
