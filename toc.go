package sonorous

import (
	"bytes"
	"fmt"
	"io"
)

// FileTable is the table of contents of an archive together with the key
// and salt it is sealed with. It owns the key; Close destroys it.
type FileTable struct {
	rows     []Row
	key      *Key
	salt     []byte
	tocStart uint64
}

// NewFileTable creates an empty table that takes ownership of key
func NewFileTable(key *Key, salt []byte) (*FileTable, error) {
	if err := ValidateSalt(salt); err != nil {
		return nil, err
	}
	if key == nil || key.Destroyed() {
		return nil, ErrInvalidKey
	}
	return &FileTable{key: key, salt: bytes.Clone(salt)}, nil
}

// Add appends a row for e whose body starts at start. Indices are assigned
// densely in call order.
func (t *FileTable) Add(e Entry, start uint64) Row {
	row := Row{Index: uint32(len(t.rows)), Start: start, Entry: e}
	t.rows = append(t.rows, row)
	return row
}

// Rows returns the rows in stored order
func (t *FileTable) Rows() []Row {
	return t.rows
}

// Len returns the number of rows
func (t *FileTable) Len() int {
	return len(t.rows)
}

// Salt returns a copy of the table salt
func (t *FileTable) Salt() []byte {
	return bytes.Clone(t.salt)
}

// TOCStart returns the offset the table was read from or written at
func (t *FileTable) TOCStart() uint64 {
	return t.tocStart
}

// Codec returns a block codec under the table key
func (t *FileTable) Codec() (*BlockCodec, error) {
	return NewBlockCodec(t.key)
}

// WriteAt writes salt, sealed rows and trailer to w, which is positioned at
// offset pos. The trailer always ends the output.
func (t *FileTable) WriteAt(w io.Writer, pos uint64) error {
	t.tocStart = pos

	if _, err := w.Write(t.salt); err != nil {
		return NewIOError("write", "", fmt.Errorf("failed to write salt: %w", err))
	}

	plain, err := marshalRows(t.rows)
	if err != nil {
		return err
	}
	defer clear(plain)

	codec, err := t.Codec()
	if err != nil {
		return err
	}
	if err := codec.WriteBlock(w, plain); err != nil {
		return err
	}

	if err := writeTrailer(w, pos); err != nil {
		return NewIOError("write", "", fmt.Errorf("failed to write trailer: %w", err))
	}
	return nil
}

// Close destroys the key. The table cannot seal or open blocks afterwards.
func (t *FileTable) Close() {
	t.key.Destroy()
}

// ReadFileTable locates the table through the trailer, derives the key from
// the stored salt and password, and decrypts and parses the rows. A wrong
// password fails here with ErrAuthFailed before any entry is touched.
func ReadFileTable(r io.ReadSeeker, password []byte) (*FileTable, error) {
	tocStart, size, err := readTrailer(r)
	if err != nil {
		return nil, err
	}

	if _, err := r.Seek(int64(tocStart), io.SeekStart); err != nil {
		return nil, NewIOError("seek", "", err)
	}
	region := io.LimitReader(r, size-TrailerSize-int64(tocStart))

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(region, salt); err != nil {
		return nil, readErr(err, "salt")
	}

	key, err := DeriveKey(salt, password)
	if err != nil {
		return nil, err
	}
	t := &FileTable{key: key, salt: salt, tocStart: tocStart}

	rows, err := t.readRows(region)
	if err != nil {
		t.Close()
		return nil, err
	}
	t.rows = rows
	return t, nil
}

func (t *FileTable) readRows(region io.Reader) ([]Row, error) {
	codec, err := t.Codec()
	if err != nil {
		return nil, err
	}
	plain, err := codec.ReadBlock(region)
	if err != nil {
		return nil, err
	}
	defer clear(plain)

	rows, err := parseRows(plain)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.Entry.IsLeaf && row.Start >= t.tocStart {
			return nil, NewCorruptionError(row.Entry.Path, ErrMalformedTable,
				fmt.Sprintf("body offset %d lies past the table at %d", row.Start, t.tocStart))
		}
	}
	return rows, nil
}
