package sonorous

import (
	"bytes"
	"errors"
	"testing"
)

func writeTable(t *testing.T, password string, prefix int, entries ...Entry) []byte {
	t.Helper()
	salt, _ := GenerateSalt()
	key, err := DeriveKey(salt, []byte(password))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	table, err := NewFileTable(key, salt)
	if err != nil {
		t.Fatalf("NewFileTable failed: %v", err)
	}
	defer table.Close()

	for i, e := range entries {
		table.Add(e, uint64(i))
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, prefix))
	if err := table.WriteAt(&buf, uint64(prefix)); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	return buf.Bytes()
}

func TestFileTable_RoundTrip(t *testing.T) {
	data := writeTable(t, "default_password", 32,
		Entry{Path: "hello", IsLeaf: true},
		Entry{Path: "dir"},
		Entry{Path: "dir/world", IsLeaf: true},
	)

	table, err := ReadFileTable(bytes.NewReader(data), []byte("default_password"))
	if err != nil {
		t.Fatalf("ReadFileTable failed: %v", err)
	}
	defer table.Close()

	if table.TOCStart() != 32 {
		t.Errorf("TOCStart = %d, want 32", table.TOCStart())
	}
	if !bytes.Equal(table.Salt(), data[32:32+SaltSize]) {
		t.Error("salt not read from the table start")
	}

	rows := table.Rows()
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	first := rows[0]
	if first.Index != 0 || first.Start != 0 || first.Entry.Path != "hello" || !first.Entry.IsLeaf {
		t.Errorf("first row = %+v", first)
	}
	if rows[1].Entry.IsLeaf || rows[1].Entry.Path != "dir" {
		t.Errorf("second row = %+v", rows[1])
	}
	if rows[2].Index != 2 || rows[2].Start != 2 {
		t.Errorf("third row = %+v", rows[2])
	}
}

func TestFileTable_Layout(t *testing.T) {
	data := writeTable(t, "pw", 10, Entry{Path: "x", IsLeaf: true})

	// salt, block(header + one row + tag), trailer
	want := 10 + SaltSize + blockHeaderSize + rowFixedSize + 1 + TagSize + TrailerSize
	if len(data) != want {
		t.Errorf("archive size = %d, want %d", len(data), want)
	}
	start, _, err := readTrailer(bytes.NewReader(data))
	if err != nil || start != 10 {
		t.Errorf("trailer = %d, %v, want 10", start, err)
	}
}

func TestFileTable_Empty(t *testing.T) {
	data := writeTable(t, "pw", 0)

	table, err := ReadFileTable(bytes.NewReader(data), []byte("pw"))
	if err != nil {
		t.Fatalf("ReadFileTable failed: %v", err)
	}
	defer table.Close()
	if table.Len() != 0 {
		t.Errorf("got %d rows, want 0", table.Len())
	}
}

func TestFileTable_WrongPassword(t *testing.T) {
	data := writeTable(t, "pw1", 0, Entry{Path: "a", IsLeaf: true})

	_, err := ReadFileTable(bytes.NewReader(data), []byte("pw2"))
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("error = %v, want ErrAuthFailed", err)
	}
}

func TestFileTable_Tampered(t *testing.T) {
	data := writeTable(t, "pw", 0, Entry{Path: "a", IsLeaf: true})

	tests := []struct {
		name string
		pos  int
		want error
	}{
		{"salt", 3, ErrAuthFailed},
		{"nonce", SaltSize + 1, ErrAuthFailed},
		{"ciphertext", SaltSize + blockHeaderSize + 2, ErrAuthFailed},
		{"tag", len(data) - TrailerSize - 1, ErrAuthFailed},
		{"length", SaltSize + NonceSize, ErrTruncatedInput},
		{"trailer", len(data) - 1, ErrInvalidTrailer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tampered := bytes.Clone(data)
			tampered[tt.pos] ^= 0x10
			_, err := ReadFileTable(bytes.NewReader(tampered), []byte("pw"))
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestFileTable_LeafPastTable(t *testing.T) {
	salt, _ := GenerateSalt()
	key, _ := DeriveKey(salt, []byte("pw"))
	table, err := NewFileTable(key, salt)
	if err != nil {
		t.Fatalf("NewFileTable failed: %v", err)
	}
	table.Add(Entry{Path: "a", IsLeaf: true}, 500)

	var buf bytes.Buffer
	if err := table.WriteAt(&buf, 0); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	table.Close()

	_, err = ReadFileTable(bytes.NewReader(buf.Bytes()), []byte("pw"))
	if !errors.Is(err, ErrMalformedTable) {
		t.Errorf("error = %v, want ErrMalformedTable", err)
	}
}

func TestFileTable_CloseDestroysKey(t *testing.T) {
	salt, _ := GenerateSalt()
	key, _ := DeriveKey(salt, []byte("pw"))
	table, err := NewFileTable(key, salt)
	if err != nil {
		t.Fatalf("NewFileTable failed: %v", err)
	}
	table.Close()

	if !key.Destroyed() {
		t.Error("key not destroyed by Close")
	}
	if _, err := table.Codec(); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Codec after Close error = %v, want ErrInvalidKey", err)
	}
	if _, err := NewFileTable(key, salt); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("NewFileTable with destroyed key error = %v, want ErrInvalidKey", err)
	}
}

func TestNewFileTable_BadSalt(t *testing.T) {
	if _, err := NewFileTable(testKey(t), make([]byte, 8)); !IsValidationError(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}
