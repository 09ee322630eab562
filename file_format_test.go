package sonorous

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestRows_RoundTrip(t *testing.T) {
	rows := []Row{
		{Index: 0, Start: 0, Entry: Entry{Path: "a.txt", IsLeaf: true}},
		{Index: 1, Start: 120, Entry: Entry{Path: "sub"}},
		{Index: 2, Start: 120, Entry: Entry{Path: "sub/b.txt", IsLeaf: true}},
		{Index: 3, Start: 250, Entry: Entry{Path: "sub/ünïcødé 文件.txt", IsLeaf: true}},
	}

	buf, err := marshalRows(rows)
	if err != nil {
		t.Fatalf("marshalRows failed: %v", err)
	}

	want := 0
	for _, r := range rows {
		want += rowFixedSize + len(r.Entry.Path)
	}
	if len(buf) != want {
		t.Errorf("serialized size = %d, want %d", len(buf), want)
	}

	got, err := parseRows(buf)
	if err != nil {
		t.Fatalf("parseRows failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("parsed %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
}

func TestRows_ByteLayout(t *testing.T) {
	buf, err := marshalRows([]Row{{Index: 7, Start: 0x0102030405060708, Entry: Entry{Path: "ab", IsLeaf: true}}})
	if err != nil {
		t.Fatalf("marshalRows failed: %v", err)
	}
	want := []byte{
		0x07, 0x00, 0x00, 0x00,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		0x01,
		0x02, 0x00, 0x00, 0x00,
		'a', 'b',
	}
	if !bytes.Equal(buf, want) {
		t.Errorf("layout = % x\nwant     % x", buf, want)
	}
}

func TestRows_Empty(t *testing.T) {
	rows, err := parseRows(nil)
	if err != nil {
		t.Fatalf("parseRows(nil) failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("parsed %d rows from empty table", len(rows))
	}
}

func rawRow(index uint32, start uint64, leaf byte, p []byte) []byte {
	b := binary.LittleEndian.AppendUint32(nil, index)
	b = binary.LittleEndian.AppendUint64(b, start)
	b = append(b, leaf)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(p)))
	return append(b, p...)
}

func TestRows_Malformed(t *testing.T) {
	valid := rawRow(0, 0, 1, []byte("a"))

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{"truncated fixed part", valid[:7], ErrTruncatedInput},
		{"truncated path", valid[:len(valid)-1], ErrTruncatedInput},
		{"path length past end", append(rawRow(0, 0, 1, nil)[:13], 0xff, 0xff, 0, 0), ErrTruncatedInput},
		{"bad boolean", rawRow(0, 0, 2, []byte("a")), ErrMalformedTable},
		{"invalid utf-8", rawRow(0, 0, 1, []byte{0xff, 0xfe}), ErrMalformedTable},
		{"index gap", append(bytes.Clone(valid), rawRow(2, 0, 1, []byte("b"))...), ErrMalformedTable},
		{"index not from zero", rawRow(1, 0, 1, []byte("a")), ErrMalformedTable},
		{"absolute path", rawRow(0, 0, 1, []byte("/etc/passwd")), ErrUnsafePath},
		{"parent escape", rawRow(0, 0, 1, []byte("../x")), ErrUnsafePath},
		{"unclean path", rawRow(0, 0, 1, []byte("a//b")), ErrUnsafePath},
		{"empty path", rawRow(0, 0, 0, nil), ErrUnsafePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseRows(tt.buf)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			if !IsCorruptionError(err) {
				t.Errorf("error type = %T, want *CorruptionError", err)
			}
		})
	}
}

func TestMarshalRows_InvalidUTF8(t *testing.T) {
	_, err := marshalRows([]Row{{Entry: Entry{Path: string([]byte{0xc3, 0x28})}}})
	if !IsValidationError(err) {
		t.Errorf("error = %v, want validation error", err)
	}
}

func TestTrailer(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write(make([]byte, 100))
		if err := writeTrailer(&buf, 10); err != nil {
			t.Fatalf("writeTrailer failed: %v", err)
		}
		start, size, err := readTrailer(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("readTrailer failed: %v", err)
		}
		if start != 10 || size != 108 {
			t.Errorf("readTrailer = (%d, %d), want (10, 108)", start, size)
		}
	})

	tests := []struct {
		name     string
		body     int
		tocStart uint64
	}{
		{"points past end", 100, 1000},
		{"points at trailer", 100, 100},
		{"no room for table", 100, 100 - SaltSize},
		{"huge", 100, ^uint64(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			buf.Write(make([]byte, tt.body))
			writeTrailer(&buf, tt.tocStart)
			_, _, err := readTrailer(bytes.NewReader(buf.Bytes()))
			if !errors.Is(err, ErrInvalidTrailer) {
				t.Errorf("error = %v, want ErrInvalidTrailer", err)
			}
		})
	}

	t.Run("file shorter than trailer", func(t *testing.T) {
		_, _, err := readTrailer(bytes.NewReader([]byte{1, 2, 3}))
		if !errors.Is(err, ErrInvalidTrailer) {
			t.Errorf("error = %v, want ErrInvalidTrailer", err)
		}
	})
}
