package sonorous

import (
	"bytes"
	"io"
	"path"
	"sort"
	"testing"

	"github.com/absfs/absfs"
	"github.com/absfs/memfs"
)

func newMemFS(t testing.TB) absfs.FileSystem {
	t.Helper()
	fs, err := memfs.NewFS()
	if err != nil {
		t.Fatalf("Failed to create memfs: %v", err)
	}
	return fs
}

// writeTree creates files below root. Keys ending in "/" are directories.
func writeTree(t testing.TB, fs absfs.FileSystem, root string, files map[string][]byte) {
	t.Helper()
	if err := fs.MkdirAll(root, 0755); err != nil {
		t.Fatalf("MkdirAll(%q) failed: %v", root, err)
	}
	for name, content := range files {
		full := path.Join(root, name)
		if name[len(name)-1] == '/' {
			if err := fs.MkdirAll(full, 0755); err != nil {
				t.Fatalf("MkdirAll(%q) failed: %v", full, err)
			}
			continue
		}
		if err := fs.MkdirAll(path.Dir(full), 0755); err != nil {
			t.Fatalf("MkdirAll(%q) failed: %v", path.Dir(full), err)
		}
		f, err := fs.Create(full)
		if err != nil {
			t.Fatalf("Create(%q) failed: %v", full, err)
		}
		if _, err := f.Write(content); err != nil {
			f.Close()
			t.Fatalf("Write to %q failed: %v", full, err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close(%q) failed: %v", full, err)
		}
	}
}

func readFile(t testing.TB, fs absfs.FileSystem, name string) []byte {
	t.Helper()
	f, err := fs.Open(name)
	if err != nil {
		t.Fatalf("Open(%q) failed: %v", name, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll(%q) failed: %v", name, err)
	}
	return data
}

// buildArchive walks root on src and returns the archive bytes
func buildArchive(t testing.TB, src absfs.FileSystem, root, password string, cfg *Config) ([]byte, []Entry) {
	t.Helper()
	entries, err := Walk(src, root)
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	var buf bytes.Buffer
	if _, err := Build(&buf, src, root, entries, []byte(password), cfg); err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return buf.Bytes(), entries
}

func openArchiveBytes(t testing.TB, data []byte, password string) *Archive {
	t.Helper()
	a, err := OpenReader(bytes.NewReader(data), []byte(password))
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

// pattern returns n bytes of a repeating, position dependent pattern
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) ^ seed
	}
	return b
}

func entryPaths(entries []Entry) []string {
	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}
	return paths
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func testKey(t testing.TB) *Key {
	t.Helper()
	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("GenerateSalt failed: %v", err)
	}
	key, err := DeriveKey(salt, []byte("test-password"))
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	t.Cleanup(key.Destroy)
	return key
}

func testCodec(t testing.TB) *BlockCodec {
	t.Helper()
	codec, err := NewBlockCodec(testKey(t))
	if err != nil {
		t.Fatalf("NewBlockCodec failed: %v", err)
	}
	return codec
}
