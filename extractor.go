package sonorous

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/absfs/absfs"
	"github.com/google/uuid"
	"github.com/opencontainers/go-digest"
)

// Archive is an archive opened for reading. Its table of contents has been
// authenticated; entry bodies are authenticated chunk by chunk as they are
// read.
type Archive struct {
	name  string
	r     io.ReadSeeker
	owned io.Closer
	table *FileTable
	codec *BlockCodec
}

// ExtractStats summarizes a finished extraction
type ExtractStats struct {
	Files int
	Dirs  int
	Bytes int64
}

// VerifyResult describes one stored file checked by Verify
type VerifyResult struct {
	Row    Row
	Size   int64
	Digest digest.Digest
}

// Open opens the archive name on fsys. The archive file is closed by
// Archive.Close, or immediately if the table cannot be read.
func Open(fsys absfs.FileSystem, name string, password []byte) (*Archive, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, NewIOError("open", name, err)
	}
	a, err := openArchive(f, name, password)
	if err != nil {
		f.Close()
		return nil, err
	}
	a.owned = f
	return a, nil
}

// OpenReader opens an archive held by r. r must stay valid until Close.
func OpenReader(r io.ReadSeeker, password []byte) (*Archive, error) {
	return openArchive(r, "", password)
}

func openArchive(r io.ReadSeeker, name string, password []byte) (*Archive, error) {
	table, err := ReadFileTable(r, password)
	if err != nil {
		return nil, err
	}
	codec, err := table.Codec()
	if err != nil {
		table.Close()
		return nil, err
	}
	return &Archive{name: name, r: r, table: table, codec: codec}, nil
}

// Entries returns the table of contents in stored order, or nil once the
// archive is closed
func (a *Archive) Entries() []Row {
	if a.table == nil {
		return nil
	}
	return a.table.Rows()
}

// Close destroys the key and closes the archive file if Open created it
func (a *Archive) Close() error {
	if a.table == nil {
		return nil
	}
	a.table.Close()
	a.table = nil
	a.codec = nil
	if a.owned != nil {
		return a.owned.Close()
	}
	return nil
}

// WriteEntry decrypts the body of leaf row into dst
func (a *Archive) WriteEntry(row Row, dst io.Writer, progress ProgressFunc) (int64, error) {
	if a.table == nil {
		return 0, ErrArchiveClosed
	}
	if !row.Entry.IsLeaf {
		return 0, NewValidationError("row", row.Entry.Path, "directory entries have no body")
	}
	if _, err := a.r.Seek(int64(row.Start), io.SeekStart); err != nil {
		return 0, &IOError{Operation: "seek", Path: a.name, Offset: int64(row.Start), Message: err.Error(), Err: err}
	}
	body := io.LimitReader(a.r, int64(a.table.TOCStart()-row.Start))
	br := bufio.NewReaderSize(body, ChunkSize+blockHeaderSize+TagSize+1)
	return decodeFileBody(br, dst, a.codec, row.Entry.Path, progress)
}

// ExtractTo recreates the stored tree below root on dst, in stored order.
// Directories are created as needed; an existing non-directory where a
// directory is required fails with ErrFilesystemConflict.
func (a *Archive) ExtractTo(dst absfs.FileSystem, root string, cfg *ExtractConfig) (*ExtractStats, error) {
	if cfg == nil {
		cfg = &ExtractConfig{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if a.table == nil {
		return nil, ErrArchiveClosed
	}
	log := cfg.logger()

	if root == "" {
		root = "/"
	}
	if err := ensureDir(dst, root); err != nil {
		return nil, err
	}

	stats := &ExtractStats{}
	for _, row := range a.table.Rows() {
		if !included(row.Entry.Path, cfg.Include) {
			continue
		}
		target := path.Join(root, row.Entry.Path)

		if !row.Entry.IsLeaf {
			if err := ensureDir(dst, target); err != nil {
				return stats, err
			}
			stats.Dirs++
			log.Debug("created directory", slog.String("path", row.Entry.Path))
			continue
		}

		if err := ensureDir(dst, path.Dir(target)); err != nil {
			return stats, err
		}
		n, err := a.extractFile(dst, target, row, cfg.Progress)
		if err != nil {
			return stats, err
		}
		stats.Files++
		stats.Bytes += n
		log.Debug("extracted file",
			slog.String("path", row.Entry.Path),
			slog.Uint64("start", row.Start),
			slog.Int64("bytes", n))
	}

	log.Info("archive extracted",
		slog.Int("files", stats.Files),
		slog.Int("dirs", stats.Dirs),
		slog.Int64("bytes", stats.Bytes))
	return stats, nil
}

// extractFile decrypts row into a staging file next to target and renames
// it into place, so target never holds a partially written body.
func (a *Archive) extractFile(dst absfs.FileSystem, target string, row Row, progress ProgressFunc) (n int64, err error) {
	if info, err := dst.Stat(target); err == nil && info.IsDir() {
		return 0, &IOError{Operation: "create", Path: target, Offset: -1, Message: "a directory occupies the file path", Err: ErrFilesystemConflict}
	}

	staging := path.Join(path.Dir(target), "."+path.Base(target)+"."+uuid.NewString()+".partial")
	f, err := dst.OpenFile(staging, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, NewIOError("create", staging, err)
	}
	defer func() {
		if err != nil {
			dst.Remove(staging)
		}
	}()

	bw := bufio.NewWriterSize(f, ChunkSize)
	n, err = a.WriteEntry(row, bw, progress)
	if err == nil {
		if ferr := bw.Flush(); ferr != nil {
			err = NewIOError("write", target, ferr)
		}
	}
	if cerr := f.Close(); cerr != nil && err == nil {
		err = NewIOError("close", target, cerr)
	}
	if err != nil {
		return 0, err
	}

	if _, serr := dst.Stat(target); serr == nil {
		if err = dst.Remove(target); err != nil {
			return 0, NewIOError("remove", target, err)
		}
	}
	if err = dst.Rename(staging, target); err != nil {
		return 0, NewIOError("rename", target, err)
	}
	return n, nil
}

// Verify authenticates every chunk of every stored file without writing
// anything, calling fn (if non-nil) with the size and sha256 digest of each.
func (a *Archive) Verify(fn func(VerifyResult) error) error {
	if a.table == nil {
		return ErrArchiveClosed
	}
	for _, row := range a.Entries() {
		if !row.Entry.IsLeaf {
			continue
		}
		d := digest.Canonical.Digester()
		n, err := a.WriteEntry(row, d.Hash(), nil)
		if err != nil {
			return err
		}
		if fn != nil {
			if err := fn(VerifyResult{Row: row, Size: n, Digest: d.Digest()}); err != nil {
				return err
			}
		}
	}
	return nil
}

// ensureDir creates dir and any missing parents. It is a no-op for an
// existing directory and fails with ErrFilesystemConflict if any component
// exists as something else.
func ensureDir(fsys absfs.FileSystem, dir string) error {
	info, err := fsys.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return &IOError{Operation: "mkdir", Path: dir, Offset: -1, Message: "a non-directory occupies the path", Err: ErrFilesystemConflict}
		}
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return NewIOError("stat", dir, err)
	}

	if parent := path.Dir(dir); parent != dir {
		if err := ensureDir(fsys, parent); err != nil {
			return err
		}
	}
	if err := fsys.Mkdir(dir, 0755); err != nil {
		// Lost a race with another creator; accept it if it is a directory
		if info, serr := fsys.Stat(dir); serr == nil && info.IsDir() {
			return nil
		}
		return NewIOError("mkdir", dir, err)
	}
	return nil
}

// included reports whether p is selected by the include prefixes
func included(p string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	for _, prefix := range include {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
