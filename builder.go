package sonorous

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/absfs/absfs"
)

// BuildStats summarizes a finished build
type BuildStats struct {
	Entries  int    // Rows written to the table of contents
	Files    int    // Leaf entries
	Dirs     int    // Directory entries
	Bytes    int64  // Plaintext file bytes stored
	TOCStart uint64 // Offset of the table of contents
}

// positionWriter tracks the offset of the next byte written
type positionWriter struct {
	w   io.Writer
	pos uint64
}

func (p *positionWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.pos += uint64(n)
	return n, err
}

// Build writes an archive of entries, read from src below root, to w.
// Entry paths are relative to root. The output starts at offset 0 of w.
func Build(w io.Writer, src absfs.FileSystem, root string, entries []Entry, password []byte, cfg *Config) (*BuildStats, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if src == nil {
		return nil, errors.New("source filesystem cannot be nil")
	}
	if err := ValidateEntries(entries); err != nil {
		return nil, err
	}
	log := cfg.logger()

	table, codec, err := newSealingTable(password)
	if err != nil {
		return nil, err
	}
	defer table.Close()

	out := &positionWriter{w: w}
	stats := &BuildStats{}
	for _, e := range entries {
		row := table.Add(e, out.pos)
		if !e.IsLeaf {
			stats.Dirs++
			log.Debug("stored directory", slog.String("path", e.Path), slog.Uint64("index", uint64(row.Index)))
			continue
		}

		n, err := storeFile(out, src, path.Join(root, e.Path), e.Path, codec, cfg)
		if err != nil {
			return nil, err
		}
		stats.Files++
		stats.Bytes += n
		log.Debug("stored file",
			slog.String("path", e.Path),
			slog.Uint64("index", uint64(row.Index)),
			slog.Uint64("start", row.Start),
			slog.Int64("bytes", n))
	}

	stats.TOCStart = out.pos
	stats.Entries = table.Len()
	if err := table.WriteAt(out, out.pos); err != nil {
		return nil, err
	}

	log.Info("archive built",
		slog.Int("entries", stats.Entries),
		slog.Int64("bytes", stats.Bytes),
		slog.Uint64("toc_start", stats.TOCStart))
	return stats, nil
}

// newSealingTable derives a key for password under a fresh salt and returns
// an empty table owning it, plus a codec for the entry bodies.
func newSealingTable(password []byte) (*FileTable, *BlockCodec, error) {
	salt, err := GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	key, err := DeriveKey(salt, password)
	if err != nil {
		return nil, nil, err
	}
	table, err := NewFileTable(key, salt)
	if err != nil {
		key.Destroy()
		return nil, nil, err
	}
	codec, err := table.Codec()
	if err != nil {
		table.Close()
		return nil, nil, err
	}
	return table, codec, nil
}

func storeFile(w io.Writer, src absfs.FileSystem, name, entryPath string, codec *BlockCodec, cfg *Config) (int64, error) {
	f, err := src.Open(name)
	if err != nil {
		return 0, NewIOError("open", entryPath, err)
	}
	defer f.Close()
	return sealBody(w, f, entryPath, codec, cfg)
}

// sealBody encodes src as the body of entryPath, in parallel when
// cfg.Workers allows it.
func sealBody(w io.Writer, src io.Reader, entryPath string, codec *BlockCodec, cfg *Config) (int64, error) {
	if cfg.Workers > 1 {
		return encodeFileBodyParallel(w, src, codec, entryPath, cfg.Workers, cfg.Progress)
	}
	return encodeFileBody(w, src, codec, entryPath, cfg.Progress)
}

// Create builds an archive into the new file output on dst. It fails with
// ErrOutputExists rather than overwrite an existing path. A failed build
// removes the partial output, which would have no valid trailer.
func Create(dst absfs.FileSystem, output string, src absfs.FileSystem, root string, entries []Entry, password []byte, cfg *Config) (*BuildStats, error) {
	return writeArchiveFile(dst, output, cfg, func(w io.Writer) (*BuildStats, error) {
		return Build(w, src, root, entries, password, cfg)
	})
}

// writeArchiveFile creates output on dst exclusively and fills it with
// write. The file is synced on success and removed on any failure.
func writeArchiveFile(dst absfs.FileSystem, output string, cfg *Config, write func(io.Writer) (*BuildStats, error)) (stats *BuildStats, err error) {
	if dst == nil {
		return nil, errors.New("destination filesystem cannot be nil")
	}
	if _, err := dst.Stat(output); err == nil {
		return nil, &IOError{Operation: "create", Path: output, Offset: -1, Message: "refusing to overwrite", Err: ErrOutputExists}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, NewIOError("stat", output, err)
	}

	f, err := dst.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, &IOError{Operation: "create", Path: output, Offset: -1, Message: "refusing to overwrite", Err: ErrOutputExists}
		}
		return nil, NewIOError("create", output, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = NewIOError("close", output, cerr)
		}
		if err != nil {
			stats = nil
			if rerr := dst.Remove(output); rerr != nil {
				cfg.logger().Warn("failed to remove partial archive",
					slog.String("path", output), slog.Any("error", rerr))
			}
		}
	}()

	bw := bufio.NewWriterSize(f, ChunkSize+blockHeaderSize+TagSize+1)
	stats, err = write(bw)
	if err != nil {
		return nil, err
	}
	if err := bw.Flush(); err != nil {
		return nil, NewIOError("write", output, err)
	}
	if err := f.Sync(); err != nil {
		return nil, NewIOError("sync", output, err)
	}
	return stats, nil
}
