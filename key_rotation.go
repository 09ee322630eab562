package sonorous

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/absfs/absfs"
	"golang.org/x/sync/errgroup"
)

// Rekey writes a copy of a to w sealed under newPassword with a fresh salt.
// Entries keep their order and paths. Every body is decrypted and resealed
// chunk by chunk, so a damaged source chunk fails the rekey with the same
// error extraction would report. The source archive is left untouched; w
// must not write into it.
func Rekey(w io.Writer, a *Archive, newPassword []byte, cfg *Config) (*BuildStats, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if a == nil || a.table == nil {
		return nil, ErrArchiveClosed
	}
	log := cfg.logger()

	table, codec, err := newSealingTable(newPassword)
	if err != nil {
		return nil, err
	}
	defer table.Close()

	out := &positionWriter{w: w}
	stats := &BuildStats{}
	for _, row := range a.Entries() {
		table.Add(row.Entry, out.pos)
		if !row.Entry.IsLeaf {
			stats.Dirs++
			continue
		}

		n, err := a.resealEntry(out, row, codec, cfg)
		if err != nil {
			return nil, err
		}
		stats.Files++
		stats.Bytes += n
		log.Debug("resealed file",
			slog.String("path", row.Entry.Path),
			slog.Uint64("old_start", row.Start),
			slog.Int64("bytes", n))
	}

	stats.TOCStart = out.pos
	stats.Entries = table.Len()
	if err := table.WriteAt(out, out.pos); err != nil {
		return nil, err
	}

	log.Info("archive rekeyed",
		slog.Int("entries", stats.Entries),
		slog.Int64("bytes", stats.Bytes))
	return stats, nil
}

// RekeyTo writes the rekeyed copy of a into the new file output on dst,
// with the same overwrite refusal and partial-output removal as Create
func RekeyTo(dst absfs.FileSystem, output string, a *Archive, newPassword []byte, cfg *Config) (*BuildStats, error) {
	return writeArchiveFile(dst, output, cfg, func(w io.Writer) (*BuildStats, error) {
		return Rekey(w, a, newPassword, cfg)
	})
}

// resealEntry pipes the decrypted body of row into a new body sealed by codec
func (a *Archive) resealEntry(w io.Writer, row Row, codec *BlockCodec, cfg *Config) (int64, error) {
	pr, pw := io.Pipe()

	var g errgroup.Group
	g.Go(func() error {
		_, err := a.WriteEntry(row, pw, nil)
		pw.CloseWithError(err)
		return err
	})

	n, sealErr := sealBody(w, pr, row.Entry.Path, codec, cfg)
	// Unblocks the reader if sealing stopped early
	pr.Close()

	// A source failure explains a seal failure; a closed pipe does not
	if openErr := g.Wait(); openErr != nil && !errors.Is(openErr, io.ErrClosedPipe) {
		return n, openErr
	}
	return n, sealErr
}
