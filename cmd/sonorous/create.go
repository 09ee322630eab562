package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <DIR> <ARCHIVE>",
		Short: "Archive and encrypt a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runCreate,
	}
	cmd.Flags().IntVar(&a.workers, "workers", 0, "Goroutines sealing chunks of one file (default from config, else the CPU count)")
	return cmd
}

func (a *app) runCreate(cmd *cobra.Command, args []string) error {
	srcDir, archivePath := args[0], args[1]

	src, err := sonorous.NewOSFS(srcDir)
	if err != nil {
		return err
	}
	entries, err := sonorous.Walk(src, "/")
	if err != nil {
		return err
	}

	dst, name, err := hostFile(archivePath)
	if err != nil {
		return err
	}
	if _, err := dst.Stat(name); err == nil {
		return fmt.Errorf("%s: %w", archivePath, sonorous.ErrOutputExists)
	}

	var total int64
	for _, e := range entries {
		if !e.IsLeaf {
			continue
		}
		info, err := src.Stat("/" + e.Path)
		if err != nil {
			return sonorous.NewIOError("stat", e.Path, err)
		}
		total += info.Size()
	}

	password, err := a.password(cmd, true)
	if err != nil {
		return err
	}
	defer clear(password)

	bar, progress := a.progressBar(cmd, total, "sealing")
	stats, err := sonorous.Create(dst, name, src, "/", entries, password, &sonorous.Config{
		Logger:   a.logger,
		Workers:  a.cfg.Workers,
		Progress: progress,
	})
	finish(bar)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s: %d files, %d directories (%d bytes)\n",
		archivePath, stats.Files, stats.Dirs, stats.Bytes)
	return nil
}

// hostFile splits an OS path into a filesystem rooted at its directory and
// the slash name of the file within it.
func hostFile(p string) (*sonorous.OSFS, string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, "", err
	}
	fs, err := sonorous.NewOSFS(filepath.Dir(abs))
	if err != nil {
		return nil, "", err
	}
	return fs, "/" + filepath.Base(abs), nil
}

// openArchive prompts for the password and opens the archive at p
func (a *app) openArchive(cmd *cobra.Command, p string) (*sonorous.Archive, error) {
	fs, name, err := hostFile(p)
	if err != nil {
		return nil, err
	}
	if _, err := fs.Stat(name); err != nil {
		return nil, sonorous.NewIOError("open", p, err)
	}
	password, err := a.password(cmd, false)
	if err != nil {
		return nil, err
	}
	defer clear(password)
	return sonorous.Open(fs, name, password)
}
