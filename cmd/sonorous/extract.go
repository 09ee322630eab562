package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

func newExtractCmd(a *app) *cobra.Command {
	var include []string
	cmd := &cobra.Command{
		Use:   "extract <ARCHIVE> <DIR>",
		Short: "Decrypt an archive into a directory, creating it if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, args[0], args[1], include)
		},
	}
	cmd.Flags().StringSliceVar(&include, "include", nil, "Only extract entries equal to or below this archive path (repeatable)")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, archivePath, outDir string, include []string) error {
	ar, err := a.openArchive(cmd, archivePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	dst, err := sonorous.NewOSFS(outDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst.Root(), 0755); err != nil {
		return sonorous.NewIOError("mkdir", outDir, err)
	}

	bar, progress := a.progressBar(cmd, -1, "extracting")
	stats, err := ar.ExtractTo(dst, "/", &sonorous.ExtractConfig{
		Logger:   a.logger,
		Include:  include,
		Progress: progress,
	})
	finish(bar)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Extracted %d files, %d directories (%d bytes) to %s\n",
		stats.Files, stats.Dirs, stats.Bytes, outDir)
	return nil
}
