package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <ARCHIVE>",
		Short: "Authenticate every stored chunk without extracting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runVerify(cmd, args[0])
		},
	}
}

func (a *app) runVerify(cmd *cobra.Command, archivePath string) error {
	ar, err := a.openArchive(cmd, archivePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	var files int
	var size int64
	err = ar.Verify(func(r sonorous.VerifyResult) error {
		files++
		size += r.Size
		a.logger.Debug("verified file",
			slog.String("path", r.Row.Entry.Path),
			slog.Int64("bytes", r.Size),
			slog.String("digest", r.Digest.String()))
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s (%d entries, %d files, %d bytes)\n",
		archivePath, len(ar.Entries()), files, size)
	return nil
}
