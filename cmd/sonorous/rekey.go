package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

func newRekeyCmd(a *app) *cobra.Command {
	var newPasswordEnv string
	cmd := &cobra.Command{
		Use:   "rekey <ARCHIVE> <NEW_ARCHIVE>",
		Short: "Write a copy of an archive encrypted under a new password",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRekey(cmd, args[0], args[1], newPasswordEnv)
		},
	}
	cmd.Flags().StringVar(&newPasswordEnv, "new-password-env", "", "Read the new password from this environment variable instead of prompting")
	cmd.Flags().IntVar(&a.workers, "workers", 0, "Goroutines sealing chunks of one file (default from config, else the CPU count)")
	return cmd
}

func (a *app) runRekey(cmd *cobra.Command, archivePath, newPath, newPasswordEnv string) error {
	dst, name, err := hostFile(newPath)
	if err != nil {
		return err
	}
	if _, err := dst.Stat(name); err == nil {
		return fmt.Errorf("%s: %w", newPath, sonorous.ErrOutputExists)
	}

	ar, err := a.openArchive(cmd, archivePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	password, err := a.readPassword(cmd, newPasswordEnv, "New password", true)
	if err != nil {
		return err
	}
	defer clear(password)

	stats, err := sonorous.RekeyTo(dst, name, ar, password, &sonorous.Config{
		Logger:  a.logger,
		Workers: a.cfg.Workers,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rekeyed %s to %s: %d files, %d directories (%d bytes)\n",
		archivePath, newPath, stats.Files, stats.Dirs, stats.Bytes)
	return nil
}
