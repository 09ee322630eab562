package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/absfs/sonorous"
)

func newListCmd(a *app) *cobra.Command {
	var withDigest bool
	cmd := &cobra.Command{
		Use:   "list <ARCHIVE>",
		Short: "List the entries of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runList(cmd, args[0], withDigest)
		},
	}
	cmd.Flags().BoolVar(&withDigest, "digest", false, "Decrypt every file and print its size and sha256 digest")
	return cmd
}

func (a *app) runList(cmd *cobra.Command, archivePath string, withDigest bool) error {
	ar, err := a.openArchive(cmd, archivePath)
	if err != nil {
		return err
	}
	defer ar.Close()

	out := cmd.OutOrStdout()
	if !withDigest {
		for _, row := range ar.Entries() {
			if row.Entry.IsLeaf {
				fmt.Fprintln(out, row.Entry.Path)
			} else {
				fmt.Fprintln(out, row.Entry.Path+"/")
			}
		}
		return nil
	}

	return ar.Verify(func(r sonorous.VerifyResult) error {
		_, err := fmt.Fprintf(out, "%s  %d  %s\n", r.Digest, r.Size, r.Row.Entry.Path)
		return err
	})
}
