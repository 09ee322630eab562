package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// password returns the archive password from the configured environment
// variable, or prompts for it. With confirm set the prompt is repeated and
// both answers must match.
func (a *app) password(cmd *cobra.Command, confirm bool) ([]byte, error) {
	return a.readPassword(cmd, a.cfg.PasswordEnv, "Password", confirm)
}

func (a *app) readPassword(cmd *cobra.Command, env, label string, confirm bool) ([]byte, error) {
	if env != "" {
		pw := a.getenv(env)
		if pw == "" {
			return nil, fmt.Errorf("environment variable %s is empty or unset", env)
		}
		return []byte(pw), nil
	}

	pw, err := a.prompt(cmd.ErrOrStderr(), label+": ")
	if err != nil {
		return nil, err
	}
	if len(pw) == 0 {
		return nil, errors.New("password cannot be empty")
	}
	if !confirm {
		return pw, nil
	}

	again, err := a.prompt(cmd.ErrOrStderr(), "Confirm "+label+": ")
	if err != nil {
		clear(pw)
		return nil, err
	}
	defer clear(again)
	if !bytes.Equal(pw, again) {
		clear(pw)
		return nil, errors.New("passwords do not match")
	}
	return pw, nil
}

func terminalPrompt(w io.Writer, prompt string) ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("standard input is not a terminal; use --password-env")
	}
	fmt.Fprint(w, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return nil, fmt.Errorf("read password: %w", err)
	}
	return pw, nil
}
