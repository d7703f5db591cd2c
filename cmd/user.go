package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"book-review/database"
	"book-review/logging"
	"book-review/services"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

func newUserCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage users",
	}
	cmd.AddCommand(newUserAddCmd(opts))
	return cmd
}

func newUserAddCmd(opts *rootOptions) *cobra.Command {
	var username, password string

	c := &cobra.Command{
		Use:   "add",
		Short: "Add a user (prompts for the password when --password is omitted)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}

			if password == "" {
				password, err = promptPassword(cmd.ErrOrStderr(), cmd.InOrStdin())
				if err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			store, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer database.Close(store, storeCloseTimeout)

			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}

			auth := services.NewAuthService(store, nil, logging.NewNop())
			id, err := auth.Signup(ctx, username, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %q (%s)\n", username, id)
			return nil
		},
	}

	c.Flags().StringVar(&username, "username", "", "username")
	c.Flags().StringVar(&password, "password", "", "password")
	_ = c.MarkFlagRequired("username")
	return c
}

// promptPassword reads a password without echo when in is a terminal, and a
// plain line otherwise.
func promptPassword(w io.Writer, in io.Reader) (string, error) {
	fmt.Fprint(w, "Password: ")
	defer fmt.Fprintln(w)

	if f, ok := in.(*os.File); ok && isTerminal(int(f.Fd())) {
		b, err := readPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
