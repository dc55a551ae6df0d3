package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"authd/cmd/security/password"
)

// NewHashPasswordCmd creates the hash-password subcommand. It reads one
// password line from stdin so the secret never appears in shell history.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin",
		Long: `Read a single line from stdin and print its hash using the configured
algorithm (AUTHD_PASSWORD_ALGORITHM, AUTHD_BCRYPT_COST, ...).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := password.FromEnv()
			if err != nil {
				return err
			}

			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return errors.New("hash-password: no input on stdin")
			}
			plain := strings.TrimRight(line, "\r\n")

			hash, err := cfg.Hash(plain)
			if err != nil {
				return fmt.Errorf("hash-password: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
