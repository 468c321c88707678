package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/dmitrijs2005/textli/internal/server/auth"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for the funds endpoint",
	Long: `Mint an HS256 token accepted by POST /admin/funds.
The admin secret is read from the terminal without echo.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := readSecret(cmd.ErrOrStderr())
		if err != nil {
			return fmt.Errorf("error reading secret: %w", err)
		}
		defer common.WipeBytes(secret)

		if len(secret) == 0 {
			return fmt.Errorf("empty secret")
		}

		tok, err := auth.GenerateToken(tokenSubject, secret, tokenTTL)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func readSecret(w io.Writer) ([]byte, error) {
	if _, err := fmt.Fprint(w, "Admin secret: "); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "billing", "Subject claim naming the caller")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
