package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleanymail/cleany/internal/google"
)

func newAuthCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate a Google account for Gmail access",
		Long: `Run the OAuth flow for a Google account. Opens nothing automatically:
the authorization URL is printed, and the code Google displays after consent
is read from stdin. The resulting token is stored per account under the user
cache directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if google.HasTokenForAccount(account) {
				cmd.Printf("Account %q is already authenticated. Delete its token file to re-authenticate.\n", account)
				return nil
			}

			url, err := google.GetAuthURL()
			if err != nil {
				return err
			}

			cmd.Printf("Open the following URL in your browser and authorize cleany:\n\n  %s\n\n", url)
			cmd.Print("Paste the authorization code here: ")

			reader := bufio.NewReader(os.Stdin)
			code, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read authorization code: %w", err)
			}
			code = strings.TrimSpace(code)
			if code == "" {
				return fmt.Errorf("no authorization code provided")
			}

			if err := google.SaveTokenForAccount(context.Background(), account, code); err != nil {
				return err
			}

			cmd.Printf("Account %q authenticated.\n", account)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", google.DefaultAccount, "Google account name to use")
	return cmd
}
