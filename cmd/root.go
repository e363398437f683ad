package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the cleany application
var rootCmd = &cobra.Command{
	Use:   "cleany",
	Short: "Tidy your Gmail inbox: unsubscribe, bulk delete, learn your habits",
	Long: `cleany triages a cluttered Gmail inbox. It finds working unsubscribe links
for noisy senders, bulk-deletes their mail (optionally keeping the latest few
messages), and learns your per-sender preferences so future runs can suggest
actions automatically.

System and transactional senders (banks, login codes, receipts) are always
protected from destructive operations.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "cleany version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newUnsubscribeCmd())
	rootCmd.AddCommand(newCleanupCmd())
	rootCmd.AddCommand(newSuggestCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the cleany version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cleany version %s\n", version)
		},
	}
}
