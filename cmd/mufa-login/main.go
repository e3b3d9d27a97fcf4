package main

import (
	"os"

	"github.com/Innov8rs-paradise/mufa-login/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "mufa-login",
	Short: "Google sign-in service for mufa",
	Long: `mufa-login runs the server side of "Sign in with Google": it redirects
browsers to Google, completes the authorization code flow, registers new users
with the user directory and hands out signed session tokens.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newConfigCmd())
}
