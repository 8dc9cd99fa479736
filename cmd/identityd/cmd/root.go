// Package cmd provides the CLI commands for identityd.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aegisgate/identityd/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "identityd",
	Short: "identityd - identity, token and policy decision service",
	Long: `identityd issues bearer tokens, provisions users and groups under a
SCIM-style schema, and decides whether a request is permitted under an
attribute-based access control policy.

Configuration is read from environment variables (JWT_SECRET, JWT_ALG,
POLICIES_PATH, DB_PATH, LOG_LEVEL, HTTP_PORT, ...) and, optionally, a YAML
file pointed to by --config or CONFIG_FILE.

Commands:
  serve          Start the HTTP server
  policies dump  Load and print the parsed policy document as YAML
  version        Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./identityd.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
