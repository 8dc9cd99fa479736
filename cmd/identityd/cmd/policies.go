package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aegisgate/identityd/internal/domain/policy"
)

var policiesDumpPath string

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Inspect the policy document",
}

var policiesDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Load a policy document and print the parsed rule set as YAML",
	Long: `Dump loads and validates the policy document the same way the server
does at startup, then prints the resulting rule set as YAML — useful for
reviewing the effective, parsed predicates (and the implicit DEFAULT-DENY-01
terminal rule) without reasoning through the JSON grammar by hand.`,
	RunE: runPoliciesDump,
}

func init() {
	policiesDumpCmd.Flags().StringVar(&policiesDumpPath, "path", "policies.json", "path to the policy document")
	policiesCmd.AddCommand(policiesDumpCmd)
	rootCmd.AddCommand(policiesCmd)
}

func runPoliciesDump(cmd *cobra.Command, args []string) error {
	loader := policy.NewLoader(policiesDumpPath)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("load policies: %w", err)
	}

	ps := loader.Current()
	out, err := yaml.Marshal(ps.Policies())
	if err != nil {
		return fmt.Errorf("marshal policies: %w", err)
	}

	_, err = os.Stdout.Write(out)
	return err
}
