package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var configFormats = []string{"yaml", "json"}

func (c *cli) newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the syllabus configuration",
		Long: `Inspect the configuration resolved from defaults, the config file,
SYLLABUS_ environment variables and flags.

Examples:
  syllabus config show              # Effective configuration as YAML
  syllabus config show -o json      # ... as JSON
  syllabus config validate          # Fail when the configuration is invalid`,
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE:  c.runConfigShow,
	}
	show.Flags().StringP("output", "o", "yaml", "Output format (yaml|json)")
	AddFlagValidation(show, "output", func(format string) error {
		return ValidateFormat(format, configFormats)
	})

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check that the configuration loads",
		Args:  cobra.NoArgs,
		RunE:  c.runConfigValidate,
	}

	cmd.AddCommand(show, validate)
	return cmd
}

func (c *cli) runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	format, _ := cmd.Flags().GetString("output")
	if strings.EqualFold(format, "json") {
		return outputJSON(cmd.OutOrStdout(), cfg.Redacted())
	}
	return outputYAML(cmd.OutOrStdout(), cfg.Redacted())
}

func (c *cli) runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if used := c.v.ConfigFileUsed(); used != "" {
		fmt.Fprintf(out, "🔍 Validated %s\n", used)
	}
	fmt.Fprintln(out, "✅ Configuration is valid")
	if !cfg.IsDevelopment() && !cfg.Session.Secure {
		fmt.Fprintln(out, "⚠️  session.secure is off outside development; cookies travel over plain HTTP")
	}
	return nil
}
