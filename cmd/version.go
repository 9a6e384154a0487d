package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/version"
)

func (c *cli) newVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the version, commit and build details of this binary.

Examples:
  syllabus version            # Human readable
  syllabus version --short    # Version only
  syllabus version -o json    # Output as JSON`,
		Args: cobra.NoArgs,
		RunE: runVersion,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text|json|yaml)")
	cmd.Flags().Bool("short", false, "Print the short version only")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, versionFormats)
	})
	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	if short, _ := cmd.Flags().GetBool("short"); short {
		fmt.Fprintln(out, version.GetShortVersion())
		return nil
	}

	format, _ := cmd.Flags().GetString("output")
	text, err := version.Format(version.GetBuildInfo(), format)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}
