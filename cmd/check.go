package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/errors"
)

// problemRow is a layout problem as printed by check.
type problemRow struct {
	Severity string `json:"severity" yaml:"severity"`
	Course   string `json:"course" yaml:"course"`
	File     string `json:"file,omitempty" yaml:"file,omitempty"`
	Code     string `json:"code" yaml:"code"`
	Message  string `json:"message" yaml:"message"`
}

func (c *cli) newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "check",
		Aliases: []string{"validate"},
		Short:   "Validate the content layout",
		Long: `Walk every course and report layout problems: missing landing pages,
badly numbered lesson files, subtopics without a topic and front matter
that does not parse. Warnings are files that will be ignored.

The command fails when any error is found, so it can gate CI.

Examples:
  syllabus check              # Report problems as a table
  syllabus check -o json      # Output as JSON
  syllabus check -q           # Only the exit status`,
		Args: cobra.NoArgs,
		RunE: c.runCheck,
	}

	AddStandardFlags(cmd, "output")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, listFormats)
	})
	return cmd
}

func (c *cli) runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	resolver := content.NewDirResolver(cfg.Content.Root,
		content.WithAssetDir(cfg.Content.AssetDir),
		content.WithLogger(logger),
	)
	failed, err := checkContent(cmd, resolver)
	if err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("content check failed for %s", cfg.Content.Root)
	}
	return nil
}

// checkContent runs the layout check and prints its report in the -o
// format unless -q is set. It reports whether any error was found.
func checkContent(cmd *cobra.Command, resolver *content.Resolver) (bool, error) {
	collector, err := resolver.Check(cmd.Context())
	if err != nil {
		return false, err
	}

	rows := problemRows(collector.Problems())
	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		format, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		switch strings.ToLower(format) {
		case "json":
			err = outputJSON(out, rows)
		case "yaml":
			err = outputYAML(out, rows)
		default:
			err = outputProblemTable(out, rows)
		}
		if err != nil {
			return false, err
		}
	}
	return collector.HasErrors(), nil
}

func problemRows(problems []errors.Problem) []problemRow {
	rows := make([]problemRow, 0, len(problems))
	for _, p := range problems {
		rows = append(rows, problemRow{
			Severity: p.Severity.String(),
			Course:   p.Course,
			File:     p.File,
			Code:     p.Code,
			Message:  p.Message,
		})
	}
	return rows
}

func outputProblemTable(w io.Writer, rows []problemRow) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "✅ No problems found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SEVERITY\tCOURSE\tFILE\tCODE\tMESSAGE")
	for _, r := range rows {
		file := r.File
		if file == "" {
			file = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Severity, r.Course, file, r.Code, r.Message)
	}
	return tw.Flush()
}
