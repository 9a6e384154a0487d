package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/syllabus/internal/content"
)

func (c *cli) newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "List the courses under the content root",
		Long: `List every course with its title, tags and last modification date.

Examples:
  syllabus list                      # Newest first, as a table
  syllabus list --sort A-Z           # Alphabetical by title
  syllabus list --tags go,beginner   # Courses carrying every tag
  syllabus list -o json              # Output as JSON`,
		Args: cobra.NoArgs,
		RunE: c.runList,
	}

	AddStandardFlags(cmd, "output")
	cmd.Flags().StringSlice("tags", nil, "Only list courses carrying every tag")
	cmd.Flags().String("sort", content.SortNewest.String(), "Sort order (Newest, Oldest, A-Z, Z-A)")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, listFormats)
	})
	AddFlagValidation(cmd, "sort", func(order string) error {
		_, err := content.ParseSortOrder(order)
		return err
	})
	return cmd
}

func (c *cli) runList(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	format, _ := cmd.Flags().GetString("output")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	sortLabel, _ := cmd.Flags().GetString("sort")
	order, err := content.ParseSortOrder(sortLabel)
	if err != nil {
		return err
	}

	resolver := content.NewDirResolver(cfg.Content.Root,
		content.WithAssetDir(cfg.Content.AssetDir),
		content.WithLogger(logger),
	)
	courses, err := resolver.ListCourses(cmd.Context())
	if err != nil {
		return err
	}
	courses = content.Query{Tags: tags, Order: order}.Apply(courses)

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "json":
		return outputJSON(out, courses)
	case "yaml":
		return outputYAML(out, courses)
	default:
		return outputCourseTable(out, courses)
	}
}

func outputCourseTable(w io.Writer, courses []content.Course) error {
	if len(courses) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tTAGS\tMODIFIED")
	for _, course := range courses {
		modified := "-"
		if !course.Modified.IsZero() {
			modified = course.Modified.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", course.ID, course.Title, strings.Join(course.Tags, ","), modified)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d courses\n", len(courses))
	if tags := content.AllTags(courses); len(tags) > 0 {
		fmt.Fprintf(w, "Tags:  %s\n", strings.Join(tags, ", "))
	}
	return nil
}

func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func outputYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
