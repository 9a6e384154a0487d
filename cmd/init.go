package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/validation"
)

func (c *cli) newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <course-id>",
		Short: "Scaffold a new course",
		Long: `Create a course directory below the content root with a landing page,
a first lesson and an empty image directory. The course id becomes the
URL path of the course, so it may only hold letters, digits, '-' and '_'.

Examples:
  syllabus init go-basics                        # courses/go-basics
  syllabus init sql-intro --title "SQL Intro"    # Set the course title
  syllabus init rust --author Ada --tags rust,beginner`,
		Args: cobra.ExactArgs(1),
		RunE: c.runInit,
	}

	cmd.Flags().String("title", "", "course title (default derived from the id)")
	cmd.Flags().String("description", "", "course description")
	cmd.Flags().StringSlice("author", nil, "course author, repeatable")
	cmd.Flags().StringSlice("tags", nil, "course tags")
	return cmd
}

func (c *cli) runInit(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	id := args[0]
	if err := validation.ValidateCourseID(id); err != nil {
		return fmt.Errorf("invalid course id: %w", err)
	}

	dir := filepath.Join(cfg.Content.Root, id)
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("course %s already exists at %s", id, dir)
	}

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = titleFromID(id)
	}
	description, _ := cmd.Flags().GetString("description")
	authors, _ := cmd.Flags().GetStringSlice("author")
	tags, _ := cmd.Flags().GetStringSlice("tags")

	now := time.Now().UTC().Truncate(time.Second)
	index := content.FrontMatter{
		Title:       title,
		Description: description,
		Tags:        content.StringList(tags),
		Created:     &now,
	}
	for _, name := range authors {
		index.Authors = append(index.Authors, content.Author{Name: name})
	}
	files := map[string]struct {
		fm   content.FrontMatter
		body string
	}{
		"index.mdx": {index, fmt.Sprintf("Welcome to **%s**.\n", title)},
		"01.mdx":    {content.FrontMatter{Title: "Getting Started"}, "Write the first lesson here.\n"},
	}

	if err := os.MkdirAll(filepath.Join(dir, cfg.Content.AssetDir), 0755); err != nil {
		return fmt.Errorf("creating course directory: %w", err)
	}
	for name, f := range files {
		src, err := renderMDX(f.fm, f.body)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), src, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}

	// The scaffold must resolve like any other course.
	course, err := content.NewDirResolver(cfg.Content.Root, content.WithAssetDir(cfg.Content.AssetDir)).
		Course(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("scaffolded course does not resolve: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Created course %q in %s\n", course.Title, dir)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintf(out, "  1. Edit %s\n", filepath.Join(dir, "01.mdx"))
	fmt.Fprintln(out, "  2. Run 'syllabus check' to validate the layout")
	fmt.Fprintf(out, "  3. Run 'syllabus serve' and open /%s\n", id)
	return nil
}

func renderMDX(fm content.FrontMatter, body string) ([]byte, error) {
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encoding front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(head)
	buf.WriteString("---\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// titleFromID turns "go-basics" into "Go Basics".
func titleFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
