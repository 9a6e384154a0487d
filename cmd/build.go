package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/build"
	"github.com/conneroisu/syllabus/internal/content"
)

func (c *cli) newBuildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "build",
		Aliases: []string{"b"},
		Short:   "Build the courses into a static site",
		Long: `Render the course list, every course page and every lesson to HTML and
copy course images next to them. Lessons are not gated in the static
site, and the listing has no sort form.

Examples:
  syllabus build                          # Write the site to ./out
  syllabus build --output-dir public      # Pick another output directory
  syllabus build --base-url https://x.io  # Absolute URLs for the sitemap
  syllabus build --minify                 # Strip indentation from pages`,
		Args: cobra.NoArgs,
		RunE: c.runBuild,
	}

	cmd.Flags().String("output-dir", "out", "Directory the site is written to")
	cmd.Flags().String("base-url", "", "Absolute URL the site is published at")
	cmd.Flags().Bool("minify", false, "Minify generated HTML")
	cmd.Flags().BoolP("quiet", "q", false, "Only report errors")
	c.bind(cmd.Flags(), map[string]string{
		"output-dir": "build.output_dir",
		"base-url":   "build.base_url",
		"minify":     "build.minify",
	})
	return cmd
}

func (c *cli) runBuild(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	quiet, _ := cmd.Flags().GetBool("quiet")
	out := cmd.OutOrStdout()
	if !quiet {
		fmt.Fprintf(out, "🔨 Building %s into %s...\n", cfg.Content.Root, cfg.Build.OutputDir)
	}

	resolver := content.NewDirResolver(cfg.Content.Root,
		content.WithAssetDir(cfg.Content.AssetDir),
		content.WithLogger(logger),
	)
	gen := build.NewStaticSiteGenerator(cfg, resolver, build.WithLogger(logger))
	result, err := gen.Generate(cmd.Context())
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if quiet {
		return nil
	}
	fmt.Fprintf(out, "✅ Build completed successfully in %v\n", result.Duration)
	fmt.Fprintf(out, "   - %d pages rendered\n", len(result.Pages))
	fmt.Fprintf(out, "   - %d assets copied\n", len(result.Assets))
	for _, name := range result.Extra {
		fmt.Fprintf(out, "   - wrote %s\n", name)
	}
	return nil
}
