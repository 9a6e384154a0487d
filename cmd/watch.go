package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/watcher"
)

func (c *cli) newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Re-check the content layout whenever it changes",
		Long: `Run check once, then again after every change to a lesson or course
image below the content root. Problems are reported but never stop the
watch; press Ctrl+C to quit.

Examples:
  syllabus watch                  # Watch ./courses
  syllabus watch -v               # Also list the changed files
  syllabus watch -o json          # Report each run as JSON`,
		Args: cobra.NoArgs,
		RunE: c.runWatch,
	}

	AddStandardFlags(cmd, "output")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, listFormats)
	})
	cmd.Flags().BoolP("verbose", "v", false, "List the changed files")
	return cmd
}

func (c *cli) runWatch(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	verbose, _ := cmd.Flags().GetBool("verbose")
	out := cmd.OutOrStdout()
	resolver := content.NewDirResolver(cfg.Content.Root,
		content.WithAssetDir(cfg.Content.AssetDir),
		content.WithLogger(logger),
	)

	w, err := watcher.NewFileWatcher(watcher.DefaultDelay, logger)
	if err != nil {
		return err
	}
	w.AddFilter(watcher.ContentFilter)
	w.AddFilter(watcher.NoHiddenFilter)
	w.AddHandler(func(events []watcher.ChangeEvent) error {
		fmt.Fprintf(out, "📁 %d file(s) changed\n", len(events))
		if verbose {
			for _, event := range events {
				fmt.Fprintf(out, "   %s: %s\n", event.Type, event.Path)
			}
		}
		if _, err := checkContent(cmd, resolver); err != nil {
			logger.Warn(cmd.Context(), err, "Content check failed")
		}
		return nil
	})
	if err := w.AddRecursive(cfg.Content.Root); err != nil {
		_ = w.Stop()
		return err
	}

	if _, err := checkContent(cmd, resolver); err != nil {
		_ = w.Stop()
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(out, "👀 Watching %s\n", cfg.Content.Root)
	if err := w.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
