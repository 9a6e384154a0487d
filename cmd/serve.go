package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/syllabus/internal/auth"
	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/server"
	"github.com/conneroisu/syllabus/internal/watcher"
)

func (c *cli) newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"s"},
		Short:   "Serve courses with accounts and live reload",
		Long: `Serve the content root over HTTP. Lessons are shown to signed-in users
with a verified email; course pages and the course list are public.

In development, edits to .mdx files and course images reload open pages.

Examples:
  syllabus serve                      # Serve ./courses on localhost:8080
  syllabus serve -p 3000 --open       # Pick a port and open a browser
  syllabus serve --content ./lessons  # Serve another content root`,
		Args: cobra.NoArgs,
		RunE: c.runServe,
	}

	AddStandardFlags(cmd, "server")
	c.bind(cmd.Flags(), map[string]string{
		"port": "server.port",
		"host": "server.host",
		"open": "server.open",
	})
	return cmd
}

func (c *cli) runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	provider, closeProvider, err := newProvider(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProvider()

	resolver := content.NewDirResolver(cfg.Content.Root,
		content.WithAssetDir(cfg.Content.AssetDir),
		content.WithLogger(logger),
	)
	svc := auth.NewService(provider,
		auth.WithLogger(logger),
		auth.WithRecheckInterval(cfg.Session.RecheckInterval),
	)
	srv := server.New(cfg, resolver, svc, server.WithLogger(logger))

	var w *watcher.FileWatcher
	if cfg.Development.HotReload && cfg.IsDevelopment() {
		w, err = watcher.NewFileWatcher(watcher.DefaultDelay, logger)
		if err != nil {
			return err
		}
		w.AddFilter(watcher.ContentFilter)
		w.AddFilter(watcher.NoHiddenFilter)
		w.AddHandler(watcher.ReloadHandler(cfg.Content.Root, srv.Reload))
		if err := w.AddRecursive(cfg.Content.Root); err != nil {
			_ = w.Stop()
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	if w != nil {
		logger.Info(ctx, "Watching content for changes", "root", cfg.Content.Root)
		g.Go(func() error { return w.Run(ctx) })
	}

	err = g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
