package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/logging"
)

// ConfigFileEnv names a config file to use instead of ./.syllabus.yml.
const ConfigFileEnv = "SYLLABUS_CONFIG_FILE"

// cli holds the state shared by the commands of one root command.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

// NewRootCommand builds the syllabus command tree with its own viper
// instance, so tests can run commands side by side.
func NewRootCommand() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "syllabus",
		Short: "Serve and build course sites from MDX content",
		Long: `Syllabus serves courses written as numbered MDX files, gated behind
verified accounts, and builds them into a static site.

Quick Start:
  syllabus serve                  Serve ./courses on localhost:8080
  syllabus list                   List courses
  syllabus check                  Validate the content layout
  syllabus build                  Write the static site to ./out
  syllabus init go-basics         Scaffold a new course
  syllabus doctor                 Diagnose the environment`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.initConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (default is .syllabus.yml, can also use "+ConfigFileEnv+" env var)")
	flags.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("content", "", "content root holding one directory per course")
	c.bind(flags, map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"content":    "content.root",
	})

	root.AddCommand(
		c.newServeCommand(),
		c.newBuildCommand(),
		c.newListCommand(),
		c.newCheckCommand(),
		c.newAuthCommand(),
		c.newInitCommand(),
		c.newWatchCommand(),
		c.newConfigCommand(),
		c.newHealthCommand(),
		c.newDoctorCommand(),
		c.newVersionCommand(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

// initConfig loads .env and the config file and enables SYLLABUS_ env
// overrides. The config file is, in order: --config, $SYLLABUS_CONFIG_FILE,
// ./.syllabus.yml. A missing default file is not an error.
func (c *cli) initConfig(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	explicit := true
	switch {
	case c.cfgFile != "":
		c.v.SetConfigFile(c.cfgFile)
	case os.Getenv(ConfigFileEnv) != "":
		c.v.SetConfigFile(os.Getenv(ConfigFileEnv))
	default:
		explicit = false
		c.v.AddConfigPath(".")
		c.v.SetConfigType("yaml")
		c.v.SetConfigName(".syllabus")
	}

	c.v.SetEnvPrefix("SYLLABUS")
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
		return nil
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "Using config file:", c.v.ConfigFileUsed())
	return nil
}

// bind maps flag names to config keys.
func (c *cli) bind(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if flag := flags.Lookup(name); flag != nil {
			_ = c.v.BindPFlag(key, flag)
		}
	}
}

func (c *cli) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(c.v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the console logger, teed into a dated file when
// log.dir is set. The returned func closes the file.
func newLogger(cmd *cobra.Command, cfg *config.Config) (logging.Logger, func(), error) {
	lc := &logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	}
	console := logging.NewLogger(lc)
	if cfg.Log.Dir == "" {
		return console, func() {}, nil
	}

	file, err := logging.NewFileLogger(lc, cfg.Log.Dir)
	if err != nil {
		return nil, nil, err
	}
	return logging.NewMultiLogger(console, file), func() { _ = file.Close() }, nil
}
