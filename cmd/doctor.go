package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/syllabus/internal/auth/local"
	"github.com/conneroisu/syllabus/internal/config"
	"github.com/conneroisu/syllabus/internal/content"
	"github.com/conneroisu/syllabus/internal/validation"
	"github.com/conneroisu/syllabus/internal/version"
)

// Diagnostic statuses.
const (
	statusOK      = "ok"
	statusWarning = "warning"
	statusError   = "error"
)

// DiagnosticResult is the outcome of one doctor check.
type DiagnosticResult struct {
	Name       string `json:"name" yaml:"name"`
	Status     string `json:"status" yaml:"status"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

// DoctorReport is everything doctor found.
type DoctorReport struct {
	Timestamp   time.Time          `json:"timestamp" yaml:"timestamp"`
	Environment map[string]string  `json:"environment" yaml:"environment"`
	Results     []DiagnosticResult `json:"results" yaml:"results"`
}

// Errors counts the failed checks.
func (r *DoctorReport) Errors() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == statusError {
			n++
		}
	}
	return n
}

type doctorCheck func(ctx context.Context, cfg *config.Config) DiagnosticResult

func (c *cli) newDoctorCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the environment syllabus runs in",
		Long: `Check that syllabus can run here: the configuration loads, the content
root exists and passes check, the account store opens, the server port is
free and the build output directory is writable.

Examples:
  syllabus doctor                 # Human readable report
  syllabus doctor -o json         # Report for tooling`,
		Args: cobra.NoArgs,
		RunE: c.runDoctor,
	}

	AddStandardFlags(cmd, "output")
	AddFlagValidation(cmd, "output", func(format string) error {
		return ValidateFormat(format, listFormats)
	})
	return cmd
}

func (c *cli) runDoctor(cmd *cobra.Command, _ []string) error {
	report := &DoctorReport{
		Timestamp: time.Now(),
		Environment: map[string]string{
			"version": version.GetShortVersion(),
			"go":      runtime.Version(),
			"os":      runtime.GOOS + "/" + runtime.GOARCH,
		},
	}

	cfg, err := c.loadConfig()
	if err != nil {
		report.Results = append(report.Results, DiagnosticResult{
			Name:       "configuration",
			Status:     statusError,
			Message:    err.Error(),
			Suggestion: "run 'syllabus config validate' after fixing the config file or SYLLABUS_ variables",
		})
	} else {
		report.Results = append(report.Results, DiagnosticResult{
			Name:    "configuration",
			Status:  statusOK,
			Message: describeConfigSource(c.v.ConfigFileUsed()),
		})
		checks := []doctorCheck{
			checkContentRoot,
			checkContentLayout,
			checkAccountStore,
			checkPort,
			checkOutputDir,
			checkSessionSecurity,
		}
		for _, check := range checks {
			report.Results = append(report.Results, check(cmd.Context(), cfg))
		}
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	if !quiet {
		format, _ := cmd.Flags().GetString("output")
		out := cmd.OutOrStdout()
		switch strings.ToLower(format) {
		case "json":
			err = outputJSON(out, report)
		case "yaml":
			err = outputYAML(out, report)
		default:
			err = outputDoctorTable(out, report)
		}
		if err != nil {
			return err
		}
	}

	if n := report.Errors(); n > 0 {
		return fmt.Errorf("doctor found %d problem(s)", n)
	}
	return nil
}

func describeConfigSource(file string) string {
	if file == "" {
		return "defaults and environment (no config file)"
	}
	return "loaded from " + file
}

func checkContentRoot(ctx context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "content root"}
	info, err := os.Stat(cfg.Content.Root)
	if err != nil || !info.IsDir() {
		res.Status = statusError
		res.Message = fmt.Sprintf("%s is not a directory", cfg.Content.Root)
		res.Suggestion = "create it or run 'syllabus init <course-id>'"
		return res
	}
	ids, err := content.NewDirResolver(cfg.Content.Root).CourseIDs(ctx)
	if err != nil {
		res.Status = statusError
		res.Message = err.Error()
		return res
	}
	if len(ids) == 0 {
		res.Status = statusWarning
		res.Message = fmt.Sprintf("%s holds no courses", cfg.Content.Root)
		res.Suggestion = "run 'syllabus init <course-id>'"
		return res
	}
	res.Status = statusOK
	res.Message = fmt.Sprintf("%d course(s) in %s", len(ids), cfg.Content.Root)
	return res
}

func checkContentLayout(ctx context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "content layout"}
	if _, err := os.Stat(cfg.Content.Root); err != nil {
		res.Status = statusWarning
		res.Message = "skipped, no content root"
		return res
	}
	collector, err := content.NewDirResolver(cfg.Content.Root, content.WithAssetDir(cfg.Content.AssetDir)).Check(ctx)
	if err != nil {
		res.Status = statusError
		res.Message = err.Error()
		return res
	}
	problems := collector.Problems()
	switch {
	case collector.HasErrors():
		res.Status = statusError
		res.Message = fmt.Sprintf("%d problem(s) found", len(problems))
		res.Suggestion = "run 'syllabus check' for details"
	case len(problems) > 0:
		res.Status = statusWarning
		res.Message = fmt.Sprintf("%d warning(s)", len(problems))
		res.Suggestion = "run 'syllabus check' for details"
	default:
		res.Status = statusOK
		res.Message = "no problems"
	}
	return res
}

func checkAccountStore(ctx context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "account store"}
	switch cfg.Auth.Provider {
	case config.ProviderIdentityToolkit:
		if err := validation.ValidateURL(cfg.Auth.Endpoint); err != nil {
			res.Status = statusError
			res.Message = fmt.Sprintf("endpoint: %v", err)
			return res
		}
		res.Status = statusOK
		res.Message = "identity toolkit at " + cfg.Auth.Endpoint
		return res
	default:
		db, err := local.Open(cfg.Auth.Local.Driver, cfg.Auth.Local.DSN)
		if err != nil {
			res.Status = statusError
			res.Message = err.Error()
			res.Suggestion = "check auth.local.driver and auth.local.dsn"
			return res
		}
		sqlDB, err := db.DB()
		if err == nil {
			defer sqlDB.Close()
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			res.Status = statusError
			res.Message = err.Error()
			return res
		}
		res.Status = statusOK
		res.Message = fmt.Sprintf("%s store opened and migrated", cfg.Auth.Local.Driver)
		return res
	}
}

func checkPort(_ context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "server port"}
	ln, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		res.Status = statusWarning
		res.Message = fmt.Sprintf("%s is in use", cfg.Addr())
		res.Suggestion = "stop the other server or pick another port with 'syllabus serve -p'"
		return res
	}
	_ = ln.Close()
	res.Status = statusOK
	res.Message = cfg.Addr() + " is free"
	return res
}

func checkOutputDir(_ context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "build output"}
	parent := filepath.Dir(filepath.Clean(cfg.Build.OutputDir))
	tmp, err := os.MkdirTemp(parent, ".syllabus-doctor-*")
	if err != nil {
		res.Status = statusError
		res.Message = fmt.Sprintf("cannot write to %s: %v", parent, err)
		return res
	}
	_ = os.RemoveAll(tmp)
	res.Status = statusOK
	res.Message = fmt.Sprintf("%s is writable", parent)
	return res
}

func checkSessionSecurity(_ context.Context, cfg *config.Config) DiagnosticResult {
	res := DiagnosticResult{Name: "sessions", Status: statusOK}
	switch {
	case cfg.IsDevelopment():
		res.Message = "development mode, cookies are not marked secure"
	case !cfg.Session.Secure:
		res.Status = statusWarning
		res.Message = "session cookies are sent over plain HTTP"
		res.Suggestion = "set session.secure: true behind TLS"
	default:
		res.Message = "secure cookies"
	}
	if !cfg.Auth.RateLimit.Enabled {
		res.Status = statusWarning
		res.Message += "; account forms are not rate limited"
		res.Suggestion = "set auth.rate_limit.enabled: true"
	}
	return res
}

func outputDoctorTable(w io.Writer, report *DoctorReport) error {
	icons := map[string]string{statusOK: "✅", statusWarning: "⚠️ ", statusError: "❌"}
	for _, res := range report.Results {
		fmt.Fprintf(w, "%s %s: %s\n", icons[res.Status], res.Name, res.Message)
		if res.Suggestion != "" && res.Status != statusOK {
			fmt.Fprintf(w, "   💡 %s\n", res.Suggestion)
		}
	}
	fmt.Fprintf(w, "\n%d check(s), %d error(s)\n", len(report.Results), report.Errors())
	return nil
}
