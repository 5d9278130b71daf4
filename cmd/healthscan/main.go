package main

import (
	"HealthScan/internal/config"
	"HealthScan/internal/domain"
	"HealthScan/internal/reporter"
	"HealthScan/internal/shared/constants"
	"HealthScan/pkg/logger"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

const usage = `Usage: healthscan <command> [flags]

Commands:
  run       run every probe once and publish the report
  watch     run probes repeatedly on an interval
  validate  check the configuration and list the probes
  version   print the version

Exit codes: 0 OK, 1 WARN, 2 CRITICAL or UNKNOWN, 3 configuration error.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return constants.ExitConfigError
	}

	switch args[0] {
	case "run":
		return runOnce(args[1:], stdout, stderr)
	case "watch":
		return watch(args[1:], stdout, stderr)
	case "validate":
		return validate(args[1:], stdout, stderr)
	case "version", "--version":
		fmt.Fprintf(stdout, "healthscan %s\n", version)
		return 0
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "healthscan: unknown command %q\n\n%s", args[0], usage)
		return constants.ExitConfigError
	}
}

type commonFlags struct {
	config string
	format string
	stdout bool
}

func newFlagSet(name string, stderr io.Writer, common *commonFlags) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&common.config, "config", "c", "", "path to the configuration file")
	return fs
}

func addReportFlags(fs *pflag.FlagSet, common *commonFlags) {
	fs.StringVarP(&common.format, "format", "f", "", "report format: text, json or yaml")
	fs.BoolVar(&common.stdout, "stdout", false, "also print the report to stdout")
}

// setup loads configuration, the logger and the container shared by run
// and watch.
func setup(fs *pflag.FlagSet, common *commonFlags, stdout, stderr io.Writer) (*Container, int) {
	cfg, err := config.Load(common.config)
	if err != nil {
		fmt.Fprintf(stderr, "healthscan: %v\n", err)
		return nil, constants.ExitConfigError
	}

	log := logger.Setup(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: stderr,
	})

	opts := RuntimeOptions{}
	if common.format != "" {
		f, err := reporter.ParseFormat(common.format)
		if err != nil {
			fmt.Fprintf(stderr, "healthscan: %v\n", err)
			return nil, constants.ExitConfigError
		}
		opts.Format = f
	}

	printReport := cfg.Report.Stdout
	if fs.Changed("stdout") {
		printReport = common.stdout
	}
	if printReport {
		opts.Stdout = stdout
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	container, err := NewContainer(ctx, cfg, log, opts)
	if err != nil {
		log.Error("Failed to create dependency container", "error", err)
		fmt.Fprintf(stderr, "healthscan: %v\n", err)
		return nil, constants.ExitConfigError
	}

	log.Debug("Starting HealthScan",
		slog.String("name", cfg.App.Name),
		slog.String("version", version),
		slog.Int("probes", len(container.Specs)),
	)
	return container, 0
}

func runOnce(args []string, stdout, stderr io.Writer) int {
	var common commonFlags
	fs := newFlagSet("run", stderr, &common)
	addReportFlags(fs, &common)
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	container, code := setup(fs, &common, stdout, stderr)
	if container == nil {
		return code
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, report, err := container.Runner.RunOnce(ctx)
	if report == nil {
		fmt.Fprintf(stderr, "healthscan: %v\n", err)
		return code
	}
	if err != nil {
		fmt.Fprintf(stderr, "healthscan: report not persisted: %v\n", err)
	}
	summarize(stderr, report)
	return code
}

func watch(args []string, stdout, stderr io.Writer) int {
	var (
		common   commonFlags
		interval time.Duration
	)
	fs := newFlagSet("watch", stderr, &common)
	addReportFlags(fs, &common)
	fs.DurationVarP(&interval, "interval", "i", 0, "time between cycles (default from config)")
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	container, code := setup(fs, &common, stdout, stderr)
	if container == nil {
		return code
	}
	defer container.Close()

	if !fs.Changed("interval") {
		interval = container.Config.Runner.Interval
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code, err := container.Runner.Watch(ctx, interval)
	if err != nil {
		fmt.Fprintf(stderr, "healthscan: %v\n", err)
	}
	container.Logger.Info("HealthScan stopped", "exit_code", code)
	return code
}

func validate(args []string, stdout, stderr io.Writer) int {
	var common commonFlags
	fs := newFlagSet("validate", stderr, &common)
	if err := fs.Parse(args); err != nil {
		return flagExit(err)
	}

	cfg, err := config.Load(common.config)
	if err != nil {
		fmt.Fprintf(stderr, "healthscan: %v\n", err)
		return constants.ExitConfigError
	}

	specs := cfg.ProbeSpecs()
	rules := cfg.RuleSet()

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tTARGET\tTIMEOUT\tTHRESHOLD")
	for _, s := range specs {
		timeout := s.Timeout
		if timeout == 0 {
			timeout = cfg.Runner.ProbeTimeout
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Kind, s.Target, timeout, describeRule(rules, s))
	}
	if err := tw.Flush(); err != nil {
		return constants.ExitConfigError
	}

	fmt.Fprintf(stdout, "\n%d probe(s), configuration OK\n", len(specs))
	return 0
}

func describeRule(rules domain.RuleSet, s domain.ProbeSpec) string {
	rule, ok := rules.Lookup(s.Name, s.Kind)
	if !ok {
		return "none"
	}

	var parts []string
	if rule.WarnAt != nil {
		parts = append(parts, fmt.Sprintf("warn %g", *rule.WarnAt))
	}
	if rule.CriticalAt != nil {
		parts = append(parts, fmt.Sprintf("critical %g", *rule.CriticalAt))
	}
	if len(rule.Allowed) > 0 {
		parts = append(parts, "allowed "+strings.Join(rule.Allowed, ","))
	}
	if len(rule.Critical) > 0 {
		parts = append(parts, "critical "+strings.Join(rule.Critical, ","))
	}
	return strings.Join(parts, "; ")
}

// summarize prints one line that separates probes that could not be
// evaluated from probes that were evaluated and found unhealthy.
func summarize(w io.Writer, report *domain.Report) {
	counts := report.Counts()
	unhealthy := counts[domain.SeverityWarn] + counts[domain.SeverityCritical]
	unknown := counts[domain.SeverityUnknown]

	switch {
	case unhealthy == 0 && unknown == 0:
		fmt.Fprintf(w, "healthscan: %s, %d probe(s) OK\n", report.OverallSeverity, len(report.Results))
	default:
		fmt.Fprintf(w, "healthscan: %s, %d evaluated and unhealthy, %d could not evaluate\n",
			report.OverallSeverity, unhealthy, unknown)
	}
}

func flagExit(err error) int {
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	return constants.ExitConfigError
}
