package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"prom2cw/internal/config"
	"prom2cw/internal/logging"
	"prom2cw/internal/pipeline"
)

// Runtime defines runtime inputs required to start one pass.
// Params: ConfigPath optional TOML file or directory; EnvFile optional dotenv file; DryRun forces the log sink.
// Returns: Runtime value used by Run.
type Runtime struct {
	ConfigPath string
	EnvFile    string
	DryRun     bool
}

type engineRunner interface {
	Run(context.Context) (pipeline.Summary, error)
}

type runDeps struct {
	loadEnvFile func(string) (bool, error)
	loadConfig  func(string) (*config.Config, error)
	newLogger   func(config.LogConfig) (*slog.Logger, func(), error)
	newEngine   func(context.Context, *config.Config, *slog.Logger) (engineRunner, error)
	processRSS  func(context.Context) (uint64, error)
	newRunID    func() string
}

// Run loads configuration, builds the pipeline and executes one scrape-and-submit pass.
// Params: ctx controls lifecycle; rt provides runtime inputs.
// Returns: configuration, fetch, parse or submission error; nil after the last batch is accepted.
func Run(ctx context.Context, rt Runtime) error {
	return runWithDeps(ctx, rt, defaultRunDeps())
}

// defaultRunDeps provides production runtime dependencies.
// Params: none.
// Returns: dependency set used by Run.
func defaultRunDeps() runDeps {
	return runDeps{
		loadEnvFile: config.LoadEnvFile,
		loadConfig:  config.Load,
		newLogger:   logging.New,
		newEngine: func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (engineRunner, error) {
			return pipeline.NewFromConfig(ctx, cfg, logger)
		},
		processRSS: processRSS,
		newRunID:   uuid.NewString,
	}
}

// runWithDeps executes one pass using injectable dependencies.
// Params: ctx controls lifecycle; rt runtime inputs; deps component factories.
// Returns: first fatal error or nil.
func runWithDeps(ctx context.Context, rt Runtime, deps runDeps) error {
	envLoaded, err := deps.loadEnvFile(rt.EnvFile)
	if err != nil {
		return err
	}

	cfg, err := deps.loadConfig(rt.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if rt.DryRun {
		cfg.CloudWatch.DryRun = true
	}

	logger, closeLogger, err := deps.newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLogger()

	logger = logger.With(slog.String("run_id", deps.newRunID()))
	if strings.TrimSpace(rt.EnvFile) != "" && !envLoaded {
		logger.Info("env file not found, using process environment", slog.String("path", rt.EnvFile))
	}
	logStartup(logger, cfg)

	engine, err := deps.newEngine(ctx, cfg, logger)
	if err != nil {
		logger.Error("pipeline init failed", slog.String("error", err.Error()))
		return fmt.Errorf("build pipeline: %w", err)
	}

	started := time.Now()
	summary, runErr := engine.Run(ctx)
	attrs := summaryAttrs(ctx, summary, time.Since(started), deps.processRSS)

	if runErr != nil {
		logger.Error("run failed", append(attrs, slog.String("error", runErr.Error()))...)
		return fmt.Errorf("run pipeline: %w", runErr)
	}

	logger.Info("run completed", attrs...)
	return nil
}

// summaryAttrs renders pass counters and process memory for the final log record.
// Params: ctx for process stat lookup; summary pass counters; elapsed wall time; rss optional memory probe.
// Returns: log attributes.
func summaryAttrs(
	ctx context.Context,
	summary pipeline.Summary,
	elapsed time.Duration,
	rss func(context.Context) (uint64, error),
) []any {
	attrs := []any{
		slog.Int("samples", summary.Samples),
		slog.Int("batches", summary.Batches),
		slog.Int("submitted", summary.Submitted),
		slog.Duration("elapsed", elapsed),
	}
	if rss == nil {
		return attrs
	}
	if value, err := rss(ctx); err == nil {
		attrs = append(attrs, slog.Uint64("rss_bytes", value))
	}
	return attrs
}

// logStartup emits initial run metadata.
// Params: logger is initialized slog logger; cfg is validated runtime config.
// Returns: none.
func logStartup(logger *slog.Logger, cfg *config.Config) {
	logger.Info(
		"run started",
		slog.String("source", redactURL(cfg.Source.URL)),
		slog.String("namespace", cfg.CloudWatch.Namespace),
		slog.String("region", cfg.CloudWatch.Region),
		slog.Bool("dry_run", cfg.CloudWatch.DryRun),
	)
}

// redactURL hides URL user info passwords before logging.
func redactURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return parsed.Redacted()
}
