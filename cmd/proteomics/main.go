package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"unicode/utf8"

	"cellprep/internal/config"
	"cellprep/internal/exporter"
	"cellprep/internal/files"
	"cellprep/internal/infrastructure"
	"cellprep/internal/proteomics"
	"cellprep/internal/validation"
)

// options are the command-line settings of one run
type options struct {
	in         string
	out        string
	configPath string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("proteomics", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.in, "in", "", "proteome spreadsheet (defaults to proteomics.input_file)")
	fs.StringVar(&opts.out, "out", "", "optional CSV file for the channel totals")
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to cellprep.yaml if present)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return opts, nil
}

// Set at link time by build.go
var (
	Version   = "dev"
	BuildTime = ""
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

func execute(args []string) int {
	opts, err := parseFlags(args)
	if err != nil {
		return 2
	}

	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("Failed to load .env file, using system environment variables", "error", err)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = infrastructure.ContextWithTraceID(ctx)
	logger.DebugContext(ctx, "Build info",
		slog.String("version", Version),
		slog.String("build_time", BuildTime))

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, "cellprep-proteomics", logger)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Failed to initialize telemetry")
		return 1
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			infrastructure.WithError(logger, err).Warn("Telemetry shutdown failed")
		}
	}()

	if err := run(ctx, cfg, opts, logger, tel.Observer()); err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Proteomics aggregation failed")
		return 1
	}
	return 0
}

// run aggregates the spreadsheet and optionally writes the totals CSV.
func run(ctx context.Context, cfg *config.Config, opts *options, logger *slog.Logger, obs *infrastructure.Observer) error {
	in := opts.in
	if in == "" {
		in = cfg.Proteomics.InputFile
	}

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateFile(in); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Starting proteomics aggregation",
		slog.String("input_file", in),
		slog.String("output_file", opts.out))

	delimiter, _ := utf8.DecodeRuneInString(cfg.Proteomics.Delimiter)
	agg := proteomics.NewAggregator(logger,
		proteomics.WithDelimiter(delimiter),
		proteomics.WithCellConstants(proteomics.CellConstants{
			Radius:          cfg.Proteomics.CellRadius,
			Density:         cfg.Proteomics.CellDensity,
			ProteinFraction: cfg.Proteomics.ProteinFraction,
		}),
		proteomics.WithObserver(obs))

	report, err := agg.AggregateFile(ctx, in)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Proteome summary", slog.Any("report", report))

	if opts.out == "" {
		return nil
	}

	out := cfg.OutputPath(opts.out)
	if err := validator.ValidateOutputDirectory(filepath.Dir(out)); err != nil {
		return err
	}

	writer := exporter.NewCSVWriter(files.NewManager("", logger), logger, obs)
	if err := writer.WriteTotals(ctx, out, report); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Totals written", slog.String("path", out))
	return nil
}
