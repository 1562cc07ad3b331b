package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"cellprep/internal/config"
	apperrors "cellprep/internal/errors"
	"cellprep/internal/exporter"
	"cellprep/internal/files"
	"cellprep/internal/h5store"
	"cellprep/internal/infrastructure"
	"cellprep/internal/simulation"
	"cellprep/internal/validation"
)

const (
	modeRaw    = "raw"
	modeState  = "state"
	modeExport = "export"
	modeMerge  = "merge"
)

// excelize only writes OOXML, so the default .xls files are xlsx inside.
const outUsage = "workbook name without extension (.xls output holds xlsx content)"

// options are the command-line settings of one run. Pointer fields are nil
// when the flag was not given and the config value applies.
type options struct {
	mode       string
	inputs     []string
	frame      *int
	ignoreNull *bool
	state      int
	count      int
	out        string
	configPath string
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("simexport", flag.ContinueOnError)
	opts := &options{}
	var in string
	frame := fs.Int("frame", 0, "frame to extract (defaults to simulation.frame)")
	ignoreNull := fs.Bool("ignore-null", false, "drop complexes whose count is not positive")
	fs.StringVar(&opts.mode, "mode", modeExport, "raw | state | export | merge")
	fs.StringVar(&in, "in", "", "comma separated run files or directories (defaults to simulation.input_files)")
	fs.IntVar(&opts.state, "state", int(simulation.Mature), "simulation state 0-5 for -mode state")
	fs.IntVar(&opts.count, "count", 0, "number of runs to merge (defaults to all inputs)")
	fs.StringVar(&opts.out, "out", "", outUsage)
	fs.StringVar(&opts.configPath, "config", "", "config file (defaults to cellprep.yaml if present)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "frame":
			opts.frame = frame
		case "ignore-null":
			opts.ignoreNull = ignoreNull
		}
	})

	switch opts.mode {
	case modeRaw, modeState, modeExport, modeMerge:
	default:
		return nil, fmt.Errorf("unknown mode %q", opts.mode)
	}

	opts.inputs = splitList(in)
	return opts, nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
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
		fmt.Fprintln(os.Stderr, err)
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

	tel, err := infrastructure.InitializeTelemetry(ctx, cfg.Telemetry, "cellprep-simexport", logger)
	if err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Failed to initialize telemetry")
		return 1
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			infrastructure.WithError(logger, err).Warn("Telemetry shutdown failed")
		}
	}()

	loader := h5store.NewStore(cfg.Simulation.CountsPath, cfg.Simulation.LabelsPath, logger)
	if err := run(ctx, cfg, opts, loader, logger, tel.Observer(), os.Stdout); err != nil {
		infrastructure.WithError(logger, err).ErrorContext(ctx, "Simulation export failed",
			slog.String("mode", opts.mode))
		return 1
	}
	return 0
}

// run executes one mode. raw and state print JSON tables to stdout; export
// and merge write a workbook.
func run(ctx context.Context, cfg *config.Config, opts *options, loader simulation.Loader, logger *slog.Logger, obs *infrastructure.Observer, stdout io.Writer) error {
	frame := cfg.Simulation.Frame
	if opts.frame != nil {
		frame = *opts.frame
	}
	ignoreNull := cfg.Simulation.IgnoreNull
	if opts.ignoreNull != nil {
		ignoreNull = *opts.ignoreNull
	}

	inputs := opts.inputs
	if len(inputs) == 0 {
		inputs = cfg.Simulation.InputFiles
	}
	paths, err := files.ExpandInputs(inputs)
	if err != nil {
		return apperrors.NewStorageError("failed to expand inputs", err)
	}
	if len(paths) == 0 {
		return apperrors.NewValidationError("no simulation runs given")
	}
	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateFiles(paths); err != nil {
		return err
	}

	logger.InfoContext(ctx, "Starting simulation export",
		slog.String("mode", opts.mode),
		slog.Any("inputs", paths),
		slog.Int("frame", frame),
		slog.Bool("ignore_null", ignoreNull))

	extractor := simulation.NewExtractor(loader, logger, obs)

	switch opts.mode {
	case modeRaw:
		tables, err := extractor.RawData(ctx, paths[0], frame, ignoreNull)
		if err != nil {
			return err
		}
		return printJSON(stdout, tablesJSON(tables))

	case modeState:
		result, err := extractor.Simulation(ctx, paths[0], frame, ignoreNull, simulation.State(opts.state))
		if err != nil {
			return err
		}
		if result.Kind == simulation.InvalidParameter {
			return printJSON(stdout, []string{result.Marker})
		}
		return printJSON(stdout, tablesJSON(result.Tables))
	}

	if opts.out == "" {
		return apperrors.NewValidationError("-out is required for mode " + opts.mode)
	}
	if err := validator.ValidateOutputDirectory(cfg.Export.OutputDir); err != nil {
		return err
	}
	workbook := exporter.NewWorkbook(files.NewManager(cfg.Export.OutputDir, logger), cfg.Export, logger, obs)

	var path string
	switch opts.mode {
	case modeExport:
		tables, err := extractor.RawData(ctx, paths[0], frame, ignoreNull)
		if err != nil {
			return err
		}
		path, err = workbook.Export(ctx, tables, opts.out)
		if err != nil {
			return err
		}
	case modeMerge:
		count := opts.count
		if count == 0 {
			count = len(paths)
		}
		path, err = workbook.Merge(ctx, loader, paths, count, opts.out, frame, ignoreNull)
		if err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "Workbook written", slog.String("path", path))
	fmt.Fprintln(stdout, path)
	return nil
}

// tablesJSON keys tables by sheet name.
func tablesJSON(tables simulation.Tables) map[string]simulation.Table {
	out := make(map[string]simulation.Table, simulation.NumCompartments)
	for _, c := range simulation.Compartments() {
		table := tables[c]
		if table == nil {
			table = simulation.Table{}
		}
		out[c.SheetName()] = table
	}
	return out
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
