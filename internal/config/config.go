package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "cellprep/internal/errors"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "CELLPREP"

// Config represents the complete application configuration
type Config struct {
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
	Proteomics ProteomicsConfig `yaml:"proteomics" envconfig:"PROTEOMICS"`
	Simulation SimulationConfig `yaml:"simulation" envconfig:"SIMULATION"`
	Export     ExportConfig     `yaml:"export" envconfig:"EXPORT"`
	Telemetry  TelemetryConfig  `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn warning error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" validate:"required_unless=Output console"`
}

// ProteomicsConfig describes the proteome spreadsheet and the cell model
// used to turn its totals into per-cell estimates.
type ProteomicsConfig struct {
	InputFile       string  `yaml:"input_file" envconfig:"INPUT_FILE"`
	Delimiter       string  `yaml:"delimiter" envconfig:"DELIMITER" validate:"len=1"`
	CellRadius      float64 `yaml:"cell_radius" envconfig:"CELL_RADIUS" validate:"gt=0"`
	CellDensity     float64 `yaml:"cell_density" envconfig:"CELL_DENSITY" validate:"gt=0"`
	ProteinFraction float64 `yaml:"protein_fraction" envconfig:"PROTEIN_FRACTION" validate:"gt=0,lte=1"`
}

// SimulationConfig points at simulation output files and the datasets
// inside them.
type SimulationConfig struct {
	InputFiles []string `yaml:"input_files" envconfig:"INPUT_FILES"`
	Frame      int      `yaml:"frame" envconfig:"FRAME" validate:"gte=0"`
	IgnoreNull bool     `yaml:"ignore_null" envconfig:"IGNORE_NULL"`
	CountsPath string   `yaml:"counts_path" envconfig:"COUNTS_PATH" validate:"required"`
	LabelsPath string   `yaml:"labels_path" envconfig:"LABELS_PATH" validate:"required"`
}

// ExportConfig controls workbook and CSV output.
type ExportConfig struct {
	OutputDir   string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Extension   string `yaml:"extension" envconfig:"EXTENSION" validate:"oneof=.xls .xlsx"`
	ScratchCopy bool   `yaml:"scratch_copy" envconfig:"SCRATCH_COPY"`
	Workers     int    `yaml:"workers" envconfig:"WORKERS" validate:"gte=1,lte=64"`
}

// TelemetryConfig contains tracing and metrics output settings
type TelemetryConfig struct {
	Tracing     bool    `yaml:"tracing" envconfig:"TRACING"`
	TraceFile   string  `yaml:"trace_file" envconfig:"TRACE_FILE"`
	SampleRatio float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
	MetricsFile string  `yaml:"metrics_file" envconfig:"METRICS_FILE"`
}

// Load builds the configuration from defaults, an optional YAML file and
// CELLPREP_* environment variables, in increasing order of precedence.
// An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, apperrors.NewConfigError("failed to load config from file", err).
				WithContext("path", path)
		}
	}

	// Only variables that are set overwrite file values; defaults live in Default.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// normalize fixes up values that have an obvious canonical form
func (c *Config) normalize() {
	c.Logging.Level = strings.ToLower(c.Logging.Level)
	c.Logging.Output = strings.ToLower(c.Logging.Output)
	c.Export.Extension = strings.ToLower(c.Export.Extension)
	if c.Export.Extension != "" && !strings.HasPrefix(c.Export.Extension, ".") {
		c.Export.Extension = "." + c.Export.Extension
	}
}

// Validate checks the configuration against its struct constraints
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return apperrors.NewConfigError("config validation failed", err)
	}
	return nil
}

// OutputPath joins name onto the export directory unless name is absolute.
func (c *Config) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Export.OutputDir, name)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"cellprep.yaml",
		"configs/cellprep.yaml",
		"../configs/cellprep.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/cellprep.log",
		},
		Proteomics: ProteomicsConfig{
			Delimiter:       ",",
			CellRadius:      0.15,  // um
			CellDensity:     1.07,  // g/cc
			ProteinFraction: 0.163, // by weight
		},
		Simulation: SimulationConfig{
			CountsPath: "states/ProteinComplex/counts/data",
			LabelsPath: "states/ProteinComplex/counts/labels/0",
		},
		Export: ExportConfig{
			OutputDir: ".",
			Extension: ".xls",
			Workers:   1,
		},
		Telemetry: TelemetryConfig{
			SampleRatio: 1.0,
		},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files (default
// ".env") into the process environment. Variables already set win. Missing
// files are skipped.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	var existing []string
	for _, name := range filenames {
		if _, err := os.Stat(name); err == nil {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return apperrors.NewConfigError("failed to load .env file", err)
	}
	return nil
}
