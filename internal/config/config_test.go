package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "cellprep/internal/errors"
)

var envVars = []string{
	"CELLPREP_LOGGING_LEVEL", "CELLPREP_LOGGING_OUTPUT", "CELLPREP_LOGGING_FILE_PATH",
	"CELLPREP_PROTEOMICS_INPUT_FILE", "CELLPREP_PROTEOMICS_CELL_RADIUS",
	"CELLPREP_SIMULATION_INPUT_FILES", "CELLPREP_SIMULATION_FRAME", "CELLPREP_SIMULATION_IGNORE_NULL",
	"CELLPREP_EXPORT_OUTPUT_DIR", "CELLPREP_EXPORT_EXTENSION", "CELLPREP_EXPORT_WORKERS",
	"CELLPREP_TELEMETRY_METRICS_FILE",
}

// clearEnv blanks every variable the tests touch; t.Setenv restores them.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envVar := range envVars {
		t.Setenv(envVar, "")
		os.Unsetenv(envVar)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cellprep.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "defaults with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)
				assert.Equal(t, ",", cfg.Proteomics.Delimiter)
				assert.Equal(t, 0.15, cfg.Proteomics.CellRadius)
				assert.Equal(t, 1.07, cfg.Proteomics.CellDensity)
				assert.Equal(t, 0.163, cfg.Proteomics.ProteinFraction)
				assert.Equal(t, "states/ProteinComplex/counts/data", cfg.Simulation.CountsPath)
				assert.Equal(t, "states/ProteinComplex/counts/labels/0", cfg.Simulation.LabelsPath)
				assert.Equal(t, 0, cfg.Simulation.Frame)
				assert.False(t, cfg.Simulation.IgnoreNull)
				assert.Equal(t, ".xls", cfg.Export.Extension)
				assert.Equal(t, 1, cfg.Export.Workers)
				assert.False(t, cfg.Export.ScratchCopy)
			},
		},
		{
			name: "environment variables",
			env: map[string]string{
				"CELLPREP_LOGGING_LEVEL":          "DEBUG",
				"CELLPREP_SIMULATION_INPUT_FILES": "a.h5,b.h5",
				"CELLPREP_SIMULATION_FRAME":       "42",
				"CELLPREP_SIMULATION_IGNORE_NULL": "true",
				"CELLPREP_EXPORT_EXTENSION":       "xlsx",
				"CELLPREP_EXPORT_WORKERS":         "4",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, []string{"a.h5", "b.h5"}, cfg.Simulation.InputFiles)
				assert.Equal(t, 42, cfg.Simulation.Frame)
				assert.True(t, cfg.Simulation.IgnoreNull)
				assert.Equal(t, ".xlsx", cfg.Export.Extension)
				assert.Equal(t, 4, cfg.Export.Workers)
			},
		},
		{
			name: "file values overlay defaults",
			fileContent: `
proteomics:
  input_file: /data/proteome.csv
  cell_radius: 0.2
export:
  output_dir: /data/out
  scratch_copy: true
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/proteome.csv", cfg.Proteomics.InputFile)
				assert.Equal(t, 0.2, cfg.Proteomics.CellRadius)
				assert.Equal(t, 1.07, cfg.Proteomics.CellDensity)
				assert.Equal(t, "/data/out", cfg.Export.OutputDir)
				assert.True(t, cfg.Export.ScratchCopy)
				assert.Equal(t, ".xls", cfg.Export.Extension)
			},
		},
		{
			name: "environment overrides file",
			env: map[string]string{
				"CELLPREP_EXPORT_OUTPUT_DIR": "/env/out",
				"CELLPREP_LOGGING_LEVEL":     "warn",
			},
			fileContent: `
logging:
  level: error
export:
  output_dir: /file/out
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/env/out", cfg.Export.OutputDir)
				assert.Equal(t, "warn", cfg.Logging.Level)
			},
		},
		{
			name:    "invalid log level",
			env:     map[string]string{"CELLPREP_LOGGING_LEVEL": "verbose"},
			wantErr: true,
		},
		{
			name:    "negative frame",
			env:     map[string]string{"CELLPREP_SIMULATION_FRAME": "-1"},
			wantErr: true,
		},
		{
			name:    "unsupported extension",
			env:     map[string]string{"CELLPREP_EXPORT_EXTENSION": ".ods"},
			wantErr: true,
		},
		{
			name:    "zero workers",
			env:     map[string]string{"CELLPREP_EXPORT_WORKERS": "0"},
			wantErr: true,
		},
		{
			name:    "non-numeric radius",
			env:     map[string]string{"CELLPREP_PROTEOMICS_CELL_RADIUS": "wide"},
			wantErr: true,
		},
		{
			name:        "invalid YAML syntax",
			fileContent: "invalid: yaml: content: [unclosed",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := ""
			if tt.fileContent != "" {
				path = writeConfigFile(t, tt.fileContent)
			}

			cfg, err := Load(path)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		clearEnv(t)
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
	})
}

func TestValidate(t *testing.T) {
	t.Run("default configuration is valid", func(t *testing.T) {
		assert.NoError(t, Default().Validate())
	})

	t.Run("file output requires a path", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Output = "file"
		cfg.Logging.FilePath = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("protein fraction above one", func(t *testing.T) {
		cfg := Default()
		cfg.Proteomics.ProteinFraction = 1.5
		assert.Error(t, cfg.Validate())
	})

	t.Run("multi-character delimiter", func(t *testing.T) {
		cfg := Default()
		cfg.Proteomics.Delimiter = ";;"
		assert.Error(t, cfg.Validate())
	})
}

func TestOutputPath(t *testing.T) {
	cfg := Default()
	cfg.Export.OutputDir = "/data/out"

	assert.Equal(t, filepath.Join("/data/out", "run1"), cfg.OutputPath("run1"))
	assert.Equal(t, "/tmp/run1", cfg.OutputPath("/tmp/run1"))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte(
		"CELLPREP_EXPORT_OUTPUT_DIR=/data/out\nCELLPREP_EXPORT_WORKERS=3\n"), 0644))

	t.Setenv("CELLPREP_EXPORT_WORKERS", "5")

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))

	cfg, err := Load(writeConfigFile(t, "logging:\n  level: info\n"))
	require.NoError(t, err)
	assert.Equal(t, "/data/out", cfg.Export.OutputDir)
	assert.Equal(t, 5, cfg.Export.Workers, "process environment wins over .env")

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "none.env")))
}
