// Package config provides configuration management for the cellprep tools.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern CELLPREP_<SECTION>_<FIELD>:
//
//	CELLPREP_LOGGING_LEVEL=debug
//	CELLPREP_PROTEOMICS_INPUT_FILE=/data/Syn1.0_proteome.csv
//	CELLPREP_SIMULATION_INPUT_FILES=run1.h5,run2.h5
//	CELLPREP_EXPORT_OUTPUT_DIR=/data/out
//	CELLPREP_TELEMETRY_METRICS_FILE=/var/lib/node_exporter/cellprep.prom
//
// LoadDotEnv reads the same variables from a .env file without overriding
// the ones already set.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests that do not care about the environment can start from Default().
package config
