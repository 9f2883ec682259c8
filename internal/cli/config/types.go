// Package config provides configuration management for the iamconv CLI.
//
// Configuration is layered: defaults, then iamconv.yaml, then IAMCONV_
// environment variables, then command-line flags.
package config

import (
	"github.com/leapstack-labs/iamconv/internal/sink"
)

// SinkConfig is an alias for the sink configuration.
// This allows CLI code to use config.SinkConfig without importing internal/sink.
type SinkConfig = sink.Config

// Config holds all CLI configuration options.
type Config struct {
	// Index is the path to the index file describing the datasets.
	Index string `koanf:"index"`

	// BasePath anchors the relative paths inside the index file.
	// Defaults to the index file's directory.
	BasePath string `koanf:"basepath"`

	// Output is the output path shorthand for the CSV sink.
	Output string `koanf:"output"`

	// Wide pivots years into columns (CSV output only).
	Wide bool `koanf:"wide"`

	// Jobs is the number of index entries converted concurrently.
	Jobs int `koanf:"jobs"`

	// KeepGoing records per-entry failures instead of aborting the run.
	KeepGoing bool `koanf:"keep_going"`

	// StatePath is the run-history SQLite database path.
	StatePath string `koanf:"state_path"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Indices maps mandatory IAMC columns missing from the data to
	// default values, and user columns to lookup table files.
	Indices map[string]any `koanf:"indices"`

	// Sink selects and configures the output target.
	Sink *SinkConfig `koanf:"sink"`
}

// Default configuration values.
const (
	DefaultJobs      = 4
	DefaultStateFile = ".iamconv/state.db"
	DefaultSinkType  = "csv"
)
