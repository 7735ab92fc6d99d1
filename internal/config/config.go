// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Layer optional file and env sources on top via Load.
// - External errors are wrapped via this package's error kinds.
package config

import (
	"runtime"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory task queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of extraction workers.
	WorkerCount int `koanf:"worker_count"`

	// PickDir is where per-unit pick files are written.
	PickDir string `koanf:"pick_dir"`

	// MergedDir is where grouped merge outputs are written.
	MergedDir string `koanf:"merged_dir"`

	// JournalPath locates the processed-unit journal database. Empty
	// disables journaling.
	JournalPath string `koanf:"journal_path"`

	// Mode selects the output discipline: "seismic" or "das".
	Mode string `koanf:"mode"`

	// Phases names the detection classes, e.g. ["P", "S"].
	Phases []string `koanf:"phases"`

	// MinProb is the probability threshold; picks require a score strictly
	// above it.
	MinProb float64 `koanf:"min_prob"`

	// Kernel is the suppression window length in samples.
	Kernel int `koanf:"kernel"`

	// Stride is the suppression evaluation stride.
	Stride int `koanf:"stride"`

	// TopK caps peaks per (batch, class, station); 0 selects the adaptive
	// default.
	TopK int `koanf:"topk"`

	// SampleInterval is the default seconds-per-sample when a unit of work
	// carries none.
	SampleInterval float64 `koanf:"sample_interval"`

	// AmpWindows sets amplitude window lengths in seconds, one per phase.
	AmpWindows []float64 `koanf:"amp_windows"`

	// MinPicks is the minimum combined pick count for a grouped merge.
	MinPicks int `koanf:"min_picks"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		Addr:           ":9080",
		QueueSize:      1024,
		WorkerCount:    runtime.NumCPU() * 2,
		PickDir:        "results/picks_raw",
		MergedDir:      "results/picks_merged",
		JournalPath:    "results/journal.db",
		Mode:           "seismic",
		Phases:         []string{"P", "S"},
		MinProb:        0.3,
		Kernel:         101,
		Stride:         1,
		TopK:           0,
		SampleInterval: 0.01,
		AmpWindows:     []float64{10, 5},
		MinPicks:       10,
	}
}
