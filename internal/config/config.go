// Package config loads CLI configuration: defaults, an optional
// oodiff.yaml, and flag overrides layered on top by the caller.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config represents the CLI configuration.
type Config struct {
	Author  string        `mapstructure:"author"`
	Output  OutputConfig  `mapstructure:"output"`
	Compare CompareConfig `mapstructure:"compare"`
	Verbose bool          `mapstructure:"verbose"`
	LogFile string        `mapstructure:"log_file"`
}

// OutputConfig holds output settings.
type OutputConfig struct {
	// Path is the result file; empty means comparison-result.<ext>
	// alongside the invocation directory.
	Path string `mapstructure:"path"`
	// JSON additionally prints the change list as JSON.
	JSON bool `mapstructure:"json"`
}

// CompareConfig exposes the engine thresholds worth tuning from a file.
type CompareConfig struct {
	DetailThreshold        float64 `mapstructure:"detail_threshold"`
	MatchThreshold         float64 `mapstructure:"match_threshold"`
	SheetRenameThreshold   float64 `mapstructure:"sheet_rename_threshold"`
	ShapeSimilarity        float64 `mapstructure:"shape_similarity"`
	PositionToleranceEMU   int64   `mapstructure:"position_tolerance_emu"`
	AddSummarySlide        bool    `mapstructure:"add_summary_slide"`
	AddNotesAnnotations    bool    `mapstructure:"add_notes_annotations"`
	ShowDeletedRows        bool    `mapstructure:"show_deleted_rows"`
}

// Load reads the configuration. If configPath is empty, oodiff.yaml in
// the working directory is tried; a missing file falls back to defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := configPath != ""
	if configPath == "" {
		configPath = "oodiff.yaml"
	}
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named config must load; the implicit default may
		// simply not exist.
		if explicit {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
		if _, statErr := os.Stat(configPath); statErr == nil {
			return nil, fmt.Errorf("config: reading %s: %w", configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("author", "Comparer")
	v.SetDefault("verbose", false)
	v.SetDefault("log_file", "")
	v.SetDefault("output.path", "")
	v.SetDefault("output.json", false)
	v.SetDefault("compare.detail_threshold", 0.15)
	v.SetDefault("compare.match_threshold", 0.4)
	v.SetDefault("compare.sheet_rename_threshold", 0.8)
	v.SetDefault("compare.shape_similarity", 0.5)
	v.SetDefault("compare.position_tolerance_emu", 10000)
	v.SetDefault("compare.add_summary_slide", false)
	v.SetDefault("compare.add_notes_annotations", false)
	v.SetDefault("compare.show_deleted_rows", true)
}
