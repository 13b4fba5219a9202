package config

import (
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/luispater/matroska-tree-go/pkg/errors"
)

// Config holds all configuration for the mkvtree tool
type Config struct {
	// Output options
	UseColors bool   `yaml:"use_colors"`
	QuietMode bool   `yaml:"quiet"`
	Verbose   bool   `yaml:"verbose"`
	LogFile   string `yaml:"log_file"`

	// Cue cache
	CacheFile string `yaml:"cache_file"`

	// Extraction defaults
	Tracks []uint64 `yaml:"tracks"`

	// Muxing options
	ClusterSizeLimit     int64  `yaml:"cluster_size_limit"`
	ClusterDurationLimit int64  `yaml:"cluster_duration_limit_ms"`
	TimestampScale       uint64 `yaml:"timestamp_scale"`
	SequenceWidth        int    `yaml:"sequence_width"`
}

// parseTrackNumbers parses comma-separated track numbers from an environment
// variable, skipping entries that are not positive integers
func parseTrackNumbers(envKey string) []uint64 {
	value := os.Getenv(envKey)
	if value == "" {
		return []uint64{}
	}

	var result []uint64
	for _, field := range strings.Split(value, ",") {
		number, err := strconv.ParseUint(strings.TrimSpace(field), 10, 64)
		if err == nil && number > 0 {
			result = append(result, number)
		}
	}
	return result
}

// NewConfig creates a new configuration with default values, then applies
// the MKVTREE_* environment variables
func NewConfig() *Config {
	cfg := &Config{
		UseColors:            true,
		QuietMode:            false,
		Verbose:              false,
		Tracks:               parseTrackNumbers("MKVTREE_TRACKS"),
		ClusterSizeLimit:     5 << 20,
		ClusterDurationLimit: 5000,
		TimestampScale:       1000000,
		SequenceWidth:        8,
	}
	if cache := os.Getenv("MKVTREE_CACHE"); cache != "" {
		cfg.CacheFile = cache
	}
	if os.Getenv("MKVTREE_NO_COLOR") != "" {
		cfg.UseColors = false
	}
	return cfg
}

// Load merges the YAML file at path over c. Keys missing from the file keep
// their current values.
func (c *Config) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfigurationError("cannot read config file", err).WithContext("path", path)
	}
	if err = yaml.UnmarshalStrict(data, c); err != nil {
		return errors.NewConfigurationError("invalid config file", err).WithContext("path", path)
	}
	return nil
}

// Validate checks the muxing limits
func (c *Config) Validate() error {
	if c.ClusterSizeLimit <= 0 {
		return errors.NewValidationError("cluster size limit must be positive", nil).
			WithContext("cluster_size_limit", c.ClusterSizeLimit)
	}
	if c.ClusterDurationLimit <= 0 {
		return errors.NewValidationError("cluster duration limit must be positive", nil).
			WithContext("cluster_duration_limit_ms", c.ClusterDurationLimit)
	}
	if c.TimestampScale == 0 {
		return errors.NewValidationError("timestamp scale must be positive", nil)
	}
	if c.SequenceWidth < 1 || c.SequenceWidth > 8 {
		return errors.NewValidationError("sequence width must be between 1 and 8", nil).
			WithContext("sequence_width", c.SequenceWidth)
	}
	return nil
}

// ClusterDurationTicks converts the cluster duration limit to TimestampScale
// units, at least one.
func (c *Config) ClusterDurationTicks() int64 {
	ticks := c.ClusterDurationLimit * 1000000 / int64(c.TimestampScale)
	if ticks < 1 {
		return 1
	}
	return ticks
}
