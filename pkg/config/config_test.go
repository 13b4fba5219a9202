package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/luispater/matroska-tree-go/pkg/errors"
)

// setEnv sets key for the duration of the test, restoring the original value
func setEnv(t *testing.T, key, value string) {
	original, ok := os.LookupEnv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, original)
		} else {
			os.Unsetenv(key)
		}
	})
	if value == "" {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, value)
	}
}

func TestNewConfig(t *testing.T) {
	setEnv(t, "MKVTREE_CACHE", "")
	setEnv(t, "MKVTREE_NO_COLOR", "")
	setEnv(t, "MKVTREE_TRACKS", "")

	cfg := NewConfig()

	if !cfg.UseColors {
		t.Error("Expected use colors to be true")
	}
	if cfg.QuietMode || cfg.Verbose {
		t.Error("Expected quiet and verbose to be false")
	}
	if cfg.CacheFile != "" {
		t.Errorf("Expected no cache file, got %v", cfg.CacheFile)
	}
	if len(cfg.Tracks) != 0 {
		t.Errorf("Expected no tracks, got %v", cfg.Tracks)
	}
	if cfg.ClusterSizeLimit != 5<<20 {
		t.Errorf("Expected cluster size limit 5MiB, got %v", cfg.ClusterSizeLimit)
	}
	if cfg.ClusterDurationLimit != 5000 {
		t.Errorf("Expected cluster duration limit 5000, got %v", cfg.ClusterDurationLimit)
	}
	if cfg.TimestampScale != 1000000 {
		t.Errorf("Expected timestamp scale 1000000, got %v", cfg.TimestampScale)
	}
	if cfg.SequenceWidth != 8 {
		t.Errorf("Expected sequence width 8, got %v", cfg.SequenceWidth)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestNewConfigEnvironment(t *testing.T) {
	setEnv(t, "MKVTREE_CACHE", "/tmp/cues.db")
	setEnv(t, "MKVTREE_NO_COLOR", "1")
	setEnv(t, "MKVTREE_TRACKS", "2,1")

	cfg := NewConfig()

	if cfg.CacheFile != "/tmp/cues.db" {
		t.Errorf("Expected cache file from environment, got %v", cfg.CacheFile)
	}
	if cfg.UseColors {
		t.Error("Expected use colors to be false")
	}
	if len(cfg.Tracks) != 2 || cfg.Tracks[0] != 2 || cfg.Tracks[1] != 1 {
		t.Errorf("Expected tracks [2 1], got %v", cfg.Tracks)
	}
}

func TestParseTrackNumbers(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []uint64
	}{
		{
			name:     "empty environment variable",
			envValue: "",
			expected: []uint64{},
		},
		{
			name:     "single track",
			envValue: "1",
			expected: []uint64{1},
		},
		{
			name:     "tracks with spaces",
			envValue: " 1 , 2 , 3 ",
			expected: []uint64{1, 2, 3},
		},
		{
			name:     "invalid entries",
			envValue: "1,,x,0,-2,4",
			expected: []uint64{1, 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setEnv(t, "TEST_TRACKS", tt.envValue)

			result := parseTrackNumbers("TEST_TRACKS")

			if len(result) != len(tt.expected) {
				t.Errorf("Expected %d tracks, got %d", len(tt.expected), len(result))
				return
			}
			for i, expected := range tt.expected {
				if result[i] != expected {
					t.Errorf("Expected track %d to be %d, got %d", i, expected, result[i])
				}
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mkvtree.yaml")
	content := "verbose: true\ncluster_duration_limit_ms: 2000\ntracks: [3]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	if err := cfg.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if !cfg.Verbose {
		t.Error("Expected verbose from file")
	}
	if cfg.ClusterDurationLimit != 2000 {
		t.Errorf("Expected cluster duration limit 2000, got %v", cfg.ClusterDurationLimit)
	}
	if len(cfg.Tracks) != 1 || cfg.Tracks[0] != 3 {
		t.Errorf("Expected tracks [3], got %v", cfg.Tracks)
	}
	if cfg.ClusterSizeLimit != 5<<20 {
		t.Errorf("Expected default cluster size to survive, got %v", cfg.ClusterSizeLimit)
	}
}

func TestLoadErrors(t *testing.T) {
	cfg := NewConfig()
	err := cfg.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.IsType(err, errors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if errWrite := os.WriteFile(path, []byte("no_such_key: 1\n"), 0o600); errWrite != nil {
		t.Fatal(errWrite)
	}
	err = cfg.Load(path)
	if !errors.IsType(err, errors.ErrorTypeConfiguration) {
		t.Errorf("Expected configuration error for unknown key, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero cluster size", func(c *Config) { c.ClusterSizeLimit = 0 }},
		{"negative duration", func(c *Config) { c.ClusterDurationLimit = -1 }},
		{"zero timestamp scale", func(c *Config) { c.TimestampScale = 0 }},
		{"zero width", func(c *Config) { c.SequenceWidth = 0 }},
		{"wide width", func(c *Config) { c.SequenceWidth = 9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); !errors.IsType(err, errors.ErrorTypeValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestClusterDurationTicks(t *testing.T) {
	cfg := NewConfig()
	if got := cfg.ClusterDurationTicks(); got != 5000 {
		t.Errorf("Expected 5000 ticks at 1ms scale, got %d", got)
	}

	cfg.TimestampScale = 100000
	if got := cfg.ClusterDurationTicks(); got != 50000 {
		t.Errorf("Expected 50000 ticks at 100us scale, got %d", got)
	}

	cfg.TimestampScale = 1 << 40
	if got := cfg.ClusterDurationTicks(); got != 1 {
		t.Errorf("Expected at least one tick, got %d", got)
	}
}
