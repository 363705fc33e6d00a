package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/simp-lee/logger"
)

func boolPtr(b bool) *bool { return &b }

func TestSetupLogger_LevelMapping(t *testing.T) {
	tests := []struct {
		level     string
		wantLevel slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			log, err := SetupLogger(&LogConfig{Level: tt.level, Format: "text"})
			if err != nil {
				t.Fatalf("SetupLogger error: %v", err)
			}
			defer log.Close()

			if !log.Enabled(context.Background(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > slog.LevelDebug && log.Enabled(context.Background(), tt.wantLevel-1) {
				t.Errorf("expected level %v to be disabled", tt.wantLevel-1)
			}
		})
	}
}

func TestSetupLogger_NilConfig(t *testing.T) {
	if _, err := SetupLogger(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestSetupLogger_SetsDefault(t *testing.T) {
	log, err := SetupLogger(&LogConfig{Level: "warn", Format: "text"})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	defer log.Close()

	if slog.Default().Handler() != log.Handler() {
		t.Error("SetupLogger did not set slog.Default()")
	}
}

func TestSetupLogger_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := SetupLogger(&LogConfig{
		Level:           "info",
		Format:          "json",
		FilePath:        path,
		MaxSizeMB:       10,
		RetentionDays:   7,
		MaxBackups:      3,
		CompressRotated: boolPtr(true),
	})
	if err != nil {
		t.Fatalf("SetupLogger error: %v", err)
	}
	log.Info("booking accepted", slog.Uint64("booking_id", 7))
	log.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected log file to contain the record")
	}
}

func TestBuildLoggerOpts(t *testing.T) {
	// Level, middleware, console format and console colour are always set;
	// a file sink adds path and format plus one option per rotation setting.
	tests := []struct {
		name string
		cfg  *LogConfig
		want int
	}{
		{"nil", nil, 0},
		{"console only", &LogConfig{Level: "info", Format: "text"}, 4},
		{"rotation ignored without file", &LogConfig{Level: "info", MaxSizeMB: 5, MaxBackups: 2}, 4},
		{"file", &LogConfig{Level: "info", Format: "json", FilePath: "x.log"}, 6},
		{"file with rotation", &LogConfig{
			Level: "info", Format: "json", FilePath: "x.log",
			MaxSizeMB: 10, RetentionDays: 7, MaxBackups: 3, CompressRotated: boolPtr(false),
		}, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(BuildLoggerOpts(tt.cfg)); got != tt.want {
				t.Errorf("len(BuildLoggerOpts) = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBuildLoggerOpts_ProducesValidLogger(t *testing.T) {
	for _, cfg := range []*LogConfig{
		{Level: "debug", Format: "text"},
		{Level: "warn", Format: "json", Color: boolPtr(false)},
		{Level: "info", Format: "custom"},
	} {
		log, err := logger.New(BuildLoggerOpts(cfg)...)
		if err != nil {
			t.Fatalf("logger.New(%+v) failed: %v", cfg, err)
		}
		log.Close()
	}
}
