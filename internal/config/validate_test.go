package config

import (
	"strings"
	"testing"
)

func TestValidateNegativeIndicesAreClamped(t *testing.T) {
	cfg := Default()
	cfg.DisplayIndex = -2
	cfg.DeviceIndex = -1
	errs := cfg.Validate()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if cfg.DisplayIndex != 0 {
		t.Fatalf("DisplayIndex = %d, want 0 (clamped)", cfg.DisplayIndex)
	}
	if cfg.DeviceIndex != 0 {
		t.Fatalf("DeviceIndex = %d, want 0 (clamped)", cfg.DeviceIndex)
	}
}

func TestValidateUnknownOutputFormat(t *testing.T) {
	cfg := Default()
	cfg.OutputFormat = "yuyv"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for unknown output format")
	}
	if !strings.Contains(errs[0].Error(), "yuyv") {
		t.Fatalf("error should name the bad format: %v", errs[0])
	}
}

func TestValidateOutputFormatCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.OutputFormat = "RGB32"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("RGB32 should validate, got: %v", errs)
	}
}

func TestValidateAcquireTimeoutClamping(t *testing.T) {
	cfg := Default()
	cfg.AcquireTimeoutMS = 0
	cfg.Validate()
	if cfg.AcquireTimeoutMS != 1 {
		t.Fatalf("AcquireTimeoutMS = %d, want 1 (clamped)", cfg.AcquireTimeoutMS)
	}

	cfg = Default()
	cfg.AcquireTimeoutMS = 60000
	cfg.Validate()
	if cfg.AcquireTimeoutMS != 10000 {
		t.Fatalf("AcquireTimeoutMS = %d, want 10000 (clamped)", cfg.AcquireTimeoutMS)
	}
}

func TestValidateNegativeFrameCountClamped(t *testing.T) {
	cfg := Default()
	cfg.FrameCount = -5
	cfg.Validate()
	if cfg.FrameCount != 0 {
		t.Fatalf("FrameCount = %d, want 0 (clamped)", cfg.FrameCount)
	}
}

func TestValidateUnknownLogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "verbose"
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected error for unknown log level")
	}
}

func TestValidateInvalidLogFormat(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "xml"
	if errs := cfg.Validate(); len(errs) == 0 {
		t.Fatal("expected error for invalid log format")
	}
}

func TestValidDefaultsHaveNoErrors(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config has errors: %v", errs)
	}
}
