package config

import (
	"fmt"
	"log/slog"
	"strings"
)

var validOutputFormats = map[string]bool{
	"nv12":  true,
	"rgb32": true,
}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

// Validate checks the config for invalid values and returns all errors found.
// Dangerous values that would break the capture loop are clamped to safe
// defaults. Other validation errors are logged as warnings but do not
// prevent startup.
func (c *Config) Validate() []error {
	var errs []error

	if c.DisplayIndex < 0 {
		errs = append(errs, fmt.Errorf("display_index %d is negative, clamping to 0", c.DisplayIndex))
		c.DisplayIndex = 0
	}

	if c.DeviceIndex < 0 {
		errs = append(errs, fmt.Errorf("device_index %d is negative, clamping to 0", c.DeviceIndex))
		c.DeviceIndex = 0
	}

	if c.OutputFormat != "" && !validOutputFormats[strings.ToLower(c.OutputFormat)] {
		errs = append(errs, fmt.Errorf("output_format %q is not valid (use nv12 or rgb32)", c.OutputFormat))
	}

	if c.FrameCount < 0 {
		errs = append(errs, fmt.Errorf("frame_count %d is negative, clamping to 0", c.FrameCount))
		c.FrameCount = 0
	}

	// Clamp the acquire timeout to a sane range. Zero would make every
	// acquisition a miss, and long timeouts stall Stop.
	if c.AcquireTimeoutMS < 1 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms %d is below minimum 1, clamping", c.AcquireTimeoutMS))
		c.AcquireTimeoutMS = 1
	} else if c.AcquireTimeoutMS > 10000 {
		errs = append(errs, fmt.Errorf("acquire_timeout_ms %d exceeds maximum 10000, clamping", c.AcquireTimeoutMS))
		c.AcquireTimeoutMS = 10000
	}

	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("log_level %q is not valid (use debug, info, warn, error)", c.LogLevel))
	}

	if c.LogFormat != "" && c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format %q is not valid (use text or json)", c.LogFormat))
	}

	// Log validation errors as warnings
	for _, err := range errs {
		slog.Warn("config validation", "error", err)
	}

	return errs
}
