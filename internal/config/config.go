package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	DisplayIndex     int    `mapstructure:"display_index"`
	DeviceIndex      int    `mapstructure:"device_index"`
	OutputFormat     string `mapstructure:"output_format"`
	FrameCount       int    `mapstructure:"frame_count"`
	AcquireTimeoutMS int    `mapstructure:"acquire_timeout_ms"`
	LogLevel         string `mapstructure:"log_level"`
	LogFormat        string `mapstructure:"log_format"`
}

func Default() *Config {
	return &Config{
		DisplayIndex:     0,
		DeviceIndex:      0,
		OutputFormat:     "nv12",
		FrameCount:       0, // 0 = run until interrupted
		AcquireTimeoutMS: 500,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("capture")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CAPTURE")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Framewell")
	case "darwin":
		return "/Library/Application Support/Framewell"
	default:
		return "/etc/framewell"
	}
}
