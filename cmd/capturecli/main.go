package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/framewell/capture/internal/config"
	"github.com/framewell/capture/internal/logging"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string

	displayIndex  int
	deviceIndex   int
	formatName    string
	frameCount    int
	timeoutMillis int
)

var rootCmd = &cobra.Command{
	Use:   "capturecli",
	Short: "Framewell capture tool",
	Long:  `Framewell capture - stream frames from displays and video devices on Windows`,
}

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List attached displays",
	Run: func(cmd *cobra.Command, args []string) {
		listMonitors()
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List video capture devices",
	Run: func(cmd *cobra.Command, args []string) {
		listDevices()
	},
}

var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "Stream frames from a display",
	Run: func(cmd *cobra.Command, args []string) {
		runScreen(loadConfig())
	},
}

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Stream frames from a video device",
	Run: func(cmd *cobra.Command, args []string) {
		runCamera(loadConfig())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Framewell capture v%s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is capture.yaml)")

	screenCmd.Flags().IntVar(&displayIndex, "display", -1, "display index to duplicate (0 = primary)")
	screenCmd.Flags().IntVar(&timeoutMillis, "timeout-ms", 0, "per-frame acquire timeout in milliseconds")
	cameraCmd.Flags().IntVar(&deviceIndex, "device", -1, "video device index")
	cameraCmd.Flags().StringVar(&formatName, "format", "", "output format: nv12 or rgb32")
	for _, c := range []*cobra.Command{screenCmd, cameraCmd} {
		c.Flags().IntVar(&frameCount, "frames", -1, "stop after this many frames (0 = until interrupted)")
	}

	rootCmd.AddCommand(monitorsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(cameraCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges the config file with command-line overrides and
// initializes logging.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if displayIndex >= 0 {
		cfg.DisplayIndex = displayIndex
	}
	if deviceIndex >= 0 {
		cfg.DeviceIndex = deviceIndex
	}
	if formatName != "" {
		cfg.OutputFormat = strings.ToLower(formatName)
	}
	if frameCount >= 0 {
		cfg.FrameCount = frameCount
	}
	if timeoutMillis > 0 {
		cfg.AcquireTimeoutMS = timeoutMillis
	}

	cfg.Validate()
	logging.Init(cfg.LogFormat, cfg.LogLevel, nil)
	return cfg
}
