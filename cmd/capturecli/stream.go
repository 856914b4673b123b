package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framewell/capture"
	"github.com/framewell/capture/internal/config"
	"github.com/framewell/capture/internal/logging"
)

func listMonitors() {
	monitors, err := capture.ListMonitors()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate displays: %v\n", err)
		os.Exit(1)
	}
	if len(monitors) == 0 {
		fmt.Println("No displays found")
		return
	}
	for _, m := range monitors {
		primary := ""
		if m.IsPrimary {
			primary = " (primary)"
		}
		fmt.Printf("[%d] %s  %dx%d at %d,%d%s\n", m.Index, m.Name, m.Width, m.Height, m.X, m.Y, primary)
	}
}

func listDevices() {
	devices, err := capture.ListVideoDevices()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enumerate video devices: %v\n", err)
		os.Exit(1)
	}
	if len(devices) == 0 {
		fmt.Println("No video capture devices found")
		return
	}
	for _, d := range devices {
		fmt.Printf("[%d] %s\n", d.Index, d.Name)
	}
}

func runScreen(cfg *config.Config) {
	log := logging.L("screen")

	sess, err := capture.NewScreenSession(capture.ScreenConfig{
		DisplayIndex:   cfg.DisplayIndex,
		AcquireTimeout: time.Duration(cfg.AcquireTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open display %d: %v\n", cfg.DisplayIndex, err)
		os.Exit(1)
	}
	defer sess.Close()

	dims, err := sess.Dimensions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query display dimensions: %v\n", err)
		os.Exit(1)
	}
	log.Info("duplication ready",
		logging.KeyDisplay, cfg.DisplayIndex,
		"width", dims.Width, "height", dims.Height)

	streamFrames(sess, cfg.FrameCount, log)
}

func runCamera(cfg *config.Config) {
	log := logging.L("camera")

	format := capture.FormatRaw
	if cfg.OutputFormat == "rgb32" {
		format = capture.FormatConverted
	}

	sess, err := capture.ActivateVideoDevice(cfg.DeviceIndex, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open video device %d: %v\n", cfg.DeviceIndex, err)
		os.Exit(1)
	}
	defer sess.Close()

	if dims, err := sess.Dimensions(); err == nil {
		log.Info("reader ready",
			logging.KeyDevice, cfg.DeviceIndex,
			logging.KeyFormat, format.String(),
			"width", dims.Width, "height", dims.Height)
	} else {
		log.Warn("dimensions unavailable", logging.KeyError, err)
	}

	streamFrames(sess, cfg.FrameCount, log)
}

// streamFrames consumes the session's frame stream until the frame
// limit is reached or the process is interrupted, then reports
// aggregate statistics. Frames are not persisted anywhere.
func streamFrames(sess capture.Session, limit int, log *slog.Logger) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- sess.Start() }()

	rx := sess.Subscribe()
	start := time.Now()
	var frames, totalBytes, moved, dirty int

	for limit == 0 || frames < limit {
		frame, err := rx.Recv(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				log.Error("receive failed", logging.KeyError, err)
			}
			break
		}
		frames++
		totalBytes += len(frame)
		if mp, ok := sess.(capture.MetadataProvider); ok {
			meta := mp.Metadata()
			moved += int(meta.MovedCount)
			dirty += int(meta.DirtyCount)
		}
	}

	if err := sess.Stop(); err != nil && !errors.Is(err, capture.ErrAlreadyStopped) {
		log.Warn("stop failed", logging.KeyError, err)
	}
	// Unblock a producer stuck handing off a frame nobody will read.
	rx.Close()
	if err := <-done; err != nil && !errors.Is(err, capture.ErrSendFailed) {
		log.Error("capture loop failed", logging.KeyError, err)
	}

	elapsed := time.Since(start)
	fps := 0.0
	if elapsed > 0 {
		fps = float64(frames) / elapsed.Seconds()
	}
	log.Info("capture finished",
		logging.KeyFrames, frames,
		"bytes", totalBytes,
		"moveRects", moved,
		"dirtyRects", dirty,
		logging.KeyDurationMs, elapsed.Milliseconds(),
		"fps", fmt.Sprintf("%.1f", fps))
}
