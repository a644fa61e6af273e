package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/leafcam/leafcam/internal/app"
	"github.com/leafcam/leafcam/internal/classify"
	"github.com/leafcam/leafcam/internal/config"
	"github.com/leafcam/leafcam/internal/daemon"
	"github.com/leafcam/leafcam/internal/logging"
	"github.com/leafcam/leafcam/internal/preflight"
	"github.com/leafcam/leafcam/internal/preview"
	"github.com/leafcam/leafcam/internal/session"
	"github.com/leafcam/leafcam/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var modeFlag string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a capture session",
		Long: "Start a capture session. Without --mode the session asks whether the\n" +
			"operator will annotate each capture with its true severity.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var mode session.Mode
			if strings.TrimSpace(modeFlag) != "" {
				parsed, err := session.ParseMode(modeFlag)
				if err != nil {
					return err
				}
				mode = parsed
			}
			if !isTerminal(os.Stdout) {
				return errors.New("run needs an interactive terminal")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return runSession(cmd.Context(), cfg, mode)
		},
	}

	cmd.Flags().StringVar(&modeFlag, "mode", "", "Session mode (autonomous or expert)")
	return cmd
}

func runSession(parent context.Context, cfg *config.Config, mode session.Mode) error {
	signalCtx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The TUI owns the terminal, so logs only go to the file.
	logger, closeLog, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{cfg.LogPath()},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()

	results := preflight.RunAll(signalCtx, cfg)
	for _, r := range results {
		level := slog.LevelInfo
		if !r.Passed {
			level = slog.LevelWarn
		}
		logger.Log(signalCtx, level, "preflight", "check", r.Name, "passed", r.Passed, "detail", r.Detail)
	}
	if blocking := preflight.Blocking(results); len(blocking) > 0 {
		return fmt.Errorf("preflight %s failed: %s (run `leafcam check` for details)", blocking[0].Name, blocking[0].Detail)
	}

	previewClient, controlClient, err := daemon.ConnectPair(signalCtx, cfg.Sidecar.Socket)
	if err != nil {
		return wrapDialError(err, cfg.Sidecar.Socket)
	}
	defer previewClient.Close()
	defer controlClient.Close()

	camera := daemon.NewCamera(controlClient)
	adapter := classify.NewAdapter(
		daemon.NewEngine(controlClient),
		classify.WithInputSize(cfg.Model.InputWidth, cfg.Model.InputHeight),
	)

	var (
		opened  atomic.Pointer[session.Session]
		running atomic.Pointer[workflow.Controller]
	)
	start := func(mode session.Mode) (app.Controller, int, error) {
		sess, err := session.Open(session.Options{
			Mode:      mode,
			OutputDir: cfg.Paths.OutputDir,
			ExpertDir: cfg.Paths.ExpertDir,
			Logger:    logger,
		})
		if err != nil {
			logger.Error("open session failed", logging.Error(err))
			return nil, 0, err
		}
		opened.Store(sess)
		sess.Logger().Info("session started",
			logging.FieldPath, sess.Log().Path(),
			logging.FieldTrialID, sess.FirstTrialID(),
		)
		ctrl := workflow.New(sess, camera, adapter,
			workflow.WithSettleDelay(cfg.SettleDelay()),
			workflow.WithArtifactOptions(workflow.ArtifactOptions{
				RotateDegrees: cfg.Artifact.RotateDegrees,
				JPEGQuality:   cfg.Artifact.JPEGQuality,
			}),
		)
		running.Store(ctrl)
		return ctrl, sess.FirstTrialID(), nil
	}

	program := tea.NewProgram(
		app.New(app.Options{Mode: mode, Start: start, Context: signalCtx}),
		tea.WithAltScreen(),
		tea.WithContext(signalCtx),
	)

	ticker := &preview.Ticker{
		Source:   previewSource(daemon.NewCamera(previewClient), cfg.Capture.PreviewWidth, cfg.Capture.PreviewHeight),
		Interval: cfg.PreviewInterval(),
		OnFrame: func(img image.Image) {
			program.Send(app.PreviewFrameMsg{Frame: img})
		},
		OnError: func(err error, failures int) {
			if failures == 1 || failures%100 == 0 {
				logger.Warn("preview frame failed", logging.Error(err), "failures", failures)
			}
			program.Send(app.PreviewErrorMsg{Err: err, Failures: failures})
		},
	}

	tickerCtx, stopTicker := context.WithCancel(signalCtx)
	defer stopTicker()

	var final tea.Model
	g := new(errgroup.Group)
	g.Go(func() error {
		defer stopTicker()
		m, err := program.Run()
		final = m
		if errors.Is(err, tea.ErrProgramKilled) && signalCtx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return ticker.Run(tickerCtx)
	})
	runErr := g.Wait()

	// A trial may still be persisting when the program exits.
	if ctrl := running.Load(); ctrl != nil {
		ctrl.Close()
	}

	frames, failures := ticker.Stats()
	if sess := opened.Load(); sess != nil {
		if err := sess.Close(); err != nil {
			sess.Logger().Error("close session failed", logging.Error(err))
			runErr = errors.Join(runErr, err)
		}
		sess.Logger().Info("session closed", "preview_frames", frames, "preview_failures", failures)
	}
	if runErr != nil {
		return runErr
	}
	if m, ok := final.(app.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

// previewSource scales frames to the device preview geometry when the
// sidecar sends a different size.
func previewSource(cam *daemon.Camera, width, height int) preview.Source {
	return preview.SourceFunc(func(ctx context.Context) (image.Image, error) {
		img, err := cam.Frame(ctx)
		if err != nil {
			return nil, err
		}
		b := img.Bounds()
		if width <= 0 || height <= 0 || (b.Dx() == width && b.Dy() == height) {
			return img, nil
		}
		return classify.Normalize(img, width, height), nil
	})
}
