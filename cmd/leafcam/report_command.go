package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/leafcam/leafcam/internal/config"
	"github.com/leafcam/leafcam/internal/db"
	"github.com/leafcam/leafcam/internal/report"
	"github.com/leafcam/leafcam/internal/resultlog"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var sessionID string
	var csvPath string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize classification accuracy for a session",
		Long: "Summarize a session's trials. Reads the trial index by default (latest\n" +
			"session unless --session is given); --csv reads a result log directly.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sessionID != "" && csvPath != "" {
				return errors.New("--session and --csv are mutually exclusive")
			}

			var (
				trials []report.Trial
				title  string
			)
			if csvPath != "" {
				path, err := config.ExpandPath(csvPath)
				if err != nil {
					return fmt.Errorf("resolve csv path: %w", err)
				}
				rows, err := resultlog.ReadFile(path)
				if err != nil {
					return err
				}
				trials = report.FromRows(rows)
				title = "Result log " + filepath.Base(path)
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				trials, title, err = indexedTrials(cfg, sessionID)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			return report.Render(out, report.Summarize(trials), report.RenderOptions{
				Title: title,
				Color: isTerminal(out),
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session id to report (default: latest)")
	cmd.Flags().StringVar(&csvPath, "csv", "", "Result log CSV to report instead of the index")
	return cmd
}

func openIndex(cfg *config.Config) (*db.Store, error) {
	path := db.DefaultPath(cfg.Paths.OutputDir)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no trial index at %s; run a session first", path)
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}
	return db.OpenReadOnly(path)
}

func indexedTrials(cfg *config.Config, sessionID string) ([]report.Trial, string, error) {
	store, err := openIndex(cfg)
	if err != nil {
		return nil, "", err
	}
	defer store.Close()

	var sess *db.Session
	if sessionID == "" {
		sess, err = store.LatestSession()
	} else {
		sess, err = store.SessionByID(sessionID)
	}
	if err != nil {
		return nil, "", fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		if sessionID == "" {
			return nil, "", errors.New("no sessions recorded")
		}
		return nil, "", fmt.Errorf("session %s not found", sessionID)
	}

	rows, err := store.TrialsForSession(sess.ID)
	if err != nil {
		return nil, "", fmt.Errorf("load trials: %w", err)
	}
	title := fmt.Sprintf("Session %s (%s, started %s)", sess.ID, sess.Mode, sess.StartedAt.Local().Format("2006-01-02 15:04:05"))
	return report.FromIndex(rows), title, nil
}

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List recorded sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, err := openIndex(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			sessions, err := store.Sessions()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				fmt.Fprintln(out, "No sessions recorded")
				return nil
			}

			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				trials, err := store.TrialsForSession(s.ID)
				if err != nil {
					return fmt.Errorf("load trials for %s: %w", s.ID, err)
				}
				rows = append(rows, []string{
					s.ID,
					s.Mode,
					humanize.Time(s.StartedAt),
					strconv.Itoa(s.FirstTrial),
					strconv.Itoa(len(trials)),
					filepath.Base(s.LogPath),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Session", "Mode", "Started", "First", "Trials", "Log"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				isTerminal(out),
			))
			return nil
		},
	}
}
