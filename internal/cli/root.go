// Package cli wires the command-line surface: a single command that loads
// a task, prepares the submission store and leaderboard, and serves the
// HTTP surface until interrupted.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/classbench/perfclass/internal/config"
	"github.com/classbench/perfclass/internal/leaderboard"
	"github.com/classbench/perfclass/internal/server"
	"github.com/classbench/perfclass/internal/store"
	"github.com/classbench/perfclass/internal/task"
)

// Version and Commit are set via LDFLAGS at build time.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	verbose               bool
	host                  string
	port                  int
	public                bool
	regenerateLeaderboard bool
	root                  string
	configFile            string
)

// NewRootCmd builds the perfclass command: `perfclass <task>`.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perfclass <task>",
		Short: "Classroom performance-competition server",
		Long:  "perfclass serves a classroom performance-competition: students submit code, it is built and measured against a task's benchmark harness, and results are ranked on a leaderboard.",
		Args:  cobra.ExactArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			})))
		},
		RunE:          runServe,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "address to bind")
	cmd.Flags().IntVar(&port, "port", 5000, "port to listen on")
	cmd.Flags().BoolVarP(&public, "public", "P", false, "enable public read mode (submission links visible to everyone)")
	cmd.Flags().BoolVarP(&regenerateLeaderboard, "regenerate-leaderboard", "R", false, "force a leaderboard rebuild from the submission store")
	cmd.Flags().StringVar(&root, "root", ".", "workspace root containing tasks/, submissions/, leaderboard/, runtime/")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&configFile, "config", "perfclass.yml", "path to optional settings file")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	taskName := args[0]

	settings, err := config.LoadSettings(filepath.Join(root, configFile))
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	applySettingsDefaults(cmd, settings)

	spec, err := task.Load(filepath.Join(root, "tasks"), taskName)
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	s := store.New(root)
	board := leaderboard.New(filepath.Join(root, "leaderboard", taskName))

	entries, err := loadLeaderboard(s, board, root, taskName, regenerateLeaderboard)
	if err != nil {
		return fmt.Errorf("load leaderboard: %w", err)
	}
	board.Load(entries)
	slog.Info("leaderboard ready", "task", taskName, "entries", len(entries), "regenerated", regenerateLeaderboard)

	srv, err := server.New(server.Config{
		Host:   host,
		Port:   port,
		Root:   root,
		Task:   spec,
		Store:  s,
		Board:  board,
		Public: public,
	})
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}

	addr, err := srv.Start()
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	slog.Info("perfclass serving", "addr", addr, "version", Version, "commit", Commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

// applySettingsDefaults fills in flag values from perfclass.yml only where
// the operator did not pass the corresponding flag explicitly; flags
// always win over the config file.
func applySettingsDefaults(cmd *cobra.Command, s *config.Settings) {
	if !cmd.Flags().Changed("host") && s.Host != "" {
		host = s.Host
	}
	if !cmd.Flags().Changed("port") && s.Port != 0 {
		port = s.Port
	}
	if !cmd.Flags().Changed("public") && s.Public {
		public = s.Public
	}
	if !cmd.Flags().Changed("regenerate-leaderboard") && s.RegenerateLeaderboard {
		regenerateLeaderboard = s.RegenerateLeaderboard
	}
}

// loadLeaderboard loads leaderboard entries from the persisted projection,
// falling back to a full store scan when the projection is empty/absent
// or the operator forced a rebuild.
func loadLeaderboard(s *store.Store, board *leaderboard.Board, root, taskName string, forceRebuild bool) ([]leaderboard.Entry, error) {
	if !forceRebuild {
		entries, err := leaderboard.RebuildFromProjection(filepath.Join(root, "leaderboard", taskName))
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			return entries, nil
		}
	}
	return leaderboard.RebuildFromStore(s, root, taskName)
}
