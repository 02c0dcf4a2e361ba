// Command tina-daemon runs the node-resident sync and control daemon: it
// mirrors local orchestration state to the control-plane document store and
// dispatches operator actions back down to the session CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joshuabates/tina-daemon/internal/app"
	"github.com/joshuabates/tina-daemon/internal/supervisor"
)

// version is set via ldflags (-X main.version=v1.0.0) or detected
// automatically from Go module info embedded by go install.
var version = "dev"

func main() {
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
	if err := execute(); err != nil {
		os.Exit(1)
	}
}

func execute() error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var configPath string

	root := &cobra.Command{
		Use:           "tina-daemon",
		Short:         "Sync and control daemon for node-resident agent orchestration",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), logger, configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: ~/.config/tina/config.toml)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		logger.Error("daemon exited with error", slog.Any("error", err))
	}
	return err
}

func run(ctx context.Context, logger *slog.Logger, configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = app.DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("resolve default config path: %w", err)
		}
		if err := app.EnsureConfigDir(); err != nil {
			return fmt.Errorf("ensure config directory: %w", err)
		}
	}

	cfg, err := app.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pidPath, err := app.PIDFilePath()
	if err != nil {
		return fmt.Errorf("resolve pid file path: %w", err)
	}
	lockPath, err := app.LockFilePath()
	if err != nil {
		return fmt.Errorf("resolve lock file path: %w", err)
	}

	lockFile, err := app.AcquireLockFile(lockPath)
	if err != nil {
		return err
	}
	defer app.ReleaseLockFile(lockFile)

	if err := app.AcquirePIDFile(pidPath); err != nil {
		return err
	}
	defer func() {
		if relErr := app.ReleasePIDFile(pidPath); relErr != nil {
			logger.Warn("release pid file failed", slog.Any("error", relErr))
		}
	}()

	sup, err := supervisor.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize supervisor: %w", err)
	}

	if err := sup.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
