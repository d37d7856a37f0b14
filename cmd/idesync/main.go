package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/manavgt54/idesync/internal/daemon"
	"github.com/manavgt54/idesync/internal/sync"
	"github.com/manavgt54/idesync/internal/utils"
	"github.com/manavgt54/idesync/internal/version"
	"github.com/manavgt54/idesync/internal/workspace"
)

var (
	home, _          = os.UserHomeDir()
	defaultServerURL = "http://localhost:5000"
	configFileName   = "config"
	logFileName      = "daemon.log"
)

var rootCmd = &cobra.Command{
	Use:     "idesync",
	Short:   "IDESync keeps a local IDE workspace in sync with a remote file store",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &daemon.Config{
			WorkspaceDir: viper.GetString("workspace"),
			ServerURL:    viper.GetString("server_url"),
			Token:        viper.GetString("token"),
			HTTPAddr:     viper.GetString("http_addr"),
			HTTPToken:    viper.GetString("http_token"),
			SyncInterval: viper.GetDuration("sync_interval"),
			ScanInterval: viper.GetDuration("scan_interval"),
			Sync: &sync.Config{
				MaxFiles:      viper.GetInt("max_files"),
				MaxBatchBytes: viper.GetInt64("max_batch_bytes"),
				Concurrency:   viper.GetInt("concurrency"),
				RetryAttempts: viper.GetInt("retry_attempts"),
				RetryDelay:    time.Duration(viper.GetInt64("retry_delay_ms")) * time.Millisecond,
			},
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		// config is good, errors past this point aren't usage errors
		cmd.SilenceUsage = true

		closeLogs, err := setupLogging(cfg.WorkspaceDir)
		if err != nil {
			return err
		}
		defer closeLogs()

		slog.Info("idesync", "version", version.Version, "revision", version.Revision, "build", version.BuildDate)

		d, err := daemon.New(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		if err := d.Start(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("workspace", "w", ".", "Workspace directory to keep in sync")
	rootCmd.Flags().StringP("server", "s", defaultServerURL, "Remote file store URL")
	rootCmd.Flags().String("token", "", "Bearer token for the remote file store")
	rootCmd.Flags().StringP("http-addr", "a", daemon.DefaultHTTPAddr, "Address to bind the local control plane")
	rootCmd.Flags().StringP("http-token", "t", "", "Access token for the local control plane")
	rootCmd.Flags().Duration("sync-interval", daemon.DefaultSyncInterval, "Interval between sync passes")
	rootCmd.Flags().Duration("scan-interval", daemon.DefaultScanInterval, "Interval between full workspace scans")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default ~/.idesync/config.json)")
}

func main() {
	// stdout-only logging until the workspace log file location is known
	slog.SetDefault(slog.New(stdoutHandler()))

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	// a .env in the working directory can carry IDESYNC_* settings
	_ = godotenv.Load()

	// config path
	if cmd.Flags().Lookup("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		viper.SetConfigFile(configFilePath)
	} else {
		viper.AddConfigPath(filepath.Join(home, ".idesync"))
		viper.AddConfigPath(filepath.Join(home, ".config/idesync"))
		viper.SetConfigName(configFileName)
		viper.SetConfigType("json")
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", viper.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper. Subcommands carry a subset of the root flags,
	// so only bind what the invoking command defines.
	bindFlag := func(key, name string) {
		if f := cmd.Flags().Lookup(name); f != nil {
			viper.BindPFlag(key, f)
		}
	}
	bindFlag("workspace", "workspace")
	bindFlag("server_url", "server")
	bindFlag("token", "token")
	bindFlag("http_addr", "http-addr")
	bindFlag("http_token", "http-token")
	bindFlag("sync_interval", "sync-interval")
	bindFlag("scan_interval", "scan-interval")

	// Set up environment variables
	viper.SetEnvPrefix("IDESYNC")
	viper.AutomaticEnv()

	return nil
}

func stdoutHandler() slog.Handler {
	return tint.NewHandler(os.Stdout, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})
}

// setupLogging swaps the default logger for one that writes to stdout and to
// the workspace's own log file. Returns a closer that flushes the file.
func setupLogging(workspaceDir string) (func(), error) {
	ws, err := workspace.NewWorkspace(workspaceDir)
	if err != nil {
		return nil, err
	}
	if err := utils.EnsureDir(ws.LogsDir); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	// fresh log file per daemon instance
	logPath := filepath.Join(ws.LogsDir, logFileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logInterceptor := utils.NewLogInterceptor(file)
	fileHandler := slog.NewTextHandler(logInterceptor, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		// Do not include time as it is added by the log interceptor.
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	})

	logger := slog.New(utils.NewMultiLogHandler(stdoutHandler(), fileHandler))
	slog.SetDefault(logger)

	return func() {
		logInterceptor.Close()
		file.Close()
	}, nil
}
