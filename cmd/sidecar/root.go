package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/sunsunmonkey/code-sidercar-sub001/internal/app"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/config"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/db"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/host"
	"github.com/sunsunmonkey/code-sidercar-sub001/internal/logging"
)

var (
	configPath string
	socketFlag string
	hostCmd    string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "sidecar",
	Short: "Terminal client for a coding agent host",
	Long: `sidecar connects to a running agent host, shows the conversation as it
streams in, and lets you answer permission prompts, switch conversations and
send new messages from the terminal.`,
	SilenceUsage: true,
	RunE:         runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.Path()+")")
	rootCmd.PersistentFlags().StringVar(&socketFlag, "socket", "", "host socket path")
	rootCmd.PersistentFlags().StringVar(&hostCmd, "host-cmd", "", "spawn the host with this command instead of dialing a socket")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line flags over it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if socketFlag != "" {
		cfg.Host.Socket = socketFlag
	}
	if hostCmd != "" {
		cfg.Host.Command = hostCmd
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Validate()
}

func openLogger(cfg *config.Config) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := logging.ParseFormat(cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return logging.Open(logging.Config{Level: level, Format: format, Path: cfg.Log.Path})
}

// dialer returns how to reach the host: spawn it when a command is set,
// otherwise dial its socket.
func dialer(ctx context.Context, cfg config.HostConfig, log *slog.Logger) app.Dialer {
	return func() (*host.Client, error) {
		if cfg.Command != "" {
			return host.Spawn(ctx, cfg.Command, cfg.Args, host.WithLogger(log))
		}
		socket := cfg.Socket
		if socket == "" {
			socket = host.SocketPath()
		}
		return host.Connect(socket, host.WithLogger(log))
	}
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, closer, err := openLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	path := configPath
	if path == "" {
		path = config.Path()
	}
	watcher, err := config.Watch(path, cfg)
	if err != nil {
		log.Warn("config watch disabled", "error", err)
		watcher = nil
	} else {
		defer watcher.Close()
	}

	historyPath := cfg.History.Path
	if historyPath == "" {
		historyPath = db.DefaultDBPath()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := app.New(app.Options{
		Dial:        dialer(ctx, cfg.Host, log),
		Config:      cfg,
		Watcher:     watcher,
		HistoryPath: historyPath,
		Logger:      log,
	})
	log.Info("starting", "config", path, "history", historyPath)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
