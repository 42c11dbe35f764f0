// Package cli wires the matchwatch commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"matchwatch/internal/config"
	"matchwatch/internal/logger"
	"matchwatch/internal/notify"
	"matchwatch/internal/primeleague"
	"matchwatch/internal/reconcile"
	"matchwatch/internal/storage"
)

// app carries the resolved configuration between the root command and its subcommands
type app struct {
	cfg config.Config

	configPath  string
	logLevel    string
	logPretty   bool
	stateDriver string
	stateDir    string

	// logOut overrides the log destination (tests)
	logOut io.Writer

	// set by engine
	statePlace string
	sinkNames  []string
}

// NewRootCmd builds the matchwatch command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "matchwatch",
		Short: "Watch league match pages and report new log events",
		Long: `matchwatch follows the matches of one team in a league group, compares the
match logs with the last saved snapshot and posts newly appended scheduling
and result events to Discord or a websocket relay.

Settings come from the environment (optionally a .env file) and an optional
YAML watch file; flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML watch file (group_url, team, matches, check_interval)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.BoolVar(&a.logPretty, "pretty", false, "human readable console logs (env LOG_PRETTY)")
	flags.StringVar(&a.stateDriver, "state-driver", "", "state backend: file, sqlite, turso, postgres, s3 (env STATE_DRIVER)")
	flags.StringVar(&a.stateDir, "state-dir", "", "directory for the file and sqlite backends (env STATE_DIR)")

	root.AddCommand(a.watchCmd())
	root.AddCommand(a.checkCmd())
	root.AddCommand(a.discoverCmd())
	root.AddCommand(a.stateCmd())

	return root
}

// Execute runs the command tree and returns the process exit code
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorColor.Sprint("Error: ")+err.Error())
		return 1
	}
	return 0
}

func (a *app) load(cmd *cobra.Command) error {
	envPath := config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if a.configPath != "" {
		if err := cfg.ApplyWatchFile(a.configPath); err != nil {
			return err
		}
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.LogPretty = a.logPretty
	}
	if a.stateDriver != "" {
		cfg.StateDriver = a.stateDriver
	}
	if a.stateDir != "" {
		cfg.StateDir = a.stateDir
	}

	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.ServiceName,
		Out:     a.logOut,
	})
	if envPath != "" {
		zlog.Debug().Str("path", envPath).Msg("loaded .env")
	}

	a.cfg = cfg
	return nil
}

func (a *app) openStore(ctx context.Context) (storage.Store, error) {
	if err := a.cfg.Validate(false); err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, a.cfg.StorageOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s state store: %w", a.cfg.StateDriver, err)
	}
	return store, nil
}

func (a *app) client() *primeleague.Client {
	return primeleague.NewClient(
		primeleague.WithTimeout(a.cfg.HTTPTimeout),
		primeleague.WithUserAgent(a.cfg.UserAgent),
	)
}

// dispatcher builds the notifier from the configured sinks. The returned
// cleanup closes any open relay connection.
func (a *app) dispatcher() (*notify.Dispatcher, func()) {
	var sinks []notify.Sink
	cleanup := func() {}

	if a.cfg.DiscordWebhook != "" {
		sinks = append(sinks, notify.NewWebhookClient(a.cfg.DiscordWebhook))
	}
	if a.cfg.NotifyWSURL != "" {
		ws := notify.NewWebSocketSink(a.cfg.NotifyWSURL)
		sinks = append(sinks, ws)
		cleanup = func() { ws.Close() }
	}
	return notify.NewDispatcher(sinks...), cleanup
}

// engine assembles a reconciliation engine and returns a close func for its resources
func (a *app) engine(ctx context.Context) (*reconcile.Engine, func(), error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	d, closeSinks := a.dispatcher()

	a.statePlace = a.cfg.StateDriver
	if fs, ok := store.(*storage.FileStore); ok {
		a.statePlace = fs.Dir()
	}
	a.sinkNames = d.Sinks()
	zlog.Info().
		Str("state_driver", a.cfg.StateDriver).
		Str("state", a.statePlace).
		Strs("sinks", a.sinkNames).
		Msg("reconciliation engine ready")

	closeAll := func() {
		closeSinks()
		if err := store.Close(); err != nil {
			zlog.Warn().Err(err).Msg("error closing state store")
		}
	}
	return reconcile.NewEngine(a.client(), store, d), closeAll, nil
}
