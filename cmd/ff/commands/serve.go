package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/TimurManjosov/flagfile/internal/api"
	"github.com/TimurManjosov/flagfile/internal/config"
	"github.com/TimurManjosov/flagfile/internal/snapshot"
	"github.com/TimurManjosov/flagfile/internal/telemetry"
)

var (
	servePort     int
	serveHostname string
	serveWatch    bool
	serveConfig   string
	serveEnv      string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Flagfile over HTTP with live updates",
	Long: `Serve distributes the Flagfile to remote clients: raw document at
/flagfile, single-flag evaluation at /eval/{flag}, update events at
/events, and Prometheus metrics at /metrics.

Settings come from ff.toml and FF_* environment variables; command
flags override both.

Examples:
  ff serve
  ff serve -p 9000 --hostname 0.0.0.0 -e prod -w`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(serveConfig)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if cmd.Flags().Changed("hostname") {
			cfg.Hostname = serveHostname
		}
		if cmd.Flags().Changed("env") {
			cfg.Env = serveEnv
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch = serveWatch
		}
		if cmd.Flags().Changed("flagfile") {
			cfg.Flagfile = flagfilePath
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

		state, err := snapshot.LoadFile(cfg.Flagfile)
		if err != nil {
			return err
		}
		telemetry.Init()
		log.Info().Str("flagfile", cfg.Flagfile).Int("flags", len(state.File.Names())).Str("etag", state.ETag).Msg("flagfile loaded")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Watch {
			go func() {
				if err := snapshot.Watch(ctx, cfg.Flagfile, log); err != nil && ctx.Err() == nil {
					log.Error().Err(err).Msg("flagfile watcher stopped")
				}
			}()
		}

		return api.NewServer(cfg, log).ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHostname, "hostname", "127.0.0.1", "Hostname to bind to")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Reload the Flagfile on changes")
	serveCmd.Flags().StringVarP(&serveConfig, "config", "c", "ff.toml", "Path to config file")
	serveCmd.Flags().StringVarP(&serveEnv, "env", "e", "", "Environment to evaluate @env rules against")
}
