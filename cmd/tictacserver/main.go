package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/tictac/internal/config"
	"github.com/udisondev/tictac/internal/match"
)

const defaultConfigPath = "config/server.yaml"

func main() {
	cobra.CheckErr(newCmd().Execute())
}

func newCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("TICTAC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var (
		configPath string
		bind       string
		port       int
		maxClients int
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "tictacserver",
		Short:         "A multi-user server mediating two-player tic-tac-toe matches over TCP.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServer(configPath)
			if err != nil {
				return err
			}

			// Flags override the config file.
			fs := cmd.Flags()
			if fs.Changed("bind") {
				cfg.BindAddress = bind
			}
			if fs.Changed("port") {
				cfg.Port = port
			}
			if fs.Changed("max-clients") {
				cfg.MaxClients = maxClients
			}
			if fs.Changed("log-level") {
				cfg.LogLevel = logLevel
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&configPath, "config", "c", defaultConfigPath, "path to YAML config (env: TICTAC_CONFIG)")
	fs.StringVarP(&bind, "bind", "b", "0.0.0.0", "address to bind to (env: TICTAC_BIND)")
	fs.IntVarP(&port, "port", "p", 0, "TCP port to listen on (env: TICTAC_PORT)")
	fs.IntVar(&maxClients, "max-clients", 64, "maximum concurrent client sessions (env: TICTAC_MAX_CLIENTS)")
	fs.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error (env: TICTAC_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func run(ctx context.Context, cfg config.Server) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("tictac server starting", "bind", cfg.BindAddress, "port", cfg.Port, "max_clients", cfg.MaxClients)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// SIGHUP is the shutdown signal of the protocol; SIGINT/SIGTERM get
	// the same cooperative treatment. SIGPIPE needs no handling: the Go
	// runtime surfaces writes to dead sockets as errors.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	srv := match.NewServer(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("match server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
