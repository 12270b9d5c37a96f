package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/internal/config"
	"github.com/petasbytes/aurora-agent/internal/logger"
	"github.com/petasbytes/aurora-agent/internal/proxy"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp(os.Stdout).Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "aurora-proxy",
		Usage:     "Route Anthropic Messages API clients to one OpenRouter model",
		ArgsUsage: "[target-model] [port]",
		Version:   version,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.APIKey == "" {
				return errors.New("ERROR: " + config.ErrMissingAPIKey.Error())
			}
			pc, err := proxyConfig(cfg, cmd.Args().Slice())
			if err != nil {
				return err
			}

			// Request lines are logged at info.
			logCfg := cfg.Log
			if logCfg.Level == "warn" {
				logCfg.Level = "info"
			}
			log, err := logger.New(&logCfg)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			srv, err := proxy.New(pc, log.Named("proxy"))
			if err != nil {
				return err
			}

			pterm.Info.WithWriter(w).Printfln("Listening on http://localhost:%d", pc.Port)
			pterm.Info.WithWriter(w).Printfln("Routing all models -> %s", pc.TargetModel)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
			return <-errCh
		},
	}
}

// proxyConfig applies the positional [target-model] [port] over the loaded
// settings.
func proxyConfig(cfg *config.Config, args []string) (proxy.Config, error) {
	pc := proxy.Config{
		TargetModel: cfg.Proxy.TargetModel,
		Port:        cfg.Proxy.Port,
		Upstream:    cfg.Proxy.Upstream,
		APIKey:      cfg.APIKey,
	}
	if len(args) > 2 {
		return pc, fmt.Errorf("expected at most 2 arguments, got %d", len(args))
	}
	if len(args) > 0 && args[0] != "" {
		pc.TargetModel = args[0]
	}
	if len(args) > 1 {
		port, err := strconv.Atoi(args[1])
		if err != nil || port < 1 || port > 65535 {
			return pc, fmt.Errorf("invalid port %q", args[1])
		}
		pc.Port = port
	}
	return pc, nil
}
