package main

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/petasbytes/aurora-agent/internal/config"
	"github.com/petasbytes/aurora-agent/internal/logger"
	"github.com/petasbytes/aurora-agent/internal/output"
	"github.com/petasbytes/aurora-agent/internal/provider"
	"github.com/petasbytes/aurora-agent/internal/runner"
	"github.com/petasbytes/aurora-agent/internal/telemetry"
	"github.com/petasbytes/aurora-agent/tools"
)

// version is set via ldflags at build time.
var version = "dev"

const usageLine = `Usage: aurora "<your task>"`

// appEnv holds what differs between a real run and a test.
type appEnv struct {
	printer    *output.Printer
	httpClient *http.Client // nil uses the SDK default
}

func newApp(env appEnv) *cli.Command {
	return &cli.Command{
		Name:        "aurora",
		Usage:       "Run a coding task against an OpenRouter-hosted model",
		UsageText:   `aurora <task words...>`,
		Version:     version,
		Description: "Every argument is part of the task; settings come from OPENROUTER_API_KEY, AURORA_* variables and AURORA_CONFIG.",
		// The prompt is free text: "-v" or "--x" belong to the task.
		SkipFlagParsing: true,
		HideHelp:        true,
		HideVersion:     true,
		// Exit codes are mapped in main.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runAgent(ctx, cmd, env)
		},
	}
}

func runAgent(ctx context.Context, cmd *cli.Command, env appEnv) error {
	p := env.printer

	cfg, err := config.Load()
	if err != nil {
		p.Error("config: %v", err)
		return cli.Exit("", 1)
	}
	if err := cfg.Validate(); err != nil {
		var serr *config.StartupError
		if errors.As(err, &serr) {
			return cli.Exit(serr.Msg, 1)
		}
		p.Error("config: %v", err)
		return cli.Exit("", 1)
	}

	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return cli.Exit((&config.StartupError{Msg: usageLine}).Error(), 1)
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		p.Error("logger: %v", err)
		return cli.Exit("", 1)
	}
	defer log.Sync() //nolint:errcheck

	events, err := telemetry.New(cfg.Telemetry())
	if err != nil {
		log.Warn("telemetry disabled", zap.Error(err))
		events = telemetry.Nop()
	}
	defer events.Close() //nolint:errcheck

	pcfg := cfg.Provider()
	pcfg.HTTPClient = env.httpClient
	pcfg.Logger = log.Named("provider").Logger
	client := provider.NewAnthropicClient(pcfg)

	dispatcher := tools.NewDispatcher(
		tools.WithTimeouts(cfg.Timeouts()),
		tools.WithLogger(log.Named("tools").Logger),
	)

	r := runner.New(client, dispatcher,
		runner.WithMaxTurns(cfg.MaxTurns),
		runner.WithRequestTimeout(cfg.RequestTimeout),
		runner.WithReporter(p),
		runner.WithLogger(log.Named("runner").Logger),
		runner.WithEvents(events),
	)

	p.Header(client.Model(), prompt)
	res, err := r.Run(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.Canceled) {
			p.Error("Interrupted.")
			return cli.Exit("", 130)
		}
		p.Error("API error: %s", err)
		return cli.Exit("", 1)
	}

	if res.BudgetExhausted {
		p.BudgetExhausted(cfg.MaxTurns)
	} else {
		p.Done()
	}
	p.Summary(res.Tally)
	log.Debug("run complete",
		zap.String("state", res.State.String()),
		zap.Int("turns", res.Turns),
		zap.Int("tool_calls", res.ToolCalls),
	)
	return nil
}
