package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kbukum/httpsmgr/bootstrap"
	"github.com/kbukum/httpsmgr/config"
	"github.com/kbukum/httpsmgr/errors"
	"github.com/kbukum/httpsmgr/https"
	"github.com/kbukum/httpsmgr/logger"
	"github.com/kbukum/httpsmgr/message"
	"github.com/kbukum/httpsmgr/observability"
	"github.com/kbukum/httpsmgr/resilience"
	"github.com/kbukum/httpsmgr/validation"
	"github.com/kbukum/httpsmgr/version"
)

func newCLI() *cli.App {
	return &cli.App{
		Name:      serviceName,
		Usage:     "send requests through the poll-driven HTTPS transaction manager",
		ArgsUsage: "URL...",
		Version:   version.Short(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default: search ./config.yml, ./cmd/httpsctl/config.yml)",
				EnvVars: []string{config.EnvConfigFile},
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: ".env file to load before binding HTTPSCTL_* variables",
			},
			&cli.StringFlag{
				Name:    "method",
				Aliases: []string{"X"},
				Usage:   "request method",
				Value:   "GET",
			},
			&cli.StringSliceFlag{
				Name:    "header",
				Aliases: []string{"H"},
				Usage:   "request header as 'Name: value' (repeatable)",
			},
			&cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "request body",
			},
			&cli.Float64Flag{
				Name:  "rate",
				Usage: "dispatch at most this many requests per second (overrides dispatch.rate)",
			},
			&cli.BoolFlag{
				Name:    "include",
				Aliases: []string{"i"},
				Usage:   "print the response status line and headers",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	opts := []config.LoaderOption{config.WithEnvPrefix("HTTPSCTL")}
	if f := c.String("config"); f != "" {
		opts = append(opts, config.WithConfigFile(f))
	}
	if f := c.String("env-file"); f != "" {
		opts = append(opts, config.WithEnvFile(f))
	}
	cfg, err := config.Load[AppConfig](serviceName, opts...)
	if err != nil {
		return err
	}

	targets := c.Args().Slice()
	if len(targets) == 0 {
		targets = cfg.Targets
	}
	if err := validateTargets(targets); err != nil {
		return err
	}
	spec, err := buildRequest(c.String("method"), c.StringSlice("header"), c.String("data"))
	if err != nil {
		return err
	}

	if c.IsSet("rate") {
		cfg.Dispatch.Rate = c.Float64("rate")
	}

	app, err := bootstrap.NewApp(cfg)
	if err != nil {
		return err
	}
	logger.RegisterDefaults(cfg.HTTPS.Name, "transport")
	if err := initTelemetry(c.Context, app); err != nil {
		return err
	}
	comp := https.NewComponent(cfg.HTTPS)
	if err := app.RegisterComponent(comp); err != nil {
		return err
	}

	dispatch := cfg.Dispatch
	dispatch.OnLimit = func(name string) {
		app.Logger.Debug("dispatch paced", logger.Fields("limiter", name))
	}
	limiter := resilience.NewRateLimiter(dispatch)

	return app.RunTask(c.Context, func(ctx context.Context) error {
		results, err := run(ctx, comp.Manager(), targets, spec, limiter)
		report(c.App.Writer, results, c.Bool("include"))
		if err != nil {
			return err
		}
		if failed := countFailures(results); failed > 0 {
			return cli.Exit(fmt.Sprintf("%d of %d requests failed", failed, len(results)), 1)
		}
		return nil
	})
}

// validateTargets collects every unusable target into one validation error.
func validateTargets(targets []string) error {
	v := validation.New()
	v.Required("url", strings.Join(targets, ""))
	for i, t := range targets {
		v.TargetURL(fmt.Sprintf("url[%d]", i), t)
	}
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// buildRequest assembles the request template sent to every target.
func buildRequest(method string, headers []string, body string) (*requestSpec, error) {
	spec := &requestSpec{method: strings.ToUpper(method)}
	if spec.method == "" {
		spec.method = "GET"
	}
	tmpl := &message.Message{}
	for _, h := range headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, errors.InvalidInput("header", "expected 'Name: value', got "+h)
		}
		if err := tmpl.Add(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			return nil, err
		}
	}
	spec.headers = tmpl.Headers
	if body != "" {
		spec.body = []byte(body)
	}
	return spec, nil
}

// initTelemetry installs the OTLP providers the config enables and flushes
// them on shutdown.
func initTelemetry(ctx context.Context, app *bootstrap.App[*AppConfig]) error {
	cfg := app.Cfg
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, &cfg.Metrics.MeterConfig)
		if err != nil {
			return err
		}
		app.OnStop(func(ctx context.Context) error { return mp.Shutdown(ctx) })
	}
	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing.TracerConfig)
		if err != nil {
			return err
		}
		app.OnStop(func(ctx context.Context) error { return tp.Shutdown(ctx) })
	}
	if cfg.Metrics.Enabled || cfg.Tracing.Enabled {
		app.Logger.Debug("telemetry enabled", logger.Fields(
			"metrics", cfg.Metrics.Enabled,
			"tracing", cfg.Tracing.Enabled,
		))
	}
	return nil
}
