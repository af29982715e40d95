package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appkg "github.com/xenking/restoran/internal/app"
	"github.com/xenking/restoran/internal/notify"
)

func main() {
	globals, cmd, args := splitArgs(os.Args[1:])
	if cmd == "" || cmd == "help" {
		usage(os.Stdout)
		return
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig(globals)
		if err != nil {
			return err
		}
		lg = lg.WithOptions(zap.IncreaseLevel(parseLevel(cfg.LogLevel)))
		ctx = zctx.Base(ctx, lg)

		notifier := notify.Multi{notify.NewWriter(os.Stdout), notify.NewLogger(lg.Named("notify"))}
		a, err := appkg.New(ctx, cfg, lg, notifier,
			appkg.WithTracerProvider(m.TracerProvider()),
			appkg.WithMeterProvider(m.MeterProvider()),
		)
		if err != nil {
			return errors.Wrap(err, "init")
		}
		defer func() { _ = a.Close() }()

		return run(ctx, &cli{app: a, out: os.Stdout}, cmd, args)
	})
}

// splitArgs separates leading global flags from the command and its args.
func splitArgs(all []string) (globals []string, cmd string, args []string) {
	for i := 0; i < len(all); i++ {
		a := all[i]
		if !strings.HasPrefix(a, "-") {
			return globals, a, all[i+1:]
		}
		globals = append(globals, a)
		// Config flags all take a value, so "-flag value" consumes the next arg.
		if !strings.Contains(a, "=") && i+1 < len(all) && !strings.HasPrefix(all[i+1], "-") {
			i++
			globals = append(globals, all[i])
		}
	}
	return globals, "", nil
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.WarnLevel
	}
	return lvl
}
