package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/specialistvlad/gridkit/internal/cli"
	"github.com/specialistvlad/gridkit/internal/feature"
	"github.com/specialistvlad/gridkit/internal/web"
	"github.com/specialistvlad/gridkit/modules/health"
	"github.com/specialistvlad/gridkit/modules/metrics"
	"github.com/specialistvlad/gridkit/modules/realtime"
)

// main is the entrypoint for the gridkit application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	// The real main function handles errors and exit codes.
	if err != nil {
		if exitErr, ok := err.(*cli.ExitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// builtinFeatures returns fresh instances of every feature shipped with
// gridkit. Logging is installed by the app itself.
func builtinFeatures() []feature.Feature {
	return []feature.Feature{
		web.Feature{},
		health.Feature{},
		metrics.Feature{},
		realtime.Feature{},
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	return cli.Execute(ctx, cli.NewCommand(outW, builtinFeatures), args)
}
