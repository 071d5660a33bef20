// Command server serves the cleaned station and price data over HTTP and
// reruns the pipeline on POST /api/v1/refresh.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"tankyou/internal/app"
	"tankyou/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stderr, nil))
}

func run(ctx context.Context, args []string, stderr io.Writer, logger *slog.Logger) int {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "YAML configuration file")
	port := fs.Int("port", 0, "listen port (overrides configuration)")
	baseDir := fs.String("dir", "", "base directory for data and logs (default: working directory)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(stderr, "configuration error: %v\n", err)
		return 1
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *baseDir != "" {
		cfg.Paths.BaseDir = *baseDir
	}

	a, err := app.New(ctx, cfg, app.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(stderr, "initialization error: %v\n", err)
		return 1
	}

	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(stderr, "server error: %v\n", err)
		return 1
	}
	return 0
}
