package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/openfleet/internal/config"
	"github.com/openfleet/internal/logging"
	"github.com/openfleet/internal/server"
	"github.com/openfleet/internal/telemetry"
	"github.com/openfleet/internal/workspace"
)

// ReviewCommand returns the review command
func ReviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "review",
		Usage: "Serve a document for line-anchored review",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Path to the document to review",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "title",
				Aliases: []string{"t"},
				Usage:   "Human label for the review (defaults to the file name)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the review server (0 picks an available port)",
			},
		},
		Action: runReview,
	}
}

func runReview(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ws, err := workspace.Resolve(cfg.Workspace.Dir)
	if err != nil {
		return err
	}
	if err := ws.Init(); err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	logger := logging.Setup(cfg.Logging.Level, ws.LogFile())

	provider, err := telemetry.Init(c.Context, telemetry.LoadConfig())
	if err != nil {
		logger.Warn().Err(err).Msg("Telemetry init failed, continuing without spans")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(ctx)
	}()

	docPath, err := filepath.Abs(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to resolve document path: %w", err)
	}

	title := c.String("title")
	if title == "" {
		title = filepath.Base(docPath)
	}

	port := cfg.Server.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}

	srv := server.NewServer(server.Options{
		Host:           cfg.Server.Host,
		Port:           port,
		PollIntervalMs: cfg.Review.PollIntervalMs,
		AuditDir:       ws.Reviews(),
		Logger:         logger,
	})

	url, err := srv.Start()
	if err != nil {
		return err
	}

	rev, err := srv.CreateReview(docPath, title)
	if err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	fmt.Printf("Review ready: %s/review/%s\n", url, rev.ID)
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
