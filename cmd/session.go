package cmd

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/openfleet/internal/config"
	"github.com/openfleet/internal/session"
	"github.com/openfleet/internal/transcript"
	"github.com/openfleet/internal/workspace"
)

// SessionCommand returns the session command
func SessionCommand() *cli.Command {
	return &cli.Command{
		Name:  "session",
		Usage: "Manage saved conversation records",
		Subcommands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Write a numbered session record for today",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "slug",
						Usage:    "Kebab-case slug for the filename",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "title",
						Usage: "Session title (defaults to the slug)",
					},
					&cli.StringFlag{
						Name:  "summary",
						Usage: "One-paragraph summary of the session",
						Value: "No summary provided.",
					},
					&cli.StringFlag{
						Name:  "note",
						Usage: "Optional free-form note",
					},
					&cli.StringFlag{
						Name:  "session-id",
						Usage: "Harness session id (generated if omitted)",
					},
					&cli.IntFlag{
						Name:  "messages",
						Usage: "Number of messages in the session",
					},
					&cli.IntFlag{
						Name:  "tokens",
						Usage: "Token count before saving",
					},
				},
				Action: runSessionSave,
			},
		},
	}
}

func runSessionSave(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	ws, err := workspace.Resolve(cfg.Workspace.Dir)
	if err != nil {
		return err
	}
	if err := ws.Init(); err != nil {
		return fmt.Errorf("failed to initialize workspace: %w", err)
	}

	sessionID := c.String("session-id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	title := c.String("title")
	if title == "" {
		title = c.String("slug")
	}

	date := session.CurrentDate()
	entry := session.Entry{
		Date:           date,
		Counter:        session.NextCounter(ws.Sessions(), date),
		Slug:           c.String("slug"),
		Title:          title,
		SessionID:      sessionID,
		SavedAt:        time.Now().UTC(),
		MessageCount:   c.Int("messages"),
		TokensBefore:   c.Int("tokens"),
		Summary:        c.String("summary"),
		Note:           c.String("note"),
		TranscriptPath: transcript.Path(ws.Transcripts(), sessionID, ""),
	}

	path, err := session.Write(ws.Sessions(), entry)
	if err != nil {
		return err
	}

	journalErr := session.AppendJournal(ws.Sessions(), session.JournalEntry{
		SessionID:      sessionID,
		SavedAt:        entry.SavedAt,
		Note:           entry.Note,
		TokensBefore:   entry.TokensBefore,
		TranscriptPath: entry.TranscriptPath,
		MessageCount:   entry.MessageCount,
	})
	if journalErr != nil {
		fmt.Printf("Warning: session saved but journal append failed: %s\n", journalErr)
	}

	fmt.Printf("Session saved to %s\n", path)
	return nil
}
