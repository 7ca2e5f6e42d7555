package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dermrisk/backend/internal/audit"
	"github.com/dermrisk/backend/internal/config"
	"github.com/dermrisk/backend/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

var (
	limitFlag = &cli.StringFlag{
		Name:  "limit",
		Usage: "Number of entries to show",
		Value: "20",
	}

	auditCmd = &cli.Command{
		Name:  "audit",
		Usage: "List the most recent logged predictions (uses DB_* environment)",
		Flags: []cli.Flag{
			limitFlag,
		},
		Action: cmdAudit,
	}
)

func cmdAudit(ctx context.Context, cmd *cli.Command) error {
	limit, err := strconv.Atoi(cmd.String(limitFlag.Name))
	if err != nil || limit <= 0 {
		return fmt.Errorf("limit must be a positive integer, got %q", cmd.String(limitFlag.Name))
	}

	cfg := config.Load()
	if !cfg.DB.Enabled {
		return fmt.Errorf("audit log not configured: set DB_HOST")
	}

	db, err := database.Connect(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := audit.NewStore(db).Recent(ctx, limit)
	if err != nil {
		return err
	}
	log.Debug().Int("count", len(entries)).Msg("fetched audit entries")

	if entries == nil {
		entries = []audit.Entry{}
	}
	return printOut(cmd.Root().Writer, cmd.Root().String(formatFlag.Name), entries)
}
