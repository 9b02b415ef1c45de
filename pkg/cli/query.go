package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mchmarny/nftmeta/pkg/store"
	urfave "github.com/urfave/cli/v3"
)

const (
	limitFlagName       = "limit"
	topLimitDefault     = 10
	queryResultLimitMax = 10000
)

func newTopCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "top",
		Usage:           "List the highest ranked tokens saved by fix --save",
		HideHelpCommand: true,
		Action:          cmdTop,
		Flags: []urfave.Flag{
			&urfave.IntFlag{
				Name:  limitFlagName,
				Usage: "Limits number of result returned",
				Value: topLimitDefault,
			},
		},
	}
}

func newStatsCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "stats",
		Usage:           "Print the collection stats saved by fix --save",
		HideHelpCommand: true,
		Action:          cmdStats,
	}
}

func cmdTop(_ context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	limit := cmd.Int(limitFlagName)
	if limit < 1 || limit > queryResultLimitMax {
		return fmt.Errorf("limit must be between 1 and %d", queryResultLimitMax)
	}

	return withDB(cfg, func(db *sql.DB) error {
		list, err := store.GetTopTokens(db, limit)
		if err != nil {
			return fmt.Errorf("querying top tokens: %w", err)
		}
		return encode(cfg, list)
	})
}

func cmdStats(_ context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	return withDB(cfg, func(db *sql.DB) error {
		list, err := store.GetCategoryStats(db)
		if err != nil {
			return fmt.Errorf("querying stats: %w", err)
		}
		return encode(cfg, list)
	})
}

func withDB(cfg *appConfig, fn func(*sql.DB) error) error {
	path := cfg.dbPath()
	if err := store.Init(path); err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}

	db, err := store.GetDB(path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return fn(db)
}
