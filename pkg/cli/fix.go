package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mchmarny/nftmeta/pkg/attr"
	"github.com/mchmarny/nftmeta/pkg/metadata"
	"github.com/mchmarny/nftmeta/pkg/score"
	"github.com/mchmarny/nftmeta/pkg/store"
	urfave "github.com/urfave/cli/v3"
)

const (
	metadataFlagName = "metadata"
	namesFlagName    = "names"
	outFlagName      = "out"
	statsFlagName    = "stats"
	saveFlagName     = "save"
)

// FixResult summarizes a fix run.
type FixResult struct {
	Tokens     int    `json:"tokens" yaml:"tokens"`
	Categories int    `json:"categories" yaml:"categories"`
	TokensPath string `json:"tokens_path" yaml:"tokensPath"`
	StatsPath  string `json:"stats_path" yaml:"statsPath"`
	DBPath     string `json:"db_path,omitempty" yaml:"dbPath,omitempty"`
	Duration   string `json:"duration" yaml:"duration"`
}

func newFixCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "fix",
		Usage: "Rename attributes, score tokens and write the token list and collection stats",
		UsageText: `nftmeta fix                                              # ./metadata.json -> ./nfts.json, ./stats.json
   nftmeta fix --metadata m.json --names names.json --save   # also store results in the database`,
		HideHelpCommand: true,
		Action:          cmdFix,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  metadataFlagName,
				Usage: "Path to the collection metadata JSON",
				Value: "./metadata.json",
			},
			&urfave.StringFlag{
				Name:  namesFlagName,
				Usage: "Path to the attribute names JSON",
				Value: "./attributes_names.json",
			},
			&urfave.StringFlag{
				Name:  outFlagName,
				Usage: "Path of the token list output",
				Value: "./nfts.json",
			},
			&urfave.StringFlag{
				Name:  statsFlagName,
				Usage: "Path of the collection stats output",
				Value: "./stats.json",
			},
			&urfave.BoolFlag{
				Name:  saveFlagName,
				Usage: "Store tokens and stats in the database (optional, default: false)",
			},
		},
	}
}

func cmdFix(_ context.Context, cmd *urfave.Command) error {
	start := time.Now()
	cfg := getConfig(cmd)

	doc, err := metadata.LoadCollection(cmd.String(metadataFlagName))
	if err != nil {
		return err
	}

	names, err := attr.LoadNameTable(cmd.String(namesFlagName))
	if err != nil {
		return err
	}

	res, err := score.Fix(doc, names, cfg.Collection)
	if err != nil {
		return fmt.Errorf("fixing metadata: %w", err)
	}

	out := &FixResult{
		Tokens:     len(res.Tokens),
		Categories: len(res.Stats.Categories()),
		TokensPath: cmd.String(outFlagName),
		StatsPath:  cmd.String(statsFlagName),
	}

	if err := metadata.WriteJSON(out.TokensPath, res.Tokens); err != nil {
		return err
	}
	if err := metadata.WriteJSON(out.StatsPath, res.Stats); err != nil {
		return err
	}
	slog.Info("metadata fixed", "tokens", out.Tokens, "out", out.TokensPath, "stats", out.StatsPath)

	if cmd.Bool(saveFlagName) {
		out.DBPath = cfg.dbPath()
		if err := saveResult(out.DBPath, res); err != nil {
			return fmt.Errorf("saving results: %w", err)
		}
		slog.Info("results saved", "db", out.DBPath)
	}

	out.Duration = time.Since(start).String()
	if err := encode(cfg, out); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	return nil
}

func saveResult(dbPath string, res *score.Result) error {
	if err := store.Init(dbPath); err != nil {
		return err
	}

	db, err := store.GetDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.SaveTokens(db, res.Tokens); err != nil {
		return err
	}
	return store.SaveStats(db, res.Stats)
}
