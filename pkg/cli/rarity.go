package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mchmarny/nftmeta/pkg/metadata"
	"github.com/mchmarny/nftmeta/pkg/rarity"
	urfave "github.com/urfave/cli/v3"
)

const rarityFlagName = "rarity"

type AppendResult struct {
	Path    string `json:"path" yaml:"path"`
	Updated int    `json:"updated" yaml:"updated"`
}

type ExportResult struct {
	Path   string         `json:"path" yaml:"path"`
	Tokens int            `json:"tokens" yaml:"tokens"`
	Types  map[string]int `json:"types" yaml:"types"`
}

func newRarityCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "rarity",
		Usage:           "Work with an externally computed rarity table (id,rarity CSV)",
		HideHelpCommand: true,
		Commands: []*urfave.Command{
			{
				Name:            "append",
				Usage:           "Append id and rarity traits to every entry of the metadata file, in place",
				UsageText:       "nftmeta rarity append --metadata metadata.json --rarity rarity.csv",
				HideHelpCommand: true,
				Action:          cmdRarityAppend,
				Flags: []urfave.Flag{
					metadataPathFlag(),
					rarityPathFlag(),
				},
			},
			{
				Name:            "export",
				Usage:           "Write the token list with rarity and rarity type",
				UsageText:       "nftmeta rarity export --metadata metadata.json --rarity rarity.csv --out nfts.json",
				HideHelpCommand: true,
				Action:          cmdRarityExport,
				Flags: []urfave.Flag{
					metadataPathFlag(),
					rarityPathFlag(),
					&urfave.StringFlag{
						Name:     outFlagName,
						Usage:    "Path of the token list output",
						Required: true,
					},
				},
			},
		},
	}
}

func metadataPathFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:     metadataFlagName,
		Usage:    "Path to the collection metadata JSON",
		Required: true,
	}
}

func rarityPathFlag() *urfave.StringFlag {
	return &urfave.StringFlag{
		Name:     rarityFlagName,
		Usage:    "Path to the rarity CSV",
		Required: true,
	}
}

func cmdRarityAppend(_ context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)
	path := cmd.String(metadataFlagName)

	t, err := rarity.LoadTable(cmd.String(rarityFlagName))
	if err != nil {
		return err
	}

	n, err := rarity.AppendToMetadata(path, t)
	if err != nil {
		return fmt.Errorf("appending rarity: %w", err)
	}
	slog.Info("rarity appended", "path", path, "entries", n)

	return encode(cfg, &AppendResult{Path: path, Updated: n})
}

func cmdRarityExport(_ context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	doc, err := metadata.LoadCollection(cmd.String(metadataFlagName))
	if err != nil {
		return err
	}

	t, err := rarity.LoadTable(cmd.String(rarityFlagName))
	if err != nil {
		return err
	}

	list, err := rarity.Export(doc, t, cfg.Collection.ArtifactPrefix)
	if err != nil {
		return fmt.Errorf("exporting rarity: %w", err)
	}

	res := &ExportResult{
		Path:   cmd.String(outFlagName),
		Tokens: len(list),
		Types:  make(map[string]int),
	}
	for _, tk := range list {
		res.Types[tk.RarityType]++
	}

	if err := metadata.WriteJSON(res.Path, list); err != nil {
		return err
	}
	slog.Info("rarity exported", "path", res.Path, "tokens", res.Tokens)

	return encode(cfg, res)
}
