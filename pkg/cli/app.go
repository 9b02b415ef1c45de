package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mchmarny/nftmeta/pkg/config"
	"github.com/mchmarny/nftmeta/pkg/logging"
	"github.com/mchmarny/nftmeta/pkg/store"
	urfave "github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	appName      = "nftmeta"
	appConfigKey = "app-config"

	formatJSON = "json"
	formatYAML = "yaml"

	debugFlagName    = "debug"
	logLevelFlagName = "log-level"
	configFlagName   = "config"
	dbFlagName       = "db"
	formatFlagName   = "format"
)

var (
	version = "v0.0.1-default"
	commit  = ""
	date    = ""
)

// Execute creates and runs the CLI application.
func Execute() {
	initLogging(false)

	app := newApp(os.Stdout)
	if err := app.Run(context.Background(), os.Args); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

type appConfig struct {
	Collection *config.Config
	DBPath     string
	Format     string
	Out        io.Writer
}

// dbPath returns the database path, defaulting to the app home dir.
func (c *appConfig) dbPath() string {
	if c.DBPath == "" {
		c.DBPath = filepath.Join(getHomeDir(), store.DataFileName)
	}
	return c.DBPath
}

func getConfig(cmd *urfave.Command) *appConfig {
	return cmd.Root().Metadata[appConfigKey].(*appConfig)
}

func newApp(out io.Writer) *urfave.Command {
	return &urfave.Command{
		Name:                  appName,
		Version:               fmt.Sprintf("%s (%s - %s)", version, commit, date),
		EnableShellCompletion: true,
		HideHelpCommand:       true,
		Usage:                 "Tools for NFT collection metadata: scoring, stats, rarity and image upload",
		Metadata:              map[string]any{},
		Flags: []urfave.Flag{
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:    logLevelFlagName,
				Usage:   "Log level [debug, info, warn, error]",
				Value:   "info",
				Sources: urfave.EnvVars("NFTMETA_LOG_LEVEL"),
			},
			&urfave.StringFlag{
				Name:    configFlagName,
				Usage:   "Path to the collection config YAML (optional, defaults to built-in collection rules)",
				Sources: urfave.EnvVars("NFTMETA_CONFIG"),
			},
			&urfave.StringFlag{
				Name:    dbFlagName,
				Usage:   "Path to the Sqlite database file (optional, defaults to $HOME/.nftmeta/nftmeta.db)",
				Sources: urfave.EnvVars("NFTMETA_DB"),
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml]",
				Value: formatJSON,
			},
		},
		Commands: []*urfave.Command{
			newFixCmd(),
			newRarityCmd(),
			newUploadCmd(),
			newAuthCmd(),
			newTopCmd(),
			newStatsCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			if cmd.Bool(debugFlagName) {
				initLogging(true)
			} else {
				logging.SetDefaultCLILogger(cmd.String(logLevelFlagName))
			}

			c, err := config.Load(cmd.String(configFlagName))
			if err != nil {
				return ctx, fmt.Errorf("loading config: %w", err)
			}

			format := formatJSON
			if f := cmd.String(formatFlagName); f == formatYAML || f == "yml" {
				format = formatYAML
			}

			cmd.Metadata[appConfigKey] = &appConfig{
				Collection: c,
				DBPath:     cmd.String(dbFlagName),
				Format:     format,
				Out:        out,
			}
			return ctx, nil
		},
	}
}

func initLogging(debug bool) {
	level := "info"
	if debug {
		level = "debug"
	}
	logging.SetDefaultCLILogger(level)
}

func getHomeDir() string {
	dir, created, err := config.GetOrCreateHomeDir(appName)
	if err != nil {
		slog.Debug("error getting home dir, using current dir instead", "error", err)
		return "."
	}
	if created {
		slog.Debug("created home dir", "path", dir)
	}
	return dir
}

func encode(cfg *appConfig, v any) error {
	if cfg.Format == formatYAML {
		return yaml.NewEncoder(cfg.Out).Encode(v)
	}
	e := json.NewEncoder(cfg.Out)
	e.SetIndent("", "  ")
	return e.Encode(v)
}
