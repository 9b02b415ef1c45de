package cli

import (
	"context"
	"fmt"

	"github.com/mchmarny/nftmeta/pkg/net"
	"github.com/mchmarny/nftmeta/pkg/upload"
	urfave "github.com/urfave/cli/v3"
)

const (
	accountFlagName  = "account"
	tokenFlagName    = "token"
	dirFlagName      = "dir"
	prefixFlagName   = "prefix"
	parallelFlagName = "parallel"
	endpointFlagName = "endpoint"
)

func newUploadCmd() *urfave.Command {
	return &urfave.Command{
		Name:  "upload",
		Usage: "Upload every file in a directory to the image API",
		UsageText: `nftmeta upload --account ACCOUNT_ID --dir ./images --prefix seal-   # image 42.webp is uploaded as seal-42
   CF_API_TOKEN=... nftmeta upload --account ACCOUNT_ID --dir ./images`,
		HideHelpCommand: true,
		Action:          cmdUpload,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:    accountFlagName,
				Usage:   "Image API account ID",
				Sources: urfave.EnvVars("CF_ACCOUNT_ID"),
			},
			&urfave.StringFlag{
				Name:    tokenFlagName,
				Usage:   "Image API token (optional, defaults to the token stored by auth)",
				Sources: urfave.EnvVars("CF_API_TOKEN"),
			},
			&urfave.StringFlag{
				Name:     dirFlagName,
				Usage:    "Directory with the image files",
				Required: true,
			},
			&urfave.StringFlag{
				Name:  prefixFlagName,
				Usage: "Prefix prepended to every image id",
			},
			&urfave.IntFlag{
				Name:  parallelFlagName,
				Usage: "Number of concurrent uploads",
				Value: 1,
			},
			&urfave.StringFlag{
				Name:   endpointFlagName,
				Usage:  "Override the upload URL",
				Hidden: true,
			},
		},
	}
}

func cmdUpload(ctx context.Context, cmd *urfave.Command) error {
	cfg := getConfig(cmd)

	token, err := getAPIToken(cmd.String(tokenFlagName))
	if err != nil {
		return err
	}

	opts := []upload.Option{upload.WithParallel(cmd.Int(parallelFlagName))}
	if e := cmd.String(endpointFlagName); e != "" {
		opts = append(opts, upload.WithEndpoint(e))
	}

	u, err := upload.New(net.GetBearerClient(ctx, token), cmd.String(accountFlagName), cmd.String(prefixFlagName), opts...)
	if err != nil {
		return fmt.Errorf("creating uploader: %w", err)
	}

	s, err := u.UploadDir(ctx, cmd.String(dirFlagName))
	if err != nil {
		return fmt.Errorf("uploading images: %w", err)
	}

	return encode(cfg, s)
}
