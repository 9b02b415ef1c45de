package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	urfave "github.com/urfave/cli/v3"
	"github.com/zalando/go-keyring"
)

const (
	tokenFileName  = "images_api_token"
	keyringService = "nftmeta"
	keyringUser    = "images_api_token"
	tokenFileMode  = 0600
)

var errNoToken = errors.New("no image API token, run auth or set --token")

func newAuthCmd() *urfave.Command {
	return &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Store the image API token in the OS keychain",
		Action:          cmdAuth,
	}
}

func cmdAuth(_ context.Context, _ *urfave.Command) error {
	fmt.Print("Paste the image API token and hit enter:\n")
	fmt.Print(">")

	token, err := readToken(os.Stdin)
	if err != nil {
		return err
	}

	if err := saveAPIToken(token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}

	fmt.Println("Token saved")
	return nil
}

func readToken(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading user input: %w", err)
	}

	token := strings.TrimSpace(line)
	if token == "" {
		return "", errors.New("token cannot be empty")
	}
	return token, nil
}

func saveAPIToken(token string) error {
	if err := keyring.Set(keyringService, keyringUser, token); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveAPITokenFile(token)
	}

	// Clean up legacy file if it exists
	os.Remove(tokenFilePath())

	return nil
}

// getAPIToken returns flagToken when set, otherwise the stored token.
func getAPIToken(flagToken string) (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}

	// Try keychain first
	token, err := keyring.Get(keyringService, keyringUser)
	if err == nil && token != "" {
		return token, nil
	}

	// Fall back to file
	token, err = getAPITokenFile()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", errNoToken
		}
		return "", err
	}

	// Migrate to keychain
	if migrateErr := keyring.Set(keyringService, keyringUser, token); migrateErr == nil {
		slog.Info("migrated token from file to OS keychain")
		os.Remove(tokenFilePath())
	}

	return token, nil
}

func tokenFilePath() string {
	return filepath.Join(getHomeDir(), tokenFileName)
}

func saveAPITokenFile(token string) error {
	return os.WriteFile(tokenFilePath(), []byte(token), tokenFileMode)
}

func getAPITokenFile() (string, error) {
	path := tokenFilePath()
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading token file %s: %w", path, err)
	}
	return strings.TrimSpace(string(b)), nil
}
