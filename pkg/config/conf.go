package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	dirMode  = 0700
	fileMode = 0600

	// IDToken and CIDToken are substituted in the name and image templates.
	IDToken  = "{id}"
	CIDToken = "{cid}"
)

// Config holds the collection rules applied by the metadata commands.
// Default returns the values used for the Dero Seals collection.
type Config struct {
	FolderCID          string       `yaml:"folder_cid"`
	NameTemplate       string       `yaml:"name_template"`
	ImageTemplate      string       `yaml:"image_template"`
	ArtifactPrefix     string       `yaml:"artifact_prefix"`
	ExcludedCategories []string     `yaml:"excluded_categories"`
	Eyes               EyesRule     `yaml:"eyes"`
	Placeholders       Placeholders `yaml:"placeholders"`
}

// EyesRule forces Category to Value for tokens wearing Trigger in TriggerCategory.
type EyesRule struct {
	TriggerCategory string   `yaml:"trigger_category"`
	TriggerValue    string   `yaml:"trigger_value"`
	Category        string   `yaml:"category"`
	Value           string   `yaml:"value"`
	Replaceable     []string `yaml:"replaceable"`
}

// Placeholders describes the reserved slots at the end of the score-sorted list.
type Placeholders struct {
	Count         int     `yaml:"count"`
	TailOffset    int     `yaml:"tail_offset"`
	NameTemplate  string  `yaml:"name_template"`
	ImageTemplate string  `yaml:"image_template"`
	SpecialIndex  int     `yaml:"special_index"`
	SpecialName   string  `yaml:"special_name"`
	SpecialImage  string  `yaml:"special_image"`
	Score         float64 `yaml:"score"`
}

// Default returns the configuration of the original collection run.
func Default() *Config {
	return &Config{
		FolderCID:          "QmP3HnzWpiaBA6ZE8c3dy5ExeG7hnYjSqkNfVbeVW5iEp6",
		NameTemplate:       "Dero Seals #{id}",
		ImageTemplate:      "ipfs://{cid}/low/{id}.jpg",
		ArtifactPrefix:     "Untitled_Artwork ",
		ExcludedCategories: []string{"Background", "Base"},
		Eyes: EyesRule{
			TriggerCategory: "Shirts",
			TriggerValue:    "Dero Man Suit",
			Category:        "Eyes",
			Value:           "Blue Eyes",
			Replaceable:     []string{"Green Eyes", "Red Eyes", "Blue Eyes"},
		},
		Placeholders: Placeholders{
			Count:         9,
			TailOffset:    10,
			NameTemplate:  "Captain #{id}",
			ImageTemplate: "ipfs://{cid}/low/captain.jpg",
			SpecialIndex:  3499,
			SpecialName:   "Jeff",
			SpecialImage:  "ipfs://{cid}/low/jeff.jpg",
			Score:         100,
		},
	}
}

// Render substitutes the token id and the folder CID into tmpl. The id is used
// as written in the metadata, so leading zeros are kept.
func (c *Config) Render(tmpl, id string) string {
	return strings.NewReplacer(
		IDToken, id,
		CIDToken, c.FolderCID,
	).Replace(tmpl)
}

// IsExcluded reports whether the capitalized category is left out of attributes.
func (c *Config) IsExcluded(category string) bool {
	for _, e := range c.ExcludedCategories {
		if e == category {
			return true
		}
	}
	return false
}

// Load reads the YAML file at path over the defaults.
// An empty path returns Default.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	slog.Debug("config loaded", "path", path)
	return c, nil
}

func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}

	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	return nil
}

// GetOrCreateHomeDir returns the home directory for the current user.
// The create flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("getting user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		slog.Debug("creating dir", "path", dir)
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("creating dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
