package fallback

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed corpus.yml
var defaultDefinition []byte

// Definition describes how the demo corpus is generated.
type Definition struct {
	Seed       uint64     `yaml:"seed"`
	Count      int        `yaml:"count"`
	VideoEvery int        `yaml:"video_every"`
	MaxAgeDays int        `yaml:"max_age_days"`
	MaxViews   int        `yaml:"max_views"`
	Categories []Category `yaml:"categories"`
	TitleSeeds []string   `yaml:"title_seeds"`
	Authors    []string   `yaml:"authors"`
	Images     []string   `yaml:"images"`
	Videos     []string   `yaml:"videos"`
	Excerpt    string     `yaml:"excerpt"`
	Content    string     `yaml:"content"`
}

type Category struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

// DefaultDefinition returns the definition compiled into the binary.
func DefaultDefinition() (*Definition, error) {
	return ParseDefinition(defaultDefinition)
}

// LoadDefinition reads a definition from path, or the embedded one when path
// is empty.
func LoadDefinition(path string) (*Definition, error) {
	if path == "" {
		return DefaultDefinition()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	def, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", path, err)
	}
	return def, nil
}

func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&def)

	if err := validate(&def); err != nil {
		return nil, fmt.Errorf("invalid corpus definition: %w", err)
	}
	return &def, nil
}

func setDefaults(def *Definition) {
	if def.Count == 0 {
		def.Count = 50
	}
	if def.VideoEvery == 0 {
		def.VideoEvery = 6
	}
	if def.MaxAgeDays == 0 {
		def.MaxAgeDays = 10
	}
	if def.MaxViews == 0 {
		def.MaxViews = 25000
	}
	if len(def.Authors) == 0 {
		def.Authors = []string{"Admin"}
	}
}

func validate(def *Definition) error {
	if def.Count < 0 {
		return fmt.Errorf("count must be non-negative")
	}
	if def.VideoEvery < 0 || def.MaxAgeDays < 0 || def.MaxViews < 0 {
		return fmt.Errorf("video_every, max_age_days and max_views must be non-negative")
	}
	if len(def.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	for i, c := range def.Categories {
		if c.Slug == "" || c.Name == "" {
			return fmt.Errorf("category at index %d needs a slug and a name", i)
		}
	}
	if len(def.TitleSeeds) == 0 {
		return fmt.Errorf("at least one title seed is required")
	}
	if len(def.Images) == 0 {
		return fmt.Errorf("at least one image is required")
	}
	if len(def.Videos) == 0 && def.VideoEvery > 0 {
		return fmt.Errorf("video posts require at least one video URL")
	}
	return nil
}
