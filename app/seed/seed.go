// Package seed holds the fixed posts a new store starts with and the
// templates the feed generator cycles through.
package seed

import (
	_ "embed"
	"fmt"

	"bridgeus/app/models"

	"gopkg.in/yaml.v3"
)

//go:embed feed.yaml
var feedYAML []byte

// Template is the fixed part of a generated post.
type Template struct {
	Title   string        `yaml:"title"`
	Preview string        `yaml:"preview"`
	Tags    []string      `yaml:"tags"`
	Author  models.Author `yaml:"author"`
}

// Data is the decoded fixture file.
type Data struct {
	Posts     []models.Post `yaml:"posts"`
	Templates []Template    `yaml:"templates"`
}

// Parse decodes a fixture document and validates it.
func Parse(raw []byte) (*Data, error) {
	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode seed data: %w", err)
	}
	if len(data.Templates) == 0 {
		return nil, fmt.Errorf("seed data has no templates")
	}

	seen := make(map[string]bool, len(data.Posts))
	for i := range data.Posts {
		p := &data.Posts[i]
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("seed post %d: %w", i, err)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("seed post %d: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
	}
	return &data, nil
}

// Load returns the embedded fixtures.
func Load() (*Data, error) {
	return Parse(feedYAML)
}

// MustLoad is Load for callers that treat broken fixtures as a programming
// error.
func MustLoad() *Data {
	data, err := Load()
	if err != nil {
		panic(err)
	}
	return data
}
