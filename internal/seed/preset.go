// Package seed populates a database with demo content for development and
// manual testing. Everything goes through the service layer, so seeded data
// obeys the same rules as real traffic.
package seed

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset describes how much demo content to create.
type Preset struct {
	Name             string   `yaml:"name"`
	Profiles         int      `yaml:"profiles"`
	PostsPerProfile  int      `yaml:"posts_per_profile"`
	DraftsPerProfile int      `yaml:"drafts_per_profile"`
	Tags             []string `yaml:"tags"`
	MaxTagsPerPost   int      `yaml:"max_tags_per_post"`
	// Probabilities in [0,1] that a given profile engages with a given post.
	LikeProbability     float64 `yaml:"like_probability"`
	BookmarkProbability float64 `yaml:"bookmark_probability"`
	CommentProbability  float64 `yaml:"comment_probability"`
	// RandomSeed makes runs reproducible; 0 picks a random seed.
	RandomSeed int64 `yaml:"random_seed"`
}

// DefaultPreset is used when no preset file is given.
var DefaultPreset = Preset{
	Name:                "default",
	Profiles:            10,
	PostsPerProfile:     5,
	DraftsPerProfile:    1,
	Tags:                []string{"go", "databases", "web", "devops", "testing", "design", "career"},
	MaxTagsPerPost:      3,
	LikeProbability:     0.3,
	BookmarkProbability: 0.1,
	CommentProbability:  0.2,
}

// LoadPreset reads a YAML preset from path.
func LoadPreset(path string) (Preset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(raw)
}

// ParsePreset decodes a YAML preset. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func ParsePreset(raw []byte) (Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	if p.MaxTagsPerPost == 0 {
		p.MaxTagsPerPost = len(p.Tags)
	}
	if err := p.Validate(); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// Validate checks that counts are non-negative and probabilities in range.
func (p Preset) Validate() error {
	if p.Profiles < 1 {
		return errors.New("preset needs at least one profile")
	}
	if p.PostsPerProfile < 0 || p.DraftsPerProfile < 0 || p.MaxTagsPerPost < 0 {
		return errors.New("preset counts must not be negative")
	}
	for name, v := range map[string]float64{
		"like_probability":     p.LikeProbability,
		"bookmark_probability": p.BookmarkProbability,
		"comment_probability":  p.CommentProbability,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}
	return nil
}
